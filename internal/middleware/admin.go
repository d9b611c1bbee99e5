package middleware

import (
	"log/slog"
	"net/http"

	"resonance-server/internal/actor"
	"resonance-server/internal/shared/errors"
	"resonance-server/internal/shared/response"
)

func AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := slog.With(
			"middleware", "admin",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)
		logger.Debug("Processing admin authorization")

		a := GetActorFromContext(r)
		if a == nil {
			response.Error(w, r, logger, errors.Unauthorized("authentication required"))
			return
		}

		if a.Role != actor.ActorRoleAdmin {
			logger.Warn("Non-admin actor attempted to access admin endpoint",
				"actor_id", a.ID,
				"username", a.Username,
				"role", a.Role)
			response.Error(w, r, logger, errors.Forbidden("admin access required"))
			return
		}

		logger.Debug("Admin authorization successful",
			"actor_id", a.ID,
			"username", a.Username)

		next.ServeHTTP(w, r)
	})
}

func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return m.Require(AdminMiddleware(next))
}
