package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"resonance-server/internal/actor"
	"resonance-server/internal/auth"
	"resonance-server/internal/shared/errors"
	"resonance-server/internal/shared/response"
)

type contextKey string

const ActorContextKey contextKey = "actor"

type AuthMiddleware struct {
	authService *auth.Service
}

func NewAuthMiddleware(authService *auth.Service) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// Require validates the request token and resolves the authoritative
// actor row, provisioning it for first-seen subjects.
func (m *AuthMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := slog.With(
			"middleware", "auth",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)
		logger.Debug("Processing JWT authentication")

		token := extractToken(r)
		if token == "" {
			response.Error(w, r, logger, errors.Unauthorized("authentication required"))
			return
		}

		claims, err := auth.ValidateJWT(token)
		if err != nil {
			response.Error(w, r, logger, errors.Unauthorized("invalid token"))
			return
		}

		resolved, err := m.authService.ResolveActor(r.Context(), claims)
		if err != nil {
			response.Error(w, r, logger, err)
			return
		}

		ctx := context.WithValue(r.Context(), ActorContextKey, resolved)
		logger.Debug("JWT authentication successful",
			"actor_id", resolved.ID,
			"username", resolved.Username)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken reads the auth token from the cookie or, failing that,
// the Authorization bearer header.
func extractToken(r *http.Request) string {
	if cookie, err := r.Cookie("auth_token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}

	return ""
}

// GetActorFromContext returns the resolved actor for the request
func GetActorFromContext(r *http.Request) *actor.Actor {
	if a, ok := r.Context().Value(ActorContextKey).(*actor.Actor); ok {
		return a
	}
	return nil
}
