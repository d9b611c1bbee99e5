package handlers

import (
	"log/slog"
	"net/http"

	"resonance-server/internal/middleware"
	"resonance-server/internal/shared/errors"
	"resonance-server/internal/shared/response"
)

type MeHandler struct{}

func NewMeHandler() *MeHandler {
	return &MeHandler{}
}

func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "me")

	a := middleware.GetActorFromContext(r)
	if a == nil {
		response.Error(w, r, logger, errors.Unauthorized("no actor found in context"))
		return
	}

	response.Success(w, http.StatusOK, a)
}
