package handlers

import (
	"log/slog"
	"net/http"

	"resonance-server/internal/inventory"
	"resonance-server/internal/middleware"
	"resonance-server/internal/shared/errors"
	"resonance-server/internal/shared/response"
)

type InventoryHandler struct {
	service *inventory.Service
}

func NewInventoryHandler(service *inventory.Service) *InventoryHandler {
	return &InventoryHandler{service: service}
}

func (h *InventoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "inventory")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	a := middleware.GetActorFromContext(r)
	if a == nil {
		response.Error(w, r, logger, errors.Unauthorized("no actor found in context"))
		return
	}

	inv, err := h.service.Get(ctx, a.ID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, inv)
}
