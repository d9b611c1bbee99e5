package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"resonance-server/internal/lattice"
	"resonance-server/internal/shared/errors"
	"resonance-server/internal/shared/response"
)

type LatticeHandler struct {
	service *lattice.Service
}

func NewLatticeHandler(service *lattice.Service) *LatticeHandler {
	return &LatticeHandler{service: service}
}

// ListRelays returns the relay states of the world named by query
// coordinates.
func (h *LatticeHandler) ListRelays(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "list_relays")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	worldX, worldY, worldZ, err := parseWorldCoords(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	relays, err := h.service.ListByWorld(ctx, worldX, worldY, worldZ)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, relays)
}

func parseWorldCoords(r *http.Request) (int, int, int, error) {
	parse := func(name string) (int, error) {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			return 0, nil
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return 0, errors.Validationf("invalid %s coordinate", name)
		}
		return v, nil
	}

	worldX, err := parse("x")
	if err != nil {
		return 0, 0, 0, err
	}
	worldY, err := parse("y")
	if err != nil {
		return 0, 0, 0, err
	}
	worldZ, err := parse("z")
	if err != nil {
		return 0, 0, 0, err
	}
	return worldX, worldY, worldZ, nil
}
