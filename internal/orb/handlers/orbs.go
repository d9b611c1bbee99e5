package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"resonance-server/internal/orb"
	"resonance-server/internal/packet"
	"resonance-server/internal/shared/errors"
	"resonance-server/internal/shared/response"
)

type OrbHandler struct {
	service *orb.Service
}

func NewOrbHandler(service *orb.Service) *OrbHandler {
	return &OrbHandler{service: service}
}

type seedOrbsRequest struct {
	WorldX int               `json:"world_x"`
	WorldY int               `json:"world_y"`
	WorldZ int               `json:"world_z"`
	Orbs   []orb.SeedRequest `json:"orbs"`
}

// ListOrbs returns the orbs in the world named by query coordinates.
func (h *OrbHandler) ListOrbs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "list_orbs")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	worldX, worldY, worldZ, err := parseWorldCoords(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	orbs, err := h.service.ListByWorld(ctx, worldX, worldY, worldZ)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	if orbs == nil {
		orbs = []orb.Orb{}
	}

	response.Success(w, http.StatusOK, orbs)
}

// SeedOrbs emits new orbs into a world (admin only).
func (h *OrbHandler) SeedOrbs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "seed_orbs")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	var req seedOrbsRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid JSON in request body", err))
		return
	}

	created, err := h.service.SeedOrbs(ctx, req.WorldX, req.WorldY, req.WorldZ, req.Orbs)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusCreated, created)
}

type replenishRequest struct {
	Packets []packet.WavePacket `json:"packets"`
}

// ReplenishOrb adds units back into an existing orb (admin only).
func (h *OrbHandler) ReplenishOrb(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "replenish_orb")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	orbIDStr := r.PathValue("id")
	if orbIDStr == "" {
		response.Error(w, r, logger, errors.Validation("orb ID is required"))
		return
	}

	orbID, err := strconv.Atoi(orbIDStr)
	if err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid orb ID format", err))
		return
	}

	var req replenishRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid JSON in request body", err))
		return
	}

	replenished, err := h.service.Replenish(ctx, orbID, req.Packets)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, replenished)
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
