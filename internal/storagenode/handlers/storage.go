package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"resonance-server/internal/middleware"
	"resonance-server/internal/packet"
	"resonance-server/internal/shared/errors"
	"resonance-server/internal/shared/response"
	"resonance-server/internal/storagenode"
)

type StorageHandler struct {
	service *storagenode.Service
}

func NewStorageHandler(service *storagenode.Service) *StorageHandler {
	return &StorageHandler{service: service}
}

type placeRequest struct {
	Name   string  `json:"name"`
	WorldX int     `json:"world_x"`
	WorldY int     `json:"world_y"`
	WorldZ int     `json:"world_z"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
}

type moveRequest struct {
	Packets []packet.WavePacket `json:"packets"`
}

// Storage dispatches the collection routes: list own nodes, place a new
// one.
func (h *StorageHandler) Storage(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listNodes(w, r)
	case http.MethodPost:
		h.placeNode(w, r)
	default:
		response.Error(w, r, slog.With("handler", "storage"), errors.MethodNotAllowed(r.Method))
	}
}

func (h *StorageHandler) listNodes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "list_storage_nodes")

	actor := middleware.GetActorFromContext(r)
	if actor == nil {
		response.Error(w, r, logger, errors.Unauthorized("no actor found in context"))
		return
	}

	nodes, err := h.service.List(ctx, actor.ID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, nodes)
}

func (h *StorageHandler) placeNode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "place_storage_node")

	actor := middleware.GetActorFromContext(r)
	if actor == nil {
		response.Error(w, r, logger, errors.Unauthorized("no actor found in context"))
		return
	}

	var req placeRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid JSON in request body", err))
		return
	}

	node, err := h.service.Place(ctx, actor.ID, req.Name, storagenode.Placement{
		WorldX: req.WorldX,
		WorldY: req.WorldY,
		WorldZ: req.WorldZ,
		X:      req.X,
		Y:      req.Y,
		Z:      req.Z,
	})
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusCreated, node)
}

// DepositPackets moves packets from the owner's inventory into a node.
func (h *StorageHandler) DepositPackets(w http.ResponseWriter, r *http.Request) {
	h.movePackets(w, r, true)
}

// WithdrawPackets moves packets from a node back into the owner's
// inventory.
func (h *StorageHandler) WithdrawPackets(w http.ResponseWriter, r *http.Request) {
	h.movePackets(w, r, false)
}

func (h *StorageHandler) movePackets(w http.ResponseWriter, r *http.Request, intoStorage bool) {
	ctx := r.Context()
	name := "withdraw_packets"
	if intoStorage {
		name = "deposit_packets"
	}
	logger := slog.With("handler", name)

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	actor := middleware.GetActorFromContext(r)
	if actor == nil {
		response.Error(w, r, logger, errors.Unauthorized("no actor found in context"))
		return
	}

	storageIDStr := r.PathValue("id")
	if storageIDStr == "" {
		response.Error(w, r, logger, errors.Validation("storage node ID is required"))
		return
	}
	storageID, err := strconv.Atoi(storageIDStr)
	if err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid storage node ID format", err))
		return
	}

	var req moveRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid JSON in request body", err))
		return
	}

	var node *storagenode.StorageNode
	if intoStorage {
		node, err = h.service.Deposit(ctx, actor.ID, storageID, req.Packets)
	} else {
		node, err = h.service.Withdraw(ctx, actor.ID, storageID, req.Packets)
	}
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, node)
}
