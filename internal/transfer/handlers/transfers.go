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
	"resonance-server/internal/transfer"
)

type TransferHandler struct {
	service *transfer.Service
}

func NewTransferHandler(service *transfer.Service) *TransferHandler {
	return &TransferHandler{service: service}
}

type initiateRequest struct {
	TargetKind  string              `json:"target_kind"`
	TargetID    int                 `json:"target_id"`
	Composition []packet.WavePacket `json:"composition"`
}

type initiateResponse struct {
	Offers []transfer.Offer `json:"offers"`
}

// Transfers dispatches the collection routes: list own offers, open new
// ones.
func (h *TransferHandler) Transfers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listOffers(w, r)
	case http.MethodPost:
		h.initiate(w, r)
	default:
		response.Error(w, r, slog.With("handler", "transfers"), errors.MethodNotAllowed(r.Method))
	}
}

func (h *TransferHandler) listOffers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "list_transfers")

	actor := middleware.GetActorFromContext(r)
	if actor == nil {
		response.Error(w, r, logger, errors.Unauthorized("no actor found in context"))
		return
	}

	offers, err := h.service.ListOffers(ctx, actor.ID, r.URL.Query().Get("direction"))
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, offers)
}

func (h *TransferHandler) initiate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "initiate_transfer")

	actor := middleware.GetActorFromContext(r)
	if actor == nil {
		response.Error(w, r, logger, errors.Unauthorized("no actor found in context"))
		return
	}

	var req initiateRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid JSON in request body", err))
		return
	}

	targetKind, ok := transfer.ParseTargetKind(req.TargetKind)
	if !ok {
		response.Error(w, r, logger, errors.Validationf("target_kind must be actor or storage, got %q", req.TargetKind))
		return
	}

	offers, err := h.service.Initiate(ctx, actor.ID, targetKind, req.TargetID, req.Composition)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusCreated, initiateResponse{Offers: offers})
}

// AcceptTransfer resolves a pending offer in the caller's favor.
func (h *TransferHandler) AcceptTransfer(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, true)
}

// RejectTransfer bounces a pending offer back to the sender.
func (h *TransferHandler) RejectTransfer(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, false)
}

func (h *TransferHandler) resolve(w http.ResponseWriter, r *http.Request, accept bool) {
	ctx := r.Context()
	name := "reject_transfer"
	if accept {
		name = "accept_transfer"
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

	offerIDStr := r.PathValue("id")
	if offerIDStr == "" {
		response.Error(w, r, logger, errors.Validation("offer ID is required"))
		return
	}
	offerID, err := strconv.Atoi(offerIDStr)
	if err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid offer ID format", err))
		return
	}

	if accept {
		err = h.service.Accept(ctx, actor.ID, offerID)
	} else {
		err = h.service.Reject(ctx, actor.ID, offerID)
	}
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, nil)
}
