package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"resonance-server/internal/extraction"
	"resonance-server/internal/middleware"
	"resonance-server/internal/shared/errors"
	"resonance-server/internal/shared/response"
)

type ExtractionHandler struct {
	service *extraction.Service
}

func NewExtractionHandler(service *extraction.Service) *ExtractionHandler {
	return &ExtractionHandler{service: service}
}

type beginRequest struct {
	OrbID     int      `json:"orb_id"`
	FilterMin *float64 `json:"filter_min,omitempty"`
	FilterMax *float64 `json:"filter_max,omitempty"`
}

type extractRequest struct {
	SessionID int `json:"session_id"`
}

type endRequest struct {
	SessionID int `json:"session_id"`
}

type extractResponse struct {
	Packets []extraction.InFlightPacket `json:"packets"`
}

type acknowledgeRequest struct {
	InFlightID string `json:"in_flight_id"`
}

// BeginExtraction opens a session against an orb.
func (h *ExtractionHandler) BeginExtraction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "begin_extraction")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	actor := middleware.GetActorFromContext(r)
	if actor == nil {
		response.Error(w, r, logger, errors.Unauthorized("no actor found in context"))
		return
	}

	var req beginRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid JSON in request body", err))
		return
	}

	session, err := h.service.Begin(ctx, actor.ID, req.OrbID, req.FilterMin, req.FilterMax)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusCreated, session)
}

// ExtractPackets pulls the next batch out of the orb and launches it
// toward the actor.
func (h *ExtractionHandler) ExtractPackets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "extract_packets")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	actor := middleware.GetActorFromContext(r)
	if actor == nil {
		response.Error(w, r, logger, errors.Unauthorized("no actor found in context"))
		return
	}

	var req extractRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid JSON in request body", err))
		return
	}

	launched, err := h.service.Extract(ctx, actor.ID, req.SessionID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, extractResponse{Packets: launched})
}

// EndExtraction closes a session. In-flight packets keep travelling.
func (h *ExtractionHandler) EndExtraction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "end_extraction")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	actor := middleware.GetActorFromContext(r)
	if actor == nil {
		response.Error(w, r, logger, errors.Unauthorized("no actor found in context"))
		return
	}

	var req endRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid JSON in request body", err))
		return
	}

	if err := h.service.End(ctx, actor.ID, req.SessionID); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, nil)
}

// AcknowledgePacket collects an arrived in-flight packet into the
// actor's inventory.
func (h *ExtractionHandler) AcknowledgePacket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "acknowledge_packet")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	actor := middleware.GetActorFromContext(r)
	if actor == nil {
		response.Error(w, r, logger, errors.Unauthorized("no actor found in context"))
		return
	}

	var req acknowledgeRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid JSON in request body", err))
		return
	}

	if req.InFlightID == "" {
		response.Error(w, r, logger, errors.Validation("in_flight_id is required"))
		return
	}

	if err := h.service.Acknowledge(ctx, actor.ID, req.InFlightID); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, nil)
}
