package stream

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"resonance-server/internal/events"
	"resonance-server/internal/middleware"
	"resonance-server/internal/shared/errors"
	"resonance-server/internal/shared/response"
)

const (
	writeWait        = 5 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = 50 * time.Second
	subscriberBuffer = 64
)

// Handler bridges the event bus onto WebSocket connections. Consumers
// that stop reading hit the write deadline and get disconnected; the
// bus never waits on them.
type Handler struct {
	bus      *events.Bus
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewHandler(bus *events.Bus, logger *slog.Logger) *Handler {
	return &Handler{
		bus:    bus,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Stream upgrades the request and pushes events until the client goes
// away. An optional ?x=&y=&z= filter narrows world-scoped events to one
// world; global events always pass.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "event_stream")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	actor := middleware.GetActorFromContext(r)
	if actor == nil {
		response.Error(w, r, logger, errors.Unauthorized("authentication required"))
		return
	}

	filter, err := parseWorldFilter(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("WebSocket upgrade failed", "actor_id", actor.ID, "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	ch, cancel := h.bus.Subscribe(subscriberBuffer)
	defer cancel()

	h.logger.Info("Stream subscriber connected", "actor_id", actor.ID, "filtered", filter != nil)

	// Reader goroutine: the client sends nothing meaningful, but reads
	// surface pongs and disconnects.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			h.logger.Debug("Stream subscriber disconnected", "actor_id", actor.ID)
			return
		case <-r.Context().Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			if filter != nil && event.World != nil && *event.World != *filter {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Debug("Dropping slow stream subscriber", "actor_id", actor.ID, "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func parseWorldFilter(r *http.Request) (*events.WorldRef, error) {
	query := r.URL.Query()
	if !query.Has("x") && !query.Has("y") && !query.Has("z") {
		return nil, nil
	}

	parse := func(name string) (int, error) {
		raw := query.Get(name)
		if raw == "" {
			return 0, nil
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return 0, errors.Validationf("invalid %s coordinate", name)
		}
		return v, nil
	}

	x, err := parse("x")
	if err != nil {
		return nil, err
	}
	y, err := parse("y")
	if err != nil {
		return nil, err
	}
	z, err := parse("z")
	if err != nil {
		return nil, err
	}

	return &events.WorldRef{X: x, Y: y, Z: z}, nil
}
