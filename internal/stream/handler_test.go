package stream

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"resonance-server/internal/events"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseWorldFilter_NoParams(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/events/stream", nil)

	filter, err := parseWorldFilter(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filter != nil {
		t.Fatalf("expected no filter without coordinates, got %+v", filter)
	}
}

func TestParseWorldFilter_FullCoordinates(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/events/stream?x=1&y=0&z=-1", nil)

	filter, err := parseWorldFilter(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := events.WorldRef{X: 1, Y: 0, Z: -1}
	if filter == nil || *filter != want {
		t.Fatalf("expected filter %+v, got %+v", want, filter)
	}
}

func TestParseWorldFilter_PartialCoordinatesDefaultToZero(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/events/stream?x=2", nil)

	filter, err := parseWorldFilter(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := events.WorldRef{X: 2}
	if filter == nil || *filter != want {
		t.Fatalf("expected missing axes to default to zero, got %+v", filter)
	}
}

func TestParseWorldFilter_RejectsGarbage(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/events/stream?x=abc", nil)

	if _, err := parseWorldFilter(r); err == nil {
		t.Fatalf("expected invalid coordinate to be rejected")
	}
}

func TestStream_RejectsNonGet(t *testing.T) {
	h := NewHandler(events.NewBus(nil, testLogger()), testLogger())

	rec := httptest.NewRecorder()
	h.Stream(rec, httptest.NewRequest(http.MethodPost, "/api/events/stream", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for POST, got %d", rec.Code)
	}
}

func TestStream_RequiresActor(t *testing.T) {
	h := NewHandler(events.NewBus(nil, testLogger()), testLogger())

	rec := httptest.NewRecorder()
	h.Stream(rec, httptest.NewRequest(http.MethodGet, "/api/events/stream", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without an actor, got %d", rec.Code)
	}
}
