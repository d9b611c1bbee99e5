package response

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"resonance-server/internal/shared/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestError_StatusMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"not_found", errors.NotFoundf("orb %d not found", 9), http.StatusNotFound, "not_found"},
		{"validation", errors.Validation("bad input"), http.StatusBadRequest, "validation"},
		{"conflict", errors.Conflictf("offer already resolved"), http.StatusConflict, "conflict"},
		{"capacity_exceeded", errors.CapacityExceededf("inventory full"), http.StatusConflict, "capacity_exceeded"},
		{"insufficient_packets", errors.InsufficientPacketsf("not enough units"), http.StatusConflict, "insufficient_packets"},
		{"expired", errors.Expiredf("offer lapsed"), http.StatusGone, "expired"},
		{"unauthorized", errors.Unauthorized("no token"), http.StatusUnauthorized, "unauthorized"},
		{"forbidden", errors.Forbidden("not yours"), http.StatusForbidden, "forbidden"},
		{"method_not_allowed", errors.MethodNotAllowed("PUT"), http.StatusMethodNotAllowed, "method_not_allowed"},
		{"internal", errors.WrapInternal("boom", io.ErrUnexpectedEOF), http.StatusInternalServerError, "internal"},
		{"plain_error", io.ErrUnexpectedEOF, http.StatusInternalServerError, "internal"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/test", nil)

			Error(rec, r, testLogger(), tc.err)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, rec.Code)
			}

			var body ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode error envelope: %v", err)
			}
			if body.Error != tc.wantError {
				t.Fatalf("expected error %q, got %q", tc.wantError, body.Error)
			}
			if body.Code != tc.wantStatus {
				t.Fatalf("expected envelope code %d, got %d", tc.wantStatus, body.Code)
			}
			if body.Message == "" {
				t.Fatalf("expected a message in the envelope")
			}
		})
	}
}

func TestErrorWithMessage_OverridesClientMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/test", nil)

	ErrorWithMessage(rec, r, testLogger(), errors.Validation("internal detail"), "friendly message")

	var body ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	if body.Message != "friendly message" {
		t.Fatalf("expected the client message, got %q", body.Message)
	}
}

func TestSuccess_WritesJSON(t *testing.T) {
	rec := httptest.NewRecorder()

	Success(rec, http.StatusCreated, map[string]int{"id": 42})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected JSON content type, got %q", ct)
	}

	var body map[string]int
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["id"] != 42 {
		t.Fatalf("expected id 42, got %d", body["id"])
	}
}

func TestSuccess_NilBody(t *testing.T) {
	rec := httptest.NewRecorder()

	Success(rec, http.StatusOK, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %q", rec.Body.String())
	}
}
