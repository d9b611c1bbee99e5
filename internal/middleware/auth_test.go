package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"resonance-server/internal/actor"
)

func withActor(r *http.Request, a *actor.Actor) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), ActorContextKey, a))
}

func decodeErrorEnvelope(t *testing.T, rec *httptest.ResponseRecorder) (string, int) {
	t.Helper()

	var body struct {
		Error string `json:"error"`
		Code  int    `json:"code"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	return body.Error, body.Code
}

func TestExtractToken_FromCookie(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/inventory", nil)
	r.AddCookie(&http.Cookie{Name: "auth_token", Value: "cookie-token"})

	if got := extractToken(r); got != "cookie-token" {
		t.Fatalf("expected cookie token, got %q", got)
	}
}

func TestExtractToken_FromBearerHeader(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/inventory", nil)
	r.Header.Set("Authorization", "Bearer header-token")

	if got := extractToken(r); got != "header-token" {
		t.Fatalf("expected bearer token, got %q", got)
	}
}

func TestExtractToken_CookieTakesPrecedence(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/inventory", nil)
	r.AddCookie(&http.Cookie{Name: "auth_token", Value: "cookie-token"})
	r.Header.Set("Authorization", "Bearer header-token")

	if got := extractToken(r); got != "cookie-token" {
		t.Fatalf("expected cookie to win over header, got %q", got)
	}
}

func TestExtractToken_Missing(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/inventory", nil)

	if got := extractToken(r); got != "" {
		t.Fatalf("expected empty token, got %q", got)
	}
}

func TestRequire_MissingToken(t *testing.T) {
	m := NewAuthMiddleware(nil)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler must not run without a token")
	})

	rec := httptest.NewRecorder()
	m.Require(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/inventory", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if errType, _ := decodeErrorEnvelope(t, rec); errType != "unauthorized" {
		t.Fatalf("expected unauthorized envelope, got %q", errType)
	}
}

func TestRequire_InvalidToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-that-is-long-enough-0123456789")
	m := NewAuthMiddleware(nil)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler must not run with a garbage token")
	})

	r := httptest.NewRequest(http.MethodGet, "/api/inventory", nil)
	r.AddCookie(&http.Cookie{Name: "auth_token", Value: "not-a-jwt"})

	rec := httptest.NewRecorder()
	m.Require(next).ServeHTTP(rec, r)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAdminMiddleware_AllowsAdmin(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	r := withActor(httptest.NewRequest(http.MethodPost, "/api/orbs", nil),
		&actor.Actor{ID: 1, Username: "root", Role: actor.ActorRoleAdmin})

	rec := httptest.NewRecorder()
	AdminMiddleware(next).ServeHTTP(rec, r)

	if !called {
		t.Fatalf("expected next handler to run for admin actor")
	}
}

func TestAdminMiddleware_RejectsUser(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler must not run for non-admin actor")
	})

	r := withActor(httptest.NewRequest(http.MethodPost, "/api/orbs", nil),
		&actor.Actor{ID: 2, Username: "quarry", Role: actor.ActorRoleUser})

	rec := httptest.NewRecorder()
	AdminMiddleware(next).ServeHTTP(rec, r)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if errType, _ := decodeErrorEnvelope(t, rec); errType != "forbidden" {
		t.Fatalf("expected forbidden envelope, got %q", errType)
	}
}

func TestAdminMiddleware_RejectsAnonymous(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler must not run without an actor")
	})

	rec := httptest.NewRecorder()
	AdminMiddleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/orbs", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestGetActorFromContext(t *testing.T) {
	bare := httptest.NewRequest(http.MethodGet, "/api/inventory", nil)
	if got := GetActorFromContext(bare); got != nil {
		t.Fatalf("expected nil actor on bare request, got %+v", got)
	}

	a := &actor.Actor{ID: 7, Username: "quarry"}
	if got := GetActorFromContext(withActor(bare, a)); got == nil || got.ID != 7 {
		t.Fatalf("expected actor 7 from context, got %+v", got)
	}
}
