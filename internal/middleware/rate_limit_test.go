package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiter_DisabledPassesEverything(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Enabled: false})
	handler := rl.Middleware(okHandler())

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orbs", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200 with limiter disabled, got %d", i, rec.Code)
		}
	}
}

func TestRateLimiter_EnforcesBurst(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{
		Enabled:           true,
		RequestsPerSecond: 0.001,
		BurstSize:         1,
	})
	handler := rl.Middleware(okHandler())

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/orbs", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/orbs", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be limited, got %d", second.Code)
	}
	if second.Header().Get("Retry-After") != "1" {
		t.Fatalf("expected Retry-After header on limited response")
	}
}

func TestRateLimiter_SeparatesClients(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{
		Enabled:           true,
		RequestsPerSecond: 0.001,
		BurstSize:         1,
	})
	handler := rl.Middleware(okHandler())

	reqA := httptest.NewRequest(http.MethodGet, "/api/orbs", nil)
	reqA.RemoteAddr = "10.0.0.1:5000"
	reqB := httptest.NewRequest(http.MethodGet, "/api/orbs", nil)
	reqB.RemoteAddr = "10.0.0.2:5000"

	recA1 := httptest.NewRecorder()
	handler.ServeHTTP(recA1, reqA)
	recA2 := httptest.NewRecorder()
	handler.ServeHTTP(recA2, reqA)
	recB := httptest.NewRecorder()
	handler.ServeHTTP(recB, reqB)

	if recA1.Code != http.StatusOK || recA2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected client A to exhaust its own bucket, got %d then %d", recA1.Code, recA2.Code)
	}
	if recB.Code != http.StatusOK {
		t.Fatalf("expected client B to have an untouched bucket, got %d", recB.Code)
	}
}

func TestGetClientIP_StripsPort(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.168.1.10:43210"

	if got := getClientIP(r, false); got != "192.168.1.10" {
		t.Fatalf("expected port-stripped address, got %q", got)
	}
}

func TestGetClientIP_TrustsForwardedFor(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5000"
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	if got := getClientIP(r, true); got != "203.0.113.9" {
		t.Fatalf("expected first forwarded address, got %q", got)
	}
}

func TestGetClientIP_IgnoresForwardedForWhenUntrusted(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5000"
	r.Header.Set("X-Forwarded-For", "203.0.113.9")

	if got := getClientIP(r, false); got != "10.0.0.1" {
		t.Fatalf("expected remote address when proxy is untrusted, got %q", got)
	}
}
