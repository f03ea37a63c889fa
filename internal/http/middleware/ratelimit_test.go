package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/namdevyakhya-17/psycare/internal/identity"
)

func TestRateLimiter_RefillsOverTime(t *testing.T) {
	now := time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 2)
	rl.now = func() time.Time { return now }

	if !rl.Allow("k") || !rl.Allow("k") {
		t.Fatal("expected burst of 2 to be allowed")
	}
	if rl.Allow("k") {
		t.Fatal("expected third request to be limited")
	}
	if !rl.Allow("other") {
		t.Fatal("expected separate key to have its own bucket")
	}

	now = now.Add(time.Second)
	if !rl.Allow("k") {
		t.Fatal("expected a token after one second")
	}
}

func TestRateLimiter_SweepsIdleBuckets(t *testing.T) {
	now := time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 1)
	rl.now = func() time.Time { return now }

	rl.Allow("idle")
	now = now.Add(2 * staleBucketAge)
	rl.Allow("fresh")

	if _, ok := rl.buckets["idle"]; ok {
		t.Fatal("expected idle bucket to be evicted")
	}
}

func TestRateLimit_KeysByUser(t *testing.T) {
	handler := RateLimit(0, 1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	send := func(userID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		if userID != "" {
			req = req.WithContext(identity.WithUserID(req.Context(), userID))
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	if rec := send("a"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := send("b"); rec.Code != http.StatusOK {
		t.Fatalf("expected second user from same IP to pass, got %d", rec.Code)
	}
	rec := send("a")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected JSON error, got %q", ct)
	}
}
