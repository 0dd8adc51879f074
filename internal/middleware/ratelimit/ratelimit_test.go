package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiter_Allow(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerSecond: 1, Burst: 2})
	defer rl.Stop()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if !rl.Allow("a") {
			t.Fatalf("request %d within burst was rejected", i)
		}
	}
	if rl.Allow("a") {
		t.Fatal("request over burst was allowed")
	}
	if !rl.Allow("b") {
		t.Fatal("other client should have its own bucket")
	}

	now = now.Add(time.Second)
	if !rl.Allow("a") {
		t.Fatal("token should refill after one second")
	}
}

func TestLimiter_Cleanup(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerSecond: 1, Burst: 1, IdleTimeout: time.Minute})
	defer rl.Stop()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	rl.Allow("old")
	now = now.Add(2 * time.Minute)
	rl.Allow("new")

	rl.cleanupStaleEntries()
	if rl.ActiveClients() != 1 {
		t.Fatalf("ActiveClients() = %d, want 1", rl.ActiveClients())
	}
}

func TestLimiter_Middleware(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerSecond: 0.5, Burst: 1})
	defer rl.Stop()

	h := rl.Middleware(func(r *http.Request) string { return r.RemoteAddr }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	req := httptest.NewRequest(http.MethodGet, "/houses", nil)
	first := httptest.NewRecorder()
	h.ServeHTTP(first, req)
	second := httptest.NewRecorder()
	h.ServeHTTP(second, req)

	if first.Code != http.StatusNoContent {
		t.Errorf("first status = %d", first.Code)
	}
	if second.Code != http.StatusTooManyRequests || second.Header().Get("Retry-After") != "2" {
		t.Errorf("second status = %d, Retry-After = %q", second.Code, second.Header().Get("Retry-After"))
	}
}
