package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRateLimiter_Burst(t *testing.T) {
	logger := zerolog.Nop()
	rl := NewRateLimiter(60, 3, &logger)

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d within burst rejected", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Error("request beyond burst allowed")
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("other IP shares the first IP's bucket")
	}
	if n := rl.VisitorCount(); n != 2 {
		t.Errorf("VisitorCount() = %d, want 2", n)
	}
}

func TestRateLimiter_Prune(t *testing.T) {
	logger := zerolog.Nop()
	rl := NewRateLimiter(60, 1, &logger)
	rl.Allow("10.0.0.1")

	rl.prune(time.Now())
	if rl.VisitorCount() != 1 {
		t.Fatal("fresh visitor pruned")
	}
	rl.prune(time.Now().Add(visitorTTL + time.Second))
	if rl.VisitorCount() != 0 {
		t.Error("idle visitor kept")
	}
}

func TestRateLimiter_CleanupStops(t *testing.T) {
	logger := zerolog.Nop()
	rl := NewRateLimiter(60, 1, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rl.Cleanup(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Cleanup did not return after cancel")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name      string
		remote    string
		forwarded string
		want      string
	}{
		{"remote addr", "192.0.2.7:5123", "", "192.0.2.7"},
		{"single forwarded", "10.0.0.1:80", "203.0.113.9", "203.0.113.9"},
		{"forwarded chain", "10.0.0.1:80", "203.0.113.9, 10.0.0.2", "203.0.113.9"},
		{"no port", "192.0.2.7", "", "192.0.2.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := ClientIP(req); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRateLimit_Middleware(t *testing.T) {
	logger := zerolog.Nop()
	rl := NewRateLimiter(1, 2, &logger)
	h := RateLimit(rl)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 3)
	for i := range codes {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/genes", nil)
		req.RemoteAddr = "198.51.100.4:1000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes[i] = rec.Code
		if rec.Code == http.StatusTooManyRequests && rec.Header().Get("Retry-After") == "" {
			t.Error("429 without Retry-After")
		}
	}

	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("request %d status = %d, want %d", i+1, codes[i], want[i])
		}
	}
}
