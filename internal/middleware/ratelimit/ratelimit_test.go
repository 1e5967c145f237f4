package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAllowTokenBucket(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 3})
	defer rl.Stop()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if ok, _ := rl.Allow("1.2.3.4"); !ok {
			t.Fatalf("request %d should pass", i+1)
		}
	}
	ok, wait := rl.Allow("1.2.3.4")
	if ok {
		t.Fatal("4th request in the burst should be rejected")
	}
	if wait <= 0 || wait > 20*time.Second {
		t.Errorf("wait = %v, want at most one refill interval", wait)
	}
	if ok, _ := rl.Allow("5.6.7.8"); !ok {
		t.Fatal("other clients have their own bucket")
	}

	now = now.Add(20 * time.Second)
	if ok, _ := rl.Allow("1.2.3.4"); !ok {
		t.Fatal("one token should have refilled")
	}
	if ok, _ := rl.Allow("1.2.3.4"); ok {
		t.Fatal("only one token should have refilled")
	}
	if rl.ActiveClients() != 2 {
		t.Errorf("active clients = %d", rl.ActiveClients())
	}

	now = now.Add(11 * time.Minute)
	rl.sweep()
	if rl.ActiveClients() != 0 {
		t.Errorf("idle buckets not removed: %d", rl.ActiveClients())
	}
}

func TestRetryAfter(t *testing.T) {
	cases := map[time.Duration]string{
		0:                      "1",
		300 * time.Millisecond: "1",
		19*time.Second + 1:     "20",
		time.Minute:            "60",
	}
	for in, want := range cases {
		if got := retryAfter(in); got != want {
			t.Errorf("retryAfter(%v) = %s, want %s", in, got, want)
		}
	}
}

func TestMiddlewareOnlyThrottlesWrites(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1})
	defer rl.Stop()
	h := rl.Middleware(func(*http.Request) string { return "ip" }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	tests := []struct {
		method string
		want   int
	}{
		{http.MethodPost, http.StatusNoContent},
		{http.MethodGet, http.StatusNoContent},
		{http.MethodGet, http.StatusNoContent},
		{http.MethodDelete, http.StatusTooManyRequests},
		{http.MethodPatch, http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(tt.method, "/api/expenses", nil))
		if rec.Code != tt.want {
			t.Errorf("%s: status %d, want %d", tt.method, rec.Code, tt.want)
		}
		if tt.want == http.StatusTooManyRequests && rec.Header().Get("Retry-After") == "" {
			t.Errorf("%s: missing Retry-After", tt.method)
		}
	}
}
