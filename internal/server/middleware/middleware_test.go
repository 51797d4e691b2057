package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestAuth(t *testing.T) {
	h := Auth("secret", "/api/health", "/metrics")(ok)

	tests := []struct {
		name   string
		path   string
		header map[string]string
		want   int
	}{
		{"missing token", "/api/matches", nil, http.StatusUnauthorized},
		{"bearer", "/api/matches", map[string]string{"Authorization": "Bearer secret"}, http.StatusOK},
		{"api key header", "/api/matches", map[string]string{"X-API-Key": "secret"}, http.StatusOK},
		{"wrong key", "/api/matches", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"query param", "/ws?api_key=secret", nil, http.StatusOK},
		{"public health", "/api/health", nil, http.StatusOK},
		{"public metrics", "/metrics", nil, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.path, nil)
			for k, v := range tt.header {
				r.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, r)
			if rec.Code != tt.want {
				t.Errorf("got %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestAuthDisabled(t *testing.T) {
	rec := httptest.NewRecorder()
	Auth("")(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/matches", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("empty key must disable auth, got %d", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://app.example.com"})(ok)

	r := httptest.NewRequest(http.MethodGet, "/api/matches", nil)
	r.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("allowed origin not echoed: %q", got)
	}
	if rec.Header().Get("Vary") != "Origin" {
		t.Error("missing Vary: Origin")
	}

	r.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("unknown origin must not be allowed")
	}

	pre := httptest.NewRequest(http.MethodOptions, "/api/matches", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, pre)
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight: got %d", rec.Code)
	}
}

func TestLoggingRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	id := rec.Header().Get(RequestIDHeader)
	if len(id) != 36 {
		t.Errorf("expected a generated uuid, got %q", id)
	}
	if !strings.Contains(buf.String(), `"status":418`) || !strings.Contains(buf.String(), id) {
		t.Errorf("log line missing fields: %s", buf.String())
	}

	r := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	r.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if rec.Header().Get(RequestIDHeader) != "abc-123" {
		t.Error("caller request id must be reused")
	}
}

type fakeLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (f *fakeLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	f.keys = append(f.keys, key)
	return f.allow, f.err
}

func (f *fakeLimiter) Wait(context.Context, string) error { return nil }

func TestRateLimit(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	lim := &fakeLimiter{allow: false}
	r := httptest.NewRequest(http.MethodGet, "/api/matches", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	rec := httptest.NewRecorder()
	RateLimit(lim, 10, time.Minute, logger)(ok).ServeHTTP(rec, r)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("got %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("unexpected Retry-After %q", rec.Header().Get("Retry-After"))
	}
	if len(lim.keys) != 1 || lim.keys[0] != "api:203.0.113.9" {
		t.Errorf("unexpected keys %v", lim.keys)
	}

	failing := &fakeLimiter{err: errors.New("redis down")}
	rec = httptest.NewRecorder()
	RateLimit(failing, 10, time.Minute, logger)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("limiter errors must fail open, got %d", rec.Code)
	}
}
