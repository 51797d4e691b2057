package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alanyoungcy/matchstake/internal/domain"
	"github.com/alanyoungcy/matchstake/internal/explorer"
	"github.com/alanyoungcy/matchstake/internal/server/handler"
)

func TestServerRoutesAndAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := NewServer(Config{Port: 0, APIKey: "secret"}, Handlers{
		Health: handler.NewHealthHandler(nil, logger),
		Status: handler.NewStatusHandler(func() domain.ServiceStatus {
			return domain.ServiceStatus{Mode: "server"}
		}),
		Explorer: handler.NewExplorerHandler(explorer.NewBuilder(map[string]string{"sepolia": "https://sepolia.etherscan.io"}, "sepolia"), logger),
	}, nil, nil, logger)

	tests := []struct {
		path string
		key  string
		want int
	}{
		{"/api/health", "", http.StatusOK},
		{"/metrics", "", http.StatusOK},
		{"/api/status", "", http.StatusUnauthorized},
		{"/api/status", "secret", http.StatusOK},
		{"/api/explorer/sepolia/tx/0xabc", "secret", http.StatusOK},
		{"/api/fixtures", "secret", http.StatusNotFound},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, tt.path, nil)
		if tt.key != "" {
			r.Header.Set("X-API-Key", tt.key)
		}
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, r)
		if rec.Code != tt.want {
			t.Errorf("%s (key=%q): got %d, want %d", tt.path, tt.key, rec.Code, tt.want)
		}
	}
}
