package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/matchstake/internal/domain"
	"github.com/alanyoungcy/matchstake/internal/metrics"
	"github.com/alanyoungcy/matchstake/internal/server/handler"
	"github.com/alanyoungcy/matchstake/internal/server/middleware"
	"github.com/alanyoungcy/matchstake/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
	// RateLimit is the per-IP request budget per RateWindow; 0 disables it.
	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
// Nil handlers leave their routes unregistered.
type Handlers struct {
	Health   *handler.HealthHandler
	Status   *handler.StatusHandler
	Fixtures *handler.FixtureHandler
	Matches  *handler.MatchHandler
	Explorer *handler.ExplorerHandler
	Logos    *handler.LogoHandler
}

// publicPaths skip API key auth.
var publicPaths = []string{"/api/health", "/metrics"}

// Server is the read-only HTTP + WebSocket API.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered on the ServeMux.
// limiter may be nil.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	routes(mux, handlers, wsHub)

	var h http.Handler = mux
	if limiter != nil && cfg.RateLimit > 0 {
		window := cfg.RateWindow
		if window <= 0 {
			window = time.Minute
		}
		h = middleware.RateLimit(limiter, cfg.RateLimit, window, logger)(h)
	}
	h = middleware.Auth(cfg.APIKey, publicPaths...)(h)
	h = metrics.Middleware(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
	}
}

func routes(mux *http.ServeMux, h Handlers, wsHub *ws.Hub) {
	mux.Handle("GET /metrics", metrics.Handler())

	if h.Health != nil {
		mux.HandleFunc("GET /api/health", h.Health.HealthCheck)
	}
	if h.Status != nil {
		mux.HandleFunc("GET /api/status", h.Status.GetStatus)
	}

	if h.Fixtures != nil {
		mux.HandleFunc("GET /api/fixtures", h.Fixtures.ListFixtures)
		mux.HandleFunc("GET /api/fixtures/{id}", h.Fixtures.GetFixture)
	}

	if h.Matches != nil {
		mux.HandleFunc("GET /api/matches", h.Matches.ListMatches)
		mux.HandleFunc("GET /api/matches/{id}", h.Matches.GetMatch)
		mux.HandleFunc("GET /api/users/{address}/matches", h.Matches.UserMatches)
	}

	if h.Explorer != nil {
		mux.HandleFunc("GET /api/explorer", h.Explorer.Networks)
		mux.HandleFunc("GET /api/explorer/{network}/tx/{hash}", h.Explorer.TxLink)
		mux.HandleFunc("GET /api/explorer/{network}/address/{address}", h.Explorer.AddressLink)
	}

	if h.Logos != nil {
		mux.HandleFunc("GET /api/logos/{teamID}", h.Logos.Redirect)
	}

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}
}

// Handler exposes the fully wrapped handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
