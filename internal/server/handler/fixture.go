package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alanyoungcy/matchstake/internal/domain"
)

// FixtureService defines the methods that the fixture handler requires from
// the service layer.
type FixtureService interface {
	GetFixture(ctx context.Context, id int64) (domain.Fixture, error)
	List(ctx context.Context, filter domain.FixtureFilter, opts domain.ListOpts) ([]domain.Fixture, int64, error)
}

// FixtureHandler serves fixture endpoints.
type FixtureHandler struct {
	fixtures FixtureService
	logger   *slog.Logger
}

// NewFixtureHandler creates a FixtureHandler.
func NewFixtureHandler(fixtures FixtureService, logger *slog.Logger) *FixtureHandler {
	return &FixtureHandler{fixtures: fixtures, logger: logger}
}

type listFixturesResponse struct {
	Fixtures []domain.Fixture `json:"fixtures"`
	Total    int64            `json:"total"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

// ListFixtures returns fixtures, optionally narrowed by league and status.
// GET /api/fixtures?league=PL&status=upcoming&limit=50&offset=0
func (h *FixtureHandler) ListFixtures(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)
	q := r.URL.Query()

	filter := domain.FixtureFilter{League: q.Get("league")}
	if s := q.Get("status"); s != "" {
		filter.Status = domain.FixtureStatus(s)
		if !filter.Status.Valid() {
			writeError(w, http.StatusBadRequest, "invalid status: "+s)
			return
		}
	}

	fixtures, total, err := h.fixtures.List(r.Context(), filter, opts)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to list fixtures")
		return
	}
	if fixtures == nil {
		fixtures = []domain.Fixture{}
	}
	writeJSON(w, http.StatusOK, listFixturesResponse{
		Fixtures: fixtures,
		Total:    total,
		Limit:    opts.Limit,
		Offset:   opts.Offset,
	})
}

// GetFixture returns a single fixture.
// GET /api/fixtures/{id}
func (h *FixtureHandler) GetFixture(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(pathParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid fixture id")
		return
	}

	f, err := h.fixtures.GetFixture(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to get fixture")
		return
	}
	writeJSON(w, http.StatusOK, f)
}
