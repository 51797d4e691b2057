package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/matchstake/internal/domain"
	"github.com/alanyoungcy/matchstake/internal/viewmodel"
)

// MatchService defines the methods that the match handler requires from the
// service layer.
type MatchService interface {
	GetMatch(ctx context.Context, id string) (viewmodel.View, error)
	ListMatches(ctx context.Context, filter domain.MatchFilter, opts domain.ListOpts) ([]viewmodel.View, error)
	UserMatches(ctx context.Context, address string, opts domain.ListOpts) ([]viewmodel.View, error)
}

// MatchHandler serves match endpoints. Every match is returned resolved
// against its fixture.
type MatchHandler struct {
	matches MatchService
	logger  *slog.Logger
}

// NewMatchHandler creates a MatchHandler.
func NewMatchHandler(matches MatchService, logger *slog.Logger) *MatchHandler {
	return &MatchHandler{matches: matches, logger: logger}
}

type listMatchesResponse struct {
	Matches []viewmodel.View `json:"matches"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

// ListMatches returns matches, optionally narrowed by status.
// GET /api/matches?status=open&limit=50&offset=0
func (h *MatchHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	var filter domain.MatchFilter
	switch s := domain.MatchStatus(r.URL.Query().Get("status")); s {
	case "":
	case domain.MatchStatusOpen, domain.MatchStatusActive, domain.MatchStatusCompleted:
		filter.Status = s
	default:
		writeError(w, http.StatusBadRequest, "invalid status: "+string(s))
		return
	}

	views, err := h.matches.ListMatches(r.Context(), filter, opts)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to list matches")
		return
	}
	writeJSON(w, http.StatusOK, listMatchesResponse{Matches: views, Limit: opts.Limit, Offset: opts.Offset})
}

// GetMatch returns one match.
// GET /api/matches/{id}
func (h *MatchHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing match id")
		return
	}

	view, err := h.matches.GetMatch(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to get match")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// UserMatches returns the matches an address created or joined.
// GET /api/users/{address}/matches
func (h *MatchHandler) UserMatches(w http.ResponseWriter, r *http.Request) {
	address := pathParam(r, "address")
	if !common.IsHexAddress(address) {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	opts := parseListOpts(r)

	views, err := h.matches.UserMatches(r.Context(), address, opts)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to list user matches")
		return
	}
	writeJSON(w, http.StatusOK, listMatchesResponse{Matches: views, Limit: opts.Limit, Offset: opts.Offset})
}
