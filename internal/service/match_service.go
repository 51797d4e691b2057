package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/alanyoungcy/matchstake/internal/domain"
	"github.com/alanyoungcy/matchstake/internal/explorer"
	"github.com/alanyoungcy/matchstake/internal/viewmodel"
)

// MatchSource reads a match straight from the ledger contract.
type MatchSource interface {
	Match(ctx context.Context, matchID *big.Int) (domain.Match, error)
}

// FixtureLookup resolves fixture ids in bulk.
type FixtureLookup interface {
	Lookup(ctx context.Context, ids []int64) (viewmodel.MapLookup, error)
}

// MatchService serves resolved match views. Matches are read from the store
// populated by the indexer; when a ledger source is configured a store miss
// is read through from the chain.
type MatchService struct {
	matches  domain.MatchStore
	fixtures FixtureLookup
	ledger   MatchSource
	links    *explorer.Builder
	logger   *slog.Logger
}

// NewMatchService creates a MatchService. ledger and links may be nil.
func NewMatchService(
	matches domain.MatchStore,
	fixtures FixtureLookup,
	ledger MatchSource,
	links *explorer.Builder,
	logger *slog.Logger,
) *MatchService {
	return &MatchService{
		matches:  matches,
		fixtures: fixtures,
		ledger:   ledger,
		links:    links,
		logger:   logger,
	}
}

// GetMatch returns the resolved view of a single match. A match whose
// fixture cannot be found fails with domain.ErrMissingFixture.
func (s *MatchService) GetMatch(ctx context.Context, id string) (viewmodel.View, error) {
	m, err := s.load(ctx, id)
	if err != nil {
		return viewmodel.View{}, err
	}

	lookup, err := s.fixtures.Lookup(ctx, []int64{m.FixtureID})
	if err != nil {
		return viewmodel.View{}, fmt.Errorf("match_service: lookup fixture: %w", err)
	}
	resolved, err := viewmodel.Resolve(m, lookup)
	if err != nil {
		return viewmodel.View{}, fmt.Errorf("match_service: %w", err)
	}
	return s.view(resolved), nil
}

// ListMatches returns resolved views of the matches selected by filter.
// The whole page fails with domain.ErrMissingFixture if any fixture is
// unknown.
func (s *MatchService) ListMatches(ctx context.Context, filter domain.MatchFilter, opts domain.ListOpts) ([]viewmodel.View, error) {
	matches, err := s.matches.List(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("match_service: list: %w", err)
	}
	return s.resolveAll(ctx, matches)
}

// UserMatches returns the resolved views of every match where address is the
// creator or the joiner.
func (s *MatchService) UserMatches(ctx context.Context, address string, opts domain.ListOpts) ([]viewmodel.View, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, fmt.Errorf("match_service: %w: empty address", domain.ErrInvalidInput)
	}
	return s.ListMatches(ctx, domain.MatchFilter{Address: address}, opts)
}

// Record validates and stores a match observed on the ledger.
func (s *MatchService) Record(ctx context.Context, m domain.Match) error {
	m.Fixture = nil
	if err := m.Validate(); err != nil {
		return fmt.Errorf("match_service: record: %w", err)
	}
	if err := s.matches.Upsert(ctx, m); err != nil {
		return fmt.Errorf("match_service: record %s: %w", m.ID, err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

func (s *MatchService) load(ctx context.Context, id string) (domain.Match, error) {
	m, err := s.matches.GetByID(ctx, id)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, domain.ErrNotFound) || s.ledger == nil {
		return domain.Match{}, fmt.Errorf("match_service: get %s: %w", id, err)
	}

	n, ok := new(big.Int).SetString(id, 10)
	if !ok || n.Sign() <= 0 {
		return domain.Match{}, fmt.Errorf("match_service: %w: match id %q", domain.ErrInvalidInput, id)
	}
	m, err = s.ledger.Match(ctx, n)
	if err != nil {
		return domain.Match{}, fmt.Errorf("match_service: read %s from ledger: %w", id, err)
	}

	if err := s.Record(ctx, m); err != nil {
		s.logger.WarnContext(ctx, "match_service: store ledger read failed",
			slog.String("match_id", id),
			slog.String("error", err.Error()),
		)
		return m, nil
	}
	// The stored row carries created_at, which the ledger record lacks.
	if stored, err := s.matches.GetByID(ctx, id); err == nil {
		return stored, nil
	}
	return m, nil
}

func (s *MatchService) resolveAll(ctx context.Context, matches []domain.Match) ([]viewmodel.View, error) {
	if len(matches) == 0 {
		return []viewmodel.View{}, nil
	}
	ids := make([]int64, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.FixtureID)
	}
	lookup, err := s.fixtures.Lookup(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("match_service: lookup fixtures: %w", err)
	}

	resolved, err := viewmodel.ResolveAll(matches, lookup)
	if err != nil {
		return nil, fmt.Errorf("match_service: %w", err)
	}
	out := make([]viewmodel.View, 0, len(resolved))
	for _, m := range resolved {
		out = append(out, s.view(m))
	}
	return out, nil
}

func (s *MatchService) view(m domain.Match) viewmodel.View {
	v := viewmodel.NewView(m)
	if s.links == nil {
		return v
	}
	v.CreatorURL = s.links.AddressDefault(m.Creator)
	if m.Joiner != nil {
		v.JoinerURL = s.links.AddressDefault(*m.Joiner)
	}
	return v
}
