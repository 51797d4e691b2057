// Package viewmodel reconciles ledger matches with provider fixtures into the
// display objects served by the API.
package viewmodel

import (
	"fmt"

	"github.com/alanyoungcy/matchstake/internal/domain"
)

// FixtureLookup finds a fixture by id.
type FixtureLookup interface {
	Fixture(id int64) (domain.Fixture, bool)
}

// MapLookup is a FixtureLookup backed by a map.
type MapLookup map[int64]domain.Fixture

// Fixture implements FixtureLookup.
func (m MapLookup) Fixture(id int64) (domain.Fixture, bool) {
	f, ok := m[id]
	return f, ok
}

// NewMapLookup indexes fixtures by id.
func NewMapLookup(fixtures []domain.Fixture) MapLookup {
	m := make(MapLookup, len(fixtures))
	for _, f := range fixtures {
		m[f.ID] = f
	}
	return m
}

// Resolve returns a copy of match with its fixture attached. It fails with
// domain.ErrMissingFixture when lookup has no entry for match.FixtureID.
func Resolve(match domain.Match, lookup FixtureLookup) (domain.Match, error) {
	f, ok := lookup.Fixture(match.FixtureID)
	if !ok {
		return domain.Match{}, fmt.Errorf("viewmodel: resolve match %s: fixture %d: %w",
			match.ID, match.FixtureID, domain.ErrMissingFixture)
	}
	f = f.Normalize()
	match.Fixture = &f
	return match, nil
}

// ResolveAll resolves every match, failing on the first missing fixture.
func ResolveAll(matches []domain.Match, lookup FixtureLookup) ([]domain.Match, error) {
	out := make([]domain.Match, 0, len(matches))
	for _, m := range matches {
		r, err := Resolve(m, lookup)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// IsOpenForJoin reports whether a second party may still join m.
func IsOpenForJoin(m domain.Match) bool {
	return m.Status == domain.MatchStatusOpen
}

// IsSettleable reports whether m's fixture has finished but the ledger has
// not settled it yet. Unresolved matches are never settleable.
func IsSettleable(m domain.Match) bool {
	return m.Fixture != nil && m.Fixture.Status == domain.FixtureStatusFinished && !m.Settled
}

// DidPredictionWin compares p with the outcome of score.
func DidPredictionWin(p domain.Prediction, score domain.Score) bool {
	return domain.DidPredictionWin(p, score)
}

// View is the API shape of a resolved match with its derived facts.
type View struct {
	domain.Match
	OpenForJoin    bool   `json:"open_for_join"`
	Settleable     bool   `json:"settleable"`
	Outcome        string `json:"outcome,omitempty"`
	CreatorWinning *bool  `json:"creator_winning,omitempty"`
	JoinerWinning  *bool  `json:"joiner_winning,omitempty"`
	CreatorURL     string `json:"creator_url,omitempty"`
	JoinerURL      string `json:"joiner_url,omitempty"`
}

// NewView builds the derived facts for an already resolved match.
func NewView(m domain.Match) View {
	v := View{
		Match:       m,
		OpenForJoin: IsOpenForJoin(m),
		Settleable:  IsSettleable(m),
	}
	if m.Fixture != nil && m.Fixture.Score != nil {
		score := *m.Fixture.Score
		v.Outcome = string(domain.OutcomeFromScore(score))
		cw := DidPredictionWin(m.CreatorPrediction, score)
		v.CreatorWinning = &cw
		if m.JoinerPrediction != nil {
			jw := DidPredictionWin(*m.JoinerPrediction, score)
			v.JoinerWinning = &jw
		}
	}
	if v.Settleable && m.Joiner != nil && m.AwaitingSettlement == nil {
		awaiting := true
		v.AwaitingSettlement = &awaiting
	}
	return v
}
