package domain

import (
	"fmt"
	"time"
)

// MatchStatus is the lifecycle state of a peer-to-peer wager.
type MatchStatus string

const (
	MatchStatusOpen      MatchStatus = "open"
	MatchStatusActive    MatchStatus = "active"
	MatchStatusCompleted MatchStatus = "completed"
)

// Match is one on-chain wager bound to a fixture. It is observed from the
// match ledger; nothing in this service mutates it.
type Match struct {
	ID                 string      `json:"id"`
	Creator            string      `json:"creator"`
	Joiner             *string     `json:"joiner,omitempty"`
	Stake              string      `json:"stake"`
	StakeWei           string      `json:"stake_wei"`
	FixtureID          int64       `json:"fixture_id"`
	Fixture            *Fixture    `json:"fixture,omitempty"`
	CreatorPrediction  Prediction  `json:"creator_prediction"`
	JoinerPrediction   *Prediction `json:"joiner_prediction,omitempty"`
	Settled            bool        `json:"settled"`
	AwaitingSettlement *bool       `json:"awaiting_settlement,omitempty"`
	Winner             *string     `json:"winner,omitempty"`
	Status             MatchStatus `json:"status"`
	CreatedAt          time.Time   `json:"created_at,omitzero"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// DeriveMatchStatus computes the status implied by the joiner and settled
// fields of a ledger record.
func DeriveMatchStatus(joined, settled bool) MatchStatus {
	switch {
	case settled:
		return MatchStatusCompleted
	case joined:
		return MatchStatusActive
	default:
		return MatchStatusOpen
	}
}

// IsRefund reports whether the match was settled without a winner address.
func (m Match) IsRefund() bool {
	return m.Settled && m.Winner == nil
}

// Validate checks the joiner pairing and status invariants.
func (m Match) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidMatch)
	}
	if !m.CreatorPrediction.Valid() {
		return fmt.Errorf("%w: match %s: creator prediction %q", ErrInvalidMatch, m.ID, m.CreatorPrediction)
	}
	if (m.Joiner == nil) != (m.JoinerPrediction == nil) {
		return fmt.Errorf("%w: match %s: joiner and joiner prediction must be set together", ErrInvalidMatch, m.ID)
	}
	if m.JoinerPrediction != nil && !m.JoinerPrediction.Valid() {
		return fmt.Errorf("%w: match %s: joiner prediction %q", ErrInvalidMatch, m.ID, *m.JoinerPrediction)
	}
	if want := DeriveMatchStatus(m.Joiner != nil, m.Settled); m.Status != want {
		return fmt.Errorf("%w: match %s: status %q, expected %q", ErrInvalidMatch, m.ID, m.Status, want)
	}
	if m.Winner != nil && !m.Settled {
		return fmt.Errorf("%w: match %s: winner set before settlement", ErrInvalidMatch, m.ID)
	}
	if m.Fixture != nil && m.Fixture.ID != m.FixtureID {
		return fmt.Errorf("%w: match %s: fixture %d does not match fixture_id %d", ErrInvalidMatch, m.ID, m.Fixture.ID, m.FixtureID)
	}
	return nil
}

// MatchFilter narrows match list queries. Zero values match everything.
type MatchFilter struct {
	Status    MatchStatus
	FixtureID int64
	Address   string // creator or joiner
}
