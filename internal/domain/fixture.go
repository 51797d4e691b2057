package domain

import (
	"fmt"
	"time"
)

// FixtureStatus represents where a real-world match is in its lifecycle.
type FixtureStatus string

const (
	FixtureStatusUpcoming FixtureStatus = "upcoming"
	FixtureStatusLive     FixtureStatus = "live"
	FixtureStatusFinished FixtureStatus = "finished"
)

// Valid reports whether s is a known fixture status.
func (s FixtureStatus) Valid() bool {
	switch s {
	case FixtureStatusUpcoming, FixtureStatusLive, FixtureStatusFinished:
		return true
	}
	return false
}

// Score is a home/away goal pair.
type Score struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

// Fixture is one real-world sporting event supplied by the fixture provider.
type Fixture struct {
	ID         int64         `json:"id"`
	Date       time.Time     `json:"date"`
	HomeTeam   string        `json:"home_team"`
	AwayTeam   string        `json:"away_team"`
	HomeTeamID string        `json:"home_team_id"`
	AwayTeamID string        `json:"away_team_id"`
	HomeLogo   string        `json:"home_logo"`
	AwayLogo   string        `json:"away_logo"`
	League     string        `json:"league"`
	Status     FixtureStatus `json:"status"`
	Score      *Score        `json:"score,omitempty"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// Validate checks the score/status invariant: an upcoming fixture carries no
// score, a live or finished one must carry one.
func (f Fixture) Validate() error {
	if f.ID <= 0 {
		return fmt.Errorf("%w: id must be positive, got %d", ErrInvalidFixture, f.ID)
	}
	if !f.Status.Valid() {
		return fmt.Errorf("%w: fixture %d: unknown status %q", ErrInvalidFixture, f.ID, f.Status)
	}
	if f.Status == FixtureStatusUpcoming && f.Score != nil {
		return fmt.Errorf("%w: fixture %d: upcoming fixture has a score", ErrInvalidFixture, f.ID)
	}
	if f.Status != FixtureStatusUpcoming && f.Score == nil {
		return fmt.Errorf("%w: fixture %d: %s fixture has no score", ErrInvalidFixture, f.ID, f.Status)
	}
	return nil
}

// Normalize returns a copy of f with the score dropped while the fixture is
// still upcoming.
func (f Fixture) Normalize() Fixture {
	if f.Status == FixtureStatusUpcoming {
		f.Score = nil
	} else if f.Score != nil {
		s := *f.Score
		f.Score = &s
	}
	return f
}

// TeamIDs returns the home and away logo identifiers.
func (f Fixture) TeamIDs() (home, away string) {
	return f.HomeTeamID, f.AwayTeamID
}

// FixtureFilter narrows fixture list queries. Zero values match everything.
type FixtureFilter struct {
	League string
	Status FixtureStatus
	From   *time.Time
	To     *time.Time
}
