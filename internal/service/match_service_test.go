package service

import (
	"context"
	"errors"
	"testing"

	"github.com/alanyoungcy/matchstake/internal/domain"
	"github.com/alanyoungcy/matchstake/internal/explorer"
)

const (
	alice = "0x1111111111111111111111111111111111111111"
	bob   = "0x2222222222222222222222222222222222222222"
)

func openMatch(id string, fixtureID int64) domain.Match {
	return domain.Match{
		ID:                id,
		Creator:           alice,
		Stake:             "10",
		StakeWei:          "10000000000000000000",
		FixtureID:         fixtureID,
		CreatorPrediction: domain.PredictionHome,
		Status:            domain.MatchStatusOpen,
	}
}

func joinedMatch(id string, fixtureID int64) domain.Match {
	m := openMatch(id, fixtureID)
	joiner := bob
	away := domain.PredictionAway
	m.Joiner = &joiner
	m.JoinerPrediction = &away
	m.Status = domain.MatchStatusActive
	return m
}

func newMatchService(matches *memMatchStore, fixtures *memFixtureStore, ledger MatchSource) *MatchService {
	fs := NewFixtureService(fixtures, newMemFixtureCache(), nil, nil, discardLogger())
	links := explorer.NewBuilder(map[string]string{"sepolia": "https://sepolia.etherscan.io"}, "sepolia")
	return NewMatchService(matches, fs, ledger, links, discardLogger())
}

func TestGetMatchResolves(t *testing.T) {
	svc := newMatchService(
		newMemMatchStore(joinedMatch("7", 1)),
		newMemFixtureStore(finished(1, 2, 1)),
		nil,
	)

	v, err := svc.GetMatch(context.Background(), "7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Fixture == nil || v.Fixture.ID != 1 {
		t.Fatalf("expected fixture 1 to be attached, got %+v", v.Fixture)
	}
	if !v.Settleable {
		t.Error("joined match on a finished fixture should be settleable")
	}
	if v.CreatorWinning == nil || !*v.CreatorWinning {
		t.Error("creator predicted home on a 2-1 and should be winning")
	}
	if v.CreatorURL != "https://sepolia.etherscan.io/address/"+alice {
		t.Errorf("unexpected creator url %q", v.CreatorURL)
	}
	if v.JoinerURL != "https://sepolia.etherscan.io/address/"+bob {
		t.Errorf("unexpected joiner url %q", v.JoinerURL)
	}
}

func TestGetMatchMissingFixture(t *testing.T) {
	svc := newMatchService(newMemMatchStore(openMatch("7", 5)), newMemFixtureStore(), nil)

	_, err := svc.GetMatch(context.Background(), "7")
	if !errors.Is(err, domain.ErrMissingFixture) {
		t.Fatalf("expected ErrMissingFixture, got %v", err)
	}
}

func TestGetMatchReadsThroughLedger(t *testing.T) {
	matches := newMemMatchStore()
	ledger := &stubLedger{matches: map[string]domain.Match{"9": openMatch("9", 1)}}
	svc := newMatchService(matches, newMemFixtureStore(upcoming(1)), ledger)

	v, err := svc.GetMatch(context.Background(), "9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.OpenForJoin {
		t.Error("open match should be open for join")
	}
	if _, ok := matches.rows["9"]; !ok {
		t.Error("ledger read should be stored")
	}
	if !v.CreatedAt.Equal(storedAt) {
		t.Errorf("expected created_at from the stored row, got %v", v.CreatedAt)
	}

	if _, err := svc.GetMatch(context.Background(), "10"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.GetMatch(context.Background(), "abc"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUserMatches(t *testing.T) {
	other := openMatch("3", 1)
	other.Creator = "0x3333333333333333333333333333333333333333"
	svc := newMatchService(
		newMemMatchStore(openMatch("1", 1), joinedMatch("2", 1), other),
		newMemFixtureStore(upcoming(1)),
		nil,
	)

	got, err := svc.UserMatches(context.Background(), bob, domain.ListOpts{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "2" {
		t.Errorf("expected only match 2 for the joiner, got %+v", got)
	}

	got, err = svc.UserMatches(context.Background(), alice, domain.ListOpts{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 matches for the creator, got %d", len(got))
	}

	if _, err := svc.UserMatches(context.Background(), " ", domain.ListOpts{}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestListMatchesEmpty(t *testing.T) {
	svc := newMatchService(newMemMatchStore(), newMemFixtureStore(), nil)

	got, err := svc.ListMatches(context.Background(), domain.MatchFilter{}, domain.ListOpts{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected an empty non-nil slice, got %#v", got)
	}
}

func TestRecordRejectsInvalid(t *testing.T) {
	matches := newMemMatchStore()
	svc := newMatchService(matches, newMemFixtureStore(), nil)

	bad := openMatch("1", 1)
	joiner := bob
	bad.Joiner = &joiner // joiner without a prediction

	if err := svc.Record(context.Background(), bad); !errors.Is(err, domain.ErrInvalidMatch) {
		t.Fatalf("expected ErrInvalidMatch, got %v", err)
	}
	if len(matches.rows) != 0 {
		t.Error("invalid match must not be stored")
	}
}
