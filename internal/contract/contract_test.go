package contract

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/alanyoungcy/matchstake/internal/domain"
)

var (
	testManager = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	testToken   = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	alice       = common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob         = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func createdLog(t *testing.T, id int64, creator common.Address, stake *big.Int, fixtureID int64) types.Log {
	t.Helper()
	data, err := managerABI.Events["MatchCreated"].Inputs.NonIndexed().Pack(stake, big.NewInt(fixtureID))
	if err != nil {
		t.Fatalf("pack event data: %v", err)
	}
	return types.Log{
		Address:     testManager,
		Topics:      []common.Hash{TopicMatchCreated, common.BigToHash(big.NewInt(id)), common.BytesToHash(creator.Bytes())},
		Data:        data,
		BlockNumber: 100,
		TxHash:      common.HexToHash("0xfeed"),
	}
}

func TestPredictionCodec(t *testing.T) {
	c := DefaultPredictionCodec()
	for i, p := range domain.Predictions {
		v, err := c.Encode(p)
		if err != nil {
			t.Fatalf("encode %s: %v", p, err)
		}
		if int(v) != i {
			t.Errorf("encode %s = %d, want %d", p, v, i)
		}
		back, err := c.Decode(v)
		if err != nil || back != p {
			t.Errorf("decode %d = %s, %v", v, back, err)
		}
	}

	if _, err := c.Decode(3); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for 3, got %v", err)
	}
	if _, err := NewPredictionCodec(1, 1, 2); err == nil {
		t.Error("expected duplicate wire values to be rejected")
	}

	swapped, err := NewPredictionCodec(1, 0, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p, _ := swapped.Decode(0); p != domain.PredictionDraw {
		t.Errorf("custom codec decode 0 = %s, want draw", p)
	}
}

func TestAmounts(t *testing.T) {
	wei, _ := new(big.Int).SetString("1500000000000000000", 10)
	if got := FormatAmount(wei, 18); got != "1.5" {
		t.Errorf("FormatAmount = %q, want 1.5", got)
	}
	if got := FormatAmount(big.NewInt(10_000_000), 6); got != "10" {
		t.Errorf("FormatAmount = %q, want 10", got)
	}

	parsed, err := ParseAmount("1.5", 18)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.Cmp(wei) != 0 {
		t.Errorf("ParseAmount = %s, want %s", parsed, wei)
	}

	for _, bad := range []string{"-1", "abc", "0.0000001"} {
		if _, err := ParseAmount(bad, 6); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("ParseAmount(%q): expected ErrInvalidInput, got %v", bad, err)
		}
	}
}

func TestDecodeMatchCreated(t *testing.T) {
	ev, err := DecodeLog(createdLog(t, 7, alice, big.NewInt(5000), 1001))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Kind != domain.MatchEventCreated {
		t.Errorf("kind = %s", ev.Kind)
	}
	if ev.MatchID.Int64() != 7 || ev.Account != alice {
		t.Errorf("unexpected indexed values %s %s", ev.MatchID, ev.Account.Hex())
	}
	if ev.Stake.Int64() != 5000 || ev.FixtureID.Int64() != 1001 {
		t.Errorf("unexpected data values %s %s", ev.Stake, ev.FixtureID)
	}
	if ev.BlockNumber != 100 {
		t.Errorf("block = %d", ev.BlockNumber)
	}
}

func TestDecodeMatchJoinedAndSettled(t *testing.T) {
	joined := types.Log{
		Topics: []common.Hash{TopicMatchJoined, common.BigToHash(big.NewInt(7)), common.BytesToHash(bob.Bytes())},
	}
	ev, err := DecodeLog(joined)
	if err != nil {
		t.Fatalf("joined: %v", err)
	}
	if ev.Kind != domain.MatchEventJoined || ev.Account != bob {
		t.Errorf("unexpected joined event %+v", ev)
	}

	data, err := managerABI.Events["MatchSettled"].Inputs.NonIndexed().Pack(big.NewInt(9000))
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	settled := types.Log{
		Topics: []common.Hash{TopicMatchSettled, common.BigToHash(big.NewInt(7)), common.Hash{}},
		Data:   data,
	}
	ev, err = DecodeLog(settled)
	if err != nil {
		t.Fatalf("settled: %v", err)
	}
	if ev.Reward.Int64() != 9000 || ev.Account != (common.Address{}) {
		t.Errorf("unexpected settled event %+v", ev)
	}
}

func TestDecodeUnknownEvent(t *testing.T) {
	_, err := DecodeLog(types.Log{Topics: []common.Hash{common.HexToHash("0x01")}})
	if !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("expected ErrUnknownEvent, got %v", err)
	}
	if _, err := DecodeLog(types.Log{}); !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("expected ErrUnknownEvent for a log without topics, got %v", err)
	}
}

func packGetMatch(t *testing.T, m LedgerMatch) []byte {
	t.Helper()
	out, err := managerABI.Methods["getMatch"].Outputs.Pack(
		m.Creator, m.Joiner, m.Stake, m.FixtureID,
		m.CreatorPrediction, m.JoinerPrediction, m.Settled, m.Winner,
	)
	if err != nil {
		t.Fatalf("pack getMatch outputs: %v", err)
	}
	return out
}

func TestUnpackGetMatchToDomain(t *testing.T) {
	stake, _ := new(big.Int).SetString("2000000000000000000", 10)
	raw := LedgerMatch{
		Creator:           alice,
		Joiner:            bob,
		Stake:             stake,
		FixtureID:         big.NewInt(1001),
		CreatorPrediction: 0,
		JoinerPrediction:  2,
		Settled:           true,
		Winner:            alice,
	}

	got, err := UnpackGetMatch(packGetMatch(t, raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, err := got.ToDomain(big.NewInt(7), 18, DefaultPredictionCodec())
	if err != nil {
		t.Fatalf("ToDomain: %v", err)
	}

	if m.ID != "7" || m.Stake != "2" || m.StakeWei != stake.String() || m.FixtureID != 1001 {
		t.Errorf("unexpected match %+v", m)
	}
	if m.Joiner == nil || *m.Joiner != bob.Hex() || m.JoinerPrediction == nil || *m.JoinerPrediction != domain.PredictionAway {
		t.Errorf("unexpected joiner fields %v %v", m.Joiner, m.JoinerPrediction)
	}
	if m.Status != domain.MatchStatusCompleted || m.Winner == nil || *m.Winner != alice.Hex() {
		t.Errorf("unexpected settlement fields %s %v", m.Status, m.Winner)
	}
	if err := m.Validate(); err != nil {
		t.Errorf("converted match should validate: %v", err)
	}
}

func TestToDomainOpenAndRefund(t *testing.T) {
	open := LedgerMatch{Creator: alice, Stake: big.NewInt(1), FixtureID: big.NewInt(5), JoinerPrediction: 2}
	m, err := open.ToDomain(big.NewInt(1), 18, DefaultPredictionCodec())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Joiner != nil || m.JoinerPrediction != nil || m.Status != domain.MatchStatusOpen {
		t.Errorf("open match should have no joiner, got %+v", m)
	}

	refund := LedgerMatch{Creator: alice, Joiner: bob, Stake: big.NewInt(1), FixtureID: big.NewInt(5), Settled: true}
	m, err = refund.ToDomain(big.NewInt(2), 18, DefaultPredictionCodec())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !m.IsRefund() || m.Status != domain.MatchStatusCompleted {
		t.Errorf("expected a completed refund, got %+v", m)
	}
	if err := m.Validate(); err != nil {
		t.Errorf("refund should validate: %v", err)
	}

	if _, err := (LedgerMatch{}).ToDomain(big.NewInt(3), 18, DefaultPredictionCodec()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for a zeroed record, got %v", err)
	}
}

func TestUserMatchesRoundTrip(t *testing.T) {
	want := []*big.Int{big.NewInt(1), big.NewInt(4)}
	data, err := managerABI.Methods["getUserMatches"].Outputs.Pack(want)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	got, err := UnpackUserMatches(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Int64() != 1 || got[1].Int64() != 4 {
		t.Errorf("unexpected ids %v", got)
	}
}
