package contract

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/matchstake/internal/domain"
)

// LedgerMatch is the raw getMatch result.
type LedgerMatch struct {
	Creator           common.Address
	Joiner            common.Address
	Stake             *big.Int
	FixtureID         *big.Int
	CreatorPrediction uint8
	JoinerPrediction  uint8
	Settled           bool
	Winner            common.Address
}

// Exists reports whether the record refers to a created match. The contract
// returns a zeroed struct for unknown ids.
func (m LedgerMatch) Exists() bool {
	return m.Creator != (common.Address{})
}

// ToDomain converts the ledger record into a domain.Match. A zero joiner
// address means nobody joined, and a zero winner on a settled match means it
// was refunded. getMatch carries no timestamp, so CreatedAt stays zero; the
// indexer sets it from the MatchCreated block.
func (m LedgerMatch) ToDomain(id *big.Int, decimals int32, codec PredictionCodec) (domain.Match, error) {
	if !m.Exists() {
		return domain.Match{}, fmt.Errorf("contract: match %s: %w", id, domain.ErrNotFound)
	}

	creatorPrediction, err := codec.Decode(m.CreatorPrediction)
	if err != nil {
		return domain.Match{}, fmt.Errorf("contract: match %s: %w", id, err)
	}

	stake := m.Stake
	if stake == nil {
		stake = new(big.Int)
	}

	out := domain.Match{
		ID:                id.String(),
		Creator:           m.Creator.Hex(),
		Stake:             FormatAmount(stake, decimals),
		StakeWei:          stake.String(),
		CreatorPrediction: creatorPrediction,
		Settled:           m.Settled,
		UpdatedAt:         time.Now().UTC(),
	}
	if m.FixtureID != nil {
		if !m.FixtureID.IsInt64() {
			return domain.Match{}, fmt.Errorf("contract: match %s: fixture id %s out of range: %w", id, m.FixtureID, domain.ErrInvalidMatch)
		}
		out.FixtureID = m.FixtureID.Int64()
	}

	if m.Joiner != (common.Address{}) {
		joiner := m.Joiner.Hex()
		jp, err := codec.Decode(m.JoinerPrediction)
		if err != nil {
			return domain.Match{}, fmt.Errorf("contract: match %s: joiner %w", id, err)
		}
		out.Joiner = &joiner
		out.JoinerPrediction = &jp
	}
	if m.Settled && m.Winner != (common.Address{}) {
		winner := m.Winner.Hex()
		out.Winner = &winner
	}

	out.Status = domain.DeriveMatchStatus(out.Joiner != nil, out.Settled)
	return out, nil
}
