package contract

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/alanyoungcy/matchstake/internal/domain"
)

// ErrUnknownEvent is returned by DecodeLog for logs that are not match
// manager events.
var ErrUnknownEvent = errors.New("contract: unknown event")

// Event topics.
var (
	TopicMatchCreated = managerABI.Events["MatchCreated"].ID
	TopicMatchJoined  = managerABI.Events["MatchJoined"].ID
	TopicMatchSettled = managerABI.Events["MatchSettled"].ID
)

// EventTopics lists every match manager event topic, for filter queries.
func EventTopics() []common.Hash {
	return []common.Hash{TopicMatchCreated, TopicMatchJoined, TopicMatchSettled}
}

// Event is a decoded match manager log.
type Event struct {
	Kind    domain.MatchEventKind
	MatchID *big.Int
	// Account is the creator, joiner or winner depending on Kind.
	Account common.Address

	Stake     *big.Int // MatchCreated
	FixtureID *big.Int // MatchCreated
	Reward    *big.Int // MatchSettled

	TxHash      common.Hash
	BlockNumber uint64
	LogIndex    uint
	Removed     bool
}

// DecodeLog decodes a MatchCreated, MatchJoined or MatchSettled log.
func DecodeLog(l types.Log) (Event, error) {
	if len(l.Topics) == 0 {
		return Event{}, ErrUnknownEvent
	}

	var name string
	var kind domain.MatchEventKind
	switch l.Topics[0] {
	case TopicMatchCreated:
		name, kind = "MatchCreated", domain.MatchEventCreated
	case TopicMatchJoined:
		name, kind = "MatchJoined", domain.MatchEventJoined
	case TopicMatchSettled:
		name, kind = "MatchSettled", domain.MatchEventSettled
	default:
		return Event{}, fmt.Errorf("%w: topic %s", ErrUnknownEvent, l.Topics[0].Hex())
	}

	// topic1 = matchId, topic2 = address
	if len(l.Topics) < 3 {
		return Event{}, fmt.Errorf("contract: %s: expected 3 topics, got %d", name, len(l.Topics))
	}
	ev := Event{
		Kind:        kind,
		MatchID:     new(big.Int).SetBytes(l.Topics[1].Bytes()),
		Account:     common.BytesToAddress(l.Topics[2].Bytes()),
		TxHash:      l.TxHash,
		BlockNumber: l.BlockNumber,
		LogIndex:    l.Index,
		Removed:     l.Removed,
	}

	values, err := managerABI.Events[name].Inputs.NonIndexed().Unpack(l.Data)
	if err != nil {
		return Event{}, fmt.Errorf("contract: %s: unpack data: %w", name, err)
	}

	switch kind {
	case domain.MatchEventCreated:
		if len(values) != 2 {
			return Event{}, fmt.Errorf("contract: %s: %d data values", name, len(values))
		}
		stake, ok1 := values[0].(*big.Int)
		fixtureID, ok2 := values[1].(*big.Int)
		if !ok1 || !ok2 {
			return Event{}, fmt.Errorf("contract: %s: unexpected data types", name)
		}
		ev.Stake, ev.FixtureID = stake, fixtureID
	case domain.MatchEventSettled:
		if len(values) != 1 {
			return Event{}, fmt.Errorf("contract: %s: %d data values", name, len(values))
		}
		reward, ok := values[0].(*big.Int)
		if !ok {
			return Event{}, fmt.Errorf("contract: %s: unexpected data type %T", name, values[0])
		}
		ev.Reward = reward
	}
	return ev, nil
}
