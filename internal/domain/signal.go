package domain

import "time"

// Signal bus channels and streams.
const (
	ChannelFixture = "ch:fixture"
	ChannelMatch   = "ch:match"
	ChannelStatus  = "ch:status"

	StreamMatchEvents = "stream:match_events"
)

// MatchEventKind names a match ledger event.
type MatchEventKind string

const (
	MatchEventCreated MatchEventKind = "match_created"
	MatchEventJoined  MatchEventKind = "match_joined"
	MatchEventSettled MatchEventKind = "match_settled"
)

// MatchEvent is published on the signal bus whenever the indexer observes a
// ledger event. Match carries the refreshed record.
type MatchEvent struct {
	Kind        MatchEventKind `json:"kind"`
	MatchID     string         `json:"match_id"`
	TxHash      string         `json:"tx_hash"`
	BlockNumber uint64         `json:"block_number"`
	Match       *Match         `json:"match,omitempty"`
	ObservedAt  time.Time      `json:"observed_at"`
}

// FixtureUpdate is published after the sync pipeline changes a fixture.
type FixtureUpdate struct {
	FixtureID int64         `json:"fixture_id"`
	Status    FixtureStatus `json:"status"`
	Score     *Score        `json:"score,omitempty"`
}

// ServiceStatus is a summary of the running service.
type ServiceStatus struct {
	Mode          string `json:"mode"`
	Network       string `json:"network"`
	ChainID       int64  `json:"chain_id"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}
