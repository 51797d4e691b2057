// Package notify delivers operator alerts about ledger activity to chat
// channels. Messages are filtered by event name so operators receive only
// the alerts they care about.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/matchstake/internal/domain"
)

// EventError is the event name used for operational failures.
const EventError = "error"

// Message is one alert.
type Message struct {
	Event string
	Title string
	Body  string
	// URL optionally links to the transaction or match on an explorer.
	URL string
}

// Sender is implemented by each notification channel.
type Sender interface {
	Send(ctx context.Context, msg Message) error
	Name() string
}

// Notifier fans messages out to every Sender whose event is allowed.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier. If events is empty every event passes.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Enabled reports whether at least one sender is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && len(n.senders) > 0
}

// Notify sends msg if its event is allowed. A failing sender does not stop
// delivery to the others; all failures are joined into the returned error.
func (n *Notifier) Notify(ctx context.Context, msg Message) error {
	if !n.Enabled() {
		return nil
	}
	if len(n.events) > 0 && !n.events[msg.Event] {
		n.logger.DebugContext(ctx, "notify: event filtered out",
			slog.String("event", msg.Event),
		)
		return nil
	}

	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, msg); err != nil {
			n.logger.ErrorContext(ctx, "notify: sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notify: sent",
			slog.String("sender", s.Name()),
			slog.String("event", msg.Event),
		)
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %w", len(errs), errors.Join(errs...))
	}
	return nil
}

// NotifyError sends an error alert.
func (n *Notifier) NotifyError(ctx context.Context, title string, err error) error {
	return n.Notify(ctx, Message{Event: EventError, Title: title, Body: err.Error()})
}

// MatchMessage renders a ledger event. txURL may be empty.
func MatchMessage(ev domain.MatchEvent, txURL string) Message {
	msg := Message{Event: string(ev.Kind), URL: txURL}
	m := ev.Match

	switch ev.Kind {
	case domain.MatchEventCreated:
		msg.Title = "Match #" + ev.MatchID + " created"
		if m != nil {
			msg.Body = fmt.Sprintf("%s staked %s on %s (fixture %d)",
				shortAddr(m.Creator), m.Stake, m.CreatorPrediction, m.FixtureID)
		}
	case domain.MatchEventJoined:
		msg.Title = "Match #" + ev.MatchID + " joined"
		if m != nil && m.Joiner != nil && m.JoinerPrediction != nil {
			msg.Body = fmt.Sprintf("%s matched %s on %s",
				shortAddr(*m.Joiner), m.Stake, *m.JoinerPrediction)
		}
	case domain.MatchEventSettled:
		msg.Title = "Match #" + ev.MatchID + " settled"
		switch {
		case m == nil:
		case m.IsRefund():
			msg.Body = "No winner, stakes refunded"
		default:
			msg.Body = "Winner " + shortAddr(*m.Winner)
		}
	default:
		msg.Title = "Match #" + ev.MatchID + " " + string(ev.Kind)
	}
	if msg.Body == "" {
		msg.Body = fmt.Sprintf("block %d", ev.BlockNumber)
	}
	return msg
}

func shortAddr(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}
