package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alanyoungcy/matchstake/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingSender struct {
	name string
	sent []Message
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg Message) error {
	r.sent = append(r.sent, msg)
	return r.err
}

func (r *recordingSender) Name() string { return r.name }

func TestNotifierFiltersEvents(t *testing.T) {
	s := &recordingSender{name: "rec"}
	n := NewNotifier([]Sender{s}, []string{"match_settled", " error "}, discardLogger())

	ctx := context.Background()
	_ = n.Notify(ctx, Message{Event: "match_created", Title: "skip"})
	_ = n.Notify(ctx, Message{Event: "match_settled", Title: "keep"})
	_ = n.NotifyError(ctx, "boom", errors.New("rpc down"))

	if len(s.sent) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(s.sent))
	}
	if s.sent[1].Event != EventError || s.sent[1].Body != "rpc down" {
		t.Errorf("unexpected error message %+v", s.sent[1])
	}
}

func TestNotifierContinuesAfterFailure(t *testing.T) {
	bad := &recordingSender{name: "bad", err: errors.New("403")}
	good := &recordingSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, discardLogger())

	err := n.Notify(context.Background(), Message{Event: "match_joined", Title: "x"})
	if err == nil || !strings.Contains(err.Error(), "bad") {
		t.Fatalf("expected the failing sender in the error, got %v", err)
	}
	if len(good.sent) != 1 {
		t.Error("second sender should still receive the message")
	}
}

func TestNotifierWithoutSenders(t *testing.T) {
	n := NewNotifier(nil, nil, discardLogger())
	if n.Enabled() {
		t.Error("notifier without senders must report disabled")
	}
	if err := n.Notify(context.Background(), Message{Event: "error"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestMatchMessage(t *testing.T) {
	winner := "0x2222222222222222222222222222222222222222"
	settled := domain.Match{
		ID:                "4",
		Creator:           "0x1111111111111111111111111111111111111111",
		Stake:             "10",
		CreatorPrediction: domain.PredictionHome,
		Settled:           true,
		Winner:            &winner,
		Status:            domain.MatchStatusCompleted,
	}

	msg := MatchMessage(domain.MatchEvent{Kind: domain.MatchEventSettled, MatchID: "4", Match: &settled}, "https://x.io/tx/0xabc")
	if msg.Title != "Match #4 settled" {
		t.Errorf("unexpected title %q", msg.Title)
	}
	if msg.Body != "Winner 0x2222…2222" {
		t.Errorf("unexpected body %q", msg.Body)
	}
	if msg.URL != "https://x.io/tx/0xabc" || msg.Event != "match_settled" {
		t.Errorf("unexpected message %+v", msg)
	}

	settled.Winner = nil
	msg = MatchMessage(domain.MatchEvent{Kind: domain.MatchEventSettled, MatchID: "4", Match: &settled}, "")
	if msg.Body != "No winner, stakes refunded" {
		t.Errorf("unexpected refund body %q", msg.Body)
	}

	msg = MatchMessage(domain.MatchEvent{Kind: domain.MatchEventJoined, MatchID: "5", BlockNumber: 12}, "")
	if msg.Body != "block 12" {
		t.Errorf("expected block fallback, got %q", msg.Body)
	}
}

func TestTelegramSender(t *testing.T) {
	var gotPath string
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	s := NewTelegramSender(srv.URL, "tok", "42")
	if err := s.Send(context.Background(), Message{Title: "T", Body: "B", URL: "https://x.io"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/bottok/sendMessage" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if got["chat_id"] != "42" || got["text"] != "*T*\nB\nhttps://x.io" {
		t.Errorf("unexpected payload %v", got)
	}
}

func TestDiscordSenderStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad webhook", http.StatusNotFound)
	}))
	defer srv.Close()

	err := NewDiscordSender(srv.URL).Send(context.Background(), Message{Event: EventError, Title: "T"})
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected a status error, got %v", err)
	}
}
