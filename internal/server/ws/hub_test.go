package ws

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/matchstake/internal/domain"
)

type chanBus struct {
	mu   sync.Mutex
	subs map[string]chan []byte
	subd chan string
}

func newChanBus() *chanBus {
	return &chanBus{subs: map[string]chan []byte{}, subd: make(chan string, 8)}
}

func (b *chanBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	ch := b.subs[channel]
	b.mu.Unlock()
	if ch != nil {
		ch <- payload
	}
	return nil
}

func (b *chanBus) Subscribe(_ context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte, 8)
	b.mu.Lock()
	b.subs[channel] = ch
	b.mu.Unlock()
	b.subd <- channel
	return ch, nil
}

func (b *chanBus) StreamAppend(context.Context, string, []byte) error { return nil }

func (b *chanBus) StreamRead(context.Context, string, string, int) ([]domain.StreamMessage, error) {
	return nil, nil
}

func TestEncodeDecodeFrame(t *testing.T) {
	frame, err := EncodeFrame(domain.ChannelFixture, []byte(`{"fixture_id":7,"status":"finished","score":{"home":2,"away":1}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	channel, payload, err := DecodeFrame(frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if channel != domain.ChannelFixture {
		t.Errorf("unexpected channel %q", channel)
	}
	if payload["fixture_id"] != float64(7) || payload["status"] != "finished" {
		t.Errorf("unexpected payload %v", payload)
	}
	score, _ := payload["score"].(map[string]any)
	if score["home"] != float64(2) {
		t.Errorf("nested values must survive, got %v", score)
	}
}

func TestEncodeFrameScalarPayload(t *testing.T) {
	frame, err := EncodeFrame("ch:status", []byte(`"ok"`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, payload, err := DecodeFrame(frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload["value"] != "ok" {
		t.Errorf("expected scalar under value, got %v", payload)
	}

	if _, err := EncodeFrame("ch:status", []byte(`{not json`)); err == nil {
		t.Error("expected an error for invalid JSON")
	}
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://app.example.com"})
	r := httptest.NewRequest("GET", "/ws", nil)
	if !check(r) {
		t.Error("requests without an Origin header must pass")
	}
	r.Header.Set("Origin", "https://evil.example.com")
	if check(r) {
		t.Error("unknown origin must be rejected")
	}
	r.Header.Set("Origin", "https://APP.example.com")
	if !check(r) {
		t.Error("origin comparison should be case-insensitive")
	}
}

func TestHubBridgesBusToClient(t *testing.T) {
	bus := newChanBus()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := NewHub(bus, Config{
		Channels: []string{domain.ChannelMatch},
		Status:   func() domain.ServiceStatus { return domain.ServiceStatus{Mode: "server", Network: "sepolia"} },
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	select {
	case <-bus.subd:
	case <-time.After(2 * time.Second):
		t.Fatal("hub never subscribed")
	}

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	kind, frame, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read status: %v", err)
	}
	if kind != websocket.BinaryMessage {
		t.Errorf("expected a binary frame, got %d", kind)
	}
	channel, payload, err := DecodeFrame(frame)
	if err != nil || channel != domain.ChannelStatus || payload["mode"] != "server" {
		t.Fatalf("unexpected status frame %q %v (%v)", channel, payload, err)
	}

	// The status frame is only written after registration, so the client is
	// subscribed by now.
	bus.Publish(ctx, domain.ChannelMatch, []byte(`{"kind":"match_created","match_id":"1"}`))
	_, frame, err = conn.ReadMessage()
	if err != nil {
		t.Fatalf("read match frame: %v", err)
	}

	channel, payload, err = DecodeFrame(frame)
	if err != nil || channel != domain.ChannelMatch || payload["match_id"] != "1" {
		t.Errorf("unexpected match frame %q %v (%v)", channel, payload, err)
	}
}
