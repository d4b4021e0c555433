package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/idlprotocol/idlbot/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeBus hands out channels the test writes into directly.
type fakeBus struct {
	mu    sync.Mutex
	chans map[string]chan []byte
}

func newFakeBus() *fakeBus {
	return &fakeBus{chans: make(map[string]chan []byte)}
}

func (f *fakeBus) Publish(ctx context.Context, channel string, payload []byte) error { return nil }

func (f *fakeBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan []byte, 16)
	f.chans[channel] = ch
	return ch, nil
}

func (f *fakeBus) StreamAppend(ctx context.Context, stream string, payload []byte) error { return nil }

func (f *fakeBus) StreamRead(ctx context.Context, stream string, lastID string, count int) ([]domain.StreamMessage, error) {
	return nil, nil
}

func (f *fakeBus) channel(name string) chan []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chans[name]
}

// testClient builds a client without a network connection; the broadcast path
// only touches the send buffer and subscription set.
func testClient(h *Hub, bufSize int, channels ...string) *client {
	subs := make(map[string]bool, len(channels))
	for _, ch := range channels {
		subs[ch] = true
	}
	return &client{hub: h, send: make(chan []byte, bufSize), subs: subs}
}

func startHub(t *testing.T) (*Hub, *fakeBus, context.CancelFunc) {
	t.Helper()
	bus := newFakeBus()
	h := NewHub(bus, discardLogger(), Config{Mode: "full"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("hub did not stop")
		}
	})

	// Wait for the bus subscriptions to land.
	require.Eventually(t, func() bool {
		return bus.channel("markets") != nil && bus.channel("bets") != nil && bus.channel("state") != nil
	}, time.Second, 5*time.Millisecond)

	return h, bus, cancel
}

func recvFrame(t *testing.T, c *client) envelope {
	t.Helper()
	select {
	case frame := <-c.send:
		var env envelope
		require.NoError(t, json.Unmarshal(frame, &env))
		return env
	case <-time.After(time.Second):
		t.Fatal("no frame received")
		return envelope{}
	}
}

func TestHubFansOutToSubscribedClients(t *testing.T) {
	h, bus, _ := startHub(t)

	marketsClient := testClient(h, 8, "markets")
	stateClient := testClient(h, 8, "state")
	h.register <- marketsClient
	h.register <- stateClient

	payload := []byte(`{"type":"market_resolved","market":"abc","outcome":"true"}`)
	bus.channel("markets") <- payload

	env := recvFrame(t, marketsClient)
	require.Equal(t, "markets", env.Channel)
	require.JSONEq(t, string(payload), string(env.Data))

	select {
	case frame := <-stateClient.send:
		t.Fatalf("state-only client received %s", frame)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubDropsFramesForSlowClient(t *testing.T) {
	h, bus, _ := startHub(t)

	slow := testClient(h, 1, "bets")
	h.register <- slow

	bus.channel("bets") <- []byte(`{"seq":1}`)
	bus.channel("bets") <- []byte(`{"seq":2}`)
	bus.channel("bets") <- []byte(`{"seq":3}`)

	// Overflow is dropped rather than blocking the broadcast loop.
	env := recvFrame(t, slow)
	require.Equal(t, "bets", env.Channel)

	bus.channel("bets") <- []byte(`{"seq":4}`)
	require.Eventually(t, func() bool {
		select {
		case <-slow.send:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestHubClosesClientsOnShutdown(t *testing.T) {
	h, _, cancel := startHub(t)

	c := testClient(h, 8, "markets")
	h.register <- c

	cancel()

	select {
	case _, open := <-c.send:
		require.False(t, open, "send channel should be closed")
	case <-time.After(time.Second):
		t.Fatal("send channel never closed")
	}
}

func TestSubscriptionChanges(t *testing.T) {
	h := NewHub(newFakeBus(), discardLogger(), Config{Mode: "watch"})

	c := testClient(h, 8, "markets", "bets", "state")
	c.applySubscription(subscribeMsg{Action: "unsubscribe", Channels: []string{"bets", "state"}})
	require.True(t, c.subscribed("markets"))
	require.False(t, c.subscribed("bets"))

	c.applySubscription(subscribeMsg{Action: "subscribe", Channels: []string{"bets"}})
	require.True(t, c.subscribed("bets"))
}
