package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []Message
}

func (r *recorder) deliver(roomId, eventType string, payload json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Message{RoomId: roomId, Type: eventType, Payload: payload})
}

func (r *recorder) snapshot() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.events...)
}

func TestPublishReachesEveryInstance(t *testing.T) {
	mr := miniredis.RunT(t)
	rc1 := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	rc2 := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	b1 := New(rc1, slog.Default())
	b2 := New(rc2, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec1 := &recorder{}
	rec2 := &recorder{}
	go b1.Run(ctx, rec1.deliver)
	go b2.Run(ctx, rec2.deliver)

	// wait for both subscriptions to be registered
	require.Eventually(t, func() bool {
		if err := b1.Publish(ctx, "p1", "room-updated", map[string]any{"current_frame": 42}); err != nil {
			return false
		}
		return len(rec1.snapshot()) > 0 && len(rec2.snapshot()) > 0
	}, 5*time.Second, 50*time.Millisecond)

	for _, rec := range []*recorder{rec1, rec2} {
		events := rec.snapshot()
		assert.Equal(t, "p1", events[0].RoomId)
		assert.Equal(t, "room-updated", events[0].Type)

		var payload map[string]any
		require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
		assert.Equal(t, float64(42), payload["current_frame"])
	}
}

func TestNilClientDeliversLocally(t *testing.T) {
	b := New(nil, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{}
	go b.Run(ctx, rec.deliver)

	require.NoError(t, b.Publish(ctx, "p1", "room-people-updated", map[string]any{"people": []string{"a"}}))

	require.Eventually(t, func() bool {
		return len(rec.snapshot()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	events := rec.snapshot()
	assert.Equal(t, "p1", events[0].RoomId)
	assert.Equal(t, "room-people-updated", events[0].Type)
}

func TestUnreachableBusFallsBackToLocal(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	b := New(rc, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{}
	go b.Run(ctx, rec.deliver)

	mr.Close()

	require.NoError(t, b.Publish(ctx, "p1", "room-updated", map[string]any{}),
		"an unreachable bus must degrade, not fail the handler")

	require.Eventually(t, func() bool {
		return len(rec.snapshot()) >= 1
	}, 2*time.Second, 10*time.Millisecond)
}
