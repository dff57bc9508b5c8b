// Package bridge replicates room broadcasts across every server process
// through redis Pub/Sub, so clients connected to different instances observe
// the same events. Messages are not persisted: a process offline at publish
// time misses the message, and full-state broadcasts make late joiners
// consistent on the next one.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const (
	channelPrefix  = "preview-room:"
	localQueueSize = 256
)

type Message struct {
	RoomId  string          `json:"room_id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// DeliverFunc hands a room event to the locally connected subscribers of
// that room. It is only ever called from the Run goroutine, so deliveries
// never write to a connection concurrently.
type DeliverFunc func(roomId string, eventType string, payload json.RawMessage)

type Bridge struct {
	rc     *redis.Client
	local  chan Message
	logger *slog.Logger
}

// New creates a bridge over rc. A nil rc degrades to single-process
// behavior: only locally connected clients see updates.
func New(rc *redis.Client, logger *slog.Logger) *Bridge {
	return &Bridge{
		rc:     rc,
		local:  make(chan Message, localQueueSize),
		logger: logger,
	}
}

// Publish broadcasts an event to every subscriber of the room across all
// instances. When the bus is unreachable the event is delivered to local
// subscribers only; this degradation never fails the calling handler.
func (b *Bridge) Publish(ctx context.Context, roomId, eventType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	msg := Message{
		RoomId:  roomId,
		Type:    eventType,
		Payload: raw,
	}

	if b.rc == nil {
		b.enqueueLocal(ctx, msg)
		return nil
	}

	wire, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := b.rc.Publish(ctx, channelPrefix+roomId, wire).Err(); err != nil {
		b.logger.WarnContext(ctx, "message bus unreachable, delivering locally only", "error", err)
		b.enqueueLocal(ctx, msg)
	}

	return nil
}

func (b *Bridge) enqueueLocal(ctx context.Context, msg Message) {
	select {
	case b.local <- msg:
	default:
		b.logger.WarnContext(ctx, "local delivery queue full, dropping message",
			"room_id", msg.RoomId, "type", msg.Type)
	}
}

// Run subscribes to the room channel pattern and re-delivers every matching
// message to the local subscribers of its room. All delivery happens on this
// goroutine. Run blocks until ctx is done.
func (b *Bridge) Run(ctx context.Context, deliver DeliverFunc) error {
	var busCh <-chan *redis.Message
	if b.rc != nil {
		pubsub := b.rc.PSubscribe(ctx, channelPrefix+"*")
		defer pubsub.Close()
		busCh = pubsub.Channel()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-b.local:
			deliver(msg.RoomId, msg.Type, msg.Payload)
		case m, ok := <-busCh:
			if !ok {
				return nil
			}

			var msg Message
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				b.logger.WarnContext(ctx, "dropping malformed bus message", "error", err)
				continue
			}

			deliver(msg.RoomId, msg.Type, msg.Payload)
		}
	}
}
