package room

import (
	"context"
	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/reviewroom/server/internal/domain"
)

type iRegistryRepo interface {
	EnsureRoom(roomId string) domain.Snapshot
	Join(roomId, userId string, seed *domain.PlaybackUpdate) domain.Snapshot
	Leave(roomId, userId string) (domain.Snapshot, bool)
	UpdatePlayback(roomId string, u *domain.PlaybackUpdate) domain.Snapshot
	RoomsOf(userId string) []string
}

type iConnRepo interface {
	Subscribe(conn *websocket.Conn, roomId string)
	Unsubscribe(conn *websocket.Conn, roomId string)
}

type iAccessChecker interface {
	CheckPlaylistAccess(ctx context.Context, playlistId, token string) (bool, error)
}

type iBridge interface {
	Publish(ctx context.Context, roomId, eventType string, payload any) error
}

// service is the sole mutator of room and presence state. Authorization
// denials are silent no-ops: an unauthorized caller must not learn whether a
// room exists.
type service struct {
	registry iRegistryRepo
	connRepo iConnRepo
	access   iAccessChecker
	bridge   iBridge
	logger   *slog.Logger
}

func NewService(registry iRegistryRepo, connRepo iConnRepo, access iAccessChecker, bridge iBridge, logger *slog.Logger) *service {
	return &service{
		registry: registry,
		connRepo: connRepo,
		access:   access,
		bridge:   bridge,
		logger:   logger,
	}
}

func (s *service) allowed(ctx context.Context, roomId, token string) bool {
	ok, err := s.access.CheckPlaylistAccess(ctx, roomId, token)
	if err != nil {
		s.logger.WarnContext(ctx, "playlist access check failed", "room_id", roomId, "error", err)
		return false
	}
	if !ok {
		s.logger.DebugContext(ctx, "playlist access denied", "room_id", roomId)
	}
	return ok
}

// OpenSession subscribes the caller to the room's channel so they can watch
// who is in the review session. Opening is informational: the caller is not
// added to the people set until they explicitly join.
func (s *service) OpenSession(ctx context.Context, params *OpenSessionParams) error {
	if !s.allowed(ctx, params.RoomId, params.Token) {
		return nil
	}

	s.connRepo.Subscribe(params.Conn, params.RoomId)
	snapshot := s.registry.EnsureRoom(params.RoomId)

	return s.bridge.Publish(ctx, params.RoomId, domain.EventRoomPeopleUpdated, snapshot)
}

// CloseSession is a transport-level unsubscribe only. Closing the page view
// is not the same as leaving the synchronized session.
func (s *service) CloseSession(_ context.Context, params *CloseSessionParams) error {
	s.connRepo.Unsubscribe(params.Conn, params.RoomId)
	return nil
}

// Join adds the caller to the room's people set. The first member seeds the
// playback state from their payload.
func (s *service) Join(ctx context.Context, params *JoinParams) error {
	if !s.allowed(ctx, params.RoomId, params.Token) {
		return nil
	}

	snapshot := s.registry.Join(params.RoomId, params.UserId, params.Payload)

	if err := s.bridge.Publish(ctx, params.RoomId, domain.EventRoomPeopleUpdated, snapshot); err != nil {
		return err
	}

	return s.bridge.Publish(ctx, params.RoomId, domain.EventRoomUpdated, RoomUpdate{Snapshot: snapshot})
}

// Leave removes the caller from the room, deleting the room once empty. The
// people-updated event still reports the now-empty list to any lingering
// subscribers.
func (s *service) Leave(ctx context.Context, params *LeaveParams) error {
	snapshot, deleted := s.registry.Leave(params.RoomId, params.UserId)
	if deleted {
		s.logger.DebugContext(ctx, "room deleted", "room_id", params.RoomId)
	}

	return s.bridge.Publish(ctx, params.RoomId, domain.EventRoomPeopleUpdated, snapshot)
}

// UpdatePlaybackStatus overwrites the room's playback fields and broadcasts
// the resulting full state. Last write wins between concurrent senders.
func (s *service) UpdatePlaybackStatus(ctx context.Context, params *UpdatePlaybackStatusParams) error {
	snapshot := s.registry.UpdatePlayback(params.RoomId, params.Payload)

	return s.bridge.Publish(ctx, params.RoomId, domain.EventRoomUpdated, RoomUpdate{
		OnlyNewcomer: params.OnlyNewcomer,
		Snapshot:     snapshot,
	})
}

// Relay broadcasts the payload verbatim to the room's channel. Annotation
// content is owned by the domain API; the room only relays the live edit.
func (s *service) Relay(ctx context.Context, params *RelayParams) error {
	return s.bridge.Publish(ctx, params.RoomId, params.EventType, params.Payload)
}

// DisconnectCleanup leaves every room the user is present in, using the
// presence index instead of a registry scan.
func (s *service) DisconnectCleanup(ctx context.Context, userId string) error {
	for _, roomId := range s.registry.RoomsOf(userId) {
		if err := s.Leave(ctx, &LeaveParams{RoomId: roomId, UserId: userId}); err != nil {
			return err
		}
	}
	return nil
}
