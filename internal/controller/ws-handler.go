package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/reviewroom/server/internal/domain"
	"github.com/reviewroom/server/internal/repository/connection"
	"github.com/reviewroom/server/internal/service/room"
)

func (c *controller) tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// handleEvents is the connection gateway: it authenticates the caller,
// upgrades to websocket, tracks the connection count and runs the message
// loop until the connection dies. Presence cleanup happens on the way out.
func (c *controller) handleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := c.tokenFromRequest(r)
	identity, err := c.authService.VerifyToken(ctx, token)
	if err != nil {
		c.logger.InfoContext(ctx, "new websocket client failed to connect", "error", err)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	localId := r.URL.Query().Get("local_id")
	if localId == "" {
		localId = uuid.NewString()
	}

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.InfoContext(ctx, "failed to upgrade connection", "error", err)
		return
	}

	session := connection.Session{UserId: identity.UserId, LocalId: localId}
	if err := c.connRepo.Add(conn, session); err != nil {
		c.logger.InfoContext(ctx, "failed to register connection", "error", err)
		conn.Close()
		return
	}

	c.stats.Inc()
	c.logger.InfoContext(ctx, "new websocket client connected", "user_id", session.UserId)

	ctx = withToken(withSession(ctx, session), token)

	defer func() {
		if rec := recover(); rec != nil {
			c.logger.ErrorContext(ctx, "websocket connection fault", "panic", rec)
		}
		c.disconnect(ctx, conn, token)
	}()

	if err := c.getWSRouter().ServeConn(ctx, conn, c.onWSError); err != nil {
		c.logger.DebugContext(ctx, "websocket read loop ended", "error", err)
	}
}

// disconnect decrements the connection counter (clamped at zero) and leaves
// every room the user was present in. Identity is re-verified best effort:
// an expired token falls back to the session captured at connect time.
func (c *controller) disconnect(ctx context.Context, conn *websocket.Conn, token string) {
	c.stats.Dec()

	session, err := c.connRepo.Remove(conn)
	conn.Close()
	if err != nil {
		c.logger.DebugContext(ctx, "connection already removed", "error", err)
		return
	}

	if identity, err := c.authService.VerifyToken(ctx, token); err == nil {
		session.UserId = identity.UserId
	}

	if err := c.roomService.DisconnectCleanup(ctx, session.UserId); err != nil {
		c.logger.ErrorContext(ctx, "failed to clean up presence", "user_id", session.UserId, "error", err)
	}

	c.logger.InfoContext(ctx, "websocket client disconnected", "user_id", session.UserId)
}

func (c *controller) onWSError(ctx context.Context, err error) {
	c.logger.ErrorContext(ctx, "websocket handler error", "error", err)
}

type OpenSessionInput struct {
	PlaylistId string `json:"playlist_id" validate:"required"`
}

func (c *controller) handleOpenSession(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	var input OpenSessionInput
	if err := json.Unmarshal(payload, &input); err != nil {
		return fmt.Errorf("failed to decode open-session payload: %w", err)
	}
	if validationErrors, ok := c.validate.Validate(input); !ok {
		c.logger.DebugContext(ctx, "ignoring invalid open-session payload", "errors", validationErrors)
		return nil
	}

	return c.roomService.OpenSession(ctx, &room.OpenSessionParams{
		Conn:   conn,
		RoomId: input.PlaylistId,
		Token:  c.getTokenFromCtx(ctx),
	})
}

func (c *controller) handleCloseSession(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	var input OpenSessionInput
	if err := json.Unmarshal(payload, &input); err != nil {
		return fmt.Errorf("failed to decode close-session payload: %w", err)
	}
	if validationErrors, ok := c.validate.Validate(input); !ok {
		c.logger.DebugContext(ctx, "ignoring invalid close-session payload", "errors", validationErrors)
		return nil
	}

	return c.roomService.CloseSession(ctx, &room.CloseSessionParams{
		Conn:   conn,
		RoomId: input.PlaylistId,
	})
}

type JoinInput struct {
	PlaylistId string `json:"playlist_id" validate:"required"`
	domain.PlaybackUpdate
}

func (c *controller) handleJoin(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	var input JoinInput
	if err := json.Unmarshal(payload, &input); err != nil {
		return fmt.Errorf("failed to decode join payload: %w", err)
	}
	if validationErrors, ok := c.validate.Validate(input); !ok {
		c.logger.DebugContext(ctx, "ignoring invalid join payload", "errors", validationErrors)
		return nil
	}

	session := c.getSessionFromCtx(ctx)

	return c.roomService.Join(ctx, &room.JoinParams{
		RoomId:  input.PlaylistId,
		UserId:  session.UserId,
		Token:   c.getTokenFromCtx(ctx),
		Payload: &input.PlaybackUpdate,
	})
}

func (c *controller) handleLeave(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	var input OpenSessionInput
	if err := json.Unmarshal(payload, &input); err != nil {
		return fmt.Errorf("failed to decode leave payload: %w", err)
	}
	if validationErrors, ok := c.validate.Validate(input); !ok {
		c.logger.DebugContext(ctx, "ignoring invalid leave payload", "errors", validationErrors)
		return nil
	}

	session := c.getSessionFromCtx(ctx)

	return c.roomService.Leave(ctx, &room.LeaveParams{
		RoomId: input.PlaylistId,
		UserId: session.UserId,
	})
}

type UpdatePlaybackStatusInput struct {
	PlaylistId string `json:"playlist_id" validate:"required"`
	domain.PlaybackUpdate
}

func (c *controller) updatePlaybackStatus(ctx context.Context, payload json.RawMessage, onlyNewcomer bool) error {
	var input UpdatePlaybackStatusInput
	if err := json.Unmarshal(payload, &input); err != nil {
		return fmt.Errorf("failed to decode playback status payload: %w", err)
	}
	if validationErrors, ok := c.validate.Validate(input); !ok {
		c.logger.DebugContext(ctx, "ignoring invalid playback status payload", "errors", validationErrors)
		return nil
	}

	return c.roomService.UpdatePlaybackStatus(ctx, &room.UpdatePlaybackStatusParams{
		RoomId:       input.PlaylistId,
		Payload:      &input.PlaybackUpdate,
		OnlyNewcomer: onlyNewcomer,
	})
}

func (c *controller) handleUpdatePlaybackStatus(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	return c.updatePlaybackStatus(ctx, payload, false)
}

// handleSyncNewcomer relays a member's current playback position in response
// to someone joining, tagged so only the newcomer needs to apply it.
func (c *controller) handleSyncNewcomer(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	return c.updatePlaybackStatus(ctx, payload, true)
}

// relayHandler broadcasts the payload verbatim to the room's channel. No
// server-side state is kept for these events.
func (c *controller) relayHandler(eventType string) func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	return func(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
		var input OpenSessionInput
		if err := json.Unmarshal(payload, &input); err != nil {
			return fmt.Errorf("failed to decode %s payload: %w", eventType, err)
		}
		if validationErrors, ok := c.validate.Validate(input); !ok {
			c.logger.DebugContext(ctx, "ignoring invalid relay payload", "type", eventType, "errors", validationErrors)
			return nil
		}

		return c.roomService.Relay(ctx, &room.RelayParams{
			RoomId:    input.PlaylistId,
			EventType: eventType,
			Payload:   payload,
		})
	}
}
