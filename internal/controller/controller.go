package controller

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/reviewroom/server/internal/repository/connection"
	"github.com/reviewroom/server/internal/service/auth"
	"github.com/reviewroom/server/internal/service/room"
	"github.com/reviewroom/server/pkg/validator"
	"github.com/reviewroom/server/pkg/wsrouter"
)

type iRoomService interface {
	OpenSession(context.Context, *room.OpenSessionParams) error
	CloseSession(context.Context, *room.CloseSessionParams) error
	Join(context.Context, *room.JoinParams) error
	Leave(context.Context, *room.LeaveParams) error
	UpdatePlaybackStatus(context.Context, *room.UpdatePlaybackStatusParams) error
	Relay(context.Context, *room.RelayParams) error
	DisconnectCleanup(ctx context.Context, userId string) error
}

type iAuthService interface {
	VerifyToken(ctx context.Context, tokenString string) (auth.Identity, error)
}

type iConnRepo interface {
	Add(conn *websocket.Conn, session connection.Session) error
	Remove(conn *websocket.Conn) (connection.Session, error)
	GetSession(conn *websocket.Conn) (connection.Session, error)
	GetSubscribers(roomId string) []*websocket.Conn
}

type controller struct {
	roomService iRoomService
	authService iAuthService
	connRepo    iConnRepo
	upgrader    websocket.Upgrader
	validate    *validator.Validator
	stats       *connCounter
	serviceName string
	version     string
	logger      *slog.Logger
}

func NewController(roomService iRoomService, authService iAuthService, connRepo iConnRepo, serviceName, version string, logger *slog.Logger) *controller {
	return &controller{
		roomService: roomService,
		authService: authService,
		connRepo:    connRepo,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		validate:    validator.NewValidator(),
		stats:       &connCounter{},
		serviceName: serviceName,
		version:     version,
		logger:      logger,
	}
}

// Deliver writes a room event to every locally connected subscriber of the
// room. It is the bridge's delivery sink and runs on the bridge goroutine,
// which keeps writes to any one connection serialized.
func (c *controller) Deliver(roomId string, eventType string, payload json.RawMessage) {
	out := wsrouter.Message{Type: eventType, Payload: payload}
	for _, conn := range c.connRepo.GetSubscribers(roomId) {
		if err := conn.WriteJSON(out); err != nil {
			c.logger.Debug("failed to deliver event", "room_id", roomId, "type", eventType, "error", err)
		}
	}
}
