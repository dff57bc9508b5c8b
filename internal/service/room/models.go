package room

import (
	"encoding/json"

	"github.com/gorilla/websocket"
	"github.com/reviewroom/server/internal/domain"
)

type OpenSessionParams struct {
	Conn   *websocket.Conn
	RoomId string
	Token  string
}

type CloseSessionParams struct {
	Conn   *websocket.Conn
	RoomId string
}

type JoinParams struct {
	RoomId  string
	UserId  string
	Token   string
	Payload *domain.PlaybackUpdate
}

type LeaveParams struct {
	RoomId string
	UserId string
}

type UpdatePlaybackStatusParams struct {
	RoomId       string
	Payload      *domain.PlaybackUpdate
	OnlyNewcomer bool
}

type RelayParams struct {
	RoomId    string
	EventType string
	Payload   json.RawMessage
}

// RoomUpdate is the room-updated payload: the full room snapshot tagged so
// the transport can target only a newcomer asking to be caught up.
type RoomUpdate struct {
	OnlyNewcomer bool `json:"only_newcomer"`
	domain.Snapshot
}
