package inmemory

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/reviewroom/server/internal/repository/connection"
)

type repo struct {
	mu       sync.RWMutex
	sessions map[*websocket.Conn]connection.Session
	// roomId -> conns locally subscribed to that room's channel
	subscribers map[string]map[*websocket.Conn]struct{}
	// conn -> roomIds, for unsubscribing everything on close
	subscriptions map[*websocket.Conn]map[string]struct{}
	logger        *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		sessions:      make(map[*websocket.Conn]connection.Session),
		subscribers:   make(map[string]map[*websocket.Conn]struct{}),
		subscriptions: make(map[*websocket.Conn]map[string]struct{}),
		logger:        logger,
	}
}

func (r *repo) Add(conn *websocket.Conn, session connection.Session) error {
	funcName := "connection.inmemory.Add"
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[conn]; ok {
		r.logger.Info(funcName, "error", connection.ErrAlreadyExists)
		return connection.ErrAlreadyExists
	}

	r.sessions[conn] = session

	r.logger.Debug(funcName, "user_id", session.UserId, "local_id", session.LocalId)
	return nil
}

// Remove drops the connection's session and all its room subscriptions and
// returns the last known session, which is how disconnect cleanup recovers
// an identity when the token can no longer be verified.
func (r *repo) Remove(conn *websocket.Conn) (connection.Session, error) {
	funcName := "connection.inmemory.Remove"
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[conn]
	if !ok {
		r.logger.Info(funcName, "error", connection.ErrNotFound)
		return connection.Session{}, connection.ErrNotFound
	}

	delete(r.sessions, conn)
	for roomId := range r.subscriptions[conn] {
		r.unsubscribe(conn, roomId)
	}
	delete(r.subscriptions, conn)

	r.logger.Debug(funcName, "user_id", session.UserId)
	return session, nil
}

func (r *repo) GetSession(conn *websocket.Conn) (connection.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[conn]
	if !ok {
		return connection.Session{}, connection.ErrNotFound
	}

	return session, nil
}

func (r *repo) Subscribe(conn *websocket.Conn, roomId string) {
	funcName := "connection.inmemory.Subscribe"
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.subscribers[roomId] == nil {
		r.subscribers[roomId] = make(map[*websocket.Conn]struct{})
	}
	r.subscribers[roomId][conn] = struct{}{}

	if r.subscriptions[conn] == nil {
		r.subscriptions[conn] = make(map[string]struct{})
	}
	r.subscriptions[conn][roomId] = struct{}{}

	r.logger.Debug(funcName, "room_id", roomId)
}

func (r *repo) Unsubscribe(conn *websocket.Conn, roomId string) {
	funcName := "connection.inmemory.Unsubscribe"
	r.mu.Lock()
	defer r.mu.Unlock()

	r.unsubscribe(conn, roomId)
	if rooms, ok := r.subscriptions[conn]; ok {
		delete(rooms, roomId)
	}

	r.logger.Debug(funcName, "room_id", roomId)
}

func (r *repo) unsubscribe(conn *websocket.Conn, roomId string) {
	if conns, ok := r.subscribers[roomId]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(r.subscribers, roomId)
		}
	}
}

func (r *repo) GetSubscribers(roomId string) []*websocket.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*websocket.Conn, 0, len(r.subscribers[roomId]))
	for conn := range r.subscribers[roomId] {
		conns = append(conns, conn)
	}
	return conns
}
