package inmemory

import (
	"log/slog"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/reviewroom/server/internal/repository/connection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndRemove(t *testing.T) {
	r := NewRepo(slog.Default())
	conn := &websocket.Conn{}
	session := connection.Session{UserId: "user-1", LocalId: "tab-1"}

	require.NoError(t, r.Add(conn, session))
	assert.ErrorIs(t, r.Add(conn, session), connection.ErrAlreadyExists)

	got, err := r.GetSession(conn)
	require.NoError(t, err)
	assert.Equal(t, session, got)

	removed, err := r.Remove(conn)
	require.NoError(t, err)
	assert.Equal(t, session, removed)

	_, err = r.Remove(conn)
	assert.ErrorIs(t, err, connection.ErrNotFound)
	_, err = r.GetSession(conn)
	assert.ErrorIs(t, err, connection.ErrNotFound)
}

func TestSubscriptions(t *testing.T) {
	r := NewRepo(slog.Default())
	connA := &websocket.Conn{}
	connB := &websocket.Conn{}

	require.NoError(t, r.Add(connA, connection.Session{UserId: "user-a"}))
	require.NoError(t, r.Add(connB, connection.Session{UserId: "user-b"}))

	r.Subscribe(connA, "p1")
	r.Subscribe(connB, "p1")
	r.Subscribe(connA, "p2")

	assert.Len(t, r.GetSubscribers("p1"), 2)
	assert.Len(t, r.GetSubscribers("p2"), 1)

	r.Unsubscribe(connA, "p1")
	assert.Equal(t, []*websocket.Conn{connB}, r.GetSubscribers("p1"))

	// removing a connection drops its remaining subscriptions
	_, err := r.Remove(connA)
	require.NoError(t, err)
	assert.Empty(t, r.GetSubscribers("p2"))
}
