package wsrouter

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gorilla/websocket"
)

var ErrUnknownMessageType = errors.New("unknown message type")

// Message is the wire envelope for both inbound and outbound traffic.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type HandlerFunc func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error

type Middleware func(next HandlerFunc) HandlerFunc

type WSRouter struct {
	routes      map[string]HandlerFunc
	middlewares []Middleware
}

func New() *WSRouter {
	return &WSRouter{routes: make(map[string]HandlerFunc)}
}

// Use appends a middleware to the chain. Must be called before Handle.
func (r *WSRouter) Use(mw Middleware) {
	r.middlewares = append(r.middlewares, mw)
}

func (r *WSRouter) Handle(messageType string, handler HandlerFunc) {
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		handler = r.middlewares[i](handler)
	}
	r.routes[messageType] = handler
}

// ServeConn reads messages from conn until the connection fails and routes
// each one to its registered handler. Handler errors are returned to the
// caller's onError hook; they do not terminate the read loop.
func (r *WSRouter) ServeConn(ctx context.Context, conn *websocket.Conn, onError func(ctx context.Context, err error)) error {
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}

		handler, exists := r.routes[msg.Type]
		if !exists {
			if onError != nil {
				onError(ctx, ErrUnknownMessageType)
			}
			continue
		}

		msgCtx := withMessageType(ctx, msg.Type)
		if err := handler(msgCtx, conn, msg.Payload); err != nil && onError != nil {
			onError(msgCtx, err)
		}
	}
}
