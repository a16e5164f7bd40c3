package wsrouter

import (
	"context"
	"encoding/json"

	"github.com/LFronza/CineLink-sub000/pkg/wsconn"
)

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type HandlerFunc func(ctx context.Context, conn *wsconn.Conn, payload json.RawMessage)

type Middleware func(next HandlerFunc) HandlerFunc

type WSRouter struct {
	routes      map[string]HandlerFunc
	middlewares []Middleware
}

func New() *WSRouter {
	return &WSRouter{routes: make(map[string]HandlerFunc)}
}

// Use registers a middleware applied to every handler. Must be called
// before Handle.
func (r *WSRouter) Use(mw Middleware) {
	r.middlewares = append(r.middlewares, mw)
}

func (r *WSRouter) Handle(messageType string, handler HandlerFunc) {
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		handler = r.middlewares[i](handler)
	}
	r.routes[messageType] = handler
}

// ServeConn reads messages from the connection until the read fails and
// routes each one to the handler registered for its type.
func (r *WSRouter) ServeConn(ctx context.Context, conn *wsconn.Conn) error {
	defer conn.Close()

	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}

		if handler, exists := r.routes[msg.Type]; exists {
			handler(context.WithValue(ctx, messageTypeKey, msg.Type), conn, msg.Payload)
		} else {
			conn.WriteJSON(map[string]string{"error": "unknown message type"})
		}
	}
}
