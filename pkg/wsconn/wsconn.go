package wsconn

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Conn wraps a websocket connection with a write mutex so any goroutine
// may send on it. gorilla/websocket supports one concurrent reader and
// one concurrent writer per connection; reads stay single-goroutine in
// the serve loop, writes are serialized here.
type Conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func New(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

func (c *Conn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ws.WriteJSON(v)
}

func (c *Conn) ReadJSON(v any) error {
	return c.ws.ReadJSON(v)
}

func (c *Conn) SetReadLimit(limit int64) {
	c.ws.SetReadLimit(limit)
}

func (c *Conn) Close() error {
	return c.ws.Close()
}
