package realtime

import (
	"sync"

	"github.com/gofiber/websocket/v2"
)

// Conn is the subset of *websocket.Conn the hub needs. Tests substitute
// their own implementation.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client wraps a live duplex connection registered with the hub. The hub
// owns the client for its whole lifetime; handlers only read from the
// underlying conn.
type Client struct {
	conn Conn
	mu   sync.Mutex
}

func NewClient(conn Conn) *Client {
	return &Client{conn: conn}
}

// write serializes writes on the connection; gofiber/websocket conns do not
// allow concurrent writers.
func (c *Client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Send marshals and writes a single event to this client only. Used for
// connection acks and pong replies outside the fan-out path.
func (c *Client) Send(event interface{}) error {
	data, err := marshalEvent(event)
	if err != nil {
		return err
	}
	return c.write(data)
}

func (c *Client) close() {
	_ = c.conn.Close()
}
