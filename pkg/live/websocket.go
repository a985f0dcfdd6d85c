package live

import (
	"context"
	"fmt"
	"sync"

	"github.com/coder/websocket"
)

// WebsocketChannel is the production Channel backed by a websocket
// connection. Frames may arrive as text or binary; both are surfaced as
// raw bytes for the codec to classify.
type WebsocketChannel struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func NewWebsocketChannel() Channel {
	return &WebsocketChannel{}
}

func (c *WebsocketChannel) Open(ctx context.Context, url string) error {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrChannelOpen, err)
	}

	// Model turns can carry large inline audio payloads.
	conn.SetReadLimit(10 * 1024 * 1024)

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	return nil
}

func (c *WebsocketChannel) Send(ctx context.Context, data []byte) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

func (c *WebsocketChannel) Receive(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil, ErrNotConnected
	}
	_, payload, err := conn.Read(ctx)
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func (c *WebsocketChannel) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close(websocket.StatusNormalClosure, "")
}
