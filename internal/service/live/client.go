package live

import (
	"time"

	"github.com/gorilla/websocket"

	applogger "DemandLoop/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4 * 1024
)

// Client is one WebSocket subscriber.
type Client struct {
	id     uint64
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	filter map[string]struct{}
}

func newClient(h *Hub, conn *websocket.Conn, placeIDs []string) *Client {
	c := &Client{
		id:   h.nextID.Add(1),
		hub:  h,
		conn: conn,
		send: make(chan []byte, h.sendBuffer),
	}
	if len(placeIDs) > 0 {
		c.filter = make(map[string]struct{}, len(placeIDs))
		for _, id := range placeIDs {
			c.filter[id] = struct{}{}
		}
	}
	return c
}

func (c *Client) wants(placeID string) bool {
	if c.filter == nil {
		return true
	}
	_, ok := c.filter[placeID]
	return ok
}

// readPump only drains control frames; clients do not send data.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	pongWait := c.hub.pingInterval * 2
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.l.Debug("live client read error", applogger.Error(err))
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
