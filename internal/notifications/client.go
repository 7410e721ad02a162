package notifications

import (
	"log"
	"time"

	"discussify/internal/middleware"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // must fire before pongWait expires
	maxMessageSize = 16384
)

// Client couples one websocket connection to the hub. Delivery is one-way:
// the server pushes notification events; inbound frames only keep the
// connection alive.
type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan []byte
	UserID uint
}

// NewClient wraps conn with a buffered outbound queue.
func NewClient(hub *Hub, conn *websocket.Conn, userID uint) *Client {
	return &Client{
		Hub:    hub,
		Conn:   conn,
		UserID: userID,
		Send:   make(chan []byte, 256),
	}
}

// ReadPump consumes inbound frames until the connection dies, refreshing the
// read deadline on each pong. It unregisters the client on exit.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.UnregisterClient(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket read for user %d: %v", c.UserID, err)
			}
			return
		}
	}
}

// WritePump drains the send queue onto the wire and pings on an interval.
// Exits when the queue closes or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// TrySend enqueues a message without blocking. When the queue is full the
// message is dropped and a gap marker is queued instead so the frontend
// knows to re-fetch the feed.
func (c *Client) TrySend(message []byte) {
	defer func() {
		if r := recover(); r != nil {
			middleware.WebSocketDrops.WithLabelValues("closed").Inc()
		}
	}()

	select {
	case c.Send <- message:
		return
	default:
	}

	middleware.WebSocketDrops.WithLabelValues("full").Inc()
	log.Printf("user %d send queue full, dropped notification", c.UserID)

	gapNotice := []byte(`{"type":"messages_dropped","payload":{"reason":"buffer_full"}}`)
	select {
	case c.Send <- gapNotice:
	default:
	}
}
