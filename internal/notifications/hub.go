package notifications

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/gofiber/websocket/v2"
)

const (
	maxConnsPerUser = 12
	maxTotalConns   = 10000
)

var (
	errServerFull = errors.New("server connection limit reached")
	errUserFull   = errors.New("user connection limit reached")
)

// Hub tracks live websocket connections per user and fans notification
// payloads out to them. A user may hold several connections (tabs, devices).
type Hub struct {
	mu     sync.RWMutex
	byUser map[uint]map[*Client]struct{}
	total  int
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{
		byUser: make(map[uint]map[*Client]struct{}),
	}
}

// Register attaches a new connection for userID, enforcing the per-user and
// global connection caps.
func (h *Hub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.total >= maxTotalConns {
		return nil, errServerFull
	}
	set := h.byUser[userID]
	if len(set) >= maxConnsPerUser {
		return nil, errUserFull
	}
	if set == nil {
		set = make(map[*Client]struct{})
		h.byUser[userID] = set
	}

	client := NewClient(h, conn, userID)
	set[client] = struct{}{}
	h.total++
	return client, nil
}

// UnregisterClient detaches a client. Safe to call twice.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.byUser[client.UserID]
	if !ok {
		return
	}
	if _, exists := set[client]; !exists {
		return
	}
	delete(set, client)
	h.total--
	if len(set) == 0 {
		delete(h.byUser, client.UserID)
	}
}

// Broadcast delivers message to every open connection of userID.
func (h *Hub) Broadcast(userID uint, message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data := []byte(message)
	for c := range h.byUser[userID] {
		c.TrySend(data)
	}
}

// BroadcastAll delivers message to every connection on the hub.
func (h *Hub) BroadcastAll(message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data := []byte(message)
	for _, set := range h.byUser {
		for c := range set {
			c.TrySend(data)
		}
	}
}

// IsOnline reports whether userID has at least one open connection.
func (h *Hub) IsOnline(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byUser[userID]) > 0
}

// StartWiring subscribes the hub to the notifier's Redis channels and routes
// each payload to the addressed user, or to everyone for the broadcast
// channel. Blocks until ctx is done.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartPatternSubscriber(ctx, func(channel, payload string) {
		if channel == broadcastChannel {
			h.BroadcastAll(payload)
			return
		}
		userID, err := ParseUserChannel(channel)
		if err != nil {
			log.Printf("dropping payload on unrecognized channel %s: %v", channel, err)
			return
		}
		h.Broadcast(userID, payload)
	})
}

// Shutdown sends a going-away close frame to every connection and empties the
// hub. Pumps exit on their own when the connections close.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, set := range h.byUser {
		for client := range set {
			if client.Conn == nil {
				continue
			}
			closeFrame := websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")
			if err := client.Conn.WriteMessage(websocket.CloseMessage, closeFrame); err != nil {
				log.Printf("close frame for user %d: %v", userID, err)
			}
			if err := client.Conn.Close(); err != nil {
				log.Printf("closing websocket for user %d: %v", userID, err)
			}
		}
	}
	h.byUser = make(map[uint]map[*Client]struct{})
	h.total = 0
	return nil
}
