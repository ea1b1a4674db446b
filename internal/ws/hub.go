package ws

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"messaging-service/internal/models"
	"messaging-service/internal/observability"
)

// Client wraps a single websocket connection. Writes are serialized
// with a mutex because gorilla permits only one concurrent writer.
type Client struct {
	conn *websocket.Conn
	info ConnInfo
	mu   sync.Mutex
}

func (c *Client) write(event models.ChannelEvent) error {
	if c.conn == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(event)
}

// Hub maintains active websocket connections keyed by user id and
// drives presence transitions as connections come and go.
type Hub struct {
	mu       sync.RWMutex
	clients  map[int]map[*Client]struct{}
	presence *Presence
	bridge   *Bridge
	logger   *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(presence *Presence, logger *zap.Logger) *Hub {
	return &Hub{
		clients:  make(map[int]map[*Client]struct{}),
		presence: presence,
		logger:   logger,
	}
}

// SetBridge attaches the optional cross-instance event bridge.
func (h *Hub) SetBridge(bridge *Bridge) {
	h.bridge = bridge
}

// Register adds a connection for the user. If this is the user's first
// connection, user_online is broadcast to everyone else. The new
// client itself receives the full online set so it does not have to
// wait for deltas.
func (h *Hub) Register(userID int, conn *websocket.Conn, info ConnInfo) *Client {
	client := &Client{conn: conn, info: info}

	h.mu.Lock()
	if _, ok := h.clients[userID]; !ok {
		h.clients[userID] = make(map[*Client]struct{})
	}
	h.clients[userID][client] = struct{}{}
	h.mu.Unlock()

	first := h.presence.Connect(userID)
	observability.SetOnlineUsers(h.presence.Size())
	if first {
		h.Broadcast(models.ChannelEvent{Type: models.EventUserOnline, UserID: userID}, client)
	}
	if err := client.write(models.ChannelEvent{Type: models.EventOnlineUsersList, UserIDs: h.presence.Snapshot()}); err != nil {
		h.logger.Warn("online list write failed", zap.Int("user_id", userID), zap.Error(err))
	}
	return client
}

// Unregister removes a connection. If it was the user's last one,
// user_offline is broadcast. A client can be unregistered twice, once
// on a failed write and again by the read loop's cleanup, so the
// presence count only moves when the client was actually removed.
func (h *Hub) Unregister(userID int, client *Client) {
	h.mu.Lock()
	removed := false
	if conns, ok := h.clients[userID]; ok {
		if _, present := conns[client]; present {
			delete(conns, client)
			removed = true
			if len(conns) == 0 {
				delete(h.clients, userID)
			}
		}
	}
	h.mu.Unlock()
	if !removed {
		return
	}

	last := h.presence.Disconnect(userID)
	observability.SetOnlineUsers(h.presence.Size())
	if last {
		h.Broadcast(models.ChannelEvent{Type: models.EventUserOffline, UserID: userID}, nil)
	}
}

// SendToUser delivers an event to every local connection of the user
// and forwards it to other instances through the bridge when one is
// attached.
func (h *Hub) SendToUser(ctx context.Context, userID int, event models.ChannelEvent) {
	h.deliverLocal(userID, event)
	if h.bridge != nil {
		if err := h.bridge.Forward(ctx, userID, event); err != nil {
			h.logger.Warn("bridge forward failed", zap.Int("user_id", userID), zap.Error(err))
		}
	}
}

// DeliverLocal writes the event to the user's connections on this
// instance only. Used by the bridge for remote-originated events so
// they are not forwarded again.
func (h *Hub) DeliverLocal(userID int, event models.ChannelEvent) {
	h.deliverLocal(userID, event)
}

func (h *Hub) deliverLocal(userID int, event models.ChannelEvent) {
	h.mu.RLock()
	conns := make([]*Client, 0, len(h.clients[userID]))
	for client := range h.clients[userID] {
		conns = append(conns, client)
	}
	h.mu.RUnlock()

	for _, client := range conns {
		if err := client.write(event); err != nil {
			h.logger.Warn("websocket write failed",
				zap.Int("user_id", userID),
				zap.String("conn_id", client.info.ConnID),
				zap.Error(err))
			if client.conn != nil {
				client.conn.Close()
			}
			h.Unregister(userID, client)
		}
	}
	observability.IncWSEvent(event.Type)
}

// Broadcast sends an event to every connection except skip.
func (h *Hub) Broadcast(event models.ChannelEvent, skip *Client) {
	h.mu.RLock()
	type target struct {
		userID int
		client *Client
	}
	targets := make([]target, 0)
	for userID, conns := range h.clients {
		for client := range conns {
			if client == skip {
				continue
			}
			targets = append(targets, target{userID: userID, client: client})
		}
	}
	h.mu.RUnlock()

	for _, t := range targets {
		if err := t.client.write(event); err != nil {
			h.logger.Warn("websocket broadcast failed",
				zap.Int("user_id", t.userID),
				zap.String("conn_id", t.client.info.ConnID),
				zap.Error(err))
			if t.client.conn != nil {
				t.client.conn.Close()
			}
			h.Unregister(t.userID, t.client)
		}
	}
	observability.IncWSEvent(event.Type)
}

// ConnectionCount reports the number of live connections for a user.
func (h *Hub) ConnectionCount(userID int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
