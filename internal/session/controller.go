// Package session implements the client-side aggregator for the live
// chat channel: it owns the single websocket connection of an
// application session, fans server events out into derived state and
// guarantees at-most-once side effects per logical message.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"messaging-service/internal/models"
	"messaging-service/internal/upload"
)

var ErrDisconnected = errors.New("channel disconnected")

// NotificationSink creates durable notification records for inbound
// messages. Implemented server-side by the notifications package.
type NotificationSink interface {
	CreateNotification(ctx context.Context, userID int, notifType, title, message string) error
}

// Config holds the session parameters.
type Config struct {
	// URL is the websocket endpoint, e.g. ws://host/ws.
	URL string
	// Token is the bearer token identifying the current user.
	Token string
	// UserID is the authenticated user, used to tell own messages
	// from inbound ones.
	UserID int
	// DedupCapacity bounds the seen-key cache. Zero picks a default.
	DedupCapacity int
}

// Controller binds one live connection to the session lifetime and
// exposes derived state to the UI layer. Construct once at session
// start and Close on session end.
type Controller struct {
	cfg      Config
	sink     NotificationSink
	uploader upload.Uploader
	logger   *zap.Logger

	mu           sync.Mutex
	conn         *websocket.Conn
	connected    bool
	messages     []models.Message
	unread       map[int]int
	online       map[int]struct{}
	seen         *seenCache
	listRevision int
	lastError    string
	closed       bool
}

// New constructs a Controller. The uploader may be nil when the
// session never sends images.
func New(cfg Config, sink NotificationSink, uploader upload.Uploader, logger *zap.Logger) *Controller {
	return &Controller{
		cfg:      cfg,
		sink:     sink,
		uploader: uploader,
		logger:   logger,
		unread:   make(map[int]int),
		online:   make(map[int]struct{}),
		seen:     newSeenCache(cfg.DedupCapacity),
	}
}

// Connect dials the channel and starts consuming events. Presence
// state arrives unprompted: the server answers a fresh connection with
// the full online set before any deltas.
func (c *Controller) Connect(ctx context.Context) error {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.cfg.Token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		return fmt.Errorf("dial channel: %w", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.lastError = ""
	c.mu.Unlock()

	go c.readLoop(ctx, conn)
	return nil
}

// Close tears the session down. Idempotent.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// SendMessage emits a send intent over the live channel. It fails fast
// when disconnected; nothing is queued for later delivery.
func (c *Controller) SendMessage(ctx context.Context, chatID, receiverID int, content, messageType string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected || c.conn == nil {
		return ErrDisconnected
	}
	return c.conn.WriteJSON(models.SendMessageRequest{
		Type:        models.EventSendMessage,
		ChatID:      chatID,
		ReceiverID:  receiverID,
		Content:     content,
		MessageType: messageType,
	})
}

// SendImage uploads the attachment first and then sends an image
// message carrying the stored URL. An upload failure aborts the send.
func (c *Controller) SendImage(ctx context.Context, chatID, receiverID int, filename string, r io.Reader) error {
	if c.uploader == nil {
		return fmt.Errorf("no uploader configured")
	}
	c.mu.Lock()
	connected := c.connected
	c.mu.Unlock()
	if !connected {
		return ErrDisconnected
	}

	url, err := c.uploader.Upload(ctx, filename, r)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected || c.conn == nil {
		return ErrDisconnected
	}
	return c.conn.WriteJSON(models.SendMessageRequest{
		Type:        models.EventSendMessage,
		ChatID:      chatID,
		ReceiverID:  receiverID,
		ImageURL:    url,
		MessageType: models.MessageTypeImage,
	})
}

func (c *Controller) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var event models.ChannelEvent
		if err := conn.ReadJSON(&event); err != nil {
			c.mu.Lock()
			if c.conn == conn {
				c.connected = false
				c.lastError = err.Error()
			}
			c.mu.Unlock()
			return
		}
		c.handleEvent(ctx, event)
	}
}

func (c *Controller) handleEvent(ctx context.Context, event models.ChannelEvent) {
	switch event.Type {
	case models.EventReceiveMessage:
		c.handleReceive(ctx, event)
	case models.EventUnreadUpdate:
		c.mu.Lock()
		c.unread[event.ChatID] = event.UnreadCount
		c.mu.Unlock()
	case models.EventChatListUpdate:
		c.mu.Lock()
		c.listRevision++
		c.mu.Unlock()
	case models.EventUserOnline:
		c.mu.Lock()
		c.online[event.UserID] = struct{}{}
		c.mu.Unlock()
	case models.EventUserOffline:
		c.mu.Lock()
		delete(c.online, event.UserID)
		c.mu.Unlock()
	case models.EventOnlineUsersList:
		c.mu.Lock()
		c.online = make(map[int]struct{}, len(event.UserIDs))
		for _, id := range event.UserIDs {
			c.online[id] = struct{}{}
		}
		c.mu.Unlock()
	case models.EventConnectionError:
		c.mu.Lock()
		c.lastError = event.Error
		c.mu.Unlock()
	}
}

// handleReceive appends the message in arrival order and fires the
// notification side effect at most once per logical message. The same
// message can arrive twice after a reconnect or a duplicate listener
// registration; the seen-key guard absorbs the replay.
func (c *Controller) handleReceive(ctx context.Context, event models.ChannelEvent) {
	msg := event.Message
	if msg == nil {
		return
	}
	key := dedupKey(*msg)

	c.mu.Lock()
	fresh := c.seen.Add(key)
	if fresh {
		c.messages = append(c.messages, *msg)
	}
	c.mu.Unlock()

	if !fresh || msg.SenderID == c.cfg.UserID {
		return
	}

	body := "Sent you an image"
	if msg.Content != nil && *msg.Content != "" {
		body = *msg.Content
	}
	title := fmt.Sprintf("New message from %s", msg.SenderName)
	if err := c.sink.CreateNotification(ctx, c.cfg.UserID, "message", title, body); err != nil {
		// Non-fatal: the message itself is already delivered.
		c.logger.Warn("notification create failed",
			zap.Int("chat_id", msg.ChatID),
			zap.Int("message_id", msg.ID),
			zap.Error(err))
	}
}

func dedupKey(msg models.Message) string {
	content := ""
	if msg.Content != nil {
		content = *msg.Content
	} else if msg.ImageURL != nil {
		content = *msg.ImageURL
	}
	return fmt.Sprintf("%d|%s|%d", msg.SenderID, content, msg.CreatedAt.UnixNano())
}

// Messages returns a copy of the session's message list in arrival
// order. No client-side re-sorting is performed.
func (c *Controller) Messages() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// UnreadCounts returns a copy of the per-chat unread counters pushed
// so far.
func (c *Controller) UnreadCounts() map[int]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[int]int, len(c.unread))
	for chatID, count := range c.unread {
		out[chatID] = count
	}
	return out
}

// OnlineUsers returns the sorted ids of currently online users.
func (c *Controller) OnlineUsers() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int, 0, len(c.online))
	for id := range c.online {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// IsConnected reports whether the live channel is up.
func (c *Controller) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// ListRevision increments on every chat_list_update; the UI refetches
// the chat list when it changes.
func (c *Controller) ListRevision() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listRevision
}

// LastError returns the most recent connection error, empty when none.
func (c *Controller) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}
