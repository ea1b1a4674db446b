package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"messaging-service/internal/auth"
	"messaging-service/internal/models"
	"messaging-service/internal/notifications"
	"messaging-service/internal/observability"
	"messaging-service/internal/repositories"
)

const wsEventsRoutingKey = "ws_events.messaging"

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ChannelHandler upgrades client connections and relays structured
// events between clients and the message store.
type ChannelHandler struct {
	hub         *Hub
	chatRepo    repositories.ChatRepository
	messageRepo repositories.MessageRepository
	verifier    auth.TokenVerifier
	publisher   notifications.Publisher
	logger      *zap.Logger
}

// NewChannelHandler constructs a ChannelHandler.
func NewChannelHandler(hub *Hub, chatRepo repositories.ChatRepository, messageRepo repositories.MessageRepository, verifier auth.TokenVerifier, publisher notifications.Publisher, logger *zap.Logger) *ChannelHandler {
	return &ChannelHandler{
		hub:         hub,
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		verifier:    verifier,
		publisher:   publisher,
		logger:      logger,
	}
}

type connEvent struct {
	Event      string `json:"event"`
	ConnID     string `json:"conn_id"`
	UserID     int    `json:"user_id"`
	DeviceID   string `json:"device_id"`
	IP         string `json:"ip"`
	DurationMs int64  `json:"duration_ms"`
	Reason     string `json:"reason,omitempty"`
}

// Handle authenticates the request, upgrades it to a websocket and
// runs the read loop until the client disconnects.
func (h *ChannelHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("messaging-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	ident, err := h.verifier.Verify(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      uuid.NewString(),
		UserID:      ident.UserID,
		UserName:    ident.Name,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	client := h.hub.Register(ident.UserID, conn, info)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	h.emitConnEvent(ctx, "ws_connect", info, "")

	go h.readLoop(ctx, conn, client, ident, info)
}

func (h *ChannelHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *Client, ident auth.Identity, info ConnInfo) {
	var closeReason string
	defer func() {
		h.hub.Unregister(ident.UserID, client)
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		h.emitConnEvent(ctx, "ws_disconnect", info, closeReason)
		conn.Close()
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
				h.emitConnEvent(ctx, "ws_error", info, closeReason)
			}
			return
		}

		var req models.SendMessageRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			h.sendError(client, "malformed event")
			continue
		}
		if req.Type != models.EventSendMessage {
			h.sendError(client, fmt.Sprintf("unsupported event type %q", req.Type))
			continue
		}
		h.handleSend(ctx, client, ident, req)
	}
}

// handleSend persists the message and fans delivery events out to both
// participants. The sender's own connections receive the message too
// so multi-tab senders stay in sync.
func (h *ChannelHandler) handleSend(ctx context.Context, client *Client, ident auth.Identity, req models.SendMessageRequest) {
	chat, err := h.resolveChat(ctx, ident.UserID, req)
	if err != nil {
		h.logger.Warn("send rejected",
			zap.Int("sender_id", ident.UserID),
			zap.Int("chat_id", req.ChatID),
			zap.Error(err))
		h.sendError(client, err.Error())
		return
	}
	receiverID := chat.OtherParticipant(ident.UserID)

	// The HTTP send path treats a missing type as text; same here.
	messageType := req.MessageType
	if messageType == "" {
		messageType = models.MessageTypeText
	}

	var content, imageURL *string
	switch messageType {
	case models.MessageTypeImage:
		if req.ImageURL == "" {
			h.sendError(client, "image message requires image_url")
			return
		}
		imageURL = &req.ImageURL
		if req.Content != "" {
			content = &req.Content
		}
	default:
		if req.Content == "" {
			h.sendError(client, "text message requires content")
			return
		}
		content = &req.Content
	}

	msg, unread, err := h.messageRepo.AppendMessage(ctx, chat.ID, ident.UserID, ident.Name, messageType, content, imageURL)
	if err != nil {
		h.logger.Error("append message failed",
			zap.Int("chat_id", chat.ID),
			zap.Int("sender_id", ident.UserID),
			zap.Error(err))
		h.sendError(client, "could not store message")
		return
	}

	receive := models.ChannelEvent{Type: models.EventReceiveMessage, Message: &msg, ChatID: chat.ID}
	h.hub.SendToUser(ctx, receiverID, receive)
	h.hub.SendToUser(ctx, ident.UserID, receive)
	h.hub.SendToUser(ctx, receiverID, models.ChannelEvent{Type: models.EventUnreadUpdate, ChatID: chat.ID, UnreadCount: unread})
	listUpdate := models.ChannelEvent{Type: models.EventChatListUpdate, ChatID: chat.ID}
	h.hub.SendToUser(ctx, receiverID, listUpdate)
	h.hub.SendToUser(ctx, ident.UserID, listUpdate)
}

func (h *ChannelHandler) resolveChat(ctx context.Context, senderID int, req models.SendMessageRequest) (models.Chat, error) {
	if req.ChatID == 0 {
		if req.ReceiverID == 0 {
			return models.Chat{}, fmt.Errorf("receiver_id required without chat_id")
		}
		return h.chatRepo.FindOrCreateChat(ctx, senderID, req.ReceiverID)
	}

	chat, err := h.chatRepo.GetChat(ctx, req.ChatID)
	if err != nil {
		return models.Chat{}, err
	}
	if !chat.HasParticipant(senderID) {
		return models.Chat{}, repositories.ErrNotParticipant
	}
	return chat, nil
}

// sendError pushes a local connection_error to one connection only.
// It is a UI signal, never retried or relayed.
func (h *ChannelHandler) sendError(client *Client, message string) {
	observability.IncWSEvent(models.EventConnectionError)
	if err := client.write(models.ChannelEvent{Type: models.EventConnectionError, Error: message}); err != nil {
		h.logger.Warn("connection error write failed", zap.Error(err))
	}
}

func (h *ChannelHandler) emitConnEvent(ctx context.Context, name string, info ConnInfo, reason string) {
	event := connEvent{
		Event:    name,
		ConnID:   info.ConnID,
		UserID:   info.UserID,
		DeviceID: info.DeviceID,
		IP:       info.IP,
		Reason:   reason,
	}
	if name != "ws_connect" {
		event.DurationMs = time.Since(info.ConnectedAt).Milliseconds()
	}
	if err := h.publisher.Publish(ctx, wsEventsRoutingKey, event); err != nil {
		h.logger.Warn("ws event publish failed", zap.String("event", name), zap.Error(err))
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		const prefix = "Bearer "
		if len(header) > len(prefix) && header[:len(prefix)] == prefix {
			return header[len(prefix):]
		}
		return ""
	}
	return c.Query("token")
}
