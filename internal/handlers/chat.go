package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
)

// EventPusher delivers channel events to a user's live connections.
// Implemented by the ws hub.
type EventPusher interface {
	SendToUser(ctx context.Context, userID int, event models.ChannelEvent)
}

// ChatHandler manages the chat HTTP endpoints: initial list/history
// loads, read reconciliation and visibility changes, independent of
// the live channel.
type ChatHandler struct {
	chatRepo    repositories.ChatRepository
	messageRepo repositories.MessageRepository
	pusher      EventPusher
	logger      *zap.Logger
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(chatRepo repositories.ChatRepository, messageRepo repositories.MessageRepository, pusher EventPusher, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		pusher:      pusher,
		logger:      logger,
	}
}

// ListChats returns the chats visible to the authenticated user with
// unread counts and last-message previews.
func (h *ChatHandler) ListChats(c *gin.Context) {
	userID := c.GetInt("userID")

	chats, err := h.chatRepo.ListVisibleChats(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("list chats failed", zap.Int("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chats"})
		return
	}
	if chats == nil {
		chats = []models.ChatSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// StartChat resolves or creates the chat for the caller and a friend.
func (h *ChatHandler) StartChat(c *gin.Context) {
	var req struct {
		FriendID int `json:"friend_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	chat, err := h.chatRepo.FindOrCreateChat(c.Request.Context(), userID, req.FriendID)
	if err != nil {
		if errors.Is(err, repositories.ErrSelfChat) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot chat with yourself"})
			return
		}
		h.logger.Error("start chat failed", zap.Int("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create chat"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"chat_id": chat.ID})
}

// GetChatMessages returns the chronological history and reconciles the
// caller's read state as a side effect: unread drops to zero and the
// other participant's messages flip to read.
func (h *ChatHandler) GetChatMessages(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	msgs, err := h.messageRepo.ListMessages(c.Request.Context(), chatID, userID)
	if err != nil {
		status := statusForRepoError(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("list messages failed", zap.Int("chat_id", chatID), zap.Int("user_id", userID), zap.Error(err))
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}

	ctx := c.Request.Context()
	h.pusher.SendToUser(ctx, userID, models.ChannelEvent{Type: models.EventUnreadUpdate, ChatID: chatID, UnreadCount: 0})
	h.pusher.SendToUser(ctx, userID, models.ChannelEvent{Type: models.EventChatListUpdate, ChatID: chatID})

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostChatMessage stores a message over HTTP and pushes the same
// delivery events as the live channel. Used as the fallback path when
// the channel is down.
func (h *ChatHandler) PostChatMessage(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")
	userName := c.GetString("userName")

	var req struct {
		Content     string `json:"content"`
		ImageURL    string `json:"image_url"`
		MessageType string `json:"message_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.MessageType == "" {
		req.MessageType = models.MessageTypeText
	}

	var content, imageURL *string
	switch req.MessageType {
	case models.MessageTypeImage:
		if req.ImageURL == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "image message requires image_url"})
			return
		}
		imageURL = &req.ImageURL
		if req.Content != "" {
			content = &req.Content
		}
	case models.MessageTypeText:
		if req.Content == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "text message requires content"})
			return
		}
		content = &req.Content
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported message type"})
		return
	}

	chat, err := h.chatRepo.GetChat(c.Request.Context(), chatID)
	if err != nil {
		c.JSON(statusForRepoError(err), gin.H{"error": err.Error()})
		return
	}
	if !chat.HasParticipant(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a chat participant"})
		return
	}

	msg, unread, err := h.messageRepo.AppendMessage(c.Request.Context(), chatID, userID, userName, req.MessageType, content, imageURL)
	if err != nil {
		status := statusForRepoError(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("append message failed", zap.Int("chat_id", chatID), zap.Int("user_id", userID), zap.Error(err))
		}
		c.JSON(status, gin.H{"error": "failed to store message"})
		return
	}

	ctx := c.Request.Context()
	receiverID := chat.OtherParticipant(userID)
	receive := models.ChannelEvent{Type: models.EventReceiveMessage, Message: &msg, ChatID: chatID}
	h.pusher.SendToUser(ctx, receiverID, receive)
	h.pusher.SendToUser(ctx, userID, receive)
	h.pusher.SendToUser(ctx, receiverID, models.ChannelEvent{Type: models.EventUnreadUpdate, ChatID: chatID, UnreadCount: unread})
	listUpdate := models.ChannelEvent{Type: models.EventChatListUpdate, ChatID: chatID}
	h.pusher.SendToUser(ctx, receiverID, listUpdate)
	h.pusher.SendToUser(ctx, userID, listUpdate)

	c.JSON(http.StatusCreated, msg)
}

// HideChat removes the chat from the caller's list. The chat comes
// back on its own once new messages arrive.
func (h *ChatHandler) HideChat(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	if !h.requireParticipant(c, chatID, userID) {
		return
	}
	if err := h.chatRepo.HideChat(c.Request.Context(), chatID, userID); err != nil {
		h.logger.Error("hide chat failed", zap.Int("chat_id", chatID), zap.Int("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not hide chat"})
		return
	}

	h.pusher.SendToUser(c.Request.Context(), userID, models.ChannelEvent{Type: models.EventChatListUpdate, ChatID: chatID})
	c.Status(http.StatusNoContent)
}

// MarkRead zeroes the unread counter without fetching messages.
func (h *ChatHandler) MarkRead(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	if !h.requireParticipant(c, chatID, userID) {
		return
	}
	if err := h.chatRepo.MarkRead(c.Request.Context(), chatID, userID); err != nil {
		h.logger.Error("mark read failed", zap.Int("chat_id", chatID), zap.Int("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not mark chat read"})
		return
	}

	h.pusher.SendToUser(c.Request.Context(), userID, models.ChannelEvent{Type: models.EventUnreadUpdate, ChatID: chatID, UnreadCount: 0})
	c.Status(http.StatusNoContent)
}

// TotalUnread returns the sum of unread counts across visible chats,
// for the header badge.
func (h *ChatHandler) TotalUnread(c *gin.Context) {
	userID := c.GetInt("userID")

	total, err := h.chatRepo.TotalUnread(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("total unread failed", zap.Int("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load unread count"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": total})
}

func (h *ChatHandler) requireParticipant(c *gin.Context, chatID, userID int) bool {
	chat, err := h.chatRepo.GetChat(c.Request.Context(), chatID)
	if err != nil {
		c.JSON(statusForRepoError(err), gin.H{"error": err.Error()})
		return false
	}
	if !chat.HasParticipant(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a chat participant"})
		return false
	}
	return true
}

func chatIDParam(c *gin.Context) (int, bool) {
	chatID, err := strconv.Atoi(c.Param("chat_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return 0, false
	}
	return chatID, true
}

func statusForRepoError(err error) int {
	switch {
	case errors.Is(err, repositories.ErrChatNotFound), errors.Is(err, repositories.ErrMessageNotFound):
		return http.StatusNotFound
	case errors.Is(err, repositories.ErrNotParticipant), errors.Is(err, repositories.ErrChatHidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
