package models

import "time"

// Message types supported by the chat.
const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
)

// Message represents a single chat message. Messages are immutable
// once created; only is_read flips, and only for messages whose sender
// is not the reader.
type Message struct {
	ID          int       `db:"id" json:"id"`
	ChatID      int       `db:"chat_id" json:"chat_id"`
	SenderID    int       `db:"sender_id" json:"sender_id"`
	SenderName  string    `db:"sender_name" json:"sender_name"`
	MessageType string    `db:"message_type" json:"message_type"`
	Content     *string   `db:"content" json:"content,omitempty"`
	ImageURL    *string   `db:"image_url" json:"image_url,omitempty"`
	IsRead      bool      `db:"is_read" json:"is_read"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ValidMessageType reports whether t is a supported message type.
func ValidMessageType(t string) bool {
	return t == MessageTypeText || t == MessageTypeImage
}
