package models

import "time"

// Chat represents a private conversation between exactly two users.
// The participant pair is stored sorted so each unordered pair maps to
// exactly one row.
type Chat struct {
	ID            int       `db:"id" json:"id"`
	User1ID       int       `db:"user1_id" json:"user1_id"`
	User2ID       int       `db:"user2_id" json:"user2_id"`
	LastMessageID *int      `db:"last_message_id" json:"last_message_id,omitempty"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// OtherParticipant returns the participant that is not userID.
func (c Chat) OtherParticipant(userID int) int {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}

// HasParticipant reports whether userID belongs to the chat.
func (c Chat) HasParticipant(userID int) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// ChatSummary is the API-friendly view of a chat for one user, as
// returned by the chat list endpoint.
type ChatSummary struct {
	ChatID       int       `db:"id" json:"chat_id"`
	FriendID     int       `json:"friend_id"`
	UnreadCount  int       `db:"unread_count" json:"unread_count"`
	LastContent  *string   `db:"last_content" json:"last_content,omitempty"`
	LastImageURL *string   `db:"last_image_url" json:"last_image_url,omitempty"`
	LastSenderID *int      `db:"last_sender_id" json:"last_sender_id,omitempty"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// UserChatSetting holds per-user per-chat unread and visibility state.
// A chat with unread_count > 0 is always treated as visible regardless
// of is_hidden.
type UserChatSetting struct {
	UserID      int  `db:"user_id" json:"user_id"`
	ChatID      int  `db:"chat_id" json:"chat_id"`
	UnreadCount int  `db:"unread_count" json:"unread_count"`
	IsHidden    bool `db:"is_hidden" json:"is_hidden"`
}
