package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"messaging-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// incrementUnreadStmt bumps the receiver's counter in place. A plain
// read-modify-write here would lose updates under concurrent sends.
const incrementUnreadStmt = `INSERT INTO user_chat_settings (user_id, chat_id, unread_count) VALUES ($1, $2, 1)
        ON CONFLICT (user_id, chat_id) DO UPDATE SET unread_count = user_chat_settings.unread_count + 1
        RETURNING unread_count`

// flipReadStmt marks the other participant's messages read; the
// reader's own messages are never touched.
const flipReadStmt = `UPDATE messages SET is_read = TRUE WHERE chat_id=$1 AND sender_id<>$2 AND is_read = FALSE`

// MessageRepository defines interactions for chat messages.
type MessageRepository interface {
	AppendMessage(ctx context.Context, chatID int, senderID int, senderName string, messageType string, content *string, imageURL *string) (models.Message, int, error)
	ListMessages(ctx context.Context, chatID int, userID int) ([]models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// AppendMessage persists a message and updates the chat's last-message
// pointer and the receiver's unread counter in one transaction. The
// counter mutation is a single atomic increment so a concurrent
// read-reconciliation cannot overwrite it with a stale value. Returns
// the stored message and the receiver's new unread count.
func (r *MessageRepo) AppendMessage(ctx context.Context, chatID int, senderID int, senderName string, messageType string, content *string, imageURL *string) (models.Message, int, error) {
	if !models.ValidMessageType(messageType) {
		return models.Message{}, 0, fmt.Errorf("unsupported message type %q", messageType)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, 0, err
	}
	defer tx.Rollback()

	var chat models.Chat
	err = tx.GetContext(ctx, &chat, `SELECT id, user1_id, user2_id, last_message_id, updated_at, created_at FROM chats WHERE id=$1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, 0, ErrChatNotFound
	}
	if err != nil {
		return models.Message{}, 0, err
	}
	if !chat.HasParticipant(senderID) {
		return models.Message{}, 0, ErrNotParticipant
	}
	receiverID := chat.OtherParticipant(senderID)

	var msg models.Message
	err = tx.QueryRowxContext(ctx, `INSERT INTO messages (chat_id, sender_id, sender_name, message_type, content, image_url)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, chat_id, sender_id, sender_name, message_type, content, image_url, is_read, created_at`,
		chatID, senderID, senderName, messageType, content, imageURL).StructScan(&msg)
	if err != nil {
		return models.Message{}, 0, err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE chats SET last_message_id=$1, updated_at=$2 WHERE id=$3`, msg.ID, msg.CreatedAt, chatID); err != nil {
		return models.Message{}, 0, err
	}

	var unread int
	err = tx.QueryRowxContext(ctx, incrementUnreadStmt, receiverID, chatID).Scan(&unread)
	if err != nil {
		return models.Message{}, 0, err
	}

	if err := tx.Commit(); err != nil {
		return models.Message{}, 0, err
	}
	return msg, unread, nil
}

// ListMessages returns the chat history in chronological order and
// reconciles the reader's state in the same transaction: unread drops
// to zero, the hidden flag clears, and every message from the other
// participant flips to read. Messages sent by the reader are never
// flipped.
func (r *MessageRepo) ListMessages(ctx context.Context, chatID int, userID int) ([]models.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var chat models.Chat
	err = tx.GetContext(ctx, &chat, `SELECT id, user1_id, user2_id, last_message_id, updated_at, created_at FROM chats WHERE id=$1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrChatNotFound
	}
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}

	var setting models.UserChatSetting
	err = tx.GetContext(ctx, &setting, `SELECT user_id, chat_id, unread_count, is_hidden FROM user_chat_settings WHERE user_id=$1 AND chat_id=$2`, userID, chatID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	// A hidden chat with no unread activity is not readable through
	// this path.
	if setting.IsHidden && setting.UnreadCount == 0 {
		return nil, ErrChatHidden
	}

	if _, err := tx.ExecContext(ctx, flipReadStmt, chatID, userID); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, markReadStmt, userID, chatID); err != nil {
		return nil, err
	}

	var msgs []models.Message
	if err := tx.SelectContext(ctx, &msgs, `SELECT id, chat_id, sender_id, sender_name, message_type, content, image_url, is_read, created_at
        FROM messages WHERE chat_id=$1 ORDER BY created_at ASC, id ASC`, chatID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return msgs, nil
}
