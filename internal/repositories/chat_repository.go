package repositories

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/jmoiron/sqlx"

	"messaging-service/internal/models"
)

var (
	ErrChatNotFound   = errors.New("chat not found")
	ErrNotParticipant = errors.New("user is not a chat participant")
	ErrChatHidden     = errors.New("chat is hidden for user")
	ErrSelfChat       = errors.New("cannot create chat with self")
)

// ChatRepository abstracts chat and per-user setting persistence.
type ChatRepository interface {
	FindOrCreateChat(ctx context.Context, userID int, friendID int) (models.Chat, error)
	GetChat(ctx context.Context, chatID int) (models.Chat, error)
	IsParticipant(ctx context.Context, chatID int, userID int) (bool, error)
	ListVisibleChats(ctx context.Context, userID int) ([]models.ChatSummary, error)
	HideChat(ctx context.Context, chatID int, userID int) error
	MarkRead(ctx context.Context, chatID int, userID int) error
	TotalUnread(ctx context.Context, userID int) (int, error)
}

// visibleChatsQuery keeps a hidden chat in the list while it still has
// unread messages.
const visibleChatsQuery = `SELECT c.id, c.user1_id, c.user2_id, c.updated_at,
            COALESCE(s.unread_count, 0) AS unread_count,
            m.content AS last_content, m.image_url AS last_image_url, m.sender_id AS last_sender_id
        FROM chats c
        LEFT JOIN user_chat_settings s ON s.chat_id = c.id AND s.user_id=$1
        LEFT JOIN messages m ON m.id = c.last_message_id
        WHERE (c.user1_id=$1 OR c.user2_id=$1)
        AND (s.is_hidden IS NULL OR s.is_hidden = FALSE OR s.unread_count > 0)
        ORDER BY c.updated_at DESC`

const hideChatStmt = `INSERT INTO user_chat_settings (user_id, chat_id, unread_count, is_hidden) VALUES ($1, $2, 0, TRUE)
        ON CONFLICT (user_id, chat_id) DO UPDATE SET unread_count = 0, is_hidden = TRUE`

const markReadStmt = `INSERT INTO user_chat_settings (user_id, chat_id, unread_count, is_hidden) VALUES ($1, $2, 0, FALSE)
        ON CONFLICT (user_id, chat_id) DO UPDATE SET unread_count = 0, is_hidden = FALSE`

const totalUnreadQuery = `SELECT COALESCE(SUM(unread_count), 0) FROM user_chat_settings
        WHERE user_id=$1 AND (is_hidden = FALSE OR unread_count > 0)`

// ChatRepo is a sqlx implementation of ChatRepository.
type ChatRepo struct {
	db *sqlx.DB
}

// NewChatRepo constructs a ChatRepo.
func NewChatRepo(db *sqlx.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

// FindOrCreateChat returns the chat for the unordered pair, creating
// it together with default setting rows for both participants when
// absent. Idempotent: FindOrCreateChat(a, b) and FindOrCreateChat(b, a)
// resolve to the same chat.
func (r *ChatRepo) FindOrCreateChat(ctx context.Context, userID int, friendID int) (models.Chat, error) {
	if userID == friendID {
		return models.Chat{}, ErrSelfChat
	}
	participants := []int{userID, friendID}
	sort.Ints(participants)
	user1, user2 := participants[0], participants[1]

	var chat models.Chat
	query := `SELECT id, user1_id, user2_id, last_message_id, updated_at, created_at FROM chats WHERE user1_id=$1 AND user2_id=$2`
	err := r.db.GetContext(ctx, &chat, query, user1, user2)
	if err == nil {
		return chat, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, err
	}

	// Two clients may race to create the same pair; the unique
	// constraint keeps one row and the reselect picks it up.
	if _, err := r.db.ExecContext(ctx, `INSERT INTO chats (user1_id, user2_id) VALUES ($1, $2) ON CONFLICT (user1_id, user2_id) DO NOTHING`, user1, user2); err != nil {
		return models.Chat{}, err
	}
	if err := r.db.GetContext(ctx, &chat, query, user1, user2); err != nil {
		return models.Chat{}, err
	}

	if _, err := r.db.ExecContext(ctx, `INSERT INTO user_chat_settings (user_id, chat_id) VALUES ($1, $3), ($2, $3) ON CONFLICT (user_id, chat_id) DO NOTHING`, user1, user2, chat.ID); err != nil {
		return models.Chat{}, err
	}
	return chat, nil
}

// GetChat fetches a chat by id.
func (r *ChatRepo) GetChat(ctx context.Context, chatID int) (models.Chat, error) {
	var chat models.Chat
	err := r.db.GetContext(ctx, &chat, `SELECT id, user1_id, user2_id, last_message_id, updated_at, created_at FROM chats WHERE id=$1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, ErrChatNotFound
	}
	return chat, err
}

// IsParticipant checks whether a user belongs to the chat.
func (r *ChatRepo) IsParticipant(ctx context.Context, chatID int, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM chats WHERE id=$1 AND (user1_id=$2 OR user2_id=$2))`, chatID, userID)
	return exists, err
}

// ListVisibleChats returns the user's chats ordered by recent
// activity. A hidden chat stays in the list while it has unread
// messages.
func (r *ChatRepo) ListVisibleChats(ctx context.Context, userID int) ([]models.ChatSummary, error) {
	rows, err := r.db.QueryxContext(ctx, visibleChatsQuery, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.ChatSummary
	for rows.Next() {
		var row struct {
			models.ChatSummary
			User1ID int `db:"user1_id"`
			User2ID int `db:"user2_id"`
		}
		if err := rows.StructScan(&row); err != nil {
			return nil, err
		}
		summary := row.ChatSummary
		summary.FriendID = row.User1ID
		if summary.FriendID == userID {
			summary.FriendID = row.User2ID
		}
		result = append(result, summary)
	}
	return result, rows.Err()
}

// HideChat removes the chat from the user's list and drops any unread
// state along with it.
func (r *ChatRepo) HideChat(ctx context.Context, chatID int, userID int) error {
	_, err := r.db.ExecContext(ctx, hideChatStmt, userID, chatID)
	return err
}

// MarkRead zeroes the unread counter without fetching messages. The
// user acted on the chat, so the hidden flag clears too.
func (r *ChatRepo) MarkRead(ctx context.Context, chatID int, userID int) error {
	_, err := r.db.ExecContext(ctx, markReadStmt, userID, chatID)
	return err
}

// TotalUnread sums unread counters across the user's visible chats.
func (r *ChatRepo) TotalUnread(ctx context.Context, userID int) (int, error) {
	var total int
	err := r.db.GetContext(ctx, &total, totalUnreadQuery, userID)
	return total, err
}
