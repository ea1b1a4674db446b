package repositories

import (
	"context"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"messaging-service/internal/db"
	"messaging-service/internal/models"
)

// Tests below run against a real database and skip when
// TEST_DATABASE_DSN is unset.
func testDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	conn, err := db.Connect(dsn, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_, err = conn.Exec(`TRUNCATE messages, user_chat_settings, chats RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return conn
}

func TestAppendMessageIncrementsWithoutOverwriting(t *testing.T) {
	conn := testDB(t)
	chats := NewChatRepo(conn)
	messages := NewMessageRepo(conn)
	ctx := context.Background()

	chat, err := chats.FindOrCreateChat(ctx, 1, 2)
	require.NoError(t, err)

	content := "hello"
	_, unread, err := messages.AppendMessage(ctx, chat.ID, 1, "alice", models.MessageTypeText, &content, nil)
	require.NoError(t, err)
	require.Equal(t, 1, unread)

	_, unread, err = messages.AppendMessage(ctx, chat.ID, 1, "alice", models.MessageTypeText, &content, nil)
	require.NoError(t, err)
	require.Equal(t, 2, unread, "second send stacks on the first")

	total, err := chats.TotalUnread(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestHiddenChatStaysListedWhileUnread(t *testing.T) {
	conn := testDB(t)
	chats := NewChatRepo(conn)
	messages := NewMessageRepo(conn)
	ctx := context.Background()

	chat, err := chats.FindOrCreateChat(ctx, 1, 2)
	require.NoError(t, err)
	require.NoError(t, chats.HideChat(ctx, chat.ID, 2))

	list, err := chats.ListVisibleChats(ctx, 2)
	require.NoError(t, err)
	require.Empty(t, list, "hidden chat with no unread messages is gone")

	content := "ping"
	_, _, err = messages.AppendMessage(ctx, chat.ID, 1, "alice", models.MessageTypeText, &content, nil)
	require.NoError(t, err)

	list, err = chats.ListVisibleChats(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 1, "unread activity overrides the hidden flag")
	assert.Equal(t, chat.ID, list[0].ChatID)
	assert.Equal(t, 1, list[0].UnreadCount)
}

func TestListMessagesReconcilesReadState(t *testing.T) {
	conn := testDB(t)
	chats := NewChatRepo(conn)
	messages := NewMessageRepo(conn)
	ctx := context.Background()

	chat, err := chats.FindOrCreateChat(ctx, 1, 2)
	require.NoError(t, err)

	hello, reply := "hello", "reply"
	_, _, err = messages.AppendMessage(ctx, chat.ID, 1, "alice", models.MessageTypeText, &hello, nil)
	require.NoError(t, err)
	_, _, err = messages.AppendMessage(ctx, chat.ID, 2, "bob", models.MessageTypeText, &reply, nil)
	require.NoError(t, err)

	history, err := messages.ListMessages(ctx, chat.ID, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	for _, msg := range history {
		if msg.SenderID == 1 {
			assert.True(t, msg.IsRead, "inbound messages flip to read")
		} else {
			assert.False(t, msg.IsRead, "reader's own messages stay untouched")
		}
	}

	total, err := chats.TotalUnread(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, total, "open chat zeroes the counter exactly")

	// Reading again is a no-op for the counter.
	_, err = messages.ListMessages(ctx, chat.ID, 2)
	require.NoError(t, err)
	total, err = chats.TotalUnread(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestListMessagesHiddenWithoutUnread(t *testing.T) {
	conn := testDB(t)
	chats := NewChatRepo(conn)
	messages := NewMessageRepo(conn)
	ctx := context.Background()

	chat, err := chats.FindOrCreateChat(ctx, 1, 2)
	require.NoError(t, err)
	require.NoError(t, chats.HideChat(ctx, chat.ID, 2))

	_, err = messages.ListMessages(ctx, chat.ID, 2)
	require.ErrorIs(t, err, ErrChatHidden)
}

func TestFindOrCreateChatIsOrderInsensitive(t *testing.T) {
	conn := testDB(t)
	chats := NewChatRepo(conn)
	ctx := context.Background()

	first, err := chats.FindOrCreateChat(ctx, 2, 1)
	require.NoError(t, err)
	second, err := chats.FindOrCreateChat(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}
