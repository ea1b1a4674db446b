package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"messaging-service/internal/mocks"
	"messaging-service/internal/models"
)

func newTestController(sink NotificationSink) *Controller {
	return New(Config{UserID: 1, DedupCapacity: 16}, sink, nil, zap.NewNop())
}

func inboundMessage(id int, content string, at time.Time) models.ChannelEvent {
	return models.ChannelEvent{
		Type: models.EventReceiveMessage,
		Message: &models.Message{
			ID:          id,
			ChatID:      5,
			SenderID:    2,
			SenderName:  "bob",
			MessageType: models.MessageTypeText,
			Content:     &content,
			CreatedAt:   at,
		},
		ChatID: 5,
	}
}

func TestDuplicateEventSingleSideEffect(t *testing.T) {
	sink := new(mocks.NotificationSinkMock)
	ctrl := newTestController(sink)

	sink.On("CreateNotification", mock.Anything, 1, "message", "New message from bob", "hi").Return(nil).Once()

	event := inboundMessage(7, "hi", time.Unix(1700000000, 0))
	ctrl.handleEvent(context.Background(), event)
	ctrl.handleEvent(context.Background(), event)

	require.Len(t, ctrl.Messages(), 1, "replayed event must not duplicate the message")
	sink.AssertExpectations(t)
	sink.AssertNumberOfCalls(t, "CreateNotification", 1)
}

func TestOwnMessageNoNotification(t *testing.T) {
	sink := new(mocks.NotificationSinkMock)
	ctrl := newTestController(sink)

	content := "mine"
	ctrl.handleEvent(context.Background(), models.ChannelEvent{
		Type: models.EventReceiveMessage,
		Message: &models.Message{
			ID:        9,
			ChatID:    5,
			SenderID:  1,
			Content:   &content,
			CreatedAt: time.Unix(1700000001, 0),
		},
	})

	require.Len(t, ctrl.Messages(), 1)
	sink.AssertNotCalled(t, "CreateNotification", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestNotificationFailureIsNonFatal(t *testing.T) {
	sink := new(mocks.NotificationSinkMock)
	ctrl := newTestController(sink)

	sink.On("CreateNotification", mock.Anything, 1, "message", "New message from bob", "hi").Return(assert.AnError).Once()

	ctrl.handleEvent(context.Background(), inboundMessage(7, "hi", time.Unix(1700000000, 0)))

	require.Len(t, ctrl.Messages(), 1, "message stays delivered even when the sink fails")
	sink.AssertExpectations(t)
}

func TestImageMessageNotificationBody(t *testing.T) {
	sink := new(mocks.NotificationSinkMock)
	ctrl := newTestController(sink)

	sink.On("CreateNotification", mock.Anything, 1, "message", "New message from bob", "Sent you an image").Return(nil).Once()

	url := "https://cdn.example/img.png"
	ctrl.handleEvent(context.Background(), models.ChannelEvent{
		Type: models.EventReceiveMessage,
		Message: &models.Message{
			ID:          11,
			ChatID:      5,
			SenderID:    2,
			SenderName:  "bob",
			MessageType: models.MessageTypeImage,
			ImageURL:    &url,
			CreatedAt:   time.Unix(1700000002, 0),
		},
	})

	sink.AssertExpectations(t)
}

func TestMessagesKeepArrivalOrder(t *testing.T) {
	sink := new(mocks.NotificationSinkMock)
	ctrl := newTestController(sink)
	sink.On("CreateNotification", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	// Second message carries an earlier timestamp; arrival order wins.
	ctrl.handleEvent(context.Background(), inboundMessage(2, "second", time.Unix(1700000010, 0)))
	ctrl.handleEvent(context.Background(), inboundMessage(1, "first", time.Unix(1700000000, 0)))

	msgs := ctrl.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, 2, msgs[0].ID)
	assert.Equal(t, 1, msgs[1].ID)
}

func TestUnreadAndPresenceState(t *testing.T) {
	ctrl := newTestController(new(mocks.NotificationSinkMock))
	ctx := context.Background()

	ctrl.handleEvent(ctx, models.ChannelEvent{Type: models.EventUnreadUpdate, ChatID: 5, UnreadCount: 3})
	ctrl.handleEvent(ctx, models.ChannelEvent{Type: models.EventOnlineUsersList, UserIDs: []int{2, 3}})
	ctrl.handleEvent(ctx, models.ChannelEvent{Type: models.EventUserOnline, UserID: 4})
	ctrl.handleEvent(ctx, models.ChannelEvent{Type: models.EventUserOffline, UserID: 2})
	ctrl.handleEvent(ctx, models.ChannelEvent{Type: models.EventChatListUpdate, ChatID: 5})

	assert.Equal(t, map[int]int{5: 3}, ctrl.UnreadCounts())
	assert.Equal(t, []int{3, 4}, ctrl.OnlineUsers())
	assert.Equal(t, 1, ctrl.ListRevision())
}

func TestSendMessageFailsFastWhenDisconnected(t *testing.T) {
	ctrl := newTestController(new(mocks.NotificationSinkMock))

	err := ctrl.SendMessage(context.Background(), 5, 2, "hi", models.MessageTypeText)
	require.ErrorIs(t, err, ErrDisconnected)
}

func TestSendImageFailsFastWhenDisconnected(t *testing.T) {
	uploader := new(mocks.UploaderMock)
	ctrl := New(Config{UserID: 1}, new(mocks.NotificationSinkMock), uploader, zap.NewNop())

	err := ctrl.SendImage(context.Background(), 5, 2, "a.png", nil)
	require.ErrorIs(t, err, ErrDisconnected)
	uploader.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
}

func TestConnectionErrorSurfaced(t *testing.T) {
	ctrl := newTestController(new(mocks.NotificationSinkMock))

	ctrl.handleEvent(context.Background(), models.ChannelEvent{Type: models.EventConnectionError, Error: "boom"})
	assert.Equal(t, "boom", ctrl.LastError())
}
