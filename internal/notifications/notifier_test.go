package notifications

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"messaging-service/internal/mocks"
)

func TestNotifierPublishesRecord(t *testing.T) {
	pub := new(mocks.PublisherMock)
	notifier := NewNotifier(pub, "notifications.message")

	pub.On("Publish", mock.Anything, "notifications.message", mock.MatchedBy(func(event any) bool {
		record, ok := event.(Record)
		return ok && record.UserID == 42 && record.Type == "message" &&
			record.Title == "New message from bob" && record.Message == "hi" &&
			record.SchemaVersion == 1 && record.OccurredAt != ""
	})).Return(nil).Once()

	err := notifier.CreateNotification(context.Background(), 42, "message", "New message from bob", "hi")
	require.NoError(t, err)
	pub.AssertExpectations(t)
}

func TestNoopPublisherAcceptsEverything(t *testing.T) {
	pub := NewPublisher("", "platform.events", zap.NewNop())
	require.NoError(t, pub.Publish(context.Background(), "notifications.message", Record{UserID: 1}))
	require.NoError(t, pub.Close())
}
