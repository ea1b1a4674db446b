package ws

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"messaging-service/internal/auth"
	"messaging-service/internal/mocks"
	"messaging-service/internal/models"
)

func TestHandleSendDefaultsMessageTypeToText(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewChannelHandler(newTestHub(), chatRepo, messageRepo, nil, nil, zap.NewNop())

	chatRepo.On("GetChat", mock.Anything, 7).Return(models.Chat{ID: 7, User1ID: 1, User2ID: 2}, nil).Once()

	content := "hi"
	messageRepo.On("AppendMessage", mock.Anything, 7, 1, "alice", models.MessageTypeText, &content, (*string)(nil)).
		Return(models.Message{ID: 1, ChatID: 7, SenderID: 1, Content: &content}, 1, nil).Once()

	handler.handleSend(context.Background(), &Client{}, auth.Identity{UserID: 1, Name: "alice"},
		models.SendMessageRequest{Type: models.EventSendMessage, ChatID: 7, Content: "hi"})

	chatRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
}

func TestHandleSendImageRequiresURL(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewChannelHandler(newTestHub(), chatRepo, messageRepo, nil, nil, zap.NewNop())

	chatRepo.On("GetChat", mock.Anything, 7).Return(models.Chat{ID: 7, User1ID: 1, User2ID: 2}, nil).Once()

	handler.handleSend(context.Background(), &Client{}, auth.Identity{UserID: 1, Name: "alice"},
		models.SendMessageRequest{Type: models.EventSendMessage, ChatID: 7, MessageType: models.MessageTypeImage})

	require.Empty(t, messageRepo.Calls)
}
