// Command chat-client is a terminal client for the messaging service,
// used for manual testing and as a reference consumer of the session
// controller. Lines typed as "<receiver_id> <text>" are sent as text
// messages; "/img <receiver_id> <path>" uploads and sends an image.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"messaging-service/internal/config"
	"messaging-service/internal/logger"
	"messaging-service/internal/models"
	"messaging-service/internal/notifications"
	"messaging-service/internal/session"
	"messaging-service/internal/upload"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	zlog, err := logger.New(cfg.Environment)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zlog.Sync()

	token := os.Getenv("CHAT_TOKEN")
	userID, _ := strconv.Atoi(os.Getenv("CHAT_USER_ID"))
	wsURL := os.Getenv("CHAT_WS_URL")
	if wsURL == "" {
		wsURL = "ws://localhost:" + cfg.Port + "/ws"
	}
	if token == "" || userID == 0 {
		log.Fatal("CHAT_TOKEN and CHAT_USER_ID are required")
	}

	publisher := notifications.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, zlog)
	defer publisher.Close()
	sink := notifications.NewNotifier(publisher, cfg.NotificationRoutingKey)
	uploader := upload.NewClient(cfg.UploadBaseURL, 30*time.Second)

	ctrl := session.New(session.Config{
		URL:    wsURL,
		Token:  token,
		UserID: userID,
	}, sink, uploader, zlog)

	ctx := context.Background()
	if err := ctrl.Connect(ctx); err != nil {
		zlog.Fatal("connect failed", zap.Error(err))
	}
	defer ctrl.Close()
	fmt.Println("connected; online:", ctrl.OnlineUsers())

	go func() {
		seen := 0
		for {
			time.Sleep(200 * time.Millisecond)
			msgs := ctrl.Messages()
			for ; seen < len(msgs); seen++ {
				printMessage(msgs[seen])
			}
			if !ctrl.IsConnected() {
				fmt.Println("disconnected:", ctrl.LastError())
				return
			}
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := dispatch(ctx, ctrl, line); err != nil {
			fmt.Println("error:", err)
		}
	}
}

func dispatch(ctx context.Context, ctrl *session.Controller, line string) error {
	if path, receiverID, ok := parseImageCommand(line); ok {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		return ctrl.SendImage(ctx, 0, receiverID, f.Name(), f)
	}

	parts := strings.SplitN(line, " ", 2)
	if len(parts) != 2 {
		return fmt.Errorf("usage: <receiver_id> <text>")
	}
	receiverID, err := strconv.Atoi(parts[0])
	if err != nil {
		return fmt.Errorf("invalid receiver id %q", parts[0])
	}
	return ctrl.SendMessage(ctx, 0, receiverID, parts[1], models.MessageTypeText)
}

func parseImageCommand(line string) (string, int, bool) {
	if !strings.HasPrefix(line, "/img ") {
		return "", 0, false
	}
	parts := strings.Fields(line)
	if len(parts) != 3 {
		return "", 0, false
	}
	receiverID, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, false
	}
	return parts[2], receiverID, true
}

func printMessage(msg models.Message) {
	body := ""
	if msg.Content != nil {
		body = *msg.Content
	}
	if msg.ImageURL != nil {
		body += " [image: " + *msg.ImageURL + "]"
	}
	fmt.Printf("[chat %d] %s: %s\n", msg.ChatID, msg.SenderName, body)
}
