package notifications

import (
	"context"
	"time"
)

// Record is the durable notification envelope consumed by the
// platform's notification service.
type Record struct {
	SchemaVersion int    `json:"schema_version"`
	UserID        int    `json:"user_id"`
	Type          string `json:"type"`
	Title         string `json:"title"`
	Message       string `json:"message"`
	OccurredAt    string `json:"occurred_at"`
}

// Notifier creates notification records through the broker. Failures
// are the caller's to log; a failed notification never rolls back the
// message that triggered it.
type Notifier struct {
	publisher  Publisher
	routingKey string
}

// NewNotifier constructs a Notifier.
func NewNotifier(publisher Publisher, routingKey string) *Notifier {
	return &Notifier{publisher: publisher, routingKey: routingKey}
}

// CreateNotification publishes one notification record for the user.
func (n *Notifier) CreateNotification(ctx context.Context, userID int, notifType, title, message string) error {
	return n.publisher.Publish(ctx, n.routingKey, Record{
		SchemaVersion: 1,
		UserID:        userID,
		Type:          notifType,
		Title:         title,
		Message:       message,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
	})
}
