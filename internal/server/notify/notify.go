// Package notify delivers account notifications (currently email address
// verification requests) to an external sink.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dmitrijs2005/pocketledger/internal/logging"
)

const EventEmailVerification = "email.verification"

// VerificationMessage asks the recipient to confirm Email by opening Link.
type VerificationMessage struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Link     string `json:"link"`
}

// Notifier sends notifications. Implementations must honour ctx.
type Notifier interface {
	SendVerification(ctx context.Context, msg VerificationMessage) error
}

// event is the envelope written to the redis and kafka sinks.
type event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

func encodeEvent(eventType string, data any) ([]byte, error) {
	return json.Marshal(event{Type: eventType, Timestamp: time.Now().UTC(), Data: data})
}

// LogNotifier writes notifications to the log instead of delivering them.
type LogNotifier struct {
	log logging.Logger
}

func NewLogNotifier(log logging.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendVerification(ctx context.Context, msg VerificationMessage) error {
	n.log.Info(ctx, "email verification requested",
		"user_id", msg.UserID, "username", msg.Username, "email", msg.Email, "link", msg.Link)
	return nil
}
