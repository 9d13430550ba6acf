// Package delivery holds the external channel collaborators. The dispatcher
// depends only on the sender interfaces, never on a provider's transport.
package delivery

import (
	"context"

	"github.com/twitchyvr/MycoLab-sub010/internal/models"
)

// EmailMessage is the channel payload for an email send.
type EmailMessage struct {
	To       string
	Subject  string
	Body     string
	Category models.Category
	Priority models.Priority
}

// SMSMessage is the channel payload for an SMS send.
type SMSMessage struct {
	To       string
	Body     string
	Category models.Category
	Priority models.Priority
}

// PushMessage is the channel payload for a push send.
type PushMessage struct {
	Token    string
	Title    string
	Body     string
	Category models.Category
	Priority models.Priority
}

// EmailSender sends one email and returns the provider message id.
type EmailSender interface {
	SendEmail(ctx context.Context, msg EmailMessage) (string, error)
}

// SMSSender sends one SMS and returns the provider message id.
type SMSSender interface {
	SendSMS(ctx context.Context, msg SMSMessage) (string, error)
}

// PushSender sends one push notification and returns the provider message id.
type PushSender interface {
	SendPush(ctx context.Context, msg PushMessage) (string, error)
}
