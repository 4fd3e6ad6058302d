// internal/workers/application/send-notification/models.go
package sendnotification

import (
	"context"

	"leadbot/internal/models"
)

// EmailSender delivers plain-text email.
type EmailSender interface {
	SendText(ctx context.Context, to []string, subject, body string) (string, error)
}

// SMSSender delivers a text message.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) (string, error)
}

type Input = models.FollowUpVariables

type Output struct {
	Notifications []models.LeadNotification `json:"notifications"`
	Status        string                    `json:"status"` // "sent", "disabled"
}

// Statuses
const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)
