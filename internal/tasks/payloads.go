package tasks

import (
	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
)

type RenderPayload struct {
	InvoiceID string `json:"invoice_id"`
}

type NotificationPayload struct {
	Channel      enums.NotificationChannel  `json:"channel"`
	RecipientRef string                     `json:"recipient_ref"`
	Template     enums.NotificationTemplate `json:"template"`
	Data         map[string]any             `json:"data,omitempty"`
}

type VerifyPayload struct {
	InvoiceID string `json:"invoice_id"`
}
