package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
)

// WebhookEvent deduplicates and audits inbound provider notifications.
// (provider, event_id) is unique.
type WebhookEvent struct {
	ID               uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Provider         enums.PaymentProvider `gorm:"column:provider;type:payment_provider_enum;not null"`
	EventID          string                `gorm:"column:event_id;not null"`
	EventType        string                `gorm:"column:event_type;not null"`
	TenantID         *uuid.UUID            `gorm:"column:tenant_id;type:uuid"`
	PaymentReference *string               `gorm:"column:payment_reference"`
	InvoiceID        *string               `gorm:"column:invoice_id"`
	Outcome          enums.WebhookOutcome  `gorm:"column:outcome;not null"`
	Reason           *string               `gorm:"column:reason"`
	Payload          json.RawMessage       `gorm:"column:payload;type:jsonb"`
	ReceivedAt       time.Time             `gorm:"column:received_at;not null"`
	ProcessedAt      *time.Time            `gorm:"column:processed_at"`
}
