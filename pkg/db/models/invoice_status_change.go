package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
)

// InvoiceStatusChange is an append-only audit row written for every transition.
type InvoiceStatusChange struct {
	ID         uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InvoiceID  string               `gorm:"column:invoice_id;not null"`
	TenantID   uuid.UUID            `gorm:"column:tenant_id;type:uuid;not null"`
	FromStatus *enums.InvoiceStatus `gorm:"column:from_status;type:invoice_status_enum"`
	ToStatus   enums.InvoiceStatus  `gorm:"column:to_status;type:invoice_status_enum;not null"`
	Source     enums.StatusSource   `gorm:"column:source;not null"`
	Reason     *string              `gorm:"column:reason"`
	CreatedAt  time.Time            `gorm:"column:created_at;autoCreateTime"`
}
