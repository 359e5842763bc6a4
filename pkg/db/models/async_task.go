package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
)

// AsyncTask is a durable unit of deferred work claimed by worker leases.
type AsyncTask struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Kind           enums.TaskKind  `gorm:"column:kind;not null"`
	TenantID       *uuid.UUID      `gorm:"column:tenant_id;type:uuid"`
	InvoiceID      *string         `gorm:"column:invoice_id"`
	Payload        json.RawMessage `gorm:"column:payload;type:jsonb;not null"`
	State          enums.TaskState `gorm:"column:state;not null;default:'pending'"`
	AttemptCount   int             `gorm:"column:attempt_count;not null;default:0"`
	MaxAttempts    int             `gorm:"column:max_attempts;not null"`
	NextRetryAt    time.Time       `gorm:"column:next_retry_at;not null"`
	LeaseOwner     *string         `gorm:"column:lease_owner"`
	LeaseExpiresAt *time.Time      `gorm:"column:lease_expires_at"`
	LastError      *string         `gorm:"column:last_error"`
	DedupeKey      *string         `gorm:"column:dedupe_key"`
	CompletedAt    *time.Time      `gorm:"column:completed_at"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
