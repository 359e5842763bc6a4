package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
	"github.com/angelmondragon/kudibooks-backend/pkg/types"
)

// Tenant is a business account; the unit of quota and credential isolation.
type Tenant struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name           string     `gorm:"column:name;not null"`
	ContactEmail   *string    `gorm:"column:contact_email"`
	Plan           enums.Plan `gorm:"column:plan;type:plan_enum;not null;default:'free'"`
	UsageCount     int        `gorm:"column:usage_count;not null;default:0"`
	PeriodResetsAt time.Time  `gorm:"column:period_resets_at;not null"`

	PaymentProvider      *enums.PaymentProvider `gorm:"column:payment_provider;type:payment_provider_enum"`
	SealedSecretKey      *string                `gorm:"column:sealed_secret_key"`
	PublicKey            *string                `gorm:"column:public_key"`
	SealedWebhookSecret  *string                `gorm:"column:sealed_webhook_secret"`
	CredentialsUpdatedAt *time.Time             `gorm:"column:credentials_updated_at"`
	BankDetails          *types.BankDetails     `gorm:"column:bank_details;type:bank_details_t"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// HasOwnCredentials reports whether a usable tenant credential set is stored.
func (t Tenant) HasOwnCredentials() bool {
	return t.PaymentProvider != nil && t.SealedSecretKey != nil && *t.SealedSecretKey != ""
}
