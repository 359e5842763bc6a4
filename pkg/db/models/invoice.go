package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
)

// Invoice is a billing document issued by a tenant to one of its customers.
// ID is the human-readable external reference and doubles as the provider-side
// payment reference.
type Invoice struct {
	ID                string                `gorm:"column:id;primaryKey"`
	TenantID          uuid.UUID             `gorm:"column:tenant_id;type:uuid;not null"`
	CustomerName      string                `gorm:"column:customer_name;not null"`
	CustomerEmail     *string               `gorm:"column:customer_email"`
	CustomerPhone     *string               `gorm:"column:customer_phone"`
	Description       *string               `gorm:"column:description"`
	Amount            decimal.Decimal       `gorm:"column:amount;type:numeric(14,2);not null"`
	Currency          enums.Currency        `gorm:"column:currency;not null"`
	Status            enums.InvoiceStatus   `gorm:"column:status;type:invoice_status_enum;not null;default:'pending'"`
	Provider          enums.PaymentProvider `gorm:"column:provider;type:payment_provider_enum;not null"`
	PaymentReference  string                `gorm:"column:payment_reference;not null"`
	ProviderReference *string               `gorm:"column:provider_reference"`
	PaymentLink       *string               `gorm:"column:payment_link"`
	DocumentURL       *string               `gorm:"column:document_url"`
	TenantOwnedCreds  bool                  `gorm:"column:tenant_owned_credentials;not null;default:false"`
	DueDate           *time.Time            `gorm:"column:due_date"`
	PaidAt            *time.Time            `gorm:"column:paid_at"`
	CreatedAt         time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time             `gorm:"column:updated_at;autoUpdateTime"`

	Lines []InvoiceLine `gorm:"foreignKey:InvoiceID;references:ID"`
}
