package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceLine is immutable once written alongside its invoice.
type InvoiceLine struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InvoiceID   string          `gorm:"column:invoice_id;not null"`
	Position    int             `gorm:"column:position;not null"`
	Description string          `gorm:"column:description;not null"`
	Quantity    decimal.Decimal `gorm:"column:quantity;type:numeric(12,3);not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(14,2);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// Total returns quantity * unit price.
func (l InvoiceLine) Total() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice)
}
