package invoices

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kudibooks-backend/pkg/db/models"
	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
	"github.com/angelmondragon/kudibooks-backend/pkg/pagination"
)

type CustomerInput struct {
	Name  string
	Email string
	Phone string
}

type LineInput struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// CreateInput carries a new invoice. Amount may be nil when Lines are present.
type CreateInput struct {
	TenantID    uuid.UUID
	Customer    CustomerInput
	Amount      *decimal.Decimal
	Currency    string
	Lines       []LineInput
	Description string
	DueDate     *time.Time
}

type CreateResult struct {
	Invoice          *models.Invoice
	PaymentLink      *string
	PaymentLinkError string
	// RemainingQuota is -1 on unlimited plans.
	RemainingQuota         int
	TenantOwnedCredentials bool
}

// StatusUpdate drives every status change. TenantID scopes the lookup when set.
type StatusUpdate struct {
	InvoiceID string
	TenantID  *uuid.UUID
	To        enums.InvoiceStatus
	Source    enums.StatusSource
	Reason    string
	// ProviderSuccess marks a provider success signal that still needs verification.
	ProviderSuccess bool
}

type StatusResult struct {
	Invoice    *models.Invoice
	From       enums.InvoiceStatus
	Transition Transition
}

type ListParams struct {
	pagination.Params
	Status *enums.InvoiceStatus
}

type ListResult struct {
	Invoices   []models.Invoice
	NextCursor string
}

// LineView is the API shape of an invoice line.
type LineView struct {
	Position    int             `json:"position"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

type CustomerView struct {
	Name  string  `json:"name"`
	Email *string `json:"email,omitempty"`
	Phone *string `json:"phone,omitempty"`
}

// InvoiceView is the API shape of an invoice.
type InvoiceView struct {
	ID               string                `json:"id"`
	Customer         CustomerView          `json:"customer"`
	Amount           decimal.Decimal       `json:"amount"`
	Currency         enums.Currency        `json:"currency"`
	Status           enums.InvoiceStatus   `json:"status"`
	Provider         enums.PaymentProvider `json:"provider"`
	PaymentReference string                `json:"payment_reference"`
	PaymentLink      *string               `json:"payment_link,omitempty"`
	DocumentURL      *string               `json:"document_url,omitempty"`
	Description      *string               `json:"description,omitempty"`
	DueDate          *time.Time            `json:"due_date,omitempty"`
	PaidAt           *time.Time            `json:"paid_at,omitempty"`
	Lines            []LineView            `json:"lines,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

type StatusChangeView struct {
	From      *enums.InvoiceStatus `json:"from,omitempty"`
	To        enums.InvoiceStatus  `json:"to"`
	Source    enums.StatusSource   `json:"source"`
	Reason    *string              `json:"reason,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}

func NewInvoiceView(inv *models.Invoice) InvoiceView {
	view := InvoiceView{
		ID: inv.ID,
		Customer: CustomerView{
			Name:  inv.CustomerName,
			Email: inv.CustomerEmail,
			Phone: inv.CustomerPhone,
		},
		Amount:           inv.Amount,
		Currency:         inv.Currency,
		Status:           inv.Status,
		Provider:         inv.Provider,
		PaymentReference: inv.PaymentReference,
		PaymentLink:      inv.PaymentLink,
		DocumentURL:      inv.DocumentURL,
		Description:      inv.Description,
		DueDate:          inv.DueDate,
		PaidAt:           inv.PaidAt,
		CreatedAt:        inv.CreatedAt,
		UpdatedAt:        inv.UpdatedAt,
	}
	for _, line := range inv.Lines {
		view.Lines = append(view.Lines, LineView{
			Position:    line.Position,
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Total:       line.Total(),
		})
	}
	return view
}

func NewStatusChangeViews(changes []models.InvoiceStatusChange) []StatusChangeView {
	out := make([]StatusChangeView, 0, len(changes))
	for _, c := range changes {
		out = append(out, StatusChangeView{
			From:      c.FromStatus,
			To:        c.ToStatus,
			Source:    c.Source,
			Reason:    c.Reason,
			CreatedAt: c.CreatedAt,
		})
	}
	return out
}
