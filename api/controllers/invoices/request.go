package invoices

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kudibooks-backend/api/validators"
	internalinvoices "github.com/angelmondragon/kudibooks-backend/internal/invoices"
	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kudibooks-backend/pkg/errors"
)

type customerRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"omitempty,email,max=254"`
	Phone string `json:"phone" validate:"omitempty,e164"`
}

type lineRequest struct {
	Description string      `json:"description" validate:"required,max=500"`
	Quantity    json.Number `json:"quantity" validate:"required,money"`
	UnitPrice   json.Number `json:"unit_price" validate:"required"`
}

type createInvoiceRequest struct {
	Customer    customerRequest `json:"customer"`
	Amount      json.Number     `json:"amount" validate:"omitempty,money"`
	Currency    string          `json:"currency" validate:"omitempty,currency"`
	Lines       []lineRequest   `json:"lines" validate:"omitempty,max=100,dive"`
	Description string          `json:"description" validate:"omitempty,max=1000"`
	DueDate     *time.Time      `json:"due_date"`
}

func (r createInvoiceRequest) toInput() (internalinvoices.CreateInput, error) {
	input := internalinvoices.CreateInput{
		Customer: internalinvoices.CustomerInput{
			Name:  validators.SanitizeString(r.Customer.Name, 200),
			Email: strings.TrimSpace(r.Customer.Email),
			Phone: strings.TrimSpace(r.Customer.Phone),
		},
		Currency:    strings.ToUpper(strings.TrimSpace(r.Currency)),
		Description: validators.SanitizeString(r.Description, 1000),
		DueDate:     r.DueDate,
	}
	if r.Amount != "" {
		amount, err := decimal.NewFromString(string(r.Amount))
		if err != nil {
			return input, invalidField("amount", err)
		}
		input.Amount = &amount
	}
	for i, line := range r.Lines {
		qty, err := decimal.NewFromString(string(line.Quantity))
		if err != nil {
			return input, invalidField(fmt.Sprintf("lines[%d].quantity", i), err)
		}
		price, err := decimal.NewFromString(string(line.UnitPrice))
		if err != nil {
			return input, invalidField(fmt.Sprintf("lines[%d].unit_price", i), err)
		}
		input.Lines = append(input.Lines, internalinvoices.LineInput{
			Description: validators.SanitizeString(line.Description, 500),
			Quantity:    qty,
			UnitPrice:   price,
		})
	}
	return input, nil
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending awaiting_confirmation paid failed"`
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

func (r updateStatusRequest) target() (enums.InvoiceStatus, error) {
	status, err := enums.ParseInvoiceStatus(r.Status)
	if err != nil {
		return "", invalidField("status", err)
	}
	return status, nil
}

func invalidField(field string, err error) error {
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed").
		WithDetails(map[string]string{field: "is invalid"})
}
