package enums

import "fmt"

// InvoiceStatus tracks where an invoice sits in its payment lifecycle.
type InvoiceStatus string

const (
	InvoiceStatusPending              InvoiceStatus = "pending"
	InvoiceStatusAwaitingConfirmation InvoiceStatus = "awaiting_confirmation"
	InvoiceStatusPaid                 InvoiceStatus = "paid"
	InvoiceStatusFailed               InvoiceStatus = "failed"
)

var validInvoiceStatuses = []InvoiceStatus{
	InvoiceStatusPending,
	InvoiceStatusAwaitingConfirmation,
	InvoiceStatusPaid,
	InvoiceStatusFailed,
}

// String implements fmt.Stringer.
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known InvoiceStatus.
func (s InvoiceStatus) IsValid() bool {
	for _, candidate := range validInvoiceStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is permitted.
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusFailed
}

// ParseInvoiceStatus converts raw input into an InvoiceStatus.
func ParseInvoiceStatus(value string) (InvoiceStatus, error) {
	for _, candidate := range validInvoiceStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid invoice status %q", value)
}
