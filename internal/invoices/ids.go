package invoices

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

const invoiceIDPrefix = "INV-"

// NewInvoiceID returns a sortable, human-readable invoice reference.
func NewInvoiceID() string {
	return invoiceIDPrefix + ulid.Make().String()
}

// ValidInvoiceID reports whether id has the INV-<ULID> shape.
func ValidInvoiceID(id string) bool {
	if !strings.HasPrefix(id, invoiceIDPrefix) {
		return false
	}
	_, err := ulid.ParseStrict(strings.TrimPrefix(id, invoiceIDPrefix))
	return err == nil
}
