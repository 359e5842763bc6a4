package types

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// BankDetails mirrors the bank_details_t composite Postgres type. It holds the
// bank-transfer instructions printed on invoices for customers who do not pay
// through the provider link.
type BankDetails struct {
	BankName      string  `json:"bank_name"`
	AccountName   string  `json:"account_name"`
	AccountNumber string  `json:"account_number"`
	SortCode      *string `json:"sort_code,omitempty"`
}

// Value marshals BankDetails into a Postgres composite literal.
func (b BankDetails) Value() (driver.Value, error) {
	if strings.TrimSpace(b.BankName) == "" {
		return nil, fmt.Errorf("bank details: missing bank_name")
	}
	if strings.TrimSpace(b.AccountNumber) == "" {
		return nil, fmt.Errorf("bank details: missing account_number")
	}

	return encodeComposite(&b.BankName, &b.AccountName, &b.AccountNumber, b.SortCode), nil
}

// Scan decodes the Postgres composite literal.
func (b *BankDetails) Scan(value interface{}) error {
	if value == nil {
		*b = BankDetails{}
		return nil
	}

	raw, ok := toString(value)
	if !ok {
		return fmt.Errorf("bank details: unsupported scan type %T", value)
	}

	fields, err := decodeComposite(raw, 4)
	if err != nil {
		return err
	}

	b.BankName = deref(fields[0])
	b.AccountName = deref(fields[1])
	b.AccountNumber = deref(fields[2])
	b.SortCode = fields[3]
	return nil
}

func toString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	case fmt.Stringer:
		return v.String(), true
	default:
		return "", false
	}
}
