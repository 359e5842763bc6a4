package payments

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ToMinorUnits converts a major-unit amount (naira, dollars) into kobo/cents.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// SameAmount compares two amounts at two decimal places.
func SameAmount(a, b decimal.Decimal) bool {
	return a.Round(2).Equal(b.Round(2))
}
