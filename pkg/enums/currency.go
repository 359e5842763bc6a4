package enums

import (
	"fmt"
	"strings"
)

// Currency is an ISO 4217 code an invoice can be raised in.
type Currency string

const (
	CurrencyNGN Currency = "NGN"
	CurrencyGHS Currency = "GHS"
	CurrencyKES Currency = "KES"
	CurrencyZAR Currency = "ZAR"
	CurrencyUSD Currency = "USD"
)

// all supported codes use two minor-unit digits
var currencySymbols = map[Currency]string{
	CurrencyNGN: "\u20a6",
	CurrencyGHS: "GH\u20b5",
	CurrencyKES: "KSh",
	CurrencyZAR: "R",
	CurrencyUSD: "$",
}

func (c Currency) String() string {
	return string(c)
}

func (c Currency) IsValid() bool {
	_, ok := currencySymbols[c]
	return ok
}

// Symbol is the display prefix used on rendered documents and receipts.
func (c Currency) Symbol() string {
	if symbol, ok := currencySymbols[c]; ok {
		return symbol
	}
	return string(c) + " "
}

// Matches reports whether a provider-reported code names this currency.
// Providers disagree on case, and an empty code is treated as unreported.
func (c Currency) Matches(reported string) bool {
	reported = strings.TrimSpace(reported)
	return reported == "" || strings.EqualFold(reported, string(c))
}

func ParseCurrency(value string) (Currency, error) {
	candidate := Currency(strings.ToUpper(strings.TrimSpace(value)))
	if !candidate.IsValid() {
		return "", fmt.Errorf("invalid currency %q", value)
	}
	return candidate, nil
}
