package webhooks

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
	"github.com/angelmondragon/kudibooks-backend/pkg/payments"
)

func TestTransitionFor(t *testing.T) {
	cases := []struct {
		kind    payments.EventKind
		current enums.InvoiceStatus
		to      enums.InvoiceStatus
		success bool
		ok      bool
	}{
		{payments.EventKindSuccess, enums.InvoiceStatusPending, enums.InvoiceStatusAwaitingConfirmation, true, true},
		{payments.EventKindSuccess, enums.InvoiceStatusAwaitingConfirmation, enums.InvoiceStatusPaid, false, true},
		{payments.EventKindFailed, enums.InvoiceStatusPending, enums.InvoiceStatusFailed, false, true},
		{payments.EventKindAbandoned, enums.InvoiceStatusAwaitingConfirmation, enums.InvoiceStatusFailed, false, true},
		{payments.EventKindPending, enums.InvoiceStatusPending, enums.InvoiceStatusAwaitingConfirmation, false, true},
		{payments.EventKindUnknown, enums.InvoiceStatusPending, "", false, false},
	}
	for _, tc := range cases {
		to, success, ok := transitionFor(tc.kind, tc.current)
		if to != tc.to || success != tc.success || ok != tc.ok {
			t.Fatalf("%s on %s: got (%s, %v, %v)", tc.kind, tc.current, to, success, ok)
		}
	}
}

func TestEventKeyPrefersProviderID(t *testing.T) {
	event := &payments.Event{ID: "charge.success:1", Type: "charge.success", Reference: "INV-1", Amount: decimal.NewFromInt(10)}
	if got := EventKey(enums.PaymentProviderPaystack, event); got != "charge.success:1" {
		t.Fatalf("expected provider id, got %q", got)
	}
}

func TestEventKeyDigestIsStable(t *testing.T) {
	a := &payments.Event{Type: "charge.success", Reference: "INV-1", Amount: decimal.RequireFromString("10")}
	b := &payments.Event{Type: "charge.success", Reference: "INV-1", Amount: decimal.RequireFromString("10.00")}
	c := &payments.Event{Type: "charge.success", Reference: "INV-1", Amount: decimal.RequireFromString("10.01")}

	keyA := EventKey(enums.PaymentProviderPaystack, a)
	if len(keyA) != 64 {
		t.Fatalf("expected sha256 hex, got %q", keyA)
	}
	if keyA != EventKey(enums.PaymentProviderPaystack, b) {
		t.Fatal("equal amounts must produce the same key")
	}
	if keyA == EventKey(enums.PaymentProviderPaystack, c) {
		t.Fatal("different amounts must produce different keys")
	}
	if keyA == EventKey(enums.PaymentProviderFlutterwave, a) {
		t.Fatal("keys must be scoped by provider")
	}
}
