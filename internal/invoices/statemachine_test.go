package invoices

import (
	"testing"

	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kudibooks-backend/pkg/errors"
)

func TestDecideTable(t *testing.T) {
	pending := enums.InvoiceStatusPending
	awaiting := enums.InvoiceStatusAwaitingConfirmation
	paid := enums.InvoiceStatusPaid
	failed := enums.InvoiceStatusFailed

	cases := []struct {
		from, to        enums.InvoiceStatus
		providerSuccess bool
		legal           bool
		effects         []Effect
	}{
		{pending, awaiting, false, true, nil},
		{pending, awaiting, true, true, []Effect{EffectEnqueueVerification}},
		{pending, failed, false, true, []Effect{EffectClearPaymentLink}},
		{pending, paid, false, false, nil},
		{pending, paid, true, false, nil},
		{pending, pending, false, false, nil},
		{awaiting, paid, false, true, []Effect{EffectNotifyReceipt}},
		{awaiting, paid, true, true, []Effect{EffectNotifyReceipt}},
		{awaiting, failed, false, true, []Effect{EffectNotifyFailure}},
		{awaiting, awaiting, false, false, nil},
		{awaiting, pending, false, false, nil},
		{paid, failed, false, false, nil},
		{paid, awaiting, false, false, nil},
		{failed, paid, false, false, nil},
		{failed, pending, false, false, nil},
	}

	for _, tc := range cases {
		got, err := Decide(tc.from, tc.to, tc.providerSuccess)
		if !tc.legal {
			if !pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition) {
				t.Fatalf("%s -> %s: expected INVALID_TRANSITION, got %v", tc.from, tc.to, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s -> %s: unexpected error %v", tc.from, tc.to, err)
		}
		if len(got.Effects) != len(tc.effects) {
			t.Fatalf("%s -> %s: effects %v want %v", tc.from, tc.to, got.Effects, tc.effects)
		}
		for i := range tc.effects {
			if got.Effects[i] != tc.effects[i] {
				t.Fatalf("%s -> %s: effects %v want %v", tc.from, tc.to, got.Effects, tc.effects)
			}
		}
	}
}

func TestDecideRejectsUnknownTarget(t *testing.T) {
	_, err := Decide(enums.InvoiceStatusPending, "refunded", false)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestInvalidTransitionCarriesDetails(t *testing.T) {
	_, err := Decide(enums.InvoiceStatusPending, enums.InvoiceStatusPaid, false)
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details map, got %T", pkgerrors.As(err).Details())
	}
	if details["from"] != enums.InvoiceStatusPending || details["to"] != enums.InvoiceStatusPaid {
		t.Fatalf("unexpected details %v", details)
	}
}

func TestDecideDoesNotShareEffectSlices(t *testing.T) {
	first, _ := Decide(enums.InvoiceStatusPending, enums.InvoiceStatusFailed, false)
	first.Effects[0] = EffectNotifyFailure
	second, _ := Decide(enums.InvoiceStatusPending, enums.InvoiceStatusFailed, false)
	if second.Effects[0] != EffectClearPaymentLink {
		t.Fatal("transition table was mutated through a returned slice")
	}
}

func TestInvoiceIDs(t *testing.T) {
	a, b := NewInvoiceID(), NewInvoiceID()
	if a == b {
		t.Fatal("ids must be unique")
	}
	if !ValidInvoiceID(a) {
		t.Fatalf("%s should be valid", a)
	}
	if ValidInvoiceID("INV-123") || ValidInvoiceID("01HZX3K2M8Q9W4E5R6T7Y8U9I0") {
		t.Fatal("malformed ids must be rejected")
	}
}
