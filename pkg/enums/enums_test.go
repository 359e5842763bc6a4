package enums

import "testing"

func TestParseInvoiceStatus(t *testing.T) {
	status, err := ParseInvoiceStatus("awaiting_confirmation")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != InvoiceStatusAwaitingConfirmation {
		t.Fatalf("unexpected status %s", status)
	}
	if _, err := ParseInvoiceStatus("refunded"); err == nil {
		t.Fatal("expected unknown status to fail")
	}
}

func TestInvoiceStatusTerminal(t *testing.T) {
	for status, want := range map[InvoiceStatus]bool{
		InvoiceStatusPending:              false,
		InvoiceStatusAwaitingConfirmation: false,
		InvoiceStatusPaid:                 true,
		InvoiceStatusFailed:               true,
	} {
		if got := status.IsTerminal(); got != want {
			t.Fatalf("%s terminal=%v want %v", status, got, want)
		}
	}
}

func TestParsePaymentProviderNormalizes(t *testing.T) {
	provider, err := ParsePaymentProvider(" Paystack ")
	if err != nil || provider != PaymentProviderPaystack {
		t.Fatalf("expected paystack, got %q err=%v", provider, err)
	}
	if _, err := ParsePaymentProvider("square"); err == nil {
		t.Fatal("expected unsupported provider to fail")
	}
}

func TestParseCurrencyUppercases(t *testing.T) {
	currency, err := ParseCurrency("ngn")
	if err != nil || currency != CurrencyNGN {
		t.Fatalf("expected NGN, got %q err=%v", currency, err)
	}
	if _, err := ParseCurrency("BTC"); err == nil {
		t.Fatal("expected unsupported currency to fail")
	}
}

func TestPlansOrdered(t *testing.T) {
	plans := Plans()
	if len(plans) != 4 || plans[0] != PlanFree || plans[3] != PlanEnterprise {
		t.Fatalf("unexpected plan order %v", plans)
	}
	plans[0] = PlanGrowth
	if Plans()[0] != PlanFree {
		t.Fatal("Plans must return a copy")
	}
}

func TestMemberRoleOrdering(t *testing.T) {
	if !MemberRoleOwner.AtLeast(MemberRoleAdmin) || !MemberRoleAdmin.AtLeast(MemberRoleAdmin) {
		t.Fatal("owner and admin should satisfy admin")
	}
	if MemberRoleStaff.AtLeast(MemberRoleAdmin) {
		t.Fatal("staff must not satisfy admin")
	}
	if MemberRole("auditor").AtLeast(MemberRoleStaff) {
		t.Fatal("unknown roles satisfy nothing")
	}
	role, err := ParseMemberRole(" Owner ")
	if err != nil || role != MemberRoleOwner {
		t.Fatalf("expected case-insensitive parse, got %q %v", role, err)
	}
}

func TestCurrencyMatchesProviderCodes(t *testing.T) {
	if !CurrencyNGN.Matches("ngn") || !CurrencyNGN.Matches("") {
		t.Fatal("expected case-insensitive and unreported codes to match")
	}
	if CurrencyNGN.Matches("USD") {
		t.Fatal("expected USD not to match NGN")
	}
	if got := CurrencyUSD.Symbol(); got != "$" {
		t.Fatalf("unexpected USD symbol %q", got)
	}
	if got := Currency("XOF").Symbol(); got != "XOF " {
		t.Fatalf("unexpected fallback symbol %q", got)
	}
}
