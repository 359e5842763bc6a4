package webhooks

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
	"github.com/angelmondragon/kudibooks-backend/pkg/payments"
)

var eventTargets = map[payments.EventKind]enums.InvoiceStatus{
	payments.EventKindSuccess:   enums.InvoiceStatusPaid,
	payments.EventKindFailed:    enums.InvoiceStatusFailed,
	payments.EventKindAbandoned: enums.InvoiceStatusFailed,
	payments.EventKindPending:   enums.InvoiceStatusAwaitingConfirmation,
}

// TargetStatus maps a normalized event kind to the invoice status it asks for.
func TargetStatus(kind payments.EventKind) (enums.InvoiceStatus, bool) {
	status, ok := eventTargets[kind]
	return status, ok
}

// transitionFor picks the status to request given the invoice's current one.
// A success signal for a pending invoice parks it in awaiting_confirmation;
// the queued verification completes it.
func transitionFor(kind payments.EventKind, current enums.InvoiceStatus) (to enums.InvoiceStatus, providerSuccess bool, ok bool) {
	to, ok = TargetStatus(kind)
	if !ok {
		return "", false, false
	}
	if kind == payments.EventKindSuccess && current == enums.InvoiceStatusPending {
		return enums.InvoiceStatusAwaitingConfirmation, true, true
	}
	return to, false, true
}

// EventKey is the provider event id, else a digest of the fields that identify the signal.
func EventKey(provider enums.PaymentProvider, event *payments.Event) string {
	if id := strings.TrimSpace(event.ID); id != "" {
		return id
	}
	sum := sha256.Sum256([]byte(strings.Join([]string{
		string(provider),
		event.Reference,
		event.Amount.StringFixed(2),
		event.Type,
	}, "|")))
	return hex.EncodeToString(sum[:])
}
