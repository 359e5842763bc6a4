package invoices

import (
	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kudibooks-backend/pkg/errors"
)

// Effect is a side effect committed alongside a status transition.
type Effect string

const (
	EffectEnqueueVerification Effect = "enqueue_verify_payment"
	EffectClearPaymentLink    Effect = "clear_payment_link"
	EffectNotifyReceipt       Effect = "notify_invoice_receipt"
	EffectNotifyFailure       Effect = "notify_payment_failed"
)

// Transition is a legal status change and the effects it carries.
type Transition struct {
	From    enums.InvoiceStatus
	To      enums.InvoiceStatus
	Effects []Effect
}

// Has reports whether the transition carries effect.
func (t Transition) Has(effect Effect) bool {
	for _, e := range t.Effects {
		if e == effect {
			return true
		}
	}
	return false
}

// pending never moves straight to paid; money is only booked after confirmation.
var transitions = map[enums.InvoiceStatus]map[enums.InvoiceStatus][]Effect{
	enums.InvoiceStatusPending: {
		enums.InvoiceStatusAwaitingConfirmation: nil,
		enums.InvoiceStatusFailed:               {EffectClearPaymentLink},
	},
	enums.InvoiceStatusAwaitingConfirmation: {
		enums.InvoiceStatusPaid:   {EffectNotifyReceipt},
		enums.InvoiceStatusFailed: {EffectNotifyFailure},
	},
}

// Decide validates from -> to. providerSuccess marks a provider success signal that
// arrived while the invoice was still pending; it is parked in awaiting_confirmation
// and verified server-to-server before the invoice is paid.
func Decide(from, to enums.InvoiceStatus, providerSuccess bool) (Transition, error) {
	if !to.IsValid() {
		return Transition{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown invoice status").
			WithDetails(map[string]any{"status": to})
	}
	if from.IsTerminal() {
		return Transition{}, invalidTransition(from, to, "invoice is in a terminal state")
	}
	allowed, ok := transitions[from]
	if !ok {
		return Transition{}, invalidTransition(from, to, "invoice status is not transitionable")
	}
	effects, ok := allowed[to]
	if !ok {
		return Transition{}, invalidTransition(from, to, "status transition not allowed")
	}

	out := Transition{From: from, To: to, Effects: append([]Effect(nil), effects...)}
	if providerSuccess && from == enums.InvoiceStatusPending && to == enums.InvoiceStatusAwaitingConfirmation {
		out.Effects = append(out.Effects, EffectEnqueueVerification)
	}
	return out, nil
}

// CanTransition is Decide without the error.
func CanTransition(from, to enums.InvoiceStatus) bool {
	_, err := Decide(from, to, false)
	return err == nil
}

func invalidTransition(from, to enums.InvoiceStatus, msg string) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, msg).
		WithDetails(map[string]any{"from": from, "to": to})
}
