package enums

import "fmt"

// TaskKind identifies the handler for an async task.
type TaskKind string

const (
	TaskKindRenderInvoicePDF TaskKind = "render_invoice_pdf"
	TaskKindSendNotification TaskKind = "send_notification"
	TaskKindVerifyPayment    TaskKind = "verify_payment"
)

var validTaskKinds = []TaskKind{
	TaskKindRenderInvoicePDF,
	TaskKindSendNotification,
	TaskKindVerifyPayment,
}

// String implements fmt.Stringer.
func (k TaskKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known TaskKind.
func (k TaskKind) IsValid() bool {
	for _, candidate := range validTaskKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseTaskKind converts raw input into a TaskKind.
func ParseTaskKind(value string) (TaskKind, error) {
	for _, candidate := range validTaskKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid task kind %q", value)
}

// TaskState is the lifecycle state of an async task.
type TaskState string

const (
	TaskStatePending         TaskState = "pending"
	TaskStateSucceeded       TaskState = "succeeded"
	TaskStateFailedPermanent TaskState = "failed_permanent"
)

// String implements fmt.Stringer.
func (s TaskState) String() string {
	return string(s)
}

// IsTerminal reports whether workers will never pick the task up again.
func (s TaskState) IsTerminal() bool {
	return s == TaskStateSucceeded || s == TaskStateFailedPermanent
}
