package enums

// StatusSource records which path triggered an invoice status change.
type StatusSource string

const (
	StatusSourceSystem       StatusSource = "system"
	StatusSourceWebhook      StatusSource = "webhook"
	StatusSourceManual       StatusSource = "manual"
	StatusSourceVerification StatusSource = "verification"
)

// String implements fmt.Stringer.
func (s StatusSource) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StatusSource.
func (s StatusSource) IsValid() bool {
	switch s {
	case StatusSourceSystem, StatusSourceWebhook, StatusSourceManual, StatusSourceVerification:
		return true
	default:
		return false
	}
}
