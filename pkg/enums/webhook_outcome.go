package enums

// WebhookOutcome is the processing result stored on a webhook event row.
type WebhookOutcome string

const (
	// WebhookOutcomeReceived marks a row inserted but not yet resolved within the same transaction.
	WebhookOutcomeReceived  WebhookOutcome = "received"
	WebhookOutcomeApplied   WebhookOutcome = "applied"
	WebhookOutcomeDuplicate WebhookOutcome = "duplicate"
	WebhookOutcomeRejected  WebhookOutcome = "rejected"
	WebhookOutcomeIgnored   WebhookOutcome = "ignored"
)

// String implements fmt.Stringer.
func (o WebhookOutcome) String() string {
	return string(o)
}
