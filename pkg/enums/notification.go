package enums

// NotificationChannel is the transport a customer notification goes out on.
type NotificationChannel string

const (
	NotificationChannelEmail    NotificationChannel = "email"
	NotificationChannelSMS      NotificationChannel = "sms"
	NotificationChannelWhatsApp NotificationChannel = "whatsapp"
)

// String implements fmt.Stringer.
func (c NotificationChannel) String() string {
	return string(c)
}

// NotificationTemplate identifies the message rendered by the channel transport.
type NotificationTemplate string

const (
	NotificationTemplateInvoiceReceipt NotificationTemplate = "invoice_receipt"
	NotificationTemplatePaymentFailed  NotificationTemplate = "payment_failed"
)

// String implements fmt.Stringer.
func (t NotificationTemplate) String() string {
	return string(t)
}
