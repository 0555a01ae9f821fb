package enums

// WebhookAction is the "action" field of a gateway notification.
type WebhookAction string

const (
	WebhookActionPaymentCreated WebhookAction = "payment.created"
	WebhookActionPaymentUpdated WebhookAction = "payment.updated"
)

// IsPaymentEvent reports whether the action concerns a payment and should be
// reconciled against an order.
func (a WebhookAction) IsPaymentEvent() bool {
	return a == WebhookActionPaymentCreated || a == WebhookActionPaymentUpdated
}
