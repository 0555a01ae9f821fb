package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "storefront"

// Sources of an order status change.
const (
	SourceWebhook   = "webhook"
	SourcePoll      = "poll"
	SourceReconcile = "reconcile"
	SourceCheckout  = "checkout"
)

// PaymentMetrics tracks webhook deliveries and order status reconciliation.
type PaymentMetrics struct {
	webhooks      *prometheus.CounterVec
	statusUpdates *prometheus.CounterVec
	gatewayErrors *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment metrics on reg.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_events_total",
		Help:      "Gateway webhook deliveries by action and outcome.",
	}, []string{"action", "outcome"})
	statusUpdates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_status_updates_total",
		Help:      "Persisted order status changes by source and new status.",
	}, []string{"source", "status"})
	gatewayErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gateway_errors_total",
		Help:      "Failed payment gateway calls by source.",
	}, []string{"source"})
	reg.MustRegister(webhooks, statusUpdates, gatewayErrors)
	return &PaymentMetrics{webhooks: webhooks, statusUpdates: statusUpdates, gatewayErrors: gatewayErrors}
}

// IncWebhook counts a webhook delivery.
func (m *PaymentMetrics) IncWebhook(action, outcome string) {
	if m == nil || m.webhooks == nil {
		return
	}
	m.webhooks.WithLabelValues(normalizeLabel(action), normalizeLabel(outcome)).Inc()
}

// IncStatusUpdate counts a persisted status change.
func (m *PaymentMetrics) IncStatusUpdate(source, status string) {
	if m == nil || m.statusUpdates == nil {
		return
	}
	m.statusUpdates.WithLabelValues(normalizeLabel(source), normalizeLabel(status)).Inc()
}

// IncGatewayError counts a failed gateway call.
func (m *PaymentMetrics) IncGatewayError(source string) {
	if m == nil || m.gatewayErrors == nil {
		return
	}
	m.gatewayErrors.WithLabelValues(normalizeLabel(source)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
