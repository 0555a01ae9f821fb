package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrderStatus(t *testing.T) {
	for _, status := range OrderStatuses() {
		parsed, err := ParseOrderStatus(string(status))
		require.NoError(t, err)
		assert.Equal(t, status, parsed)
		assert.True(t, parsed.IsValid())
	}

	_, err := ParseOrderStatus("pendiente")
	assert.Error(t, err)
}

func TestOrderStatusTerminal(t *testing.T) {
	assert.True(t, OrderStatusRefunded.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.False(t, OrderStatusCompleted.IsTerminal())
	assert.False(t, OrderStatusPending.IsTerminal())
}

func TestParseUserRole(t *testing.T) {
	role, err := ParseUserRole(" Admin ")
	require.NoError(t, err)
	assert.Equal(t, UserRoleAdmin, role)

	_, err = ParseUserRole("owner")
	assert.Error(t, err)
}

func TestWebhookActionIsPaymentEvent(t *testing.T) {
	assert.True(t, WebhookAction("payment.created").IsPaymentEvent())
	assert.True(t, WebhookAction("payment.updated").IsPaymentEvent())
	assert.False(t, WebhookAction("merchant_order.updated").IsPaymentEvent())
	assert.False(t, WebhookAction("").IsPaymentEvent())
}

func TestPaymentStatusIsKnown(t *testing.T) {
	assert.True(t, PaymentStatusInMediation.IsKnown())
	assert.False(t, PaymentStatus("charged_back").IsKnown())
}
