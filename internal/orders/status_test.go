package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

func TestMapPaymentStatus(t *testing.T) {
	cases := map[string]enums.OrderStatus{
		"approved":     enums.OrderStatusCompleted,
		"pending":      enums.OrderStatusPending,
		"in_process":   enums.OrderStatusProcessing,
		"rejected":     enums.OrderStatusFailed,
		"refunded":     enums.OrderStatusRefunded,
		"cancelled":    enums.OrderStatusCancelled,
		"in_mediation": enums.OrderStatusDisputed,
		"":             enums.OrderStatusPending,
		"charged_back": enums.OrderStatusPending,
		"APPROVED":     enums.OrderStatusPending,
	}
	for in, want := range cases {
		assert.Equal(t, want, MapPaymentStatus(in), "gateway status %q", in)
	}
}

func TestMapPaymentStatusAlwaysValid(t *testing.T) {
	for _, in := range []string{"x", "approved ", "\x00", "null"} {
		assert.True(t, MapPaymentStatus(in).IsValid())
	}
}

func TestLastWriteWinsAllowsEverything(t *testing.T) {
	policy := PolicyFor(false)
	assert.True(t, policy.Allow(enums.OrderStatusRefunded, enums.OrderStatusPending))
	assert.True(t, policy.Allow(enums.OrderStatusCompleted, enums.OrderStatusFailed))
}

func TestStrictTransitions(t *testing.T) {
	policy := PolicyFor(true)
	tests := []struct {
		from, to enums.OrderStatus
		want     bool
	}{
		{enums.OrderStatusPending, enums.OrderStatusCompleted, true},
		{enums.OrderStatusFailed, enums.OrderStatusCompleted, true},
		{enums.OrderStatusCompleted, enums.OrderStatusRefunded, true},
		{enums.OrderStatusCompleted, enums.OrderStatusPending, false},
		{enums.OrderStatusDisputed, enums.OrderStatusCompleted, true},
		{enums.OrderStatusRefunded, enums.OrderStatusPending, false},
		{enums.OrderStatusRefunded, enums.OrderStatusRefunded, true},
		{enums.OrderStatusCancelled, enums.OrderStatusCompleted, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, policy.Allow(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}
