package orders

import "github.com/angelmondragon/storefront-backend/pkg/enums"

var gatewayToOrderStatus = map[enums.PaymentStatus]enums.OrderStatus{
	enums.PaymentStatusApproved:    enums.OrderStatusCompleted,
	enums.PaymentStatusPending:     enums.OrderStatusPending,
	enums.PaymentStatusInProcess:   enums.OrderStatusProcessing,
	enums.PaymentStatusRejected:    enums.OrderStatusFailed,
	enums.PaymentStatusRefunded:    enums.OrderStatusRefunded,
	enums.PaymentStatusCancelled:   enums.OrderStatusCancelled,
	enums.PaymentStatusInMediation: enums.OrderStatusDisputed,
}

// MapPaymentStatus translates a gateway payment status into the order
// vocabulary. Unknown values, including "", map to pending.
func MapPaymentStatus(gatewayStatus string) enums.OrderStatus {
	if status, ok := gatewayToOrderStatus[enums.PaymentStatus(gatewayStatus)]; ok {
		return status
	}
	return enums.OrderStatusPending
}

// TransitionPolicy decides whether a reconciled status may replace the
// stored one.
type TransitionPolicy interface {
	Allow(from, to enums.OrderStatus) bool
}

// LastWriteWins accepts every transition.
type LastWriteWins struct{}

func (LastWriteWins) Allow(_, _ enums.OrderStatus) bool { return true }

// StrictTransitions rejects regressions once a payment has settled.
// refunded and cancelled are terminal.
type StrictTransitions struct{}

var strictAllowed = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusCompleted: {enums.OrderStatusRefunded, enums.OrderStatusDisputed},
	enums.OrderStatusDisputed:  {enums.OrderStatusCompleted, enums.OrderStatusRefunded, enums.OrderStatusCancelled},
	enums.OrderStatusRefunded:  {},
	enums.OrderStatusCancelled: {},
}

func (StrictTransitions) Allow(from, to enums.OrderStatus) bool {
	if from == to {
		return true
	}
	allowed, restricted := strictAllowed[from]
	if !restricted {
		return true
	}
	for _, candidate := range allowed {
		if candidate == to {
			return true
		}
	}
	return false
}

// PolicyFor returns the policy selected by configuration.
func PolicyFor(strict bool) TransitionPolicy {
	if strict {
		return StrictTransitions{}
	}
	return LastWriteWins{}
}
