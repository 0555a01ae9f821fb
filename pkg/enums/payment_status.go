package enums

// PaymentStatus is the status string reported by the payment gateway for a
// payment. The gateway may return values outside this list.
type PaymentStatus string

const (
	PaymentStatusApproved    PaymentStatus = "approved"
	PaymentStatusPending     PaymentStatus = "pending"
	PaymentStatusInProcess   PaymentStatus = "in_process"
	PaymentStatusRejected    PaymentStatus = "rejected"
	PaymentStatusRefunded    PaymentStatus = "refunded"
	PaymentStatusCancelled   PaymentStatus = "cancelled"
	PaymentStatusInMediation PaymentStatus = "in_mediation"
)

var knownPaymentStatuses = []PaymentStatus{
	PaymentStatusApproved,
	PaymentStatusPending,
	PaymentStatusInProcess,
	PaymentStatusRejected,
	PaymentStatusRefunded,
	PaymentStatusCancelled,
	PaymentStatusInMediation,
}

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsKnown reports whether the gateway value is part of the documented set.
func (p PaymentStatus) IsKnown() bool {
	for _, candidate := range knownPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}
