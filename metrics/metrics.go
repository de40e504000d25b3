// Package metrics records dispatcher events and latencies.
package metrics

import "time"

// Event names.
const (
	PaymentSubmitted = "payment_submitted"
	PaymentConfirmed = "payment_confirmed"
	PaymentFailed    = "payment_failed"
	LicenseFeePaid   = "license_fee_paid"
	LicenseWarning   = "license_warning"
)

// Operations with observed latency.
const (
	OpDispatch     = "dispatch"
	OpConfirmation = "confirmation"
)

// Label keys understood by the recorders.
const (
	LabelChain = "chain"
	LabelAsset = "asset"
)

type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}
