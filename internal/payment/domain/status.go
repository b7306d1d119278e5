package domain

import "strings"

// PaymentStatus is the lifecycle state of a Payment
type PaymentStatus string

// Payment statuses
const (
	StatusCreated    PaymentStatus = "CREATED"
	StatusAuthorized PaymentStatus = "AUTHORIZED"
	StatusCaptured   PaymentStatus = "CAPTURED"
	StatusFailed     PaymentStatus = "FAILED"
	StatusRefunded   PaymentStatus = "REFUNDED"
)

var transitions = map[PaymentStatus][]PaymentStatus{
	StatusCreated:    {StatusAuthorized, StatusCaptured, StatusFailed},
	StatusAuthorized: {StatusCaptured, StatusFailed},
	StatusCaptured:   {StatusRefunded},
}

// CanTransitionTo reports whether next is reachable from s in one step.
// Repeats and regressions are never reachable.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s PaymentStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// Valid reports whether s is one of the known statuses
func (s PaymentStatus) Valid() bool {
	switch s {
	case StatusCreated, StatusAuthorized, StatusCaptured, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

// AppointmentStatus returns the appointment payment_status mirrored by s
func (s PaymentStatus) AppointmentStatus() (AppointmentPaymentStatus, bool) {
	switch s {
	case StatusCaptured:
		return AppointmentPaid, true
	case StatusFailed:
		return AppointmentFailed, true
	case StatusRefunded:
		return AppointmentRefunded, true
	}
	return "", false
}

// StatusFromProvider maps a normalized provider status string. Unknown
// values yield false and must not change the payment.
func StatusFromProvider(raw string) (PaymentStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "authorized":
		return StatusAuthorized, true
	case "captured":
		return StatusCaptured, true
	case "failed":
		return StatusFailed, true
	case "refunded":
		return StatusRefunded, true
	}
	return "", false
}

// TransitionResult reports the outcome of applying a proposed status
type TransitionResult struct {
	From    PaymentStatus
	To      PaymentStatus
	Applied bool
}

// Captured reports whether this result is the transition into CAPTURED
func (r TransitionResult) Captured() bool {
	return r.Applied && r.To == StatusCaptured
}

// Apply computes the outcome of proposing next for a payment in s
func (s PaymentStatus) Apply(next PaymentStatus) TransitionResult {
	if next != "" && s.CanTransitionTo(next) {
		return TransitionResult{From: s, To: next, Applied: true}
	}
	return TransitionResult{From: s, To: s}
}
