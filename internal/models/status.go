package models

import "fmt"

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusConfirmed: true, StatusCancelled: true},
	StatusConfirmed: {StatusPaid: true, StatusCancelled: true, StatusCompleted: true},
	StatusPaid:      {StatusCancelled: true, StatusCompleted: true},
	StatusCancelled: {},
	StatusCompleted: {},
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := validNext[st]; !ok {
		return "", fmt.Errorf("invalid booking status: %s", s)
	}
	return st, nil
}

func (s Status) CanTransitionTo(target Status) bool {
	return validNext[s][target]
}

// IsTerminal is true for cancelled and completed. Unknown statuses are treated as terminal.
func (s Status) IsTerminal() bool {
	return len(validNext[s]) == 0
}

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentPaid       PaymentStatus = "paid"
	PaymentFailed     PaymentStatus = "failed"
	PaymentRefunded   PaymentStatus = "refunded"
)

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch ps := PaymentStatus(s); ps {
	case PaymentPending, PaymentProcessing, PaymentPaid, PaymentFailed, PaymentRefunded:
		return ps, nil
	default:
		return "", fmt.Errorf("invalid payment status: %s", s)
	}
}

// CanAttemptPayment is false while a charge is in flight or after it settled.
func (p PaymentStatus) CanAttemptPayment() bool {
	return p == PaymentPending || p == PaymentFailed
}
