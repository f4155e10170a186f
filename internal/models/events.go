package models

import "time"

// NATS subjects
const (
	EventBookingCreated         = "booking.created"
	EventBookingCancelled       = "booking.cancelled"
	EventBookingCompleted       = "booking.completed"
	EventBookingExpired         = "booking.expired"
	EventBookingRefundRequested = "booking.refund_requested"
	EventPaymentCompleted       = "payment.completed"
	EventPaymentFailed          = "payment.failed"
)

type BookingCreatedEvent struct {
	BookingID     string    `json:"booking_id"`
	CatalogItemID string    `json:"catalog_item_id"`
	UserID        string    `json:"user_id"`
	TotalPrice    int64     `json:"total_price"`
	ContactName   string    `json:"contact_name"`
	ContactEmail  string    `json:"contact_email"`
	Timestamp     time.Time `json:"timestamp"`
}

type PaymentCompletedEvent struct {
	BookingID    string    `json:"booking_id"`
	PaymentID    string    `json:"payment_id"`
	Amount       int64     `json:"amount"`
	ContactName  string    `json:"contact_name"`
	ContactEmail string    `json:"contact_email"`
	Timestamp    time.Time `json:"timestamp"`
}

type PaymentFailedEvent struct {
	BookingID    string    `json:"booking_id"`
	Reason       string    `json:"reason"`
	ContactName  string    `json:"contact_name"`
	ContactEmail string    `json:"contact_email"`
	Timestamp    time.Time `json:"timestamp"`
}

type BookingCancelledEvent struct {
	BookingID     string        `json:"booking_id"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	Reason        string        `json:"reason"`
	ContactName   string        `json:"contact_name"`
	ContactEmail  string        `json:"contact_email"`
	Timestamp     time.Time     `json:"timestamp"`
}

type BookingCompletedEvent struct {
	BookingID    string    `json:"booking_id"`
	ContactName  string    `json:"contact_name"`
	ContactEmail string    `json:"contact_email"`
	Timestamp    time.Time `json:"timestamp"`
}

type BookingExpiredEvent struct {
	BookingID    string    `json:"booking_id"`
	UserID       string    `json:"user_id"`
	Reason       string    `json:"reason"`
	ContactName  string    `json:"contact_name"`
	ContactEmail string    `json:"contact_email"`
	Timestamp    time.Time `json:"timestamp"`
}

// RefundRequestedEvent asks the gateway to return a captured charge. Unrecorded marks a charge
// the booking never recorded, so there is no refunded payment status to set afterwards.
type RefundRequestedEvent struct {
	BookingID        string    `json:"booking_id"`
	PaymentReference string    `json:"payment_reference"`
	Amount           int64     `json:"amount"`
	Reason           string    `json:"reason,omitempty"`
	Unrecorded       bool      `json:"unrecorded,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}
