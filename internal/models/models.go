package models

import (
	"fmt"
	"strings"
)

// FlexibleBool accepts booleans sent as strings or numbers as well as JSON booleans.
type FlexibleBool bool

func (fb *FlexibleBool) UnmarshalJSON(data []byte) error {
	v, err := ParseFlexibleBool(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*fb = FlexibleBool(v)
	return nil
}

func (fb FlexibleBool) Bool() bool {
	return bool(fb)
}

// ParseFlexibleBool is the query-string counterpart of FlexibleBool.
func ParseFlexibleBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value: %s", s)
	}
}

// DateLayout is the calendar-date format used for stay dates on the wire.
const DateLayout = "2006-01-02"

// BookingRequest is the single atomic request accepted by the booking service.
type BookingRequest struct {
	CatalogItemID   string   `json:"catalogItemId" validate:"required"`
	StartDate       string   `json:"startDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate         string   `json:"endDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	TravelerCount   int      `json:"travelerCount" validate:"min=1,max=50"`
	Name            string   `json:"name" validate:"required,max=200"`
	Email           string   `json:"email" validate:"required,email"`
	Phone           string   `json:"phone,omitempty" validate:"omitempty,max=32"`
	SpecialRequests string   `json:"specialRequests,omitempty" validate:"max=2000"`
	AddOnIDs        []string `json:"addOnIds" validate:"dive,required"`
	UserID          string   `json:"-"`
}

type PaymentMethod string

const (
	MethodCreditCard   PaymentMethod = "credit_card"
	MethodPayPal       PaymentMethod = "paypal"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodCrypto       PaymentMethod = "crypto"
)

type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type PaymentDetails struct {
	Method         PaymentMethod `json:"method" validate:"required,oneof=credit_card paypal bank_transfer crypto"`
	CardNumber     string        `json:"cardNumber,omitempty"`
	CardholderName string        `json:"cardholderName,omitempty"`
	ExpiryDate     string        `json:"expiryDate,omitempty"`
	CVV            string        `json:"cvv,omitempty"`
	BillingAddress *Address      `json:"billingAddress,omitempty"`
}

// Masked returns the last four digits of the card for logs and gateway descriptions.
func (p PaymentDetails) Masked() string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, p.CardNumber)
	if len(digits) < 4 {
		return string(p.Method)
	}
	return string(p.Method) + " ****" + digits[len(digits)-4:]
}

type PayBookingRequest struct {
	BookingID      string         `json:"bookingId"`
	PaymentDetails PaymentDetails `json:"paymentDetails"`
}

type CancelBookingRequest struct {
	BookingID string `json:"bookingId"`
	Reason    string `json:"reason,omitempty"`
}

// APIResponse is the uniform envelope returned by every booking endpoint.
type APIResponse struct {
	Success   bool              `json:"success"`
	BookingID string            `json:"bookingId,omitempty"`
	Data      any               `json:"data,omitempty"`
	Error     string            `json:"error,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

type QuoteResponse struct {
	Item   ItemSnapshot   `json:"item"`
	AddOns []AddOn        `json:"addOns"`
	Price  PriceBreakdown `json:"priceBreakdown"`
}

// PaymentNotificationPayload is the webhook body sent by the payment gateway.
type PaymentNotificationPayload struct {
	PaymentID string         `json:"paymentId"`
	OrderID   string         `json:"orderId"`
	Status    string         `json:"status"`
	TeamSlug  string         `json:"teamSlug"`
	Token     string         `json:"token"`
	Timestamp string         `json:"timestamp"`
	Data      map[string]any `json:"data"`
}
