package external

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "luxtravel/internal/errors"
	"luxtravel/internal/models"
)

// Gateway status values shared by the HTTP and simulated gateways.
const (
	StatusConfirmed = "CONFIRMED"
	StatusRejected  = "REJECTED"
	StatusCancelled = "CANCELLED"
)

// DeclinedTestCard is always declined by the simulated gateway.
const DeclinedTestCard = "4000000000000002"

type ChargeRequest struct {
	OrderID     string
	BookingID   string
	Amount      int64
	Currency    string
	Description string
	Email       string
	Payment     models.PaymentDetails
}

type ChargeResult struct {
	Approved  bool
	PaymentID string
	Status    string
	Reason    string
}

// PaymentGateway charges and refunds bookings. A decline is a result, not an error;
// errors are reserved for the gateway being unreachable or misbehaving.
type PaymentGateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	Refund(ctx context.Context, paymentID string, amount int64, reason string) error
}

// SimulatedGateway approves everything except the declined test card.
type SimulatedGateway struct {
	Latency time.Duration
}

func NewSimulatedGateway(latency time.Duration) *SimulatedGateway {
	return &SimulatedGateway{Latency: latency}
}

func (g *SimulatedGateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}

	paymentID := "PAY-" + uuid.New().String()
	if digitsOnly(req.Payment.CardNumber) == DeclinedTestCard {
		return &ChargeResult{PaymentID: paymentID, Status: StatusRejected, Reason: "card declined"}, nil
	}
	return &ChargeResult{Approved: true, PaymentID: paymentID, Status: StatusConfirmed}, nil
}

func (g *SimulatedGateway) Refund(ctx context.Context, paymentID string, amount int64, reason string) error {
	return g.wait(ctx)
}

func (g *SimulatedGateway) wait(ctx context.Context) error {
	if g.Latency <= 0 {
		return nil
	}
	select {
	case <-time.After(g.Latency):
		return nil
	case <-ctx.Done():
		return apperrors.Upstream("payment gateway", true, ctx.Err())
	}
}

// RetryingGateway retries upstream failures with linear backoff. Charges reuse the same
// order id so a retried request cannot create a second payment at the gateway.
type RetryingGateway struct {
	next       PaymentGateway
	maxRetries int
	backoff    time.Duration
}

func NewRetryingGateway(next PaymentGateway, maxRetries int, backoff time.Duration) *RetryingGateway {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &RetryingGateway{next: next, maxRetries: maxRetries, backoff: backoff}
}

func (g *RetryingGateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	var result *ChargeResult
	err := g.do(ctx, "charge", func() error {
		var err error
		result, err = g.next.Charge(ctx, req)
		return err
	})
	return result, err
}

func (g *RetryingGateway) Refund(ctx context.Context, paymentID string, amount int64, reason string) error {
	return g.do(ctx, "refund", func() error {
		return g.next.Refund(ctx, paymentID, amount, reason)
	})
}

func (g *RetryingGateway) do(ctx context.Context, op string, call func() error) error {
	var err error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		err = call()
		if err == nil || !apperrors.IsRetryable(err) || ctx.Err() != nil {
			return err
		}
		if attempt == g.maxRetries {
			break
		}

		slog.Warn("Payment gateway call failed, retrying",
			"operation", op, "attempt", attempt+1, "max_retries", g.maxRetries, "error", err)

		select {
		case <-time.After(time.Duration(attempt+1) * g.backoff):
		case <-ctx.Done():
			return err
		}
	}
	return fmt.Errorf("payment gateway %s failed after %d retries: %w", op, g.maxRetries, err)
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
