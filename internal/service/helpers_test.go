package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"luxtravel/internal/catalog"
	"luxtravel/internal/external"
	"luxtravel/internal/models"
	"luxtravel/internal/pricing"
	"luxtravel/internal/repository"
)

const validCard = "4242 4242 4242 4242"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 1, 10, 9, 30, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type publishedEvent struct {
	subject string
	data    any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) Publish(subject string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{subject: subject, data: data})
	return p.err
}

func (p *recordingPublisher) subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.subject
	}
	return out
}

func (p *recordingPublisher) count(subject string) int {
	n := 0
	for _, s := range p.subjects() {
		if s == subject {
			n++
		}
	}
	return n
}

// gatewayFunc adapts a function to external.PaymentGateway.
type gatewayFunc func(ctx context.Context, req external.ChargeRequest) (*external.ChargeResult, error)

func (f gatewayFunc) Charge(ctx context.Context, req external.ChargeRequest) (*external.ChargeResult, error) {
	return f(ctx, req)
}

func (f gatewayFunc) Refund(ctx context.Context, paymentID string, amount int64, reason string) error {
	return nil
}

type fixture struct {
	svc       *BookingService
	store     *repository.MemoryBookingRepository
	publisher *recordingPublisher
	clock     *testClock
}

func newFixture(t *testing.T, gateway external.PaymentGateway, opts ...Option) *fixture {
	t.Helper()

	provider, err := catalog.NewDefault()
	require.NoError(t, err)

	f := &fixture{
		store:     repository.NewMemoryBookingRepository(),
		publisher: &recordingPublisher{},
		clock:     newTestClock(),
	}
	if gateway == nil {
		gateway = external.NewSimulatedGateway(0)
	}
	opts = append([]Option{WithClock(f.clock.Now)}, opts...)
	f.svc = NewBookingService(provider, pricing.NewEngine(), f.store, gateway, f.publisher, opts...)
	return f
}

func safariRequest() *models.BookingRequest {
	return &models.BookingRequest{
		CatalogItemID: "safari-lodge",
		StartDate:     "2025-03-01",
		EndDate:       "2025-03-15",
		TravelerCount: 2,
		Name:          "Jane Traveler",
		Email:         "jane@example.com",
		AddOnIDs:      []string{"spa-package", "welcome-package"},
		UserID:        "user-123",
	}
}

func penthouseRequest() *models.BookingRequest {
	return &models.BookingRequest{
		CatalogItemID: "new-york-penthouse",
		StartDate:     "2025-01-12",
		EndDate:       "2025-01-15",
		TravelerCount: 1,
		Name:          "Sam Guest",
		Email:         "sam@example.com",
		UserID:        "user-456",
	}
}

func card(number string) models.PaymentDetails {
	return models.PaymentDetails{
		Method:         models.MethodCreditCard,
		CardNumber:     number,
		CardholderName: "Jane Traveler",
		ExpiryDate:     "12/30",
		CVV:            "123",
	}
}

func (f *fixture) create(t *testing.T, req *models.BookingRequest) *models.Booking {
	t.Helper()
	b, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)
	return b
}

func (f *fixture) createPaid(t *testing.T, req *models.BookingRequest) *models.Booking {
	t.Helper()
	b := f.create(t, req)
	paid, err := f.svc.Pay(context.Background(), b.ID, card(validCard))
	require.NoError(t, err)
	return paid
}
