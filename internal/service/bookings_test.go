package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luxtravel/internal/catalog"
	apperrors "luxtravel/internal/errors"
	"luxtravel/internal/external"
	"luxtravel/internal/models"
	"luxtravel/internal/repository"
)

func TestCreateBooking(t *testing.T) {
	f := newFixture(t, nil)

	b := f.create(t, safariRequest())

	assert.True(t, strings.HasPrefix(b.ID, "BK-20250110-"), b.ID)
	assert.Len(t, b.ID, len("BK-20250110-")+12)
	assert.Equal(t, "user-123", b.UserID)
	assert.Equal(t, models.StatusPending, b.Status)
	assert.Equal(t, models.PaymentPending, b.PaymentStatus)
	assert.Equal(t, int64(1), b.Version)
	assert.Equal(t, []string{"spa-package", "welcome-package"}, b.AddOnIDs)
	assert.Equal(t, models.ItemSnapshot{ID: "safari-lodge", Title: b.Item.Title, Price: 8500, PriceUnit: models.PerWeek}, b.Item)

	// 14 days -> 2 weeks
	assert.Equal(t, models.PriceBreakdown{
		DurationDays: 14,
		Units:        2,
		BasePrice:    17000,
		AddOnsTotal:  400,
		ServiceFee:   1700,
		TotalPrice:   19100,
	}, b.Price)

	stored, err := f.svc.Get(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, b, stored)

	assert.Equal(t, []string{models.EventBookingCreated}, f.publisher.subjects())
}

func TestCreatePerPersonIgnoresDates(t *testing.T) {
	f := newFixture(t, nil)

	b := f.create(t, &models.BookingRequest{
		CatalogItemID: "mediterranean-flavors",
		TravelerCount: 2,
		Name:          "Ana",
		Email:         "ana@example.com",
	})

	assert.Nil(t, b.StartDate)
	assert.Equal(t, int64(17000), b.Price.BasePrice)
	assert.Equal(t, int64(18700), b.Price.TotalPrice)
}

func TestCreateCollapsesDuplicateAddOns(t *testing.T) {
	f := newFixture(t, nil)
	req := safariRequest()
	req.AddOnIDs = []string{"spa-package", "spa-package", "welcome-package", "spa-package"}

	b := f.create(t, req)

	assert.Equal(t, []string{"spa-package", "welcome-package"}, b.AddOnIDs)
	assert.Equal(t, int64(400), b.Price.AddOnsTotal)
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.BookingRequest)
		fields []string
	}{
		{"end before start", func(r *models.BookingRequest) { r.EndDate = "2025-02-20" }, []string{"endDate"}},
		{"end equals start", func(r *models.BookingRequest) { r.EndDate = r.StartDate }, []string{"endDate"}},
		{"missing dates for weekly item", func(r *models.BookingRequest) { r.StartDate, r.EndDate = "", "" }, []string{"startDate", "endDate"}},
		{"bad date format", func(r *models.BookingRequest) { r.StartDate = "03/01/2025" }, []string{"startDate"}},
		{"no travelers", func(r *models.BookingRequest) { r.TravelerCount = 0 }, []string{"travelerCount"}},
		{"bad email", func(r *models.BookingRequest) { r.Email = "not-an-email" }, []string{"email"}},
		{"missing contact", func(r *models.BookingRequest) { r.Name, r.Email = " ", "" }, []string{"name", "email"}},
		{"missing item", func(r *models.BookingRequest) { r.CatalogItemID = "" }, []string{"catalogItemId"}},
		{"blank add-on id", func(r *models.BookingRequest) { r.AddOnIDs = []string{""} }, []string{"addOnIds[0]"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			req := safariRequest()
			tt.mutate(req)

			b, err := f.svc.Create(context.Background(), req)
			require.Error(t, err)
			assert.Nil(t, b)
			assert.ErrorIs(t, err, apperrors.ErrValidation)

			var verr *apperrors.ValidationError
			require.ErrorAs(t, err, &verr)
			for _, field := range tt.fields {
				assert.Contains(t, verr.Fields, field)
			}

			list, err := f.svc.ListByUser(context.Background(), "user-123")
			require.NoError(t, err)
			assert.Empty(t, list)
			assert.Empty(t, f.publisher.subjects())
		})
	}
}

func TestCreateEndBeforeStartMessage(t *testing.T) {
	f := newFixture(t, nil)
	req := safariRequest()
	req.EndDate = "2025-03-01"

	_, err := f.svc.Create(context.Background(), req)

	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "must be after startDate", verr.Fields["endDate"])
}

func TestCreateUnknownReferences(t *testing.T) {
	f := newFixture(t, nil)

	req := safariRequest()
	req.CatalogItemID = "atlantis"
	_, err := f.svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	req = safariRequest()
	req.AddOnIDs = []string{"spa-package", "time-machine"}
	_, err = f.svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	var nf *apperrors.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "time-machine", nf.ID)
}

func TestQuoteDoesNotPersist(t *testing.T) {
	f := newFixture(t, nil)

	q, err := f.svc.Quote(context.Background(), penthouseRequest())
	require.NoError(t, err)

	assert.Equal(t, int64(8400), q.Price.BasePrice)
	assert.Equal(t, int64(9240), q.Price.TotalPrice)
	assert.Empty(t, q.AddOns)

	list, err := f.svc.ListByUser(context.Background(), "user-456")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateRetriesIDCollision(t *testing.T) {
	ids := &sequenceIDs{ids: []string{"BK-1", "BK-1", "BK-2"}}
	f := newFixture(t, nil, WithIDGenerator(ids))

	first := f.create(t, safariRequest())
	second := f.create(t, safariRequest())

	assert.Equal(t, "BK-1", first.ID)
	assert.Equal(t, "BK-2", second.ID)
}

type sequenceIDs struct {
	mu  sync.Mutex
	ids []string
}

func (s *sequenceIDs) NewBookingID(time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.ids[0]
	if len(s.ids) > 1 {
		s.ids = s.ids[1:]
	}
	return id
}

func TestConcurrentCreatesGetUniqueIDs(t *testing.T) {
	f := newFixture(t, nil)
	const n = 10000

	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := f.svc.Create(context.Background(), penthouseRequest())
			if err == nil {
				ids[i] = b.ID
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for _, id := range ids {
		require.NotEmpty(t, id)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}

	list, err := f.svc.ListByUser(context.Background(), "user-456")
	require.NoError(t, err)
	assert.Len(t, list, n)
}

func TestListByUserKeepsInsertionOrder(t *testing.T) {
	f := newFixture(t, nil)

	a := f.create(t, safariRequest())
	f.create(t, penthouseRequest())
	c := f.create(t, safariRequest())

	list, err := f.svc.ListByUser(context.Background(), "user-123")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, c.ID, list[1].ID)

	none, err := f.svc.ListByUser(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestPaySuccess(t *testing.T) {
	var charged external.ChargeRequest
	gw := gatewayFunc(func(ctx context.Context, req external.ChargeRequest) (*external.ChargeResult, error) {
		charged = req
		return &external.ChargeResult{Approved: true, PaymentID: "PAY-1", Status: external.StatusConfirmed}, nil
	})
	f := newFixture(t, gw)
	b := f.create(t, safariRequest())

	paid, err := f.svc.Pay(context.Background(), b.ID, card(validCard))
	require.NoError(t, err)

	assert.Equal(t, models.StatusConfirmed, paid.Status)
	assert.Equal(t, models.PaymentPaid, paid.PaymentStatus)
	assert.Equal(t, "PAY-1", paid.PaymentReference)
	assert.Equal(t, int64(19100), charged.Amount)
	assert.Equal(t, b.ID+"-2", charged.OrderID)

	assert.Equal(t, 1, f.publisher.count(models.EventPaymentCompleted))
}

func TestPayDeclinedThenRetry(t *testing.T) {
	f := newFixture(t, nil)
	b := f.create(t, safariRequest())

	failed, err := f.svc.Pay(context.Background(), b.ID, card(external.DeclinedTestCard))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrPaymentDeclined)
	require.NotNil(t, failed)
	assert.Equal(t, models.StatusPending, failed.Status)
	assert.Equal(t, models.PaymentFailed, failed.PaymentStatus)
	assert.Equal(t, 1, f.publisher.count(models.EventPaymentFailed))

	paid, err := f.svc.Pay(context.Background(), b.ID, card(validCard))
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, paid.Status)
	assert.Equal(t, models.PaymentPaid, paid.PaymentStatus)
}

func TestPayTimeout(t *testing.T) {
	gw := gatewayFunc(func(ctx context.Context, req external.ChargeRequest) (*external.ChargeResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	f := newFixture(t, gw, WithPaymentTimeout(20*time.Millisecond))
	b := f.create(t, safariRequest())

	failed, err := f.svc.Pay(context.Background(), b.ID, card(validCard))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUpstream)

	var upErr *apperrors.UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.True(t, upErr.Timeout)

	require.NotNil(t, failed)
	assert.Equal(t, models.PaymentFailed, failed.PaymentStatus)
	assert.Equal(t, models.StatusPending, failed.Status)
}

func TestPayOutlivesCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gw := gatewayFunc(func(gwCtx context.Context, req external.ChargeRequest) (*external.ChargeResult, error) {
		cancel()
		if gwCtx.Err() != nil {
			return nil, gwCtx.Err()
		}
		return &external.ChargeResult{Approved: true, PaymentID: "PAY-2"}, nil
	})
	f := newFixture(t, gw)
	b := f.create(t, safariRequest())

	paid, err := f.svc.Pay(ctx, b.ID, card(validCard))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, paid.PaymentStatus)
}

func TestPayRejectsInvalidStates(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	paid := f.createPaid(t, safariRequest())
	_, err := f.svc.Pay(ctx, paid.ID, card(validCard))
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	cancelled := f.create(t, safariRequest())
	_, err = f.svc.Cancel(ctx, cancelled.ID, "")
	require.NoError(t, err)
	_, err = f.svc.Pay(ctx, cancelled.ID, card(validCard))
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	processing := f.create(t, safariRequest())
	processing.PaymentStatus = models.PaymentProcessing
	require.NoError(t, f.store.Update(ctx, processing, processing.Version))
	_, err = f.svc.Pay(ctx, processing.ID, card(validCard))
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	_, err = f.svc.Pay(ctx, "BK-missing", card(validCard))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	stored, err := f.svc.Get(ctx, paid.ID)
	require.NoError(t, err)
	assert.Equal(t, paid, stored)
}

func TestPayValidatesDetails(t *testing.T) {
	f := newFixture(t, nil)
	b := f.create(t, safariRequest())

	tests := []struct {
		name    string
		details models.PaymentDetails
		field   string
	}{
		{"unknown method", models.PaymentDetails{Method: "cash"}, "method"},
		{"luhn failure", card("4242424242424241"), "cardNumber"},
		{"short number", card("4242"), "cardNumber"},
		{"expired", func() models.PaymentDetails { d := card(validCard); d.ExpiryDate = "12/24"; return d }(), "expiryDate"},
		{"bad expiry", func() models.PaymentDetails { d := card(validCard); d.ExpiryDate = "13/30"; return d }(), "expiryDate"},
		{"bad cvv", func() models.PaymentDetails { d := card(validCard); d.CVV = "12a"; return d }(), "cvv"},
		{"missing holder", func() models.PaymentDetails { d := card(validCard); d.CardholderName = ""; return d }(), "cardholderName"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Pay(context.Background(), b.ID, tt.details)

			var verr *apperrors.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}

	stored, err := f.svc.Get(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, stored.PaymentStatus)

	paid, err := f.svc.Pay(context.Background(), b.ID, models.PaymentDetails{Method: models.MethodPayPal})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, paid.PaymentStatus)
}

func TestCancel(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	b := f.create(t, safariRequest())
	cancelled, err := f.svc.Cancel(ctx, b.ID, "change of plans")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	assert.Equal(t, models.PaymentPending, cancelled.PaymentStatus)
	assert.Equal(t, 0, f.publisher.count(models.EventBookingRefundRequested))

	_, err = f.svc.Cancel(ctx, b.ID, "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	paid := f.createPaid(t, safariRequest())
	cancelled, err = f.svc.Cancel(ctx, paid.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	assert.Equal(t, models.PaymentPaid, cancelled.PaymentStatus)
	assert.Equal(t, 1, f.publisher.count(models.EventBookingRefundRequested))

	_, err = f.svc.Cancel(ctx, "BK-missing", "")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCancelCompletedBookingIsRejected(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	paid := f.createPaid(t, safariRequest())
	completed, err := f.svc.Complete(ctx, paid.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, completed.Status)

	_, err = f.svc.Cancel(ctx, paid.ID, "")
	require.Error(t, err)

	var stateErr *apperrors.InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, "completed", stateErr.State)

	stored, err := f.svc.Get(ctx, paid.ID)
	require.NoError(t, err)
	assert.Equal(t, completed, stored)
}

func TestCompleteRequiresConfirmation(t *testing.T) {
	f := newFixture(t, nil)

	b := f.create(t, safariRequest())
	_, err := f.svc.Complete(context.Background(), b.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	assert.Equal(t, 0, f.publisher.count(models.EventBookingCompleted))
}

func TestConcurrentPayAndCancel(t *testing.T) {
	release := make(chan struct{})
	gw := gatewayFunc(func(ctx context.Context, req external.ChargeRequest) (*external.ChargeResult, error) {
		<-release
		return &external.ChargeResult{Approved: true, PaymentID: "PAY-3"}, nil
	})
	f := newFixture(t, gw)
	b := f.create(t, safariRequest())

	var wg sync.WaitGroup
	var payErr, cancelErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, payErr = f.svc.Pay(context.Background(), b.ID, card(validCard))
	}()
	go func() {
		defer wg.Done()
		_, cancelErr = f.svc.Cancel(context.Background(), b.ID, "")
	}()
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	require.NoError(t, cancelErr)
	stored, err := f.svc.Get(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, stored.Status)

	if payErr == nil {
		assert.Equal(t, models.PaymentPaid, stored.PaymentStatus)
		assert.Equal(t, 1, f.publisher.count(models.EventBookingRefundRequested))
	} else {
		assert.ErrorIs(t, payErr, apperrors.ErrInvalidState)
		assert.Equal(t, models.PaymentPending, stored.PaymentStatus)
	}
}

func TestHandlePaymentNotification(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	markProcessing := func(b *models.Booking) *models.Booking {
		b.PaymentStatus = models.PaymentProcessing
		require.NoError(t, f.store.Update(ctx, b, b.Version))
		return b
	}

	b := markProcessing(f.create(t, safariRequest()))
	settled, err := f.svc.HandlePaymentNotification(ctx, &models.PaymentNotificationPayload{
		PaymentID: "PAY-9",
		OrderID:   b.ID + "-2",
		Status:    "CONFIRMED",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, settled.Status)
	assert.Equal(t, models.PaymentPaid, settled.PaymentStatus)
	assert.Equal(t, "PAY-9", settled.PaymentReference)

	// redelivery is ignored
	again, err := f.svc.HandlePaymentNotification(ctx, &models.PaymentNotificationPayload{OrderID: b.ID + "-2", Status: "REJECTED"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, again.PaymentStatus)

	rejected := markProcessing(f.create(t, safariRequest()))
	failed, err := f.svc.HandlePaymentNotification(ctx, &models.PaymentNotificationPayload{OrderID: rejected.ID + "-2", Status: "failed"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, failed.PaymentStatus)
	assert.Equal(t, models.StatusPending, failed.Status)

	_, err = f.svc.HandlePaymentNotification(ctx, &models.PaymentNotificationPayload{OrderID: rejected.ID + "-2", Status: "WHATEVER"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.svc.HandlePaymentNotification(ctx, &models.PaymentNotificationPayload{OrderID: "garbage", Status: "CONFIRMED"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.svc.HandlePaymentNotification(ctx, &models.PaymentNotificationPayload{OrderID: "BK-missing-2", Status: "CONFIRMED"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestHandlePaymentNotificationRejectsForeignTeam(t *testing.T) {
	f := newFixture(t, nil, WithNotificationVerifier(external.TeamSlugVerifier{TeamSlug: "lux"}))
	ctx := context.Background()
	b := f.create(t, safariRequest())

	_, err := f.svc.HandlePaymentNotification(ctx, &models.PaymentNotificationPayload{
		OrderID:  b.ID + "-2",
		Status:   "CONFIRMED",
		TeamSlug: "intruder",
	})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	got, err := f.svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, []string{models.EventBookingCreated}, f.publisher.subjects())
}

func TestReprice(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	b := f.create(t, safariRequest())

	items := catalog.DefaultItems()
	for i := range items {
		if items[i].ID == "safari-lodge" {
			items[i].Price = 9000
		}
	}
	updated, err := catalog.NewStatic(items, catalog.DefaultAddOns())
	require.NoError(t, err)
	f.svc.catalog = updated

	repriced, err := f.svc.Reprice(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(9000), repriced.Item.Price)
	assert.Equal(t, int64(18000), repriced.Price.BasePrice)
	assert.Equal(t, int64(18000+400+1800), repriced.Price.TotalPrice)

	paid := f.createPaid(t, safariRequest())
	_, err = f.svc.Reprice(ctx, paid.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestExpireStale(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	stale := f.create(t, safariRequest())
	paid := f.createPaid(t, safariRequest())
	f.clock.Advance(time.Hour)
	fresh := f.create(t, safariRequest())

	n, err := f.svc.ExpireStale(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.svc.Get(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)

	for _, id := range []string{paid.ID, fresh.ID} {
		got, err := f.svc.Get(ctx, id)
		require.NoError(t, err)
		assert.NotEqual(t, models.StatusCancelled, got.Status)
	}
	assert.Equal(t, 1, f.publisher.count(models.EventBookingExpired))
}

func TestCompleteEnded(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	ended := f.createPaid(t, penthouseRequest())
	future := f.createPaid(t, safariRequest())
	unpaid := f.create(t, penthouseRequest())

	// stay ends 2025-01-15
	f.clock.Advance(5 * 24 * time.Hour)
	n, err := f.svc.CompleteEnded(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	f.clock.Advance(24 * time.Hour)
	n, err = f.svc.CompleteEnded(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.svc.Get(ctx, ended.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)

	for _, id := range []string{future.ID, unpaid.ID} {
		got, err := f.svc.Get(ctx, id)
		require.NoError(t, err)
		assert.NotEqual(t, models.StatusCompleted, got.Status)
	}
}

func TestMarkRefunded(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	paid := f.createPaid(t, safariRequest())
	_, err := f.svc.MarkRefunded(ctx, paid.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	_, err = f.svc.Cancel(ctx, paid.ID, "")
	require.NoError(t, err)

	refunded, err := f.svc.MarkRefunded(ctx, paid.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRefunded, refunded.PaymentStatus)

	again, err := f.svc.MarkRefunded(ctx, paid.ID)
	require.NoError(t, err)
	assert.Equal(t, refunded.Version, again.Version)
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t, nil)
	f.publisher.err = errors.New("nats down")

	b := f.create(t, safariRequest())
	_, err := f.svc.Cancel(context.Background(), b.ID, "")
	assert.NoError(t, err)
}

// conflictingStore fails the first Update with a version conflict.
type conflictingStore struct {
	*repository.MemoryBookingRepository
	once sync.Once
}

func TestApplyRetriesOnConflict(t *testing.T) {
	f := newFixture(t, nil)
	b := f.create(t, safariRequest())

	store := &conflictingStore{MemoryBookingRepository: f.store}
	f.svc.store = store

	cancelled, err := f.svc.Cancel(context.Background(), b.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
}

func (s *conflictingStore) Update(ctx context.Context, b *models.Booking, expectedVersion int64) error {
	conflict := false
	s.once.Do(func() { conflict = true })
	if conflict {
		return apperrors.ErrConflict
	}
	return s.MemoryBookingRepository.Update(ctx, b, expectedVersion)
}

// failingSettleStore fails writes that record a payment outcome.
type failingSettleStore struct {
	*repository.MemoryBookingRepository
	mu       sync.Mutex
	failures int
	attempts int
	err      error
}

func (s *failingSettleStore) Update(ctx context.Context, b *models.Booking, expectedVersion int64) error {
	if b.PaymentStatus == models.PaymentPaid || b.PaymentStatus == models.PaymentFailed {
		s.mu.Lock()
		s.attempts++
		fail := s.failures > 0
		if fail {
			s.failures--
		}
		s.mu.Unlock()
		if fail {
			return s.err
		}
	}
	return s.MemoryBookingRepository.Update(ctx, b, expectedVersion)
}

func approvingGateway() gatewayFunc {
	return func(ctx context.Context, req external.ChargeRequest) (*external.ChargeResult, error) {
		return &external.ChargeResult{Approved: true, PaymentID: "PAY-" + req.OrderID, Status: external.StatusConfirmed}, nil
	}
}

func TestPayRetriesTransientSettleFailure(t *testing.T) {
	f := newFixture(t, approvingGateway(), WithSettleRetry(3, time.Millisecond))
	b := f.create(t, safariRequest())

	store := &failingSettleStore{MemoryBookingRepository: f.store, failures: 2, err: errors.New("write tcp: connection reset by peer")}
	f.svc.store = store

	paid, err := f.svc.Pay(context.Background(), b.ID, card(validCard))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, paid.PaymentStatus)
	assert.Equal(t, models.StatusConfirmed, paid.Status)
	assert.Equal(t, 3, store.attempts)
	assert.Zero(t, f.publisher.count(models.EventBookingRefundRequested))
}

func TestPayDoesNotRetryPermanentSettleFailure(t *testing.T) {
	f := newFixture(t, nil, WithSettleRetry(3, time.Millisecond))
	b := f.create(t, safariRequest())

	store := &failingSettleStore{MemoryBookingRepository: f.store, failures: 1, err: errors.New("value too long for column")}
	f.svc.store = store

	_, err := f.svc.Pay(context.Background(), b.ID, card(validCard))
	require.Error(t, err)
	assert.Equal(t, 1, store.attempts)
}

func TestStuckPaymentIsRefundedAndReleased(t *testing.T) {
	f := newFixture(t, approvingGateway(), WithPaymentTimeout(time.Second), WithSettleRetry(2, time.Millisecond))
	ctx := context.Background()
	first := f.create(t, safariRequest())
	second := f.create(t, penthouseRequest())

	store := &failingSettleStore{MemoryBookingRepository: f.store, failures: 100, err: errors.New("dial tcp: connection refused")}
	f.svc.store = store

	for _, id := range []string{first.ID, second.ID} {
		_, err := f.svc.Pay(ctx, id, card(validCard))
		require.Error(t, err)

		got, err := f.store.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentProcessing, got.PaymentStatus)
		assert.Equal(t, models.StatusPending, got.Status)
	}
	assert.Equal(t, 6, store.attempts)

	var refunds []models.RefundRequestedEvent
	for _, e := range f.publisher.events {
		if e.subject == models.EventBookingRefundRequested {
			refunds = append(refunds, e.data.(models.RefundRequestedEvent))
		}
	}
	require.Len(t, refunds, 2)
	assert.Equal(t, first.ID, refunds[0].BookingID)
	assert.Equal(t, "PAY-"+first.ID+"-2", refunds[0].PaymentReference)
	assert.Equal(t, first.Price.TotalPrice, refunds[0].Amount)
	assert.True(t, refunds[0].Unrecorded)
	assert.Zero(t, f.publisher.count(models.EventPaymentCompleted))

	f.svc.store = f.store

	n, err := f.svc.FailStuckPayments(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "a payment inside its timeout window is left alone")

	f.clock.Advance(3 * time.Second)
	n, err = f.svc.FailStuckPayments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, f.publisher.count(models.EventPaymentFailed))

	released, err := f.svc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, released.PaymentStatus)

	paid, err := f.svc.Pay(ctx, first.ID, card(validCard))
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, paid.Status)

	expired, err := f.svc.ExpireStale(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	got, err := f.svc.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)

	n, err = f.svc.FailStuckPayments(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	f := newFixture(t, nil)
	b := f.create(t, safariRequest())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.svc.Cancel(context.Background(), b.ID, "")
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, f.svc.locks.size())
}

func TestValidCardNumber(t *testing.T) {
	assert.True(t, validCardNumber("4242424242424242"))
	assert.True(t, validCardNumber("4242 4242-4242 4242"))
	assert.True(t, validCardNumber(external.DeclinedTestCard))
	assert.False(t, validCardNumber("4242424242424241"))
	assert.False(t, validCardNumber("4242a24242424242"))
	assert.False(t, validCardNumber("4242"))
}

func TestValidateExpiry(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	assert.NoError(t, validateExpiry("06/25", now))
	assert.NoError(t, validateExpiry("01/26", now))
	assert.Error(t, validateExpiry("05/25", now))
	assert.Error(t, validateExpiry("6/25", now))
	assert.Error(t, validateExpiry("00/26", now))
}
