package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"luxtravel/internal/catalog"
	"luxtravel/internal/database"
	apperrors "luxtravel/internal/errors"
	"luxtravel/internal/external"
	"luxtravel/internal/logger"
	"luxtravel/internal/messaging"
	"luxtravel/internal/metrics"
	"luxtravel/internal/models"
	"luxtravel/internal/pricing"
	"luxtravel/internal/repository"
)

const (
	defaultPaymentTimeout = 15 * time.Second
	defaultSettleRetries  = 3
	defaultSettleBackoff  = 200 * time.Millisecond
	maxIDAttempts         = 3
	currency              = "USD"
)

// errUnchanged tells apply that fn decided there is nothing to persist.
var errUnchanged = errors.New("booking unchanged")

type BookingService struct {
	catalog        catalog.Provider
	pricing        *pricing.Engine
	store          repository.BookingStore
	gateway        external.PaymentGateway
	publisher      messaging.Publisher
	idempotency    IdempotencyStore
	metrics        *metrics.Metrics
	ids            IDGenerator
	now            func() time.Time
	locks          *keyedMutex
	paymentTimeout time.Duration
	settleRetries  int
	settleBackoff  time.Duration
	notifications  external.NotificationVerifier
}

type Option func(*BookingService)

func WithClock(now func() time.Time) Option {
	return func(s *BookingService) { s.now = now }
}

func WithIDGenerator(ids IDGenerator) Option {
	return func(s *BookingService) { s.ids = ids }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *BookingService) { s.metrics = m }
}

// WithPaymentTimeout bounds a single gateway charge.
func WithPaymentTimeout(d time.Duration) Option {
	return func(s *BookingService) {
		if d > 0 {
			s.paymentTimeout = d
		}
	}
}

// WithSettleRetry sets how often a failed write of a payment outcome is retried.
func WithSettleRetry(retries int, backoff time.Duration) Option {
	return func(s *BookingService) {
		if retries >= 0 {
			s.settleRetries = retries
		}
		s.settleBackoff = backoff
	}
}

// WithNotificationVerifier authenticates gateway notifications before they are applied.
func WithNotificationVerifier(v external.NotificationVerifier) Option {
	return func(s *BookingService) { s.notifications = v }
}

func WithIdempotencyStore(store IdempotencyStore) Option {
	return func(s *BookingService) { s.idempotency = store }
}

func NewBookingService(provider catalog.Provider, engine *pricing.Engine, store repository.BookingStore, gateway external.PaymentGateway, publisher messaging.Publisher, opts ...Option) *BookingService {
	s := &BookingService{
		catalog:        provider,
		pricing:        engine,
		store:          store,
		gateway:        gateway,
		publisher:      publisher,
		ids:            UUIDGenerator{},
		now:            time.Now,
		locks:          newKeyedMutex(),
		paymentTimeout: defaultPaymentTimeout,
		settleRetries:  defaultSettleRetries,
		settleBackoff:  defaultSettleBackoff,
		notifications:  external.TeamSlugVerifier{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.publisher == nil {
		s.publisher = messaging.NoopPublisher{}
	}
	return s
}

type preparedBooking struct {
	item   models.ItemSnapshot
	start  time.Time
	end    time.Time
	addOns []models.AddOn
	price  models.PriceBreakdown
}

// prepare validates req, resolves the item and add-ons and prices the result.
// Field errors are reported before lookups fail.
func (s *BookingService) prepare(ctx context.Context, req *models.BookingRequest) (*preparedBooking, error) {
	normalizeBookingRequest(req)

	verr := apperrors.NewValidationError()
	validateStruct(req, verr)
	start, end := parseStay(req)

	var item *models.CatalogItem
	var itemErr error
	if req.CatalogItemID != "" {
		item, itemErr = s.catalog.FindItem(ctx, req.CatalogItemID)
		if itemErr != nil && !errors.Is(itemErr, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("failed to get catalog item: %w", itemErr)
		}
	}
	if item != nil {
		validateStay(item.PriceUnit, req, start, end, verr)
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	if itemErr != nil {
		return nil, itemErr
	}

	addOns, err := catalog.ResolveAddOns(ctx, s.catalog, req.AddOnIDs)
	if err != nil {
		return nil, err
	}

	snapshot := item.Snapshot()
	price, err := s.pricing.Quote(snapshot, pricing.Stay{Start: start, End: end, Travelers: req.TravelerCount}, addOns)
	if err != nil {
		return nil, err
	}

	return &preparedBooking{item: snapshot, start: start, end: end, addOns: addOns, price: price}, nil
}

// Quote prices a booking request without persisting anything.
func (s *BookingService) Quote(ctx context.Context, req *models.BookingRequest) (*models.QuoteResponse, error) {
	p, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	return &models.QuoteResponse{Item: p.item, AddOns: p.addOns, Price: p.price}, nil
}

func (s *BookingService) Create(ctx context.Context, req *models.BookingRequest) (*models.Booking, error) {
	p, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	userID := req.UserID
	if userID == "" {
		userID, _ = logger.UserIDFromContext(ctx)
	}

	now := s.now().UTC()
	addOnIDs := make([]string, len(p.addOns))
	for i, a := range p.addOns {
		addOnIDs[i] = a.ID
	}

	booking := &models.Booking{
		UserID:          userID,
		CatalogItemID:   p.item.ID,
		Item:            p.item,
		TravelerCount:   req.TravelerCount,
		AddOnIDs:        addOnIDs,
		SpecialRequests: req.SpecialRequests,
		Contact:         models.Contact{Name: req.Name, Email: req.Email, Phone: req.Phone},
		Price:           p.price,
		Status:          models.StatusPending,
		PaymentStatus:   models.PaymentPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if !p.start.IsZero() {
		start, end := p.start, p.end
		booking.StartDate = &start
		booking.EndDate = &end
	}

	for attempt := 1; ; attempt++ {
		booking.ID = s.ids.NewBookingID(now)
		err = s.store.Save(ctx, booking)
		if err == nil || !errors.Is(err, repository.ErrConflict) || attempt == maxIDAttempts {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save booking: %w", err)
	}

	s.metrics.ObserveTransition("new", string(models.StatusPending))

	logger.WithContext(ctx).Info("Booking created",
		"booking_id", booking.ID,
		"catalog_item_id", booking.CatalogItemID,
		"total_price", booking.Price.TotalPrice)

	s.publish(ctx, models.EventBookingCreated, booking.ID, models.BookingCreatedEvent{
		BookingID:     booking.ID,
		CatalogItemID: booking.CatalogItemID,
		UserID:        booking.UserID,
		TotalPrice:    booking.Price.TotalPrice,
		ContactName:   booking.Contact.Name,
		ContactEmail:  booking.Contact.Email,
		Timestamp:     now,
	})

	return booking, nil
}

func (s *BookingService) Get(ctx context.Context, id string) (*models.Booking, error) {
	return s.store.FindByID(ctx, id)
}

// ListByUser returns the user's bookings in the order they were created.
func (s *BookingService) ListByUser(ctx context.Context, userID string) ([]*models.Booking, error) {
	bookings, err := s.store.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings: %w", err)
	}
	if bookings == nil {
		bookings = []*models.Booking{}
	}
	return bookings, nil
}

// Pay charges the booking total. The booking is marked processing before the gateway is
// called, and the outcome is recorded even if the caller goes away.
func (s *BookingService) Pay(ctx context.Context, id string, details models.PaymentDetails) (*models.Booking, error) {
	if err := validatePaymentDetails(&details, s.now()); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	booking, err := s.apply(ctx, id, func(b *models.Booking) error {
		switch {
		case b.Status.IsTerminal():
			return apperrors.InvalidState(b.ID, string(b.Status), "pay")
		case b.PaymentStatus == models.PaymentPaid:
			return apperrors.InvalidState(b.ID, "payment "+string(b.PaymentStatus), "pay")
		case !b.PaymentStatus.CanAttemptPayment():
			return apperrors.InvalidState(b.ID, "payment "+string(b.PaymentStatus), "pay")
		case b.Status != models.StatusPending:
			return apperrors.InvalidState(b.ID, string(b.Status), "pay")
		}
		b.PaymentStatus = models.PaymentProcessing
		return nil
	})
	if err != nil {
		return nil, err
	}

	gwCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.paymentTimeout)
	defer cancel()

	started := time.Now()
	result, chargeErr := s.gateway.Charge(gwCtx, external.ChargeRequest{
		OrderID:     fmt.Sprintf("%s-%d", booking.ID, booking.Version),
		BookingID:   booking.ID,
		Amount:      booking.Price.TotalPrice,
		Currency:    currency,
		Description: fmt.Sprintf("%s (%s)", booking.Item.Title, booking.ID),
		Email:       booking.Contact.Email,
		Payment:     details,
	})
	elapsed := time.Since(started)

	var outcome, reason, reference string
	var approved bool
	switch {
	case chargeErr != nil:
		timeout := errors.Is(gwCtx.Err(), context.DeadlineExceeded)
		var upErr *apperrors.UpstreamError
		if errors.As(chargeErr, &upErr) {
			timeout = timeout || upErr.Timeout
		} else {
			chargeErr = apperrors.Upstream("payment gateway", timeout, chargeErr)
		}
		outcome, reason = "error", "payment gateway unavailable"
		if timeout {
			outcome, reason = "timeout", "payment gateway timed out"
		}
		logger.WithContext(ctx).Error("Payment gateway call failed",
			"error", chargeErr,
			"booking_id", booking.ID,
			"timeout", timeout)
	case result.Approved:
		approved = true
		outcome, reference = "approved", result.PaymentID
	default:
		outcome, reason = "declined", result.Reason
		if reason == "" {
			reason = "declined by issuer"
		}
	}
	s.metrics.ObservePayment(outcome, elapsed)

	final, settled, refund, err := s.settleWithRetry(context.WithoutCancel(ctx), id, approved, reference)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to record payment outcome",
			"error", err,
			"booking_id", id,
			"outcome", outcome)
		if approved {
			s.releaseUnrecordedCharge(context.WithoutCancel(ctx), booking, reference)
		}
		return nil, fmt.Errorf("failed to record payment outcome for %s: %w", id, err)
	}

	if !settled {
		// a gateway notification got there first
		return final, nil
	}

	logger.WithContext(ctx).Info("Payment processed",
		"booking_id", id,
		"outcome", outcome,
		"payment_method", details.Masked())

	s.publishPaymentOutcome(ctx, final, approved, reason, refund)

	switch outcome {
	case "approved":
		return final, nil
	case "declined":
		return final, fmt.Errorf("booking %s: %s: %w", id, reason, apperrors.ErrPaymentDeclined)
	default:
		return final, chargeErr
	}
}

// HandlePaymentNotification applies an asynchronous gateway verdict to a booking that is
// still waiting for one. Notifications for settled bookings are acknowledged and ignored.
func (s *BookingService) HandlePaymentNotification(ctx context.Context, n *models.PaymentNotificationPayload) (*models.Booking, error) {
	if err := s.notifications.VerifyNotification(n); err != nil {
		logger.WithContext(ctx).Warn("Rejected payment notification",
			"error", err,
			"order_id", n.OrderID,
			"team_slug", n.TeamSlug)
		return nil, err
	}

	id, err := bookingIDFromOrder(n.OrderID)
	if err != nil {
		return nil, err
	}

	var approved bool
	switch strings.ToUpper(strings.TrimSpace(n.Status)) {
	case external.StatusConfirmed, "COMPLETED":
		approved = true
	case external.StatusRejected, external.StatusCancelled, "FAILED", "CANCELED":
	default:
		verr := apperrors.NewValidationError()
		verr.Add("status", "unsupported payment status "+n.Status)
		return nil, verr
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	final, settled, refund, err := s.settle(ctx, id, approved, n.PaymentID)
	if err != nil {
		return nil, err
	}
	if !settled {
		logger.WithContext(ctx).Debug("Ignoring payment notification for settled booking",
			"booking_id", id,
			"payment_status", final.PaymentStatus)
		return final, nil
	}

	outcome := "declined"
	if approved {
		outcome = "approved"
	}
	s.metrics.ObservePayment(outcome, 0)
	s.publishPaymentOutcome(ctx, final, approved, "payment "+strings.ToLower(n.Status), refund)

	return final, nil
}

// bookingIDFromOrder strips the "-<version>" suffix added to gateway order ids.
func bookingIDFromOrder(orderID string) (string, error) {
	i := strings.LastIndex(orderID, "-")
	if i > 0 {
		if _, err := strconv.ParseInt(orderID[i+1:], 10, 64); err == nil {
			return orderID[:i], nil
		}
	}
	verr := apperrors.NewValidationError()
	verr.Add("orderId", "is invalid")
	return "", verr
}

// settle records a gateway verdict. settled is false when the booking was no longer
// processing; refund is true when the charge succeeded on an already cancelled booking.
func (s *BookingService) settle(ctx context.Context, id string, approved bool, reference string) (b *models.Booking, settled, refund bool, err error) {
	b, err = s.apply(ctx, id, func(b *models.Booking) error {
		settled, refund = false, false
		if b.PaymentStatus != models.PaymentProcessing {
			return errUnchanged
		}
		settled = true

		if !approved {
			b.PaymentStatus = models.PaymentFailed
			return nil
		}
		b.PaymentStatus = models.PaymentPaid
		b.PaymentReference = reference
		switch b.Status {
		case models.StatusPending:
			return transition(b, models.StatusConfirmed, "confirm")
		case models.StatusCancelled:
			refund = true
		}
		return nil
	})
	return b, settled, refund, err
}

// settleWithRetry retries settle while the store reports connection-level failures.
func (s *BookingService) settleWithRetry(ctx context.Context, id string, approved bool, reference string) (b *models.Booking, settled, refund bool, err error) {
	for attempt := 0; ; attempt++ {
		b, settled, refund, err = s.settle(ctx, id, approved, reference)
		if err == nil || !database.IsRetryableError(err) || attempt >= s.settleRetries {
			return b, settled, refund, err
		}

		logger.WithContext(ctx).Warn("Recording payment outcome failed, retrying",
			"error", err,
			"booking_id", id,
			"attempt", attempt+1,
			"max_retries", s.settleRetries)
		time.Sleep(time.Duration(attempt+1) * s.settleBackoff)
	}
}

// releaseUnrecordedCharge asks for a refund of a captured charge the booking could not record.
// The booking itself stays processing until FailStuckPayments releases it.
func (s *BookingService) releaseUnrecordedCharge(ctx context.Context, booking *models.Booking, reference string) {
	if current, err := s.store.FindByID(ctx, booking.ID); err == nil &&
		current.PaymentStatus == models.PaymentPaid && current.PaymentReference == reference {
		return
	}

	logger.WithContext(ctx).Warn("Refunding charge that could not be recorded",
		"booking_id", booking.ID,
		"payment_id", reference)
	s.publish(ctx, models.EventBookingRefundRequested, booking.ID, models.RefundRequestedEvent{
		BookingID:        booking.ID,
		PaymentReference: reference,
		Amount:           booking.Price.TotalPrice,
		Reason:           "payment could not be recorded",
		Unrecorded:       true,
		Timestamp:        s.now().UTC(),
	})
}

func (s *BookingService) publishPaymentOutcome(ctx context.Context, b *models.Booking, approved bool, reason string, refund bool) {
	now := s.now().UTC()
	if !approved {
		s.publish(ctx, models.EventPaymentFailed, b.ID, models.PaymentFailedEvent{
			BookingID:    b.ID,
			Reason:       reason,
			ContactName:  b.Contact.Name,
			ContactEmail: b.Contact.Email,
			Timestamp:    now,
		})
		return
	}

	s.publish(ctx, models.EventPaymentCompleted, b.ID, models.PaymentCompletedEvent{
		BookingID:    b.ID,
		PaymentID:    b.PaymentReference,
		Amount:       b.Price.TotalPrice,
		ContactName:  b.Contact.Name,
		ContactEmail: b.Contact.Email,
		Timestamp:    now,
	})
	if refund {
		s.publishRefund(ctx, b)
	}
}

// Cancel is allowed from any non-terminal status. The payment status is left as is;
// a paid booking gets a refund request.
func (s *BookingService) Cancel(ctx context.Context, id, reason string) (*models.Booking, error) {
	if reason == "" {
		reason = "cancelled by customer"
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	booking, err := s.apply(ctx, id, func(b *models.Booking) error {
		return transition(b, models.StatusCancelled, "cancel")
	})
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx).Info("Booking cancelled", "booking_id", id, "reason", reason)

	s.publish(ctx, models.EventBookingCancelled, id, models.BookingCancelledEvent{
		BookingID:     id,
		PaymentStatus: booking.PaymentStatus,
		Reason:        reason,
		ContactName:   booking.Contact.Name,
		ContactEmail:  booking.Contact.Email,
		Timestamp:     s.now().UTC(),
	})
	if booking.PaymentStatus == models.PaymentPaid {
		s.publishRefund(ctx, booking)
	}

	return booking, nil
}

// Complete closes a confirmed booking once the trip has taken place.
func (s *BookingService) Complete(ctx context.Context, id string) (*models.Booking, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	booking, err := s.apply(ctx, id, func(b *models.Booking) error {
		return transition(b, models.StatusCompleted, "complete")
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, models.EventBookingCompleted, id, models.BookingCompletedEvent{
		BookingID:    id,
		ContactName:  booking.Contact.Name,
		ContactEmail: booking.Contact.Email,
		Timestamp:    s.now().UTC(),
	})

	return booking, nil
}

// Reprice recomputes the price of an unpaid booking from the current catalog.
func (s *BookingService) Reprice(ctx context.Context, id string) (*models.Booking, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	return s.apply(ctx, id, func(b *models.Booking) error {
		if b.Status != models.StatusPending || !b.PaymentStatus.CanAttemptPayment() {
			return apperrors.InvalidState(b.ID, string(b.Status)+"/"+string(b.PaymentStatus), "reprice")
		}

		item, err := s.catalog.FindItem(ctx, b.CatalogItemID)
		if err != nil {
			return err
		}
		addOns, err := catalog.ResolveAddOns(ctx, s.catalog, b.AddOnIDs)
		if err != nil {
			return err
		}

		stay := pricing.Stay{Travelers: b.TravelerCount}
		if b.StartDate != nil && b.EndDate != nil {
			stay.Start, stay.End = *b.StartDate, *b.EndDate
		}

		snapshot := item.Snapshot()
		price, err := s.pricing.Quote(snapshot, stay, addOns)
		if err != nil {
			return err
		}
		b.Item = snapshot
		b.Price = price
		return nil
	})
}

// Expire cancels a booking that never got paid.
func (s *BookingService) Expire(ctx context.Context, id, reason string) (*models.Booking, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	booking, err := s.apply(ctx, id, func(b *models.Booking) error {
		if b.Status != models.StatusPending || !b.PaymentStatus.CanAttemptPayment() {
			return apperrors.InvalidState(b.ID, string(b.Status)+"/"+string(b.PaymentStatus), "expire")
		}
		return transition(b, models.StatusCancelled, "expire")
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, models.EventBookingExpired, id, models.BookingExpiredEvent{
		BookingID:    id,
		UserID:       booking.UserID,
		Reason:       reason,
		ContactName:  booking.Contact.Name,
		ContactEmail: booking.Contact.Email,
		Timestamp:    s.now().UTC(),
	})

	return booking, nil
}

// ExpireStale expires unpaid bookings created more than ttl ago and returns how many it expired.
func (s *BookingService) ExpireStale(ctx context.Context, ttl time.Duration) (int, error) {
	cutoff := s.now().UTC().Add(-ttl)
	stale, err := s.store.FindPendingCreatedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to find stale bookings: %w", err)
	}

	reason := fmt.Sprintf("payment not received within %s", ttl)
	expired := 0
	for _, b := range stale {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		if _, err := s.Expire(ctx, b.ID, reason); err != nil {
			if !errors.Is(err, apperrors.ErrInvalidState) {
				logger.WithContext(ctx).Error("Failed to expire booking", "error", err, "booking_id", b.ID)
			}
			continue
		}
		expired++
	}
	return expired, nil
}

// FailStuckPayments marks payments that have been processing for longer than twice the
// gateway timeout as failed. Such a booking lost its outcome write, and no Pay call can
// still be waiting on it, so the traveller may pay again or let it expire.
func (s *BookingService) FailStuckPayments(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-2 * s.paymentTimeout)
	stuck, err := s.store.FindProcessingUpdatedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to find stuck payments: %w", err)
	}

	failed := 0
	for _, b := range stuck {
		if err := ctx.Err(); err != nil {
			return failed, err
		}
		booking, changed, err := s.failStuckPayment(ctx, b.ID, cutoff)
		if err != nil {
			logger.WithContext(ctx).Error("Failed to release stuck payment", "error", err, "booking_id", b.ID)
			continue
		}
		if !changed {
			continue
		}
		failed++

		s.metrics.ObservePayment("unrecorded", 0)
		logger.WithContext(ctx).Warn("Released booking stuck in payment processing",
			"booking_id", booking.ID,
			"status", booking.Status)
		if booking.Status == models.StatusPending {
			s.publishPaymentOutcome(ctx, booking, false, "payment could not be confirmed", false)
		}
	}
	return failed, nil
}

func (s *BookingService) failStuckPayment(ctx context.Context, id string, cutoff time.Time) (*models.Booking, bool, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	changed := false
	booking, err := s.apply(ctx, id, func(b *models.Booking) error {
		changed = false
		if b.PaymentStatus != models.PaymentProcessing || !b.UpdatedAt.Before(cutoff) {
			return errUnchanged
		}
		changed = true
		b.PaymentStatus = models.PaymentFailed
		return nil
	})
	return booking, changed, err
}

// CompleteEnded completes confirmed bookings whose end date lies before today.
func (s *BookingService) CompleteEnded(ctx context.Context) (int, error) {
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	ended, err := s.store.FindConfirmedEndedBefore(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("failed to find ended bookings: %w", err)
	}

	completed := 0
	for _, b := range ended {
		if err := ctx.Err(); err != nil {
			return completed, err
		}
		if _, err := s.Complete(ctx, b.ID); err != nil {
			if !errors.Is(err, apperrors.ErrInvalidState) {
				logger.WithContext(ctx).Error("Failed to complete booking", "error", err, "booking_id", b.ID)
			}
			continue
		}
		completed++
	}
	return completed, nil
}

// MarkRefunded records that the gateway refunded a cancelled booking. Repeated calls are no-ops.
func (s *BookingService) MarkRefunded(ctx context.Context, id string) (*models.Booking, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	return s.apply(ctx, id, func(b *models.Booking) error {
		if b.PaymentStatus == models.PaymentRefunded {
			return errUnchanged
		}
		if b.Status != models.StatusCancelled || b.PaymentStatus != models.PaymentPaid {
			return apperrors.InvalidState(b.ID, string(b.Status)+"/"+string(b.PaymentStatus), "refund")
		}
		b.PaymentStatus = models.PaymentRefunded
		return nil
	})
}

// apply loads the booking, lets fn mutate it and writes it back against the loaded version.
// A version conflict reloads and runs fn once more.
func (s *BookingService) apply(ctx context.Context, id string, fn func(b *models.Booking) error) (*models.Booking, error) {
	for attempt := 0; ; attempt++ {
		b, err := s.store.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		from, version := b.Status, b.Version

		if err := fn(b); err != nil {
			if errors.Is(err, errUnchanged) {
				return b, nil
			}
			return nil, err
		}

		b.UpdatedAt = s.now().UTC()
		err = s.store.Update(ctx, b, version)
		if errors.Is(err, repository.ErrConflict) && attempt == 0 {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to update booking %s: %w", id, err)
		}

		if from != b.Status {
			s.metrics.ObserveTransition(string(from), string(b.Status))
		}
		return b, nil
	}
}

func transition(b *models.Booking, to models.Status, action string) error {
	if !b.Status.CanTransitionTo(to) {
		return apperrors.InvalidState(b.ID, string(b.Status), action)
	}
	b.Status = to
	return nil
}

func (s *BookingService) publishRefund(ctx context.Context, b *models.Booking) {
	s.publish(ctx, models.EventBookingRefundRequested, b.ID, models.RefundRequestedEvent{
		BookingID:        b.ID,
		PaymentReference: b.PaymentReference,
		Amount:           b.Price.TotalPrice,
		Timestamp:        s.now().UTC(),
	})
}

func (s *BookingService) publish(ctx context.Context, subject, bookingID string, event any) {
	if err := s.publisher.Publish(subject, event); err != nil {
		// Log error but don't fail the operation
		logger.WithContext(ctx).Error("Failed to publish event",
			"error", err,
			"booking_id", bookingID,
			"event_type", subject)
	}
}
