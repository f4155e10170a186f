package repository

import (
	"context"
	"time"

	apperrors "luxtravel/internal/errors"
	"luxtravel/internal/models"
)

// ErrConflict is returned by Update when the stored version no longer matches.
var ErrConflict = apperrors.ErrConflict

// BookingStore persists bookings. Implementations never hand out shared mutable state.
type BookingStore interface {
	Save(ctx context.Context, booking *models.Booking) error
	// Update writes booking only if the stored version equals expectedVersion and bumps booking.Version.
	Update(ctx context.Context, booking *models.Booking, expectedVersion int64) error
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	// FindByUser returns the user's bookings in insertion order.
	FindByUser(ctx context.Context, userID string) ([]*models.Booking, error)
	// FindPendingCreatedBefore returns unpaid pending bookings older than cutoff.
	FindPendingCreatedBefore(ctx context.Context, cutoff time.Time) ([]*models.Booking, error)
	// FindConfirmedEndedBefore returns confirmed or paid bookings whose stay ended before cutoff.
	FindConfirmedEndedBefore(ctx context.Context, cutoff time.Time) ([]*models.Booking, error)
	// FindProcessingUpdatedBefore returns bookings whose payment has been processing since before cutoff.
	FindProcessingUpdatedBefore(ctx context.Context, cutoff time.Time) ([]*models.Booking, error)
}

func isExpirable(b *models.Booking, cutoff time.Time) bool {
	return b.Status == models.StatusPending &&
		(b.PaymentStatus == models.PaymentPending || b.PaymentStatus == models.PaymentFailed) &&
		b.CreatedAt.Before(cutoff)
}

func isStuckProcessing(b *models.Booking, cutoff time.Time) bool {
	return b.PaymentStatus == models.PaymentProcessing && b.UpdatedAt.Before(cutoff)
}

func isCompletable(b *models.Booking, cutoff time.Time) bool {
	return (b.Status == models.StatusConfirmed || b.Status == models.StatusPaid) &&
		b.EndDate != nil && b.EndDate.Before(cutoff)
}
