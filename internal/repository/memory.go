package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "luxtravel/internal/errors"
	"luxtravel/internal/models"
)

// MemoryBookingRepository keeps bookings in process memory. State is lost on restart,
// so it is meant for local runs and tests only.
type MemoryBookingRepository struct {
	mu    sync.RWMutex
	byID  map[string]*models.Booking
	order []string
}

func NewMemoryBookingRepository() *MemoryBookingRepository {
	return &MemoryBookingRepository{byID: make(map[string]*models.Booking)}
}

func (r *MemoryBookingRepository) Save(ctx context.Context, booking *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[booking.ID]; exists {
		return fmt.Errorf("booking %s already exists: %w", booking.ID, ErrConflict)
	}
	if booking.Version == 0 {
		booking.Version = 1
	}
	r.byID[booking.ID] = booking.Clone()
	r.order = append(r.order, booking.ID)
	return nil
}

func (r *MemoryBookingRepository) Update(ctx context.Context, booking *models.Booking, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[booking.ID]
	if !ok {
		return apperrors.NotFound("booking", booking.ID)
	}
	if current.Version != expectedVersion {
		return fmt.Errorf("booking %s: stored version %d, expected %d: %w",
			booking.ID, current.Version, expectedVersion, ErrConflict)
	}

	booking.Version = expectedVersion + 1
	r.byID[booking.ID] = booking.Clone()
	return nil
}

func (r *MemoryBookingRepository) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.byID[id]
	if !ok {
		return nil, apperrors.NotFound("booking", id)
	}
	return b.Clone(), nil
}

func (r *MemoryBookingRepository) FindByUser(ctx context.Context, userID string) ([]*models.Booking, error) {
	return r.collect(func(b *models.Booking) bool { return b.UserID == userID }), nil
}

func (r *MemoryBookingRepository) FindPendingCreatedBefore(ctx context.Context, cutoff time.Time) ([]*models.Booking, error) {
	return r.collect(func(b *models.Booking) bool { return isExpirable(b, cutoff) }), nil
}

func (r *MemoryBookingRepository) FindConfirmedEndedBefore(ctx context.Context, cutoff time.Time) ([]*models.Booking, error) {
	return r.collect(func(b *models.Booking) bool { return isCompletable(b, cutoff) }), nil
}

func (r *MemoryBookingRepository) FindProcessingUpdatedBefore(ctx context.Context, cutoff time.Time) ([]*models.Booking, error) {
	return r.collect(func(b *models.Booking) bool { return isStuckProcessing(b, cutoff) }), nil
}

func (r *MemoryBookingRepository) collect(match func(*models.Booking) bool) []*models.Booking {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.Booking, 0)
	for _, id := range r.order {
		if b := r.byID[id]; match(b) {
			result = append(result, b.Clone())
		}
	}
	return result
}
