package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "luxtravel/internal/errors"
	"luxtravel/internal/models"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newBooking(id, user string) *models.Booking {
	return &models.Booking{
		ID:            id,
		UserID:        user,
		CatalogItemID: "safari-lodge",
		Item:          models.ItemSnapshot{ID: "safari-lodge", Title: "Luxury Safari Lodge", Price: 8500, PriceUnit: models.PerWeek},
		TravelerCount: 2,
		AddOnIDs:      []string{"spa-package"},
		Contact:       models.Contact{Name: "Ada", Email: "ada@example.com"},
		Status:        models.StatusPending,
		PaymentStatus: models.PaymentPending,
		CreatedAt:     baseTime,
		UpdatedAt:     baseTime,
	}
}

func TestMemorySaveAndFind(t *testing.T) {
	repo := NewMemoryBookingRepository()
	ctx := context.Background()

	b := newBooking("BK-1", "user-1")
	require.NoError(t, repo.Save(ctx, b))
	assert.Equal(t, int64(1), b.Version)

	got, err := repo.FindByID(ctx, "BK-1")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	got.AddOnIDs[0] = "mutated"
	again, _ := repo.FindByID(ctx, "BK-1")
	assert.Equal(t, "spa-package", again.AddOnIDs[0])

	err = repo.Save(ctx, newBooking("BK-1", "user-1"))
	assert.True(t, errors.Is(err, ErrConflict))

	_, err = repo.FindByID(ctx, "BK-missing")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestMemoryUpdateChecksVersion(t *testing.T) {
	repo := NewMemoryBookingRepository()
	ctx := context.Background()

	b := newBooking("BK-1", "user-1")
	require.NoError(t, repo.Save(ctx, b))

	first, _ := repo.FindByID(ctx, "BK-1")
	second, _ := repo.FindByID(ctx, "BK-1")

	first.Status = models.StatusCancelled
	require.NoError(t, repo.Update(ctx, first, 1))
	assert.Equal(t, int64(2), first.Version)

	second.PaymentStatus = models.PaymentProcessing
	err := repo.Update(ctx, second, 1)
	assert.True(t, errors.Is(err, ErrConflict))

	stored, _ := repo.FindByID(ctx, "BK-1")
	assert.Equal(t, models.StatusCancelled, stored.Status)
	assert.Equal(t, models.PaymentPending, stored.PaymentStatus)

	err = repo.Update(ctx, newBooking("BK-missing", "user-1"), 1)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestMemoryFindByUserKeepsInsertionOrder(t *testing.T) {
	repo := NewMemoryBookingRepository()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Save(ctx, newBooking(fmt.Sprintf("BK-%d", i), "user-1")))
	}
	require.NoError(t, repo.Save(ctx, newBooking("BK-other", "user-2")))

	got, err := repo.FindByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i, b := range got {
		assert.Equal(t, fmt.Sprintf("BK-%d", i), b.ID)
	}

	none, err := repo.FindByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryJobQueries(t *testing.T) {
	repo := NewMemoryBookingRepository()
	ctx := context.Background()

	stale := newBooking("BK-stale", "u")
	stale.CreatedAt = baseTime.Add(-2 * time.Hour)

	fresh := newBooking("BK-fresh", "u")

	failed := newBooking("BK-failed", "u")
	failed.PaymentStatus = models.PaymentFailed
	failed.CreatedAt = baseTime.Add(-3 * time.Hour)

	processing := newBooking("BK-processing", "u")
	processing.PaymentStatus = models.PaymentProcessing
	processing.CreatedAt = baseTime.Add(-3 * time.Hour)

	ended := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	future := time.Date(2026, 4, 20, 0, 0, 0, 0, time.UTC)

	done := newBooking("BK-done", "u")
	done.Status = models.StatusConfirmed
	done.PaymentStatus = models.PaymentPaid
	done.EndDate = &ended

	upcoming := newBooking("BK-upcoming", "u")
	upcoming.Status = models.StatusConfirmed
	upcoming.EndDate = &future

	for _, b := range []*models.Booking{stale, fresh, failed, processing, done, upcoming} {
		require.NoError(t, repo.Save(ctx, b))
	}

	expirable, err := repo.FindPendingCreatedBefore(ctx, baseTime.Add(-time.Hour))
	require.NoError(t, err)
	ids := bookingIDs(expirable)
	assert.ElementsMatch(t, []string{"BK-stale", "BK-failed"}, ids)

	completable, err := repo.FindConfirmedEndedBefore(ctx, baseTime)
	require.NoError(t, err)
	assert.Equal(t, []string{"BK-done"}, bookingIDs(completable))

	stuck, err := repo.FindProcessingUpdatedBefore(ctx, baseTime.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []string{"BK-processing"}, bookingIDs(stuck))

	stuck, err = repo.FindProcessingUpdatedBefore(ctx, baseTime)
	require.NoError(t, err)
	assert.Empty(t, stuck)
}

func TestMemoryConcurrentSaves(t *testing.T) {
	repo := NewMemoryBookingRepository()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, repo.Save(ctx, newBooking(fmt.Sprintf("BK-%d", i), "user-1")))
		}(i)
	}
	wg.Wait()

	all, err := repo.FindByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, all, 200)
}

func bookingIDs(bookings []*models.Booking) []string {
	ids := make([]string, len(bookings))
	for i, b := range bookings {
		ids[i] = b.ID
	}
	return ids
}
