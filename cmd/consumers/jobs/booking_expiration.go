package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Expirer cancels pending unpaid bookings older than ttl. FailStuckPayments runs first so
// bookings whose payment outcome was never recorded become expirable again.
type Expirer interface {
	FailStuckPayments(ctx context.Context) (int, error)
	ExpireStale(ctx context.Context, ttl time.Duration) (int, error)
}

// BookingExpirationJob handles the cleanup of abandoned bookings
type BookingExpirationJob struct {
	bookings Expirer
	ttl      time.Duration
	interval time.Duration
	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
	running  sync.Mutex
}

func NewBookingExpirationJob(bookings Expirer, ttl, interval time.Duration) *BookingExpirationJob {
	return &BookingExpirationJob{
		bookings: bookings,
		ttl:      ttl,
		interval: interval,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Start begins the background job that checks for stale bookings every interval
func (j *BookingExpirationJob) Start(ctx context.Context) {
	slog.Info("Starting booking expiration job", "check_interval", j.interval, "ttl", j.ttl)

	// Run initial check immediately
	go j.checkExpiredBookings(ctx)

	go func() {
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()
		defer close(j.stopped)

		for {
			select {
			case <-ticker.C:
				go j.checkExpiredBookings(ctx)
			case <-ctx.Done():
				slog.Info("Booking expiration job stopped")
				return
			case <-j.done:
				slog.Info("Booking expiration job stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the background job
func (j *BookingExpirationJob) Stop() {
	j.stopOnce.Do(func() { close(j.done) })
}

// Stopped is closed once the scheduling loop has exited and released its ticker.
func (j *BookingExpirationJob) Stopped() <-chan struct{} {
	return j.stopped
}

// checkExpiredBookings skips a tick while the previous sweep is still running
func (j *BookingExpirationJob) checkExpiredBookings(ctx context.Context) {
	if !j.running.TryLock() {
		slog.Debug("Previous expiration sweep still running")
		return
	}
	defer j.running.Unlock()

	failed, err := j.bookings.FailStuckPayments(ctx)
	if err != nil {
		slog.Error("Failed to release stuck payments", "error", err)
	} else if failed > 0 {
		slog.Warn("Released bookings stuck in payment processing", "count", failed)
	}

	expired, err := j.bookings.ExpireStale(ctx, j.ttl)
	if err != nil {
		slog.Error("Failed to expire stale bookings", "error", err)
		return
	}
	if expired == 0 {
		slog.Debug("No expired bookings found")
		return
	}
	slog.Info("Expired stale bookings", "count", expired)
}
