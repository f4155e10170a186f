package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Completer marks confirmed or paid bookings whose stay has ended as completed.
type Completer interface {
	CompleteEnded(ctx context.Context) (int, error)
}

type TripCompletionJob struct {
	bookings Completer
	interval time.Duration
	done     chan struct{}
	stopOnce sync.Once
}

func NewTripCompletionJob(bookings Completer, interval time.Duration) *TripCompletionJob {
	return &TripCompletionJob{
		bookings: bookings,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (j *TripCompletionJob) Start(ctx context.Context) {
	slog.Info("Starting trip completion job", "check_interval", j.interval)

	go func() {
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		j.completeEnded(ctx)
		for {
			select {
			case <-ticker.C:
				j.completeEnded(ctx)
			case <-ctx.Done():
				return
			case <-j.done:
				slog.Info("Trip completion job stopped")
				return
			}
		}
	}()
}

func (j *TripCompletionJob) Stop() {
	j.stopOnce.Do(func() { close(j.done) })
}

func (j *TripCompletionJob) completeEnded(ctx context.Context) {
	completed, err := j.bookings.CompleteEnded(ctx)
	if err != nil {
		slog.Error("Failed to complete ended trips", "error", err)
		return
	}
	if completed > 0 {
		slog.Info("Completed ended trips", "count", completed)
	}
}
