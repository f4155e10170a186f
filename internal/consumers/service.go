package consumers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/stan.go"

	"luxtravel/internal/catalog"
	"luxtravel/internal/config"
	"luxtravel/internal/database"
	"luxtravel/internal/external"
	"luxtravel/internal/messaging"
	"luxtravel/internal/models"
	"luxtravel/internal/notify"
	"luxtravel/internal/pricing"
	"luxtravel/internal/repository"
	"luxtravel/internal/service"
)

const queueGroup = "luxtravel-consumers"

type ConsumerService struct {
	db       *database.DB
	nats     *messaging.NATSClient
	notifier notify.Notifier
	bookings *service.BookingService
	handlers *Handlers
	subs     []stan.Subscription
}

// NewConsumerService needs the shared postgres store: refunds and background jobs
// act on bookings written by the API process.
func NewConsumerService(ctx context.Context, cfg *config.Config) (*ConsumerService, error) {
	if cfg.StorageBackend != "postgres" {
		return nil, fmt.Errorf("consumers require STORAGE_BACKEND=postgres, got %q", cfg.StorageBackend)
	}

	cs := &ConsumerService{}

	// Connect to database
	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	cs.db = db

	// Connect to NATS
	cs.nats, err = messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		_ = cs.Shutdown(ctx)
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	cs.notifier, err = notify.New(cfg.Notify)
	if err != nil {
		_ = cs.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create notifier: %w", err)
	}

	gateway, err := external.NewGateway(cfg.Payment)
	if err != nil {
		_ = cs.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create payment gateway: %w", err)
	}

	provider, err := catalog.NewDefault()
	if err != nil {
		_ = cs.Shutdown(ctx)
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	store := repository.NewBookingRepository(db)
	cs.bookings = service.NewBookingService(provider, pricing.NewEngine(), store, gateway, cs.nats,
		service.WithPaymentTimeout(cfg.Payment.Timeout))
	cs.handlers = NewHandlers(cs.notifier, gateway, cs.bookings)

	return cs, nil
}

// Bookings exposes the booking service to the background jobs.
func (cs *ConsumerService) Bookings() *service.BookingService {
	return cs.bookings
}

func (cs *ConsumerService) Start() error {
	slog.Info("Starting NATS consumers...")

	routes := []struct {
		subject string
		handle  func(ctx context.Context, data []byte) error
	}{
		{models.EventBookingCreated, cs.handlers.HandleBookingCreated},
		{models.EventPaymentCompleted, cs.handlers.HandlePaymentCompleted},
		{models.EventPaymentFailed, cs.handlers.HandlePaymentFailed},
		{models.EventBookingCancelled, cs.handlers.HandleBookingCancelled},
		{models.EventBookingExpired, cs.handlers.HandleBookingExpired},
		{models.EventBookingCompleted, cs.handlers.HandleBookingCompleted},
		{models.EventBookingRefundRequested, cs.handlers.HandleRefundRequested},
	}

	for _, r := range routes {
		sub, err := cs.nats.SubscribeQueue(r.subject, queueGroup, cs.handlers.Ack(r.subject, r.handle))
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", r.subject, err)
		}
		cs.subs = append(cs.subs, sub)
	}

	slog.Info("All consumers started successfully", "subjects", len(routes))
	return nil
}

func (cs *ConsumerService) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down consumer service...")

	for _, sub := range cs.subs {
		// Close keeps the durable queue position, Unsubscribe would drop it
		if err := sub.Close(); err != nil {
			slog.Error("Error closing subscription", "error", err)
		}
	}

	if cs.nats != nil {
		if err := cs.nats.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
		}
	}

	if cs.notifier != nil {
		if err := cs.notifier.Close(); err != nil {
			slog.Error("Error closing notifier", "error", err)
		}
	}

	if cs.db != nil {
		if err := cs.db.Close(); err != nil {
			slog.Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
