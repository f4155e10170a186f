package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"luxtravel/cmd/consumers/jobs"
	"luxtravel/internal/config"
	"luxtravel/internal/consumers"
	"luxtravel/internal/logger"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	slog.Info("Starting consumers service...")

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	// Override NATS client ID for consumers
	cfg.NATS.ClientID = "luxtravel-consumers"

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Create and start consumers
	consumerService, err := consumers.NewConsumerService(ctx, cfg)
	if err != nil {
		slog.Error("Failed to create consumer service", "error", err)
		os.Exit(1)
	}

	// Start consuming messages
	if err := consumerService.Start(); err != nil {
		slog.Error("Failed to start consumers", "error", err)
		_ = consumerService.Shutdown(ctx)
		os.Exit(1)
	}

	expiration := jobs.NewBookingExpirationJob(consumerService.Bookings(), cfg.Jobs.ExpirationTTL, cfg.Jobs.Interval)
	completion := jobs.NewTripCompletionJob(consumerService.Bookings(), cfg.Jobs.Interval)
	expiration.Start(ctx)
	completion.Start(ctx)

	slog.Info("Consumers service started successfully")

	// Wait for interrupt signal to gracefully shutdown
	<-ctx.Done()

	slog.Info("Shutting down consumers service...")
	expiration.Stop()
	completion.Stop()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := consumerService.Shutdown(shutdownCtx); err != nil {
		slog.Error("Error during shutdown", "error", err)
	}

	slog.Info("Consumers service stopped")
}
