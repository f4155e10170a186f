package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"luxtravel/cmd/consumers/jobs"
	"luxtravel/internal/api"
	"luxtravel/internal/config"
	"luxtravel/internal/logger"
	"luxtravel/internal/validation"
)

func main() {
	_ = godotenv.Load()

	// Загружаем конфигурацию
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	// Проверяем, нужно ли запустить валидацию
	if len(os.Args) > 1 && os.Args[1] == "validate" {
		baseURL := "http://localhost:" + cfg.Port
		if len(os.Args) > 2 {
			baseURL = os.Args[2]
		}
		if err := validation.RunValidation(baseURL); err != nil {
			slog.Error("Validation failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Создаем и настраиваем сервер
	server, err := api.NewServer(ctx, cfg)
	if err != nil {
		slog.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	// С хранилищем в памяти фоновые задачи выполняет сам API
	var expiration *jobs.BookingExpirationJob
	var completion *jobs.TripCompletionJob
	if cfg.StorageBackend == "memory" {
		bookings := server.Services().Bookings
		expiration = jobs.NewBookingExpirationJob(bookings, cfg.Jobs.ExpirationTTL, cfg.Jobs.Interval)
		completion = jobs.NewTripCompletionJob(bookings, cfg.Jobs.Interval)
		expiration.Start(ctx)
		completion.Start(ctx)
	}

	// Создаем HTTP сервер
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.GetRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Запускаем сервер в отдельной горутине
	go func() {
		slog.Info("Starting server", "port", cfg.Port, "storage", cfg.StorageBackend, "catalog", cfg.CatalogBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Failed to start server", "error", err)
			stop()
		}
	}()

	// Ждем сигнал для graceful shutdown
	<-ctx.Done()
	slog.Info("Shutting down server...")

	if expiration != nil {
		expiration.Stop()
		completion.Stop()
	}

	// Graceful shutdown с таймаутом
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	// Закрываем соединения
	server.Cleanup()

	slog.Info("Server stopped")
}
