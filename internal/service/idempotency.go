package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	apperrors "luxtravel/internal/errors"
	"luxtravel/internal/logger"
	"luxtravel/internal/models"
)

// IdempotencyStore maps an Idempotency-Key to the booking it produced.
type IdempotencyStore interface {
	Reserve(ctx context.Context, key, fingerprint string) (string, error)
	Complete(ctx context.Context, key, fingerprint, bookingID string) error
	Release(ctx context.Context, key string) error
}

// CreateIdempotent is Create guarded by a client supplied key. A repeated key with the same
// request returns the original booking and replayed=true; a different request under the same
// key fails with apperrors.ErrIdempotency. Without a key or store it behaves like Create.
func (s *BookingService) CreateIdempotent(ctx context.Context, key string, req *models.BookingRequest) (booking *models.Booking, replayed bool, err error) {
	if key == "" || s.idempotency == nil {
		booking, err = s.Create(ctx, req)
		return booking, false, err
	}

	// fingerprint what Create will actually book
	normalizeBookingRequest(req)
	fingerprint, err := requestFingerprint(req)
	if err != nil {
		return nil, false, err
	}

	existingID, err := s.idempotency.Reserve(ctx, key, fingerprint)
	switch {
	case errors.Is(err, apperrors.ErrIdempotency):
		return nil, false, err
	case err != nil:
		// the key store is an optimization; keep taking bookings without it
		logger.WithContext(ctx).Warn("Idempotency store unavailable", "error", err, "idempotency_key", key)
		booking, err = s.Create(ctx, req)
		return booking, false, err
	case existingID != "":
		booking, err = s.store.FindByID(ctx, existingID)
		return booking, err == nil, err
	}

	booking, err = s.Create(ctx, req)
	if err != nil {
		if relErr := s.idempotency.Release(context.WithoutCancel(ctx), key); relErr != nil {
			logger.WithContext(ctx).Warn("Failed to release idempotency key", "error", relErr, "idempotency_key", key)
		}
		return nil, false, err
	}

	if err := s.idempotency.Complete(context.WithoutCancel(ctx), key, fingerprint, booking.ID); err != nil {
		logger.WithContext(ctx).Warn("Failed to complete idempotency key",
			"error", err,
			"idempotency_key", key,
			"booking_id", booking.ID)
	}
	return booking, false, nil
}

func requestFingerprint(req *models.BookingRequest) (string, error) {
	data, err := json.Marshal(struct {
		UserID  string                 `json:"userId"`
		Request *models.BookingRequest `json:"request"`
	}{req.UserID, req})
	if err != nil {
		return "", fmt.Errorf("failed to fingerprint request: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
