package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "luxtravel/internal/errors"
)

type idempotencyRecord struct {
	Fingerprint string `json:"fingerprint"`
	BookingID   string `json:"bookingId,omitempty"`
}

// IdempotencyStore remembers which booking an Idempotency-Key produced.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

// Reserve claims key for a request with the given fingerprint. It returns the booking id
// of a finished earlier request with the same key. A key reused for a different request,
// or one whose first request is still running, yields apperrors.ErrIdempotency.
func (s *IdempotencyStore) Reserve(ctx context.Context, key, fingerprint string) (string, error) {
	redisKey := fmt.Sprintf(keyIdemBookingCreate, key)

	value, err := json.Marshal(idempotencyRecord{Fingerprint: fingerprint})
	if err != nil {
		return "", fmt.Errorf("failed to marshal idempotency record: %w", err)
	}

	ok, err := s.client.SetNX(ctx, redisKey, value, s.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	if ok {
		return "", nil
	}

	raw, err := s.client.Get(ctx, redisKey).Bytes()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET
		return s.Reserve(ctx, key, fingerprint)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read idempotency key: %w", err)
	}

	var existing idempotencyRecord
	if err := json.Unmarshal(raw, &existing); err != nil {
		return "", fmt.Errorf("corrupt idempotency record for %s: %w", key, err)
	}
	if existing.Fingerprint != fingerprint {
		return "", fmt.Errorf("key %s: %w", key, apperrors.ErrIdempotency)
	}
	if existing.BookingID == "" {
		return "", fmt.Errorf("key %s: request still in progress: %w", key, apperrors.ErrIdempotency)
	}
	return existing.BookingID, nil
}

// Complete records the booking created under key.
func (s *IdempotencyStore) Complete(ctx context.Context, key, fingerprint, bookingID string) error {
	value, err := json.Marshal(idempotencyRecord{Fingerprint: fingerprint, BookingID: bookingID})
	if err != nil {
		return fmt.Errorf("failed to marshal idempotency record: %w", err)
	}
	if err := s.client.Set(ctx, fmt.Sprintf(keyIdemBookingCreate, key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to complete idempotency key: %w", err)
	}
	return nil
}

// Release forgets key so a failed request can be retried with it.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, fmt.Sprintf(keyIdemBookingCreate, key)).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}
