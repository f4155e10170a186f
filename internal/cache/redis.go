package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// catalog:{query} -> raw JSON of the query result
	keyCatalogQuery = "catalog:%s"
	// idem:booking:create:{idempotency key} -> idempotencyRecord
	keyIdemBookingCreate = "idem:booking:create:%s"
)

type Config struct {
	Enabled        bool
	Addr           string
	Password       string
	CatalogTTL     time.Duration
	IdempotencyTTL time.Duration
}

// NewClient connects to redis and verifies the connection with a ping.
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           0,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}
