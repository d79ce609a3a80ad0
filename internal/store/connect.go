package store

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ConnConfig is the ambient connection configuration for the Redis-backed
// OrderStore; it is not part of the core OrderStore operations contract.
type ConnConfig struct {
	Addr     string
	Password string
	DB       int
}

// Connect dials Redis and blocks (with capped exponential backoff) until a
// PING succeeds or the context is done. This is ambient connection
// management, not core retry logic: SPEC_FULL.md §7 still specifies no
// retry for job/order semantics once the store is up.
func Connect(ctx context.Context, cfg ConnConfig, log *zap.Logger) (*redis.Client, error) {
	if log == nil {
		log = zap.NewNop()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Warn("order store unreachable, retrying", zap.String("addr", cfg.Addr), zap.Error(err))
			return struct{}{}, err
		}
		return struct{}{}, nil
	}, backoff.WithMaxTries(8))
	if err != nil {
		return nil, err
	}

	return rdb, nil
}
