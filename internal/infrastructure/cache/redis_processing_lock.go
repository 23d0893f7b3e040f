package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisProcessingLock implements the processing lock on Redis SETNX
// leases. It narrows the window in which two instances post the same
// settlement concurrently; the commit transaction's uniqueness re-check
// remains the correctness guarantee.
type RedisProcessingLock struct {
	client    *redis.Client
	keyPrefix string
	logger    *zap.Logger
}

// NewRedisProcessingLock creates a lock backed by an existing Redis client
func NewRedisProcessingLock(client *redis.Client, logger *zap.Logger) *RedisProcessingLock {
	return &RedisProcessingLock{
		client:    client,
		keyPrefix: "settlement:lock:",
		logger:    logger,
	}
}

// Acquire takes a lease on the key. The returned release func deletes the
// lease only if this holder still owns it, so an expired lease taken over
// by another instance is never released from here.
func (l *RedisProcessingLock) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	fullKey := l.keyPrefix + key
	holder := uuid.NewString()

	acquired, err := l.client.SetNX(ctx, fullKey, holder, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire processing lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}

	release := func() {
		// Compare-and-delete so only the current holder can release.
		const script = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`
		if err := l.client.Eval(context.Background(), script, []string{fullKey}, holder).Err(); err != nil {
			l.logger.Warn("failed to release processing lock",
				zap.String("key", fullKey),
				zap.Error(err),
			)
		}
	}
	return release, true, nil
}
