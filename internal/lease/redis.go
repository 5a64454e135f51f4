package lease

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "campaign:dial-lease:"

// RedisLease backs the lease with a shared Redis instance.
//
// Safety properties:
// - Atomic acquire via SET NX PX.
// - TTL prevents leaked leases on process crash.
type RedisLease struct {
	rdb *redis.Client

	// holderID identifies this process in the key value, for debugging only;
	// Release deletes the key regardless of holder.
	holderID string
}

func NewRedisLease(rdb *redis.Client) *RedisLease {
	return &RedisLease{rdb: rdb, holderID: uuid.NewString()}
}

func (l *RedisLease) Acquire(ctx context.Context, campaignID string, ttl time.Duration) (bool, error) {
	if campaignID == "" {
		return false, fmt.Errorf("lease: campaign id is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	ok, err := l.rdb.SetNX(ctx, keyPrefix+campaignID, l.holderID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("lease acquire %s: %w", campaignID, err)
	}
	return ok, nil
}

func (l *RedisLease) Release(ctx context.Context, campaignID string) error {
	if campaignID == "" {
		return fmt.Errorf("lease: campaign id is required")
	}
	if err := l.rdb.Del(ctx, keyPrefix+campaignID).Err(); err != nil {
		return fmt.Errorf("lease release %s: %w", campaignID, err)
	}
	return nil
}
