package redisx

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyCache maps an idempotency digest to the order it created.
// The unique column on orders stays authoritative; entries only save a
// database round trip on replays.
type IdempotencyCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func (c *IdempotencyCache) Lookup(ctx context.Context, key string) (uint, bool, error) {
	v, err := c.Client.Get(ctx, fmt.Sprintf(KeyIdemOrderCreate, key)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis get failed: %w", err)
	}

	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil || id == 0 {
		return 0, false, fmt.Errorf("corrupt idempotency entry %q", v)
	}
	return uint(id), true, nil
}

func (c *IdempotencyCache) Remember(ctx context.Context, key string, orderID uint) error {
	if err := c.Client.Set(ctx, fmt.Sprintf(KeyIdemOrderCreate, key), orderID, c.TTL).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}
