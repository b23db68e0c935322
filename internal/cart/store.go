package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type Store interface {
	// Load returns an empty cart when none is stored.
	Load(ctx context.Context, customerID uint) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	Delete(ctx context.Context, customerID uint) error
}

func cacheKey(customerID uint) string {
	return fmt.Sprintf("cart:%d", customerID)
}

// RedisStore keeps carts as JSON with a sliding TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context, customerID uint) (*Cart, error) {
	// GETEX refreshes the TTL on every read
	data, err := s.client.GetEx(ctx, cacheKey(customerID), s.ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return New(customerID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	if c.Lines == nil {
		c.Lines = map[uint]int{}
	}
	c.CustomerID = customerID
	return &c, nil
}

func (s *RedisStore) Save(ctx context.Context, c *Cart) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}
	if err := s.client.Set(ctx, cacheKey(c.CustomerID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, customerID uint) error {
	if err := s.client.Del(ctx, cacheKey(customerID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// MemoryStore is used when no Redis is configured.
type MemoryStore struct {
	mu    sync.Mutex
	carts map[uint]Cart
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: map[uint]Cart{}}
}

func (s *MemoryStore) Load(_ context.Context, customerID uint) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.carts[customerID]
	if !ok {
		return New(customerID), nil
	}
	return clone(c), nil
}

func (s *MemoryStore) Save(_ context.Context, c *Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.carts[c.CustomerID] = *clone(*c)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, customerID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, customerID)
	return nil
}

func clone(c Cart) *Cart {
	lines := make(map[uint]int, len(c.Lines))
	for k, v := range c.Lines {
		lines[k] = v
	}
	c.Lines = lines
	return &c
}
