// Package cache provides a Redis-backed read cache for auction views so
// that hot GetAuctionState calls do not hit the store on every poll.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned when no cached view exists.
var ErrMiss = errors.New("cache miss")

// ViewCache stores serialized auction views keyed by auction id.
type ViewCache interface {
	Get(ctx context.Context, auctionID string, dst any) error
	Set(ctx context.Context, auctionID string, view any) error
	Invalidate(ctx context.Context, auctionID string) error
}

// Redis implements ViewCache with go-redis.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects and verifies the Redis client.
func NewRedis(ctx context.Context, addr, password string, db int, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return &Redis{client: client, ttl: ttl}, nil
}

func key(auctionID string) string {
	return fmt.Sprintf("auction:%s:view", auctionID)
}

func (r *Redis) Get(ctx context.Context, auctionID string, dst any) error {
	data, err := r.client.Get(ctx, key(auctionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return fmt.Errorf("reading cached view: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decoding cached view: %w", err)
	}
	return nil
}

func (r *Redis) Set(ctx context.Context, auctionID string, view any) error {
	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("encoding view: %w", err)
	}
	if err := r.client.Set(ctx, key(auctionID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("writing cached view: %w", err)
	}
	return nil
}

func (r *Redis) Invalidate(ctx context.Context, auctionID string) error {
	if err := r.client.Del(ctx, key(auctionID)).Err(); err != nil {
		return fmt.Errorf("invalidating cached view: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Nop is a ViewCache used when Redis is not configured. Get always misses.
type Nop struct{}

func (Nop) Get(ctx context.Context, auctionID string, dst any) error { return ErrMiss }
func (Nop) Set(ctx context.Context, auctionID string, view any) error {
	return nil
}
func (Nop) Invalidate(ctx context.Context, auctionID string) error { return nil }
