// Package cache holds computed signal sets between requests. Values are
// JSON strings keyed by cohort; the cache is purely an accelerator and
// every entry is recomputable from the rollups.
package cache

import (
	"context"
	"errors"
	"time"
)

var ErrCacheMiss = errors.New("cache: key not found")

// Service is the surface the use cases need: read, write with TTL,
// invalidate, shut down. Misses return ErrCacheMiss.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
