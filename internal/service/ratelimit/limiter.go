// Package ratelimit throttles ingest submissions per client key with
// token buckets. Keys are client IPs, so idle buckets are pruned to
// bound memory.
package ratelimit

import (
	"sync"
	"time"
)

const (
	maxIdle    = time.Hour
	pruneAbove = 10000
)

type bucket struct {
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per second
	last       time.Time
}

type Limiter struct {
	mu sync.Mutex
	m  map[string]*bucket
}

func New() *Limiter { return &Limiter{m: make(map[string]*bucket)} }

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string, capacity, refillPerSec float64) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.m) > pruneAbove {
		l.prune(now)
	}

	b, ok := l.m[key]
	if !ok {
		b = &bucket{tokens: capacity, capacity: capacity, refillRate: refillPerSec, last: now}
		l.m[key] = b
	}

	elapsed := now.Sub(b.last).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * b.refillRate
		if b.tokens > b.capacity {
			b.tokens = b.capacity
		}
		b.last = now
	}
	if b.tokens >= 1 {
		b.tokens -= 1
		return true
	}
	return false
}

// prune drops buckets idle longer than maxIdle. Caller holds the lock.
func (l *Limiter) prune(now time.Time) {
	for k, b := range l.m {
		if now.Sub(b.last) > maxIdle {
			delete(l.m, k)
		}
	}
}
