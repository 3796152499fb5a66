package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowConsumesCapacity(t *testing.T) {
	l := New()

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("10.0.0.1:ingest", 3, 0))
	}
	assert.False(t, l.Allow("10.0.0.1:ingest", 3, 0), "bucket exhausted")
	assert.True(t, l.Allow("10.0.0.2:ingest", 3, 0), "keys are independent")
}

func TestPruneDropsIdleBuckets(t *testing.T) {
	l := New()
	l.Allow("stale", 1, 0)
	l.Allow("fresh", 1, 0)

	l.mu.Lock()
	l.m["stale"].last = time.Now().Add(-2 * maxIdle)
	l.prune(time.Now())
	_, staleOK := l.m["stale"]
	_, freshOK := l.m["fresh"]
	l.mu.Unlock()

	assert.False(t, staleOK)
	assert.True(t, freshOK)
}
