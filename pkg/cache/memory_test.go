package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheSetGetDelete(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "signals:card-1", `{"period":"30d"}`, time.Minute))

	var got string
	require.NoError(t, mc.Get(ctx, "signals:card-1", &got))
	assert.Equal(t, `{"period":"30d"}`, got)

	require.NoError(t, mc.Delete(ctx, "signals:card-1"))
	assert.ErrorIs(t, mc.Get(ctx, "signals:card-1", &got), ErrCacheMiss)
}

func TestMemoryCacheExpiredEntryMisses(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "k", "v", time.Nanosecond))
	time.Sleep(time.Millisecond)

	var got string
	assert.ErrorIs(t, mc.Get(ctx, "k", &got), ErrCacheMiss)
}

func TestMemoryCacheEvictsLRU(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "a", "1", time.Minute))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "b", "2", time.Minute))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "c", "3", time.Minute))

	var got string
	assert.ErrorIs(t, mc.Get(ctx, "a", &got), ErrCacheMiss, "oldest entry evicted")
	assert.NoError(t, mc.Get(ctx, "c", &got))
}
