package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"localeditor/redis"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTier struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newFakeTier() *fakeTier {
	return &fakeTier{data: make(map[string][]byte)}
}

func (f *fakeTier) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.data[key]
	if !ok {
		return nil, redis.ErrCacheMiss
	}
	return v, nil
}

func (f *fakeTier) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.data[key] = data
	return nil
}

func (f *fakeTier) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return f.err
}

func TestCacheLocal(t *testing.T) {
	ctx := context.Background()
	c, err := New(Config{Size: 2, TTL: time.Minute}, nil)
	require.NoError(t, err)

	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)

	c.Set(ctx, "a", []byte("1"))
	c.Set(ctx, "b", []byte("2"))
	got, ok := c.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, []byte("1"), got)

	// "b" is least recently used and gets evicted
	c.Set(ctx, "c", []byte("3"))
	_, ok = c.Get(ctx, "b")
	assert.False(t, ok)

	c.Invalidate(ctx, "a")
	_, ok = c.Get(ctx, "a")
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(3), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
}

func TestCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := New(Config{Size: 4, TTL: time.Minute}, nil)
	require.NoError(t, err)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set(ctx, "a", []byte("1"))
	now = now.Add(30 * time.Second)
	_, ok := c.Get(ctx, "a")
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok = c.Get(ctx, "a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestCacheSecondTier(t *testing.T) {
	ctx := context.Background()
	tier := newFakeTier()

	writer, err := New(Config{Size: 4, TTL: time.Minute}, tier)
	require.NoError(t, err)
	writer.Set(ctx, "https://example/x.json", []byte(`{"a":1}`))
	assert.Contains(t, tier.data, redis.Key("cache", "https://example/x.json"))

	// a second process sees the entry through the shared tier
	reader, err := New(Config{Size: 4, TTL: time.Minute}, tier)
	require.NoError(t, err)
	got, ok := reader.Get(ctx, "https://example/x.json")
	require.True(t, ok)
	assert.Equal(t, []byte(`{"a":1}`), got)
	assert.Equal(t, int64(1), reader.Stats().TierHits)

	// promoted into the LRU
	_, ok = reader.Get(ctx, "https://example/x.json")
	assert.True(t, ok)
	assert.Equal(t, int64(1), reader.Stats().Hits)

	reader.Invalidate(ctx, "https://example/x.json")
	assert.Empty(t, tier.data)
}

func TestCacheTierFailure(t *testing.T) {
	ctx := context.Background()
	tier := newFakeTier()
	tier.err = &redis.RedisUnavailableError{Err: errors.New("down")}

	c, err := New(Config{}, tier)
	require.NoError(t, err)

	c.Set(ctx, "k", []byte("v"))
	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	c.Purge()
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("CACHE_SIZE", "64")
	t.Setenv("CACHE_TTL", "2m")

	cfg := NewConfigFromEnv()
	assert.Equal(t, 64, cfg.Size)
	assert.Equal(t, 2*time.Minute, cfg.TTL)
}
