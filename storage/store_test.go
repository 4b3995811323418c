package storage

import (
	"context"
	"testing"

	"localeditor/redis"
	"localeditor/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	value := []byte(`{"a":1}`)
	require.NoError(t, s.Set(ctx, "k", value))
	value[0] = 'x'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))

	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, s.Close())
}

func mergeSelections(saved, defaults types.Selections) types.Selections {
	return saved.Merge(defaults)
}

func TestLoadJSON(t *testing.T) {
	ctx := context.Background()

	t.Run("missing key returns defaults", func(t *testing.T) {
		got := LoadJSON(ctx, NewMemoryStore(), KeySelections, types.DefaultSelections(), mergeSelections)
		assert.Equal(t, types.DefaultSelections(), got)
	})

	t.Run("saved values merge over defaults", func(t *testing.T) {
		s := NewMemoryStore()
		require.NoError(t, s.Set(ctx, KeySelections, []byte(`{"translationLocale":"ru_ru"}`)))

		got := LoadJSON(ctx, s, KeySelections, types.DefaultSelections(), mergeSelections)
		assert.Equal(t, types.Selections{File: "game.json", RefLocale: "en_us", TranslationLocale: "ru_ru"}, got)
	})

	t.Run("corrupt payload returns defaults", func(t *testing.T) {
		s := NewMemoryStore()
		require.NoError(t, s.Set(ctx, KeySelections, []byte(`{not json`)))

		got := LoadJSON(ctx, s, KeySelections, types.DefaultSelections(), mergeSelections)
		assert.Equal(t, types.DefaultSelections(), got)
	})

	t.Run("round trip through SaveJSON", func(t *testing.T) {
		s := NewMemoryStore()
		want := types.Settings{RepoPath: "o/r/tree/dev", LangPath: "lang"}
		require.NoError(t, SaveJSON(ctx, s, KeySettings, want))

		got := LoadJSON(ctx, s, KeySettings, types.DefaultSettings(), func(saved, defaults types.Settings) types.Settings {
			return saved.Merge(defaults)
		})
		assert.Equal(t, want, got)
	})
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, "", nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, "Memory", nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = Open(ctx, "redis", nil)
	assert.Error(t, err)

	_, err = Open(ctx, "etcd", nil)
	assert.ErrorContains(t, err, "unknown backend")
}

func TestRedisStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	rs := redis.NewServiceWithClient(nil)
	defer rs.Close()
	s := NewRedisStore(rs)

	_, err := s.Get(ctx, KeySettings)
	assert.True(t, redis.IsRedisUnavailable(err))
	assert.NotErrorIs(t, err, ErrNotFound)

	// LoadJSON degrades to defaults
	got := LoadJSON(ctx, Store(s), KeySettings, types.DefaultSettings(), func(saved, defaults types.Settings) types.Settings {
		return saved.Merge(defaults)
	})
	assert.Equal(t, types.DefaultSettings(), got)
}
