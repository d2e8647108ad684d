package knowledge

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"penny/internal/chat"
)

type countingRetriever struct {
	passages []chat.Passage
	err      error
	calls    int
}

func (r *countingRetriever) Search(context.Context, string, int) ([]chat.Passage, error) {
	r.calls++
	return r.passages, r.err
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("redis down")
}

func (brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("redis down")
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestCachedRetriever(t *testing.T) {
	passages := []chat.Passage{{ID: "1", Text: "Minimum balance is $25."}}

	t.Run("repeat queries are served from cache", func(t *testing.T) {
		next := &countingRetriever{passages: passages}
		r := NewCachedRetriever(next, NewInMemoryCache(), time.Minute, discard)

		first, err := r.Search(context.Background(), "Minimum  Balance?", 3)
		require.NoError(t, err)
		second, err := r.Search(context.Background(), "minimum balance?", 3)
		require.NoError(t, err)

		assert.Equal(t, passages, first)
		assert.Equal(t, passages, second)
		assert.Equal(t, 1, next.calls)
	})

	t.Run("topN is part of the key", func(t *testing.T) {
		next := &countingRetriever{passages: passages}
		r := NewCachedRetriever(next, NewInMemoryCache(), time.Minute, discard)

		_, _ = r.Search(context.Background(), "q", 3)
		_, _ = r.Search(context.Background(), "q", 5)

		assert.Equal(t, 2, next.calls)
	})

	t.Run("errors are not cached", func(t *testing.T) {
		next := &countingRetriever{err: errors.New("throttled")}
		r := NewCachedRetriever(next, NewInMemoryCache(), time.Minute, discard)

		_, err := r.Search(context.Background(), "q", 3)
		require.Error(t, err)
		_, err = r.Search(context.Background(), "q", 3)
		require.Error(t, err)

		assert.Equal(t, 2, next.calls)
	})

	t.Run("broken cache falls through", func(t *testing.T) {
		next := &countingRetriever{passages: passages}
		r := NewCachedRetriever(next, brokenCache{}, time.Minute, discard)

		got, err := r.Search(context.Background(), "q", 3)

		require.NoError(t, err)
		assert.Equal(t, passages, got)
	})
}

func TestInMemoryCacheExpiry(t *testing.T) {
	c := NewInMemoryCache()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), time.Minute))
	v, ok, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), v)

	now = now.Add(2 * time.Minute)
	_, ok, err = c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
