package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetSetDelete(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrMiss)

	value := []byte("20")
	require.NoError(t, store.Set(ctx, "settings:products_per_page", value, time.Minute))
	value[0] = '9'

	got, err := store.Get(ctx, "settings:products_per_page")
	require.NoError(t, err)
	assert.Equal(t, "20", string(got))

	require.NoError(t, store.Delete(ctx, "settings:products_per_page"))
	_, err = store.Get(ctx, "settings:products_per_page")
	require.ErrorIs(t, err, ErrMiss)
}

func TestMemoryExpiry(t *testing.T) {
	store := NewMemory()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "ttl", []byte("x"), time.Second))
	require.NoError(t, store.Set(ctx, "forever", []byte("y"), 0))

	now = now.Add(2 * time.Second)

	_, err := store.Get(ctx, "ttl")
	require.ErrorIs(t, err, ErrMiss)
	got, err := store.Get(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, "y", string(got))
}

func TestRedisKeyPrefix(t *testing.T) {
	store := NewRedis(nil, WithKeyPrefix("shop:"))
	assert.Equal(t, "shop:settings", store.key("settings"))
	assert.Equal(t, "webshop:x", NewRedis(nil).key("x"))
}
