package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davicafu/hexacert/internal/certificate/domain"
	sharedCache "github.com/davicafu/hexacert/internal/shared/infra/platform/cache"
)

func exerciseCache(t *testing.T, c sharedCache.Cache) {
	t.Helper()
	ctx := context.Background()
	id := uuid.New()
	key := domain.CacheKeyByID(domain.KindProduction, id)

	var got domain.CertificateView
	ok, err := c.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, ok)

	view := domain.CertificateView{ID: id, Kind: domain.KindProduction, IssuedState: domain.StateIssued, Quantity: 42}
	require.NoError(t, c.Set(ctx, key, view, time.Minute))

	ok, err = c.Get(ctx, key, &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, domain.StateIssued, got.IssuedState)
	assert.Equal(t, int64(42), got.Quantity)

	require.NoError(t, c.Delete(ctx, key))
	ok, err = c.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInMemoryCache(t *testing.T) {
	c := NewInMemoryCache(time.Minute, time.Minute)
	defer c.Stop()
	exerciseCache(t, c)
}

func TestInMemoryCache_Expiry(t *testing.T) {
	c := NewInMemoryCache(time.Minute, 10*time.Millisecond)
	defer c.Stop()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", 20*time.Millisecond))
	var v string
	ok, _ := c.Get(ctx, "k", &v)
	assert.True(t, ok)

	assert.Eventually(t, func() bool {
		ok, _ := c.Get(ctx, "k", &v)
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping Redis cache test")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	require.NoError(t, client.Ping(context.Background()).Err())

	exerciseCache(t, NewRedisCache(client, time.Minute))
}
