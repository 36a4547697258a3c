package repository_test

import (
	"context"
	"restaurant-auth/config"
	"restaurant-auth/internal/repository"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCacheRepository(t *testing.T) (*repository.CacheRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return repository.NewCacheRepository(&config.RedisClient{Client: client}), mr
}

func TestCacheRepository_DenyList(t *testing.T) {
	ctx := context.Background()
	repo, mr := newCacheRepository(t)

	require.NoError(t, repo.RevokeToken(ctx, "jti-1", 5*time.Minute))

	revoked, err := repo.IsTokenRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.Equal(t, 5*time.Minute, mr.TTL("denylist:jti:jti-1"))

	revoked, err = repo.IsTokenRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestCacheRepository_Increment(t *testing.T) {
	ctx := context.Background()
	repo, mr := newCacheRepository(t)

	for want := int64(1); want <= 3; want++ {
		count, err := repo.Increment(ctx, "login:pasta-house:a@b:1", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, count)
	}
	assert.Equal(t, time.Minute, mr.TTL("login:pasta-house:a@b:1"))

	mr.FastForward(2 * time.Minute)
	count, err := repo.Increment(ctx, "login:pasta-house:a@b:1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "счетчик сбрасывается вместе с TTL")
}

func TestCacheRepository_Unavailable(t *testing.T) {
	ctx := context.Background()
	repo, mr := newCacheRepository(t)
	mr.Close()

	_, err := repo.Increment(ctx, "k", time.Minute)
	assert.Error(t, err)

	_, err = repo.IsTokenRevoked(ctx, "jti")
	assert.Error(t, err)
}
