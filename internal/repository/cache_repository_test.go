package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/lms-console-api/pkg/errors"
)

func newCacheRepo(t *testing.T) (*CacheRepository, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCacheRepository(client, zap.NewNop()), server
}

func TestCacheRepositoryRoundTrip(t *testing.T) {
	repo, _ := newCacheRepo(t)

	payload := map[string]int{"courses": 4, "classes": 9}
	require.NoError(t, repo.Set(context.Background(), "dashboard:stats", payload, time.Minute))

	var got map[string]int
	require.NoError(t, repo.Get(context.Background(), "dashboard:stats", &got))
	assert.Equal(t, payload, got)
}

func TestCacheRepositoryMissReturnsSentinel(t *testing.T) {
	repo, _ := newCacheRepo(t)

	var got map[string]int
	err := repo.Get(context.Background(), "absent", &got)
	require.ErrorIs(t, err, appErrors.ErrCacheMiss)
}

func TestCacheRepositoryExpiryBecomesMiss(t *testing.T) {
	repo, server := newCacheRepo(t)

	require.NoError(t, repo.Set(context.Background(), "k", "v", time.Second))
	server.FastForward(2 * time.Second)

	var got string
	err := repo.Get(context.Background(), "k", &got)
	require.ErrorIs(t, err, appErrors.ErrCacheMiss)
}

func TestCacheRepositoryDelete(t *testing.T) {
	repo, _ := newCacheRepo(t)

	require.NoError(t, repo.Set(context.Background(), "k", "v", time.Minute))
	require.NoError(t, repo.Delete(context.Background(), "k"))

	var got string
	err := repo.Get(context.Background(), "k", &got)
	require.ErrorIs(t, err, appErrors.ErrCacheMiss)
}

func TestCacheRepositoryNilClientDegrades(t *testing.T) {
	repo := NewCacheRepository(nil, zap.NewNop())

	require.NoError(t, repo.Set(context.Background(), "k", "v", time.Minute))
	require.NoError(t, repo.Delete(context.Background(), "k"))

	var got string
	err := repo.Get(context.Background(), "k", &got)
	require.ErrorIs(t, err, appErrors.ErrCacheMiss)
}
