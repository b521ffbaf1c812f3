package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/inferq/internal/testutil"
)

func TestRedisCacheRepo_SetGetDelete(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client := testutil.SetupTestRedis(t)
	defer client.Close()

	repo := NewRedisCacheRepo(client, "inferq-test:")
	ctx := context.Background()

	t.Run("set and get with prefix", func(t *testing.T) {
		ttl := 5 * time.Minute
		require.NoError(t, repo.Set(ctx, "cache:1", []byte("value"), ttl))

		got, err := repo.Get(ctx, "cache:1")
		require.NoError(t, err)
		assert.Equal(t, []byte("value"), got)

		actualTTL := client.TTL(ctx, "inferq-test:cache:1").Val()
		assert.True(t, actualTTL > 0 && actualTTL <= ttl)
	})

	t.Run("get missing key", func(t *testing.T) {
		got, err := repo.Get(ctx, "cache:missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Set(ctx, "cache:2", []byte("x"), time.Minute))

		deleted, err := repo.Delete(ctx, "cache:2")
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = repo.Delete(ctx, "cache:2")
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}

func TestRedisCacheRepo_SetIfNotExists(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client := testutil.SetupTestRedis(t)
	defer client.Close()

	repo := NewRedisCacheRepo(client, "inferq-test:")
	ctx := context.Background()
	key := "lock:worker"
	t.Cleanup(func() { _, _ = repo.Delete(context.Background(), key) })

	ok, err := repo.SetIfNotExists(ctx, key, []byte("owner-a"), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.SetIfNotExists(ctx, key, []byte("owner-b"), time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	released, err := repo.DeleteIfEquals(ctx, key, []byte("owner-b"))
	require.NoError(t, err)
	assert.False(t, released, "non-owner must not release")

	released, err = repo.DeleteIfEquals(ctx, key, []byte("owner-a"))
	require.NoError(t, err)
	assert.True(t, released)

	exists, err := repo.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRedisCacheRepo_EmptyKey(t *testing.T) {
	t.Parallel()

	repo := NewRedisCacheRepo(nil, "p:")
	ctx := context.Background()

	require.ErrorIs(t, repo.Set(ctx, "", []byte("v"), time.Second), errEmptyKey)

	_, err := repo.Get(ctx, "")
	require.ErrorIs(t, err, errEmptyKey)

	_, err = repo.Delete(ctx, "")
	require.ErrorIs(t, err, errEmptyKey)

	_, err = repo.DeleteIfEquals(ctx, "", nil)
	require.ErrorIs(t, err, errEmptyKey)

	_, err = repo.Exists(ctx, "")
	require.ErrorIs(t, err, errEmptyKey)

	_, err = repo.SetIfNotExists(ctx, "", []byte("v"), time.Second)
	require.ErrorIs(t, err, errEmptyKey)
}
