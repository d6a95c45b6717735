package locker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisLocker) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, NewRedisLocker(client, time.Minute)
}

func TestRedisLocker_AcquireIsExclusive(t *testing.T) {
	mr, l := setupTestRedis(t)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "donor:12345")
	require.NoError(t, err)
	assert.True(t, mr.Exists(keyPrefix+"donor:12345"))

	_, err = l.Acquire(ctx, "donor:12345")
	assert.ErrorIs(t, err, ErrLocked)

	other, err := l.Acquire(ctx, "donor:67890")
	require.NoError(t, err)
	require.NoError(t, other(ctx))

	require.NoError(t, release(ctx))
	assert.False(t, mr.Exists(keyPrefix+"donor:12345"))

	again, err := l.Acquire(ctx, "donor:12345")
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestRedisLocker_ExpiredLockIsNotReleasedByOldOwner(t *testing.T) {
	mr, l := setupTestRedis(t)
	ctx := context.Background()

	stale, err := l.Acquire(ctx, "donor:12345")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	fresh, err := l.Acquire(ctx, "donor:12345")
	require.NoError(t, err)

	require.NoError(t, stale(ctx))
	assert.True(t, mr.Exists(keyPrefix+"donor:12345"))

	require.NoError(t, fresh(ctx))
	assert.False(t, mr.Exists(keyPrefix+"donor:12345"))
}

func TestWithLock(t *testing.T) {
	mr, l := setupTestRedis(t)
	ctx := context.Background()

	fnErr := errors.New("boom")
	err := WithLock(ctx, l, "donor:12345", func(ctx context.Context) error {
		assert.True(t, mr.Exists(keyPrefix+"donor:12345"))
		return fnErr
	})
	assert.ErrorIs(t, err, fnErr)
	assert.False(t, mr.Exists(keyPrefix+"donor:12345"))
}

func TestNew_EmptyURLGivesNopLocker(t *testing.T) {
	l, closeFn, err := New(context.Background(), "", time.Minute)
	require.NoError(t, err)
	assert.IsType(t, NopLocker{}, l)
	assert.NoError(t, closeFn())

	called := false
	require.NoError(t, WithLock(context.Background(), l, "k", func(context.Context) error {
		called = true
		return nil
	}))
	assert.True(t, called)
}

func TestNew_ConnectsToRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	l, closeFn, err := New(context.Background(), "redis://"+mr.Addr(), time.Minute)
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &RedisLocker{}, l)
}
