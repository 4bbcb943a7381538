package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitiationLock_Acquire(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	lock := NewInitiationLock(client)
	ctx := context.Background()

	ok, err := lock.Acquire(ctx, "booking:b1", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "free lock should be acquired")

	ok, err = lock.Acquire(ctx, "booking:b1", 30*time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "held lock should not be acquired twice")

	ok, err = lock.Acquire(ctx, "product_order:b1", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "source kinds do not share locks")
}

func TestInitiationLock_Release(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	lock := NewInitiationLock(client)
	ctx := context.Background()

	_, err := lock.Acquire(ctx, "booking:b2", 30*time.Second)
	require.NoError(t, err)
	require.NoError(t, lock.Release(ctx, "booking:b2"))

	ok, err := lock.Acquire(ctx, "booking:b2", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.NoError(t, lock.Release(ctx, "never-held"))
}

func TestInitiationLock_Expires(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	lock := NewInitiationLock(client)
	ctx := context.Background()

	ok, err := lock.Acquire(ctx, "booking:b3", 1*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	// Fast-forward past TTL
	s.FastForward(2 * time.Second)

	ok, err = lock.Acquire(ctx, "booking:b3", 1*time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "expired lock should be acquirable again")
}
