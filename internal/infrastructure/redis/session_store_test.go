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

func newTestStore(t *testing.T, ttl time.Duration) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewSessionStore(rdb, ttl), mr
}

func TestSessionStore_SaveAndActive(t *testing.T) {
	t.Parallel()
	store, mr := newTestStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "u1", "sid-a"))
	assert.Equal(t, "sid-a", mr.HGet("user:session:u1", "sid"))
	assert.Equal(t, time.Hour, mr.TTL("user:session:u1"))

	ok, err := store.Active(ctx, "u1", "sid-a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Active(ctx, "u1", "sid-b")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionStore_NewSidRevokesOld(t *testing.T) {
	t.Parallel()
	store, _ := newTestStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "u1", "old"))
	require.NoError(t, store.Save(ctx, "u1", "new"))

	ok, err := store.Active(ctx, "u1", "old")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionStore_Expiry(t *testing.T) {
	t.Parallel()
	store, mr := newTestStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "u1", "sid"))
	mr.FastForward(2 * time.Minute)

	ok, err := store.Active(ctx, "u1", "sid")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionStore_Delete(t *testing.T) {
	t.Parallel()
	store, mr := newTestStore(t, 0)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "u1", "sid"))
	require.NoError(t, store.Delete(ctx, "u1"))
	require.NoError(t, store.Delete(ctx, "u1"), "deleting twice is fine")
	assert.False(t, mr.Exists("user:session:u1"))

	ok, err := store.Active(ctx, "", "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionStore_BackendDown(t *testing.T) {
	t.Parallel()
	store, mr := newTestStore(t, time.Hour)
	mr.Close()

	_, err := store.Active(context.Background(), "u1", "sid")
	assert.Error(t, err)
}
