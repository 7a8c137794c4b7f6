package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/picketer/internal/database/testutil"
)

func TestMemoryStoreFixedWindow(t *testing.T) {
	current := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return current }
	ctx := context.Background()

	count, ttl, err := store.IncrementWithTTL(ctx, "login:1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.Equal(t, time.Minute, ttl)

	current = current.Add(30 * time.Second)
	count, ttl, err = store.IncrementWithTTL(ctx, "login:1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
	require.Equal(t, 30*time.Second, ttl)

	current = current.Add(31 * time.Second)
	count, _, err = store.IncrementWithTTL(ctx, "login:1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestMemoryStoreValues(t *testing.T) {
	current := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return current }
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Second))
	value, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), value)

	current = current.Add(2 * time.Second)
	_, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Set(ctx, "k2", []byte("v"), 0))
	require.NoError(t, store.Delete(ctx, "k2"))
	_, ok, _ = store.Get(ctx, "k2")
	require.False(t, ok)
}

func TestDatabaseStoreIncrementAndPurge(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseStore(db)
	ctx := context.Background()

	count, _, err := store.IncrementWithTTL(ctx, "register:10.0.0.1", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	count, _, err = store.IncrementWithTTL(ctx, "register:10.0.0.1", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	require.NoError(t, store.Set(ctx, "persistent", []byte("x"), 0))

	purged, err := store.PurgeExpired(ctx, time.Now().Add(2*time.Minute))
	require.NoError(t, err)
	require.EqualValues(t, 1, purged)

	_, ok, err := store.Get(ctx, "persistent")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestDatabaseStoreFixedWindow(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseStore(db)
	current := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }
	ctx := context.Background()

	_, ttl, err := store.IncrementWithTTL(ctx, "login:1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.Equal(t, time.Minute, ttl)

	current = current.Add(20 * time.Second)
	count, ttl, err := store.IncrementWithTTL(ctx, "login:1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
	require.Equal(t, 40*time.Second, ttl, "later hits must not extend the window")

	current = current.Add(40 * time.Second)
	count, ttl, err = store.IncrementWithTTL(ctx, "login:1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.Equal(t, time.Minute, ttl)

	require.NoError(t, store.Set(ctx, "short", []byte("v"), time.Second))
	current = current.Add(time.Second)
	_, ok, err := store.Get(ctx, "short")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisConfigOptions(t *testing.T) {
	_, err := RedisConfig{}.options()
	require.ErrorContains(t, err, "address is required")

	opts, err := RedisConfig{Address: "cache.internal:6380", TLS: true, DB: 2}.options()
	require.NoError(t, err)
	require.Equal(t, "cache.internal:6380", opts.Addr)
	require.Equal(t, 2, opts.DB)
	require.Equal(t, defaultRedisTimeout, opts.DialTimeout)
	require.NotNil(t, opts.TLSConfig)
	require.Equal(t, "cache.internal", opts.TLSConfig.ServerName)

	require.Equal(t, "picketer:rate:x", prefixed("rate:x"))
	require.Equal(t, "picketer:rate:x", prefixed("picketer:rate:x"))
}
