// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testValkeyClient returns a Redis client for tests.
// Skips if Valkey is unavailable.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")
	password := os.Getenv("VALKEY_PASSWORD")

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: password,
		DB:       15, // Use DB 15 for tests.
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping integration test: Valkey not reachable: %v", err)
	}

	clean := func() {
		keys, _ := client.Keys(ctx, listingKeyPrefix+"*").Result()
		keys = append(keys, generationKey)
		client.Del(ctx, keys...)
	}
	clean()
	t.Cleanup(func() {
		clean()
		client.Close()
	})

	return client
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func staticLoad(body string) func(context.Context) ([]byte, error) {
	return func(context.Context) ([]byte, error) { return []byte(body), nil }
}

func TestConnectValkey(t *testing.T) {
	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")

	client, err := ConnectValkey(context.Background(), host, port, os.Getenv("VALKEY_PASSWORD"))
	if err != nil {
		t.Skipf("skipping: Valkey not available: %v", err)
	}
	defer client.Close()

	pong, err := client.Ping(context.Background()).Result()
	require.NoError(t, err)
	assert.Equal(t, "PONG", pong)
}

func TestConnectValkeyUnreachable(t *testing.T) {
	_, err := ConnectValkey(context.Background(), "127.0.0.1", "1", "")
	assert.Error(t, err)
}

func TestListingCacheSetAndGet(t *testing.T) {
	client := testValkeyClient(t)
	lc := NewListingCache(client, time.Minute)
	ctx := context.Background()

	_, ok := lc.Get(ctx, "missing")
	assert.False(t, ok, "expected miss for unknown key")

	lc.Set(ctx, PageKey("active=*:page=1"), []byte(`{"items":[]}`))
	got, ok := lc.Get(ctx, PageKey("active=*:page=1"))
	require.True(t, ok, "expected hit after Set")
	assert.Equal(t, `{"items":[]}`, string(got))
}

func TestListingCacheGetOrLoad(t *testing.T) {
	client := testValkeyClient(t)
	lc := NewListingCache(client, time.Minute)
	ctx := context.Background()

	var loads atomic.Int32
	load := func(context.Context) ([]byte, error) {
		loads.Add(1)
		time.Sleep(20 * time.Millisecond)
		return []byte("forest"), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			body, err := lc.GetOrLoad(ctx, ForestKey(), load)
			assert.NoError(t, err)
			assert.Equal(t, "forest", string(body))
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), loads.Load(), "concurrent misses should share one load")

	// Served from Valkey now.
	_, err := lc.GetOrLoad(ctx, ForestKey(), load)
	require.NoError(t, err)
	assert.Equal(t, int32(1), loads.Load(), "warm cache should not load")
}

func TestListingCacheGetOrLoadError(t *testing.T) {
	client := testValkeyClient(t)
	lc := NewListingCache(client, time.Minute)
	ctx := context.Background()

	wantErr := errors.New("store down")
	_, err := lc.GetOrLoad(ctx, "failing", func(context.Context) ([]byte, error) { return nil, wantErr })
	require.ErrorIs(t, err, wantErr)

	_, ok := lc.Get(ctx, "failing")
	assert.False(t, ok, "failed loads must not be cached")
}

// TestListingCacheWriteDuringLoad covers a write that commits and
// invalidates while a reader is still loading the pre-write listing. The
// reader's body must not be served afterwards.
func TestListingCacheWriteDuringLoad(t *testing.T) {
	client := testValkeyClient(t)
	lc := NewListingCache(client, time.Minute)
	ctx := context.Background()

	body, err := lc.GetOrLoad(ctx, ForestKey(), func(ctx context.Context) ([]byte, error) {
		// The writer lands after the reader has read the store.
		lc.InvalidateAll(ctx)
		return []byte("before-write"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "before-write", string(body))

	body, err = lc.GetOrLoad(ctx, ForestKey(), staticLoad("after-write"))
	require.NoError(t, err)
	assert.Equal(t, "after-write", string(body))
}

// TestListingCacheLoadSurvivesCallerCancel checks that the shared load is
// not aborted when the caller that started it goes away.
func TestListingCacheLoadSurvivesCallerCancel(t *testing.T) {
	client := testValkeyClient(t)
	lc := NewListingCache(client, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	body, err := lc.GetOrLoad(ctx, ForestKey(), func(loadCtx context.Context) ([]byte, error) {
		cancel()
		if err := loadCtx.Err(); err != nil {
			return nil, err
		}
		return []byte("forest"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "forest", string(body))

	got, ok := lc.Get(context.Background(), ForestKey())
	require.True(t, ok, "the detached load should still be cached")
	assert.Equal(t, "forest", string(got))
}

func TestListingCacheInvalidateAll(t *testing.T) {
	client := testValkeyClient(t)
	lc := NewListingCache(client, time.Minute)
	ctx := context.Background()

	lc.Set(ctx, PageKey("a"), []byte("1"))
	lc.Set(ctx, PageKey("b"), []byte("2"))
	lc.Set(ctx, ForestKey(), []byte("3"))

	lc.InvalidateAll(ctx)

	for _, key := range []string{PageKey("a"), PageKey("b"), ForestKey()} {
		_, ok := lc.Get(ctx, key)
		assert.False(t, ok, "%s should be invalidated", key)
	}

	keys, err := client.Keys(ctx, listingKeyPrefix+"*").Result()
	require.NoError(t, err)
	assert.Empty(t, keys, "entries of old generations should be removed")
}

func TestNewListingCacheDefaultTTL(t *testing.T) {
	lc := NewListingCache(nil, 0)
	assert.Equal(t, DefaultListingTTL, lc.ttl)
}

func TestVersionedKey(t *testing.T) {
	assert.Equal(t, "categories:3:forest", versionedKey(3, ForestKey()))
	assert.NotEqual(t, versionedKey(1, ForestKey()), versionedKey(2, ForestKey()))
}
