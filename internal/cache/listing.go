// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// listing.go provides a Valkey-backed cache of serialized category listings.
// Any mutation of the forest can change any listing, so a write bumps a
// generation counter that is part of every key; entries of older
// generations are never read again and expire with their TTL.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"taxonomy/internal/metrics"
)

const (
	// listingKeyPrefix is the Valkey key prefix for cached listings.
	listingKeyPrefix = "categories:"

	// generationKey holds the current listing generation. It lives outside
	// listingKeyPrefix so prefix scans never delete it.
	generationKey = "categories-generation"

	// DefaultListingTTL is how long a listing stays cached.
	DefaultListingTTL = time.Minute
)

// ListingCache stores rendered listing responses.
type ListingCache struct {
	client *redis.Client
	ttl    time.Duration
	flight singleflight.Group
}

// NewListingCache creates a listing cache backed by the given Valkey client.
func NewListingCache(client *redis.Client, ttl time.Duration) *ListingCache {
	if ttl <= 0 {
		ttl = DefaultListingTTL
	}
	return &ListingCache{client: client, ttl: ttl}
}

// generation returns the current listing generation. A missing counter is
// generation 0.
func (lc *ListingCache) generation(ctx context.Context) (int64, error) {
	gen, err := lc.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// versionedKey is the Valkey key of key within generation gen.
func versionedKey(gen int64, key string) string {
	return listingKeyPrefix + strconv.FormatInt(gen, 10) + ":" + key
}

// Get retrieves a listing cached in the current generation. Errors count as
// misses.
func (lc *ListingCache) Get(ctx context.Context, key string) ([]byte, bool) {
	gen, err := lc.generation(ctx)
	if err != nil {
		slog.Warn("listing cache generation error", "error", err)
		return nil, false
	}
	return lc.get(ctx, versionedKey(gen, key))
}

func (lc *ListingCache) get(ctx context.Context, fullKey string) ([]byte, bool) {
	val, err := lc.client.Get(ctx, fullKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.Warn("listing cache get error", "key", fullKey, "error", err)
		return nil, false
	}
	return val, true
}

// Set stores a listing in the current generation with the configured TTL.
func (lc *ListingCache) Set(ctx context.Context, key string, body []byte) {
	gen, err := lc.generation(ctx)
	if err != nil {
		slog.Warn("listing cache generation error", "error", err)
		return
	}
	lc.set(ctx, versionedKey(gen, key), body)
}

func (lc *ListingCache) set(ctx context.Context, fullKey string, body []byte) {
	if err := lc.client.Set(ctx, fullKey, body, lc.ttl).Err(); err != nil {
		slog.Warn("listing cache set error", "key", fullKey, "error", err)
	}
}

// GetOrLoad returns the cached listing for key, or calls load once for all
// concurrent callers missing the same key and caches its result.
//
// The result is stored under the generation read before loading, so a write
// that invalidates while load runs leaves the stale body unreachable. load
// runs detached from the caller's cancellation because other callers may be
// waiting on it.
func (lc *ListingCache) GetOrLoad(ctx context.Context, key string, load func(context.Context) ([]byte, error)) ([]byte, error) {
	gen, err := lc.generation(ctx)
	if err != nil {
		slog.Warn("listing cache generation error, loading uncached", "error", err)
		metrics.RecordCacheLookup(false)
		return load(ctx)
	}
	fullKey := versionedKey(gen, key)

	if body, ok := lc.get(ctx, fullKey); ok {
		metrics.RecordCacheLookup(true)
		return body, nil
	}
	metrics.RecordCacheLookup(false)

	v, err, _ := lc.flight.Do(fullKey, func() (any, error) {
		loadCtx := context.WithoutCancel(ctx)
		body, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		lc.set(loadCtx, fullKey, body)
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// InvalidateAll starts a new generation, then removes the entries of older
// ones by scanning for the prefix.
func (lc *ListingCache) InvalidateAll(ctx context.Context) {
	// With a failed bump every entry is stale.
	current := ""
	gen, err := lc.client.Incr(ctx, generationKey).Result()
	if err != nil {
		slog.Warn("listing cache generation bump error", "error", err)
	} else {
		current = listingKeyPrefix + strconv.FormatInt(gen, 10) + ":"
	}

	var cursor uint64
	var deleted int
	for {
		keys, nextCursor, err := lc.client.Scan(ctx, cursor, listingKeyPrefix+"*", 100).Result()
		if err != nil {
			slog.Warn("listing cache scan error", "error", err)
			return
		}
		stale := keys[:0]
		for _, k := range keys {
			if current == "" || !strings.HasPrefix(k, current) {
				stale = append(stale, k)
			}
		}
		if len(stale) > 0 {
			if err := lc.client.Del(ctx, stale...).Err(); err != nil {
				slog.Warn("listing cache bulk delete error", "error", err)
			}
			deleted += len(stale)
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	slog.Debug("listing cache cleared", "generation", gen, "deleted", deleted)
}

// PageKey returns the cache key for a listing page.
func PageKey(pageKey string) string {
	return "page:" + pageKey
}

// ForestKey returns the cache key for the nested forest view.
func ForestKey() string {
	return "forest"
}
