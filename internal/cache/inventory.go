package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	userKeyPrefix      = "user:%d"
	communityKeyPrefix = "community:%s"
)

// Cache TTLs per entity type.
const (
	UserTTL      = 5 * time.Minute
	CommunityTTL = 10 * time.Minute
)

// UserKey returns the cache key for a user record.
func UserKey(userID uint) string {
	return fmt.Sprintf(userKeyPrefix, userID)
}

// CommunityKey returns the cache key for a community record, keyed by slug.
func CommunityKey(slug string) string {
	return fmt.Sprintf(communityKeyPrefix, slug)
}

// Aside implements the cache-aside pattern: on a hit, dest is populated from
// the cached JSON; on a miss, load is invoked and its result cached with the
// given TTL. Cache failures degrade to calling load directly.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, load func() error) error {
	if client == nil {
		return load()
	}

	raw, err := client.Get(ctx, key).Result()
	if err == nil {
		if jsonErr := json.Unmarshal([]byte(raw), dest); jsonErr == nil {
			return nil
		}
		// Corrupt entry: drop it and fall through to the loader.
		client.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		return load()
	}

	if err := load(); err != nil {
		return err
	}

	if encoded, jsonErr := json.Marshal(dest); jsonErr == nil {
		client.Set(ctx, key, encoded, ttl)
	}
	return nil
}

// Invalidate removes a key from the cache.
func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

// InvalidateUser removes a user record from the cache.
func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

// InvalidateCommunity removes a community record from the cache.
func InvalidateCommunity(ctx context.Context, slug string) {
	Invalidate(ctx, CommunityKey(slug))
}
