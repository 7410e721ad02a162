// Package cache provides the Redis client and cache-aside helpers.
package cache

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"discussify/internal/middleware"

	"github.com/redis/go-redis/v9"
)

var client *redis.Client

// errorCountingHook feeds the redis error counter so dashboards can tell a
// cold cache from a failing one.
type errorCountingHook struct{}

func (errorCountingHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (errorCountingHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		countRedisError(cmd.Name(), err)
		return err
	}
}

func (errorCountingHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		countRedisError("pipeline", err)
		return err
	}
}

func countRedisError(cmd string, err error) {
	if err != nil && !errors.Is(err, redis.Nil) {
		middleware.RedisErrors.WithLabelValues(cmd).Inc()
	}
}

// InitRedis connects the package client. The address may be host:port or a
// redis:// URL. A failed connection leaves the client nil; callers degrade to
// the database, so the API stays up without Redis.
func InitRedis(addr string) {
	opts, err := parseAddr(addr)
	if err != nil {
		log.Printf("Redis disabled: %v", err)
		client = nil
		return
	}

	c := redis.NewClient(opts)
	c.AddHook(errorCountingHook{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Ping(ctx).Err(); err != nil {
		log.Printf("Redis disabled: ping %s: %v", opts.Addr, err)
		client = nil
		return
	}

	log.Printf("Redis connected at %s", opts.Addr)
	client = c
}

func parseAddr(addr string) (*redis.Options, error) {
	if strings.Contains(addr, "://") {
		return redis.ParseURL(addr)
	}
	return &redis.Options{Addr: addr}, nil
}

// SetClient overrides the package client. Intended for tests.
func SetClient(c *redis.Client) {
	client = c
}

// GetClient returns the current Redis client, nil when caching is disabled.
func GetClient() *redis.Client {
	return client
}
