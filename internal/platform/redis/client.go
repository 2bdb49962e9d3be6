// Package redis opens the connection backing the resolve cache.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"nameledger/internal/platform/config"
)

const healthTimeout = time.Second

// Client is a go-redis client that can report its own readiness.
type Client struct {
	*redis.Client
}

// New dials Redis and verifies the connection. An empty URL means the cache
// is disabled, and New returns (nil, nil).
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	opts, err := options(cfg)
	if err != nil {
		return nil, err
	}

	c := &Client{Client: redis.NewClient(opts)}
	if err := c.Health(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis unreachable at %s: %w", opts.Addr, err)
	}
	return c, nil
}

// options overlays the non-zero pool and timeout settings on the URL.
func options(cfg config.RedisConfig) (*redis.Options, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opts.MinIdleConns = cfg.MinIdleConns
	overlay := func(dst *time.Duration, v time.Duration) {
		if v > 0 {
			*dst = v
		}
	}
	overlay(&opts.DialTimeout, cfg.DialTimeout)
	overlay(&opts.ReadTimeout, cfg.ReadTimeout)
	overlay(&opts.WriteTimeout, cfg.WriteTimeout)
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	return opts, nil
}

// Health pings the server, bounded so a readiness probe never hangs.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	return c.Ping(ctx).Err()
}
