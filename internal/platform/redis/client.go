// Package redis connects the optional Redis instance backing idempotency keys.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"firledger/internal/platform/config"
)

// Client is the shared go-redis client plus a health probe for /healthz.
type Client struct {
	*redis.Client
}

// New dials Redis and verifies it with PING. It returns (nil, nil) when no
// URL is configured; callers then keep idempotency keys in process memory.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	c := redis.NewClient(opts)
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}
	return &Client{Client: c}, nil
}

func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}
