// Package redis implements cart storage and rate-limit counters on Redis.
package redis

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	goredis "github.com/redis/go-redis/v9"
)

const (
	keyNamespace    = "jfs"
	rateLimitPrefix = "rate_limit"
)

type cmdable interface {
	Ping(ctx context.Context) *goredis.StatusCmd
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value any, ttl time.Duration) *goredis.StatusCmd
	Incr(ctx context.Context, key string) *goredis.IntCmd
	Expire(ctx context.Context, key string, ttl time.Duration) *goredis.BoolCmd
	PTTL(ctx context.Context, key string) *goredis.DurationCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
}

// Config configures the Redis connection. URL takes precedence over Addr.
type Config struct {
	URL          string        `json:"url" yaml:"url"`
	Addr         string        `json:"addr" yaml:"addr"`
	Password     string        `json:"password" yaml:"password"`
	DB           int           `json:"db" yaml:"db"`
	PoolSize     int           `json:"pool_size" yaml:"pool_size"`
	DialTimeout  time.Duration `json:"dial_timeout" yaml:"dial_timeout" default:"5s"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout" default:"3s"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout" default:"3s"`
}

// Enabled reports whether a Redis endpoint is configured.
func (c Config) Enabled() bool {
	return c.URL != "" || c.Addr != ""
}

// Client wraps the Redis commands used by the storefront.
type Client struct {
	store cmdable
	raw   *goredis.Client
}

// New connects to Redis and verifies connectivity.
func New(ctx context.Context, cfg Config) (*Client, error) {
	opts, err := options(cfg)
	if err != nil {
		return nil, err
	}
	raw := goredis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		_ = raw.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	return &Client{store: raw, raw: raw}, nil
}

func options(cfg Config) (*goredis.Options, error) {
	if !cfg.Enabled() {
		return nil, errors.New("redis url or addr is required")
	}
	opts := &goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.URL != "" {
		parsed, err := goredis.ParseURL(cfg.URL)
		if err != nil {
			return nil, errors.Wrap(err, "parse redis url")
		}
		opts = parsed
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

// Ping checks the connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.store.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	if c.raw == nil {
		return nil
	}
	return c.raw.Close()
}

// FixedWindowAllow counts a hit against scope in the current window and
// reports whether the count is within limit, along with the time left until
// the window resets. The window starts at the first hit. A counter found
// without an expiry, such as one whose earlier EXPIRE failed, is re-armed so
// it can never outlive its window.
func (c *Client) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, time.Duration, error) {
	key := buildKey(rateLimitPrefix, scope)
	count, err := c.store.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, 0, errors.Wrap(err, "incr")
	}
	ttl, err := c.store.PTTL(ctx, key).Result()
	if err != nil {
		return false, count, 0, errors.Wrap(err, "pttl")
	}
	// PTTL reports -1 for a key without expiry.
	if ttl <= 0 && window > 0 {
		if err := c.store.Expire(ctx, key, window).Err(); err != nil {
			return false, count, 0, errors.Wrap(err, "expire")
		}
		ttl = window
	}
	return count <= limit, count, ttl, nil
}

func buildKey(parts ...string) string {
	return keyNamespace + ":" + strings.Join(parts, ":")
}
