package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	Cli *redis.Client
}

// NewRedis connects and pings; callers fall back to running without a cache on error.
func NewRedis(ctx context.Context, addr, password string, db int) (*Client, error) {
	r := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := r.Ping(pctx).Err(); err != nil {
		_ = r.Close()
		return nil, err
	}
	return &Client{Cli: r}, nil
}

func (c *Client) Close() error {
	return c.Cli.Close()
}

func (c *Client) Set(ctx context.Context, key string, val string, ttl time.Duration) error {
	return c.Cli.Set(ctx, key, val, ttl).Err()
}

// Get returns "" with a nil error on a miss.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	s, err := c.Cli.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return s, err
}
