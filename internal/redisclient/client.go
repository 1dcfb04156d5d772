package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func tenantKey(tenantID int64) string {
	return fmt.Sprintf("tenant:exists:%d", tenantID)
}

// GetTenantExists returns the cached existence flag for a tenant. The second
// return value reports whether the cache held an entry at all.
func (c *Client) GetTenantExists(ctx context.Context, tenantID int64) (exists, found bool, err error) {
	val, err := c.rdb.Get(ctx, tenantKey(tenantID)).Result()
	if err == redis.Nil {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return val == "1", true, nil
}

// SetTenantExists caches a tenant existence flag with a TTL
func (c *Client) SetTenantExists(ctx context.Context, tenantID int64, exists bool, ttl time.Duration) error {
	val := "0"
	if exists {
		val = "1"
	}
	return c.rdb.Set(ctx, tenantKey(tenantID), val, ttl).Err()
}

// InvalidateTenant drops a tenant's cached existence flag
func (c *Client) InvalidateTenant(ctx context.Context, tenantID int64) error {
	return c.rdb.Del(ctx, tenantKey(tenantID)).Err()
}
