package storage

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Client wraps go-redis with a key namespace so several deployments can
// share one database.
type Client struct {
	*redis.Client
	prefix string
}

func NewClient(addr, password string, db int, prefix string) *Client {
	return &Client{
		Client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		prefix: prefix,
	}
}

// Key joins parts with ':' under the client prefix.
func (c *Client) Key(parts ...string) string {
	if c.prefix == "" {
		return strings.Join(parts, ":")
	}
	return c.prefix + ":" + strings.Join(parts, ":")
}

func (c *Client) HealthCheck(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.Client.Close()
}
