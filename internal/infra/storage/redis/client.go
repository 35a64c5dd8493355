// Package redis persists the tracker's block checkpoints and the manager's
// lifecycle stage mirror in Redis. One connection serves both concerns; the
// key namespaces keep them apart.
package redis

import (
	"context"

	redis "github.com/redis/go-redis/v9"
)

// client wraps a single Redis connection shared by every adapter in this
// package.
type client struct {
	conn *redis.Client
}

// Close releases the underlying connection.
func (c *client) Close() error {
	return c.conn.Close()
}

// NewClient connects to Redis and verifies the connection with a ping before
// returning, so a bad address fails at startup rather than on the first
// checkpoint write.
func NewClient(ctx context.Context, addr, username, password string, db int) (*client, error) {
	conn := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: username,
		Password: password,
		DB:       db,
	})

	if err := conn.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &client{
		conn: conn,
	}, nil
}
