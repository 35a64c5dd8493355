package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/gabapcia/txwatch/internal/blocktracker"
	"github.com/gabapcia/txwatch/internal/pkg/types"

	"github.com/redis/go-redis/v9"
)

// blocktrackerKeyPrefix is the namespace prefix for every key related to the
// block tracker's checkpointing.
const blocktrackerKeyPrefix = "blocktracker"

// blocktrackerCheckpointKey constructs the Redis key storing the latest
// accepted block height for a specific network. The format is:
//
//	"blocktracker:checkpoint:<network>"
func blocktrackerCheckpointKey(network string) string {
	return fmt.Sprintf("%s:checkpoint:%s", blocktrackerKeyPrefix, network)
}

// SaveCheckpoint persists the height of the most recently accepted block
// header for the given network, overwriting any previous value. The key has
// no expiration: a tracker restarted weeks later still resumes from it.
func (c *client) SaveCheckpoint(ctx context.Context, network string, height types.Hex) error {
	key := blocktrackerCheckpointKey(network)
	return c.conn.Set(ctx, key, string(height), 0).Err()
}

// LoadLatestCheckpoint retrieves the most recently saved checkpoint for the
// given network, or blocktracker.ErrNoCheckpointFound if none exists yet.
func (c *client) LoadLatestCheckpoint(ctx context.Context, network string) (types.Hex, error) {
	key := blocktrackerCheckpointKey(network)

	val, err := c.conn.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			err = blocktracker.ErrNoCheckpointFound
		}

		return "", err
	}

	return types.HexFromString(val)
}

// Compile-time assertion that client implements the CheckpointStorage interface.
var _ blocktracker.CheckpointStorage = new(client)
