package redis

import (
	"context"
	"fmt"

	"github.com/gabapcia/txwatch/internal/txlifecycle"
	"github.com/gabapcia/txwatch/internal/txmanager"
)

// txmanagerKeyPrefix is the namespace prefix for every key related to tracked
// transaction stages.
const txmanagerKeyPrefix = "txmanager"

// transactionStageKey constructs the Redis key mirroring the current
// lifecycle stage of a tracked transaction. The format is:
//
//	"txmanager:stage:<txHash>"
func transactionStageKey(txHash string) string {
	return fmt.Sprintf("%s:stage:%s", txmanagerKeyPrefix, txHash)
}

// SaveStage mirrors a lifecycle transition into Redis, keyed by transaction
// hash. Each write overwrites the previous stage, so the key always holds the
// latest one.
func (c *client) SaveStage(ctx context.Context, txHash string, stage txlifecycle.Stage) error {
	key := transactionStageKey(txHash)
	return c.conn.Set(ctx, key, stage.String(), 0).Err()
}

// Compile-time assertion that client implements the StageStore interface.
var _ txmanager.StageStore = new(client)
