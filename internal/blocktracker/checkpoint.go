package blocktracker

import (
	"context"
	"errors"

	"github.com/gabapcia/txwatch/internal/pkg/types"
)

// ErrNoCheckpointFound is returned by LoadLatestCheckpoint when no checkpoint
// has been saved yet for the requested network.
var ErrNoCheckpointFound = errors.New("no checkpoint found for network")

// CheckpointStorage persists and retrieves the height of the most recently
// accepted block header, so a restarted tracker can resume its feed near the
// tip instead of from the latest block only.
type CheckpointStorage interface {
	// SaveCheckpoint records the given block height as the latest checkpoint
	// for the specified network. Calling it again for the same network
	// overwrites any previous checkpoint.
	SaveCheckpoint(ctx context.Context, network string, height types.Hex) error

	// LoadLatestCheckpoint returns the most recent block height saved for
	// the specified network, or ErrNoCheckpointFound if none exists.
	LoadLatestCheckpoint(ctx context.Context, network string) (types.Hex, error)
}

// nopCheckpoint is the default CheckpointStorage: it persists nothing and
// always reports that no checkpoint exists.
type nopCheckpoint struct{}

// SaveCheckpoint accepts the checkpoint input but does not store anything.
func (nopCheckpoint) SaveCheckpoint(_ context.Context, _ string, _ types.Hex) error {
	return nil
}

// LoadLatestCheckpoint always returns ErrNoCheckpointFound.
func (nopCheckpoint) LoadLatestCheckpoint(_ context.Context, _ string) (types.Hex, error) {
	return "", ErrNoCheckpointFound
}
