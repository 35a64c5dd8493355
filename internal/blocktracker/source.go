package blocktracker

import (
	"context"

	"github.com/gabapcia/txwatch/internal/pkg/types"
)

// HeaderSource is the node-facing collaborator that supplies raw block
// headers. Implementations deliver headers in the order the node observed
// them; the tracker does not assume the feed is gap-free or race-free on
// delivery, only that each header is well formed.
type HeaderSource interface {
	// Subscribe begins streaming new block headers starting from fromHeight
	// (inclusive). If fromHeight is the zero value, the implementation
	// should start from the latest block it knows about.
	//
	// The returned channel is closed when ctx is canceled.
	Subscribe(ctx context.Context, fromHeight types.Hex) (<-chan Header, error)

	// HeaderByHash fetches a single header by its block hash. The tracker
	// uses it to walk back along a new branch while resolving a
	// reorganization.
	HeaderByHash(ctx context.Context, hash string) (Header, error)
}
