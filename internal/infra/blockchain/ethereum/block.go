package ethereum

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gabapcia/txwatch/internal/blocktracker"
	"github.com/gabapcia/txwatch/internal/pkg/logger"
	"github.com/gabapcia/txwatch/internal/pkg/types"
)

const (
	// headerChannelBufferSize absorbs bursts when the poller catches up
	// several blocks at once.
	headerChannelBufferSize = 16

	// averageBlockTime defines the expected time between blocks in Ethereum
	// and paces the polling loop.
	averageBlockTime = 12 * time.Second
)

// ErrHeaderNotFound is returned when the node has no block for the requested
// hash or number.
var ErrHeaderNotFound = errors.New("block header not found")

// HeaderResponse represents the header fields of a block returned by the
// Ethereum JSON-RPC API. Transactions are not requested; the tracker only
// needs chain continuity data.
type HeaderResponse struct {
	Hash       string    `json:"hash"`
	ParentHash string    `json:"parentHash"`
	Number     types.Hex `json:"number"`
}

// toTrackerHeader converts a HeaderResponse to a blocktracker.Header.
func (h HeaderResponse) toTrackerHeader() blocktracker.Header {
	return blocktracker.Header{
		Number:     h.Number,
		Hash:       h.Hash,
		ParentHash: h.ParentHash,
	}
}

// getLatestBlockNumber fetches the latest block number from the node.
func (c *client) getLatestBlockNumber(ctx context.Context) (types.Hex, error) {
	data, err := c.conn.Fetch(ctx, "eth_blockNumber")
	if err != nil {
		return "", err
	}

	var blockNumber types.Hex
	return blockNumber, json.Unmarshal(data, &blockNumber)
}

// getHeaderByNumber retrieves a block header by its number, without the
// transaction bodies.
func (c *client) getHeaderByNumber(ctx context.Context, blockNumber types.Hex) (HeaderResponse, error) {
	data, err := c.conn.Fetch(ctx, "eth_getBlockByNumber", blockNumber, false)
	if err != nil {
		return HeaderResponse{}, err
	}

	if isNullResult(data) {
		return HeaderResponse{}, ErrHeaderNotFound
	}

	var header HeaderResponse
	return header, json.Unmarshal(data, &header)
}

// HeaderByHash implements blocktracker.HeaderSource. The tracker uses it to
// walk a new branch back to the common ancestor during reorg resolution.
func (c *client) HeaderByHash(ctx context.Context, hash string) (blocktracker.Header, error) {
	data, err := c.conn.Fetch(ctx, "eth_getBlockByHash", hash, false)
	if err != nil {
		return blocktracker.Header{}, err
	}

	if isNullResult(data) {
		return blocktracker.Header{}, ErrHeaderNotFound
	}

	var header HeaderResponse
	if err := json.Unmarshal(data, &header); err != nil {
		return blocktracker.Header{}, err
	}

	return header.toTrackerHeader(), nil
}

// pollNewHeaders fetches and emits every header from fromBlockNumber up to
// the node's latest block number, in ascending order.
//
// Fetch failures are logged and leave the cursor untouched, so the failed
// range is retried on the next polling tick. It returns the block number the
// next iteration should start from.
func (c *client) pollNewHeaders(ctx context.Context, fromBlockNumber types.Hex, headerCh chan<- blocktracker.Header) types.Hex {
	latestBlockNumber, err := c.getLatestBlockNumber(ctx)
	if err != nil {
		logger.Error(ctx, "failed to fetch latest block number", "error", err)
		return fromBlockNumber
	}

	currentBlockNumber := fromBlockNumber
	for currentBlockNumber.Int() <= latestBlockNumber.Int() {
		header, err := c.getHeaderByNumber(ctx, currentBlockNumber)
		if err != nil {
			logger.Error(ctx, "failed to fetch block header",
				"block.height", currentBlockNumber,
				"error", err,
			)
			return currentBlockNumber
		}

		select {
		case <-ctx.Done():
			return currentBlockNumber
		case headerCh <- header.toTrackerHeader():
		}

		currentBlockNumber = currentBlockNumber.Add(1)
	}

	return latestBlockNumber.Add(1)
}

// Subscribe implements blocktracker.HeaderSource. It polls the node for new
// block headers starting from fromHeight, or from the latest block when
// fromHeight is empty. The returned channel is closed when ctx is canceled.
func (c *client) Subscribe(ctx context.Context, fromHeight types.Hex) (<-chan blocktracker.Header, error) {
	if fromHeight.IsEmpty() {
		latestBlockNumber, err := c.getLatestBlockNumber(ctx)
		if err != nil {
			return nil, err
		}

		fromHeight = latestBlockNumber
	}

	headerCh := make(chan blocktracker.Header, headerChannelBufferSize)
	go func() {
		defer close(headerCh)

		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(averageBlockTime):
				fromHeight = c.pollNewHeaders(ctx, fromHeight, headerCh)
			}
		}
	}()

	return headerCh, nil
}

// isNullResult reports whether the JSON-RPC result is absent: some nodes
// answer "null" for unknown blocks and pending receipts instead of an error.
func isNullResult(data json.RawMessage) bool {
	return len(data) == 0 || string(data) == "null"
}
