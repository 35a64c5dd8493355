// Package ethereum adapts an Ethereum-compatible JSON-RPC node to the
// boundaries the rest of the system depends on: the blocktracker.HeaderSource
// header feed and the txmanager.Node submission/receipt interface.
package ethereum

import (
	"github.com/gabapcia/txwatch/internal/blocktracker"
	"github.com/gabapcia/txwatch/internal/pkg/transport/jsonrpc"
	"github.com/gabapcia/txwatch/internal/txmanager"
)

// client talks to a single Ethereum-compatible node through a JSON-RPC
// connection.
type client struct {
	conn jsonrpc.Client // underlying JSON-RPC client
}

// Compile-time checks for the boundaries this adapter serves.
var (
	_ blocktracker.HeaderSource = (*client)(nil)
	_ txmanager.Node            = (*client)(nil)
)

// NewClient creates an Ethereum node adapter on top of the provided JSON-RPC
// connection.
func NewClient(conn jsonrpc.Client) *client {
	return &client{
		conn: conn,
	}
}
