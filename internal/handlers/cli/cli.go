package cli

import (
	"context"
	"os"

	"github.com/gabapcia/txwatch/internal/blocktracker"
	"github.com/gabapcia/txwatch/internal/txmanager"

	"github.com/urfave/cli/v3"
)

// Run initializes and executes the txwatch CLI application.
//
// It registers all available commands, including:
//
//   - `send`: Submits a transaction and follows its lifecycle to finality.
//   - `heads`: Streams block-arrival and reorganization events.
//
// Parameters:
//   - ctx: Context used to control the lifecycle of the CLI application.
//   - tracker: The block tracker supplying the ordered block feed.
//   - manager: The transaction manager used by the send command.
func Run(ctx context.Context, tracker blocktracker.Service, manager *txmanager.Manager) error {
	app := &cli.Command{
		EnableShellCompletion: true,
		Name:                  "txwatch",
		Description:           "Command-line interface for submitting transactions and tracking them to finality.",
		Usage:                 "txwatch [command] [flags]",
		Commands: []*cli.Command{
			sendTransactionCommand(tracker, manager),
			streamHeadsCommand(tracker),
		},
	}

	return app.Run(ctx, os.Args)
}
