package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gabapcia/txwatch/internal/blocktracker"
	"github.com/gabapcia/txwatch/internal/pkg/logger"

	"github.com/urfave/cli/v3"
)

// streamHeadsCommand returns a CLI command that starts the block tracker and
// logs every block-arrival and reorganization event it emits.
//
// Usage example:
//
//	txwatch heads
//
// The process runs indefinitely until it receives an interrupt (SIGINT or SIGTERM).
func streamHeadsCommand(tracker blocktracker.Service) *cli.Command {
	return &cli.Command{
		Name:        "heads",
		Description: "Stream ordered block-arrival and reorganization events from the tracked chain.",
		Usage:       "Follows the chain tip. Terminates gracefully on Ctrl+C or termination signals.",
		Action: func(ctx context.Context, c *cli.Command) error {
			quit := make(chan os.Signal, 1)
			defer close(quit)

			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

			detach := tracker.Attach(logHeadEvent)
			defer detach()

			if err := tracker.Start(ctx); err != nil {
				return err
			}
			defer tracker.Close()

			<-quit
			return nil
		},
	}
}

// logHeadEvent logs a single tracker event.
func logHeadEvent(ctx context.Context, ev blocktracker.Event) {
	switch {
	case ev.Block != nil:
		logger.Info(ctx, "new block",
			"block.height", ev.Block.Number,
			"block.hash", ev.Block.Hash,
		)
	case ev.Reorg != nil:
		logger.Warn(ctx, "chain reorganization",
			"reorg.ancestor", ev.Reorg.CommonAncestor.Hash,
			"reorg.detached", len(ev.Reorg.Detached),
			"reorg.attached", len(ev.Reorg.Attached),
		)
	}
}
