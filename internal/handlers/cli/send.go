package cli

import (
	"context"

	"github.com/gabapcia/txwatch/internal/blocktracker"
	"github.com/gabapcia/txwatch/internal/pkg/logger"
	"github.com/gabapcia/txwatch/internal/pkg/types"
	"github.com/gabapcia/txwatch/internal/txlifecycle"
	"github.com/gabapcia/txwatch/internal/txmanager"

	"github.com/urfave/cli/v3"
)

// sendTransactionCommand returns a CLI command that submits a transaction and
// follows its lifecycle events until it reaches a terminal stage.
//
// Usage examples:
//
//	txwatch send --raw 0xf86c...
//	txwatch send --from 0xABC... --to 0xDEF... --value 0xde0b6b3a7640000 --confirmations 3
func sendTransactionCommand(tracker blocktracker.Service, manager *txmanager.Manager) *cli.Command {
	return &cli.Command{
		Name:        "send",
		Description: "Submit a transaction and track it through mining, confirmation, and reorg detection.",
		Usage:       "Submits a raw or unsigned transaction and streams its lifecycle events until done.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "raw",
				Usage: "Raw signed transaction payload (submitted as-is)",
			},
			&cli.StringFlag{
				Name:  "from",
				Usage: "Sender designator: address, or index into the configured wallets",
			},
			&cli.StringFlag{
				Name:  "to",
				Usage: "Recipient address (empty for contract creation)",
			},
			&cli.StringFlag{
				Name:  "data",
				Usage: "Call data or contract bytecode, hex encoded",
			},
			&cli.StringFlag{
				Name:  "value",
				Usage: "Amount to transfer, hex encoded (e.g. 0xde0b6b3a7640000)",
			},
			&cli.StringFlag{
				Name:  "gas",
				Usage: "Gas limit, hex encoded",
			},
			&cli.StringFlag{
				Name:  "gas-price",
				Usage: "Gas price, hex encoded",
			},
			&cli.IntFlag{
				Name:  "confirmations",
				Usage: "Blocks that must build on top of the mined block before the transaction is final",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := tracker.Start(ctx); err != nil {
				return err
			}
			defer tracker.Close()

			tx := txmanager.Transaction{
				Raw:      c.String("raw"),
				From:     c.String("from"),
				To:       c.String("to"),
				Data:     c.String("data"),
				Value:    types.Hex(c.String("value")),
				Gas:      types.Hex(c.String("gas")),
				GasPrice: types.Hex(c.String("gas-price")),
			}

			lc, err := manager.Send(ctx, tx, txmanager.SigningContext{},
				txmanager.WithConfirmations(int(c.Int("confirmations"))),
			)
			if err != nil {
				return err
			}

			return followLifecycle(ctx, lc)
		},
	}
}

// followLifecycle logs every lifecycle event until the done event closes the
// subscription or the context is canceled.
func followLifecycle(ctx context.Context, lc *txlifecycle.Lifecycle) error {
	events, unsubscribe := lc.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}

			fields := []any{"tx.hash", lc.TxHash(), "tx.stage", lc.Stage().String()}
			if ev.Err != nil {
				fields = append(fields, "error", ev.Err)
			}
			if ev.Receipt != nil {
				fields = append(fields,
					"block.height", ev.Receipt.BlockNumber,
					"block.hash", ev.Receipt.BlockHash,
				)
			}

			logger.Info(ctx, "lifecycle event: "+ev.Kind.String(), fields...)
		}
	}
}
