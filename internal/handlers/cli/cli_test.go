package cli

import (
	"context"
	"os"
	"testing"

	"github.com/gabapcia/txwatch/internal/blocktracker"
	"github.com/gabapcia/txwatch/internal/pkg/logger"
	"github.com/gabapcia/txwatch/internal/txlifecycle"
	"github.com/gabapcia/txwatch/internal/txmanager"

	"github.com/stretchr/testify/assert"
)

func init() {
	_ = logger.Init(logger.WithLevel("error")) // Use error level to reduce test output
}

// trackerStub satisfies blocktracker.Service without touching a node.
type trackerStub struct {
	startErr error
}

func (s *trackerStub) Start(_ context.Context) error        { return s.startErr }
func (s *trackerStub) Close()                               {}
func (s *trackerStub) Attach(_ blocktracker.Handler) func() { return func() {} }
func (s *trackerStub) Latest() blocktracker.Header          { return blocktracker.Header{} }

// nodeStub satisfies txmanager.Node; the CLI tests never reach submission.
type nodeStub struct{}

func (nodeStub) SubmitRawTransaction(_ context.Context, _ string) (string, error) {
	return "0xhash", nil
}

func (nodeStub) SubmitTransaction(_ context.Context, _ txmanager.Transaction) (string, error) {
	return "0xhash", nil
}

func (nodeStub) TransactionReceipt(_ context.Context, _ string) (txlifecycle.Receipt, error) {
	return txlifecycle.Receipt{}, txmanager.ErrReceiptNotAvailable
}

func TestRun(t *testing.T) {
	// Save original os.Args to restore after tests
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
	}()

	t.Run("help runs without error", func(t *testing.T) {
		tracker := new(trackerStub)
		manager := txmanager.New(nodeStub{}, tracker)

		os.Args = []string{"txwatch", "--help"}

		err := Run(t.Context(), tracker, manager)
		assert.NoError(t, err)
	})

	t.Run("send surfaces a tracker start failure", func(t *testing.T) {
		tracker := &trackerStub{startErr: assert.AnError}
		manager := txmanager.New(nodeStub{}, tracker)

		os.Args = []string{"txwatch", "send", "--raw", "0xsigned"}

		err := Run(t.Context(), tracker, manager)
		assert.ErrorIs(t, err, assert.AnError)
	})
}
