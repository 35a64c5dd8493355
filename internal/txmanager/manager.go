// Package txmanager orchestrates the life of a submitted transaction: it
// decides whether local signing is needed, submits through the node
// collaborator, and drives each transaction's lifecycle by counting
// confirmations and detecting reorganizations against the ordered block feed.
//
// Send never surfaces post-submission outcomes through its error return:
// submission failure, mining, confirmation, and reorg-out are all observable
// exclusively through the returned lifecycle's events. The only error Send
// itself reports is a local signing failure, because at that point no
// lifecycle exists yet.
package txmanager

import (
	"context"
	"errors"
	"fmt"

	"github.com/gabapcia/txwatch/internal/pkg/logger"
	"github.com/gabapcia/txwatch/internal/txlifecycle"
)

// ErrResubmitNotAllowed is returned by Resubmit when the lifecycle is not in
// the reorged-out stage. Resubmission is an explicit caller decision and only
// makes sense for transactions the chain dropped.
var ErrResubmitNotAllowed = errors.New("resubmission requires a reorged-out lifecycle")

// ErrForeignLifecycle is returned by Resubmit when the lifecycle does not
// carry a transaction created through this package.
var ErrForeignLifecycle = errors.New("lifecycle does not track a txmanager transaction")

// Manager tracks transactions from submission through finality. One manager
// serves many concurrent sends against a single shared head stream.
type Manager struct {
	node       Node
	signer     Signer
	heads      HeadStream
	stageStore StageStore

	defaultConfirmations int
}

// config holds the manager's optional settings.
type config struct {
	signer               Signer
	stageStore           StageStore
	defaultConfirmations int
}

// Option configures the manager at construction.
type Option func(*config)

// WithSigner enables local signing through the given collaborator. Without
// it, every unsigned transaction is left for the node to sign remotely.
func WithSigner(s Signer) Option {
	return func(c *config) {
		c.signer = s
	}
}

// WithStageStore mirrors every lifecycle transition into the given store.
// Default: no persistence.
func WithStageStore(ss StageStore) Option {
	return func(c *config) {
		c.stageStore = ss
	}
}

// WithDefaultConfirmations sets the confirmation target applied to sends that
// do not specify their own. Default: 0, meaning a transaction is confirmed as
// soon as it is mined.
func WithDefaultConfirmations(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.defaultConfirmations = n
		}
	}
}

// New creates a Manager submitting through node and counting confirmations
// against heads.
func New(node Node, heads HeadStream, opts ...Option) *Manager {
	cfg := config{
		signer:               nil,
		stageStore:           nopStageStore{},
		defaultConfirmations: 0,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Manager{
		node:                 node,
		signer:               cfg.signer,
		heads:                heads,
		stageStore:           cfg.stageStore,
		defaultConfirmations: cfg.defaultConfirmations,
	}
}

// sendConfig holds per-send settings.
type sendConfig struct {
	confirmations int
}

// SendOption configures a single send call.
type SendOption func(*sendConfig)

// WithConfirmations overrides the manager's default confirmation target for
// one send.
func WithConfirmations(n int) SendOption {
	return func(c *sendConfig) {
		if n >= 0 {
			c.confirmations = n
		}
	}
}

// Send signs (if needed and possible), submits the transaction, and returns
// the lifecycle tracking it.
//
// Signing happens synchronously: a signing failure returns a nil lifecycle
// and an error wrapping ErrSigningFailed. Submission happens in the
// background; its outcome, success or failure, is delivered through the
// lifecycle. The confirmation handler is attached to the head stream exactly
// once per lifecycle before submission starts, so no block event can be
// missed between submission and tracking.
func (m *Manager) Send(ctx context.Context, tx Transaction, sigCtx SigningContext, opts ...SendOption) (*txlifecycle.Lifecycle, error) {
	cfg := sendConfig{confirmations: m.defaultConfirmations}
	for _, opt := range opts {
		opt(&cfg)
	}

	if !tx.Signed() && m.signer != nil {
		wallet, found := sigCtx.resolve(tx.From)
		if found {
			signed, err := m.signer.Sign(ctx, tx, wallet.PrivateKey)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrSigningFailed, err)
			}
			tx = signed
		}
	}

	lc := txlifecycle.New(tx, cfg.confirmations)

	w := m.newWatcher(ctx, lc)
	go m.submit(ctx, lc, tx, w)

	return lc, nil
}

// Resubmit re-enters the send path with the transaction of a reorged-out
// lifecycle, producing a fresh lifecycle. A reorged-out transaction is never
// resubmitted automatically; this is the explicit caller-invoked path.
func (m *Manager) Resubmit(ctx context.Context, lc *txlifecycle.Lifecycle, sigCtx SigningContext, opts ...SendOption) (*txlifecycle.Lifecycle, error) {
	if stage := lc.Stage(); stage != txlifecycle.StageReorgedOut {
		return nil, fmt.Errorf("%w: lifecycle is %q", ErrResubmitNotAllowed, stage)
	}

	tx, ok := lc.Transaction().(Transaction)
	if !ok {
		return nil, ErrForeignLifecycle
	}

	return m.Send(ctx, tx, sigCtx, opts...)
}

// submit pushes the transaction to the node, choosing the RPC method purely
// from the shape of the value being submitted: a signed transaction goes out
// as its raw payload, an unsigned one goes out field-by-field for remote
// signing.
func (m *Manager) submit(ctx context.Context, lc *txlifecycle.Lifecycle, tx Transaction, w *watcher) {
	var (
		hash string
		err  error
	)
	if tx.Signed() {
		hash, err = m.node.SubmitRawTransaction(ctx, tx.Raw)
	} else {
		hash, err = m.node.SubmitTransaction(ctx, tx)
	}

	if err != nil {
		logger.Warn(ctx, "transaction submission failed", "error", err)

		if terr := lc.SetFailedToSubmit(err); terr != nil {
			logger.Error(ctx, "failed to record submission failure", "error", terr)
		}
		w.stop()
		return
	}

	if terr := lc.SetSubmitted(hash); terr != nil {
		logger.Error(ctx, "failed to record submission", "tx.hash", hash, "error", terr)
	}
}
