package txmanager

import (
	"context"
	"errors"

	"github.com/gabapcia/txwatch/internal/blocktracker"
	"github.com/gabapcia/txwatch/internal/txlifecycle"
)

// ErrReceiptNotAvailable is returned by Node.TransactionReceipt while the
// transaction is known but not yet included in a block.
var ErrReceiptNotAvailable = errors.New("transaction receipt not yet available")

// ErrSigningFailed wraps any failure during local signing. Nothing has been
// submitted when it is returned, so there is no lifecycle to report through.
var ErrSigningFailed = errors.New("transaction signing failed")

// ErrExecutionReverted marks a transaction that was confirmed on-chain but
// whose execution failed.
var ErrExecutionReverted = errors.New("transaction execution reverted on-chain")

// Node is the RPC collaborator the manager submits through and polls receipts
// from. Implementations talk to a single node endpoint; endpoint selection is
// outside this package.
type Node interface {
	// SubmitRawTransaction sends an already signed, raw encoded payload and
	// returns the transaction hash assigned by the node.
	SubmitRawTransaction(ctx context.Context, raw string) (string, error)

	// SubmitTransaction sends an unsigned transaction for the node to sign
	// remotely and returns the transaction hash.
	SubmitTransaction(ctx context.Context, tx Transaction) (string, error)

	// TransactionReceipt returns the receipt for a submitted transaction,
	// or ErrReceiptNotAvailable while it has not been mined yet.
	TransactionReceipt(ctx context.Context, txHash string) (txlifecycle.Receipt, error)
}

// Signer is the cryptographic collaborator used for local signing. Given a
// transaction and a private key it returns a copy with the signature triple
// and raw encoded payload filled in. Key storage and the signature scheme are
// implementation concerns.
type Signer interface {
	Sign(ctx context.Context, tx Transaction, privateKey string) (Transaction, error)
}

// HeadStream is the ordered block feed the manager counts confirmations
// against. It is satisfied by blocktracker.Service.
type HeadStream interface {
	Attach(h blocktracker.Handler) (detach func())
}

// StageStore mirrors lifecycle transitions into external storage, keyed by
// transaction hash. Persistence failures never influence the lifecycle
// itself; they are logged and dropped.
type StageStore interface {
	SaveStage(ctx context.Context, txHash string, stage txlifecycle.Stage) error
}

// nopStageStore is the default StageStore: it records nothing.
type nopStageStore struct{}

// SaveStage accepts the transition but does not store anything.
func (nopStageStore) SaveStage(_ context.Context, _ string, _ txlifecycle.Stage) error {
	return nil
}
