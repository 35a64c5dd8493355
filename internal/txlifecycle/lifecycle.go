// Package txlifecycle implements the per-transaction state machine that
// records a tracked transaction's progress from submission to finality.
//
// A Lifecycle is created by the transaction manager for every send attempt and
// advances exclusively through the transition operations defined here. Each
// successful transition emits one typed event to every subscriber, and a
// terminal transition is followed by exactly one EventDone before all
// subscriber channels are closed.
//
// The state machine is payload-agnostic: the tracked transaction is carried as
// an opaque value so the package has no dependency on how a transaction is
// modeled or signed.
package txlifecycle

import (
	"sync"

	"github.com/gabapcia/txwatch/internal/pkg/types"
)

// Receipt is the node's record of a mined transaction.
type Receipt struct {
	TxHash      string    // hash of the mined transaction
	BlockHash   string    // hash of the block that included it
	BlockNumber types.Hex // height of that block
	Status      types.Hex // "0x1" on successful execution, "0x0" on revert
	GasUsed     types.Hex // gas consumed by the execution
}

// Succeeded reports whether the on-chain execution completed without error.
func (r Receipt) Succeeded() bool {
	return r.Status.Int() == 1
}

// Lifecycle tracks a single transaction through the stages defined in this
// package.
//
// All mutation happens through the Set* transition operations, which serialize
// on an internal mutex: concurrent callers (the manager's block handler and a
// user driving a transition by hand) never observe a half-applied transition.
// Transitions are not idempotent; re-applying one fails with
// *InvalidTransitionError.
type Lifecycle struct {
	mu sync.Mutex

	tx                    any
	stage                 Stage
	txHash                string
	receipt               *Receipt
	confirmationsRequired int
	confirmationCount     int

	subscribers []chan Event
}

// New creates a Lifecycle in StageUnsubmitted for the given transaction.
//
// confirmationsRequired is the number of blocks that must be built on top of
// the mined block before the transaction counts as final; negative values are
// treated as zero (confirm immediately on mining).
func New(tx any, confirmationsRequired int) *Lifecycle {
	if confirmationsRequired < 0 {
		confirmationsRequired = 0
	}

	return &Lifecycle{
		tx:                    tx,
		stage:                 StageUnsubmitted,
		confirmationsRequired: confirmationsRequired,
	}
}

// transition validates the move to desired against the transition table and,
// on success, applies it and emits the stage event followed by EventDone (and
// subscriber-channel close) when desired is terminal. Callers must hold l.mu.
func (l *Lifecycle) transition(desired Stage, ev Event) error {
	allowed := false
	for _, from := range allowedTransitions[desired] {
		if l.stage == from {
			allowed = true
			break
		}
	}
	if !allowed {
		return newInvalidTransitionError(l.stage, desired)
	}

	l.stage = desired
	l.emit(ev)

	if desired.IsTerminal() {
		l.emit(Event{Kind: EventDone})
		l.closeSubscribers()
	}

	return nil
}

// SetSubmitted records that the node accepted the transaction under the given
// hash. Valid only from StageUnsubmitted.
func (l *Lifecycle) SetSubmitted(hash string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.transition(StageSubmitted, Event{Kind: EventSubmitted, Hash: hash}); err != nil {
		return err
	}

	l.txHash = hash
	return nil
}

// SetFailedToSubmit records that submission failed with the given error.
// Valid only from StageUnsubmitted. Terminal.
func (l *Lifecycle) SetFailedToSubmit(submitErr error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.transition(StageFailedToSubmit, Event{Kind: EventFailedToSubmit, Err: submitErr})
}

// SetMined records the receipt of the block that included the transaction and
// resets the confirmation count. Valid only from StageSubmitted.
func (l *Lifecycle) SetMined(receipt Receipt) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stage != StageSubmitted {
		return newInvalidTransitionError(l.stage, StageMined)
	}

	l.receipt = &receipt
	l.confirmationCount = 0
	return l.transition(StageMined, Event{Kind: EventMined, Receipt: &receipt})
}

// SetConfirmed marks the transaction as final and successful. Valid only from
// StageMined. Terminal.
func (l *Lifecycle) SetConfirmed() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.transition(StageConfirmed, Event{Kind: EventConfirmed, Receipt: l.receipt})
}

// SetConfirmedWithError marks the transaction as final but failed on-chain
// (for example, execution reverted). Valid only from StageMined. Terminal.
func (l *Lifecycle) SetConfirmedWithError(execErr error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.transition(StageConfirmedWithError, Event{Kind: EventConfirmedWithError, Receipt: l.receipt, Err: execErr})
}

// SetReorgedOut marks the transaction's mined block as no longer canonical.
// Valid only from StageMined. Terminal.
func (l *Lifecycle) SetReorgedOut() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.transition(StageReorgedOut, Event{Kind: EventReorgedOut})
}

// IncrementConfirmations adds one observed confirmation and reports the new
// count. It does not change the stage: deciding when the count is sufficient
// is the manager's job.
func (l *Lifecycle) IncrementConfirmations() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.confirmationCount++
	return l.confirmationCount
}

// Stage returns the lifecycle's current stage.
func (l *Lifecycle) Stage() Stage {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.stage
}

// Transaction returns the transaction this lifecycle tracks, as supplied to
// New. Callers that created the lifecycle know its concrete type.
func (l *Lifecycle) Transaction() any {
	return l.tx
}

// TxHash returns the hash assigned at submission, or the empty string if the
// transaction was never submitted.
func (l *Lifecycle) TxHash() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.txHash
}

// Receipt returns the mined receipt, or nil while the lifecycle has not
// reached StageMined.
func (l *Lifecycle) Receipt() *Receipt {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.receipt
}

// ConfirmationsRequired returns the confirmation target fixed at construction.
func (l *Lifecycle) ConfirmationsRequired() int {
	return l.confirmationsRequired
}

// ConfirmationCount returns the number of confirmations observed so far.
func (l *Lifecycle) ConfirmationCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.confirmationCount
}

// MinedBlock returns the height and hash of the block that included the
// transaction. Both are zero values while the receipt is not set.
func (l *Lifecycle) MinedBlock() (types.Hex, string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.receipt == nil {
		return "", ""
	}
	return l.receipt.BlockNumber, l.receipt.BlockHash
}
