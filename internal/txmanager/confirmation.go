package txmanager

import (
	"context"
	"errors"
	"sync"

	"github.com/gabapcia/txwatch/internal/blocktracker"
	"github.com/gabapcia/txwatch/internal/pkg/logger"
	"github.com/gabapcia/txwatch/internal/txlifecycle"
)

// watcher drives one lifecycle from the shared head stream: it polls for the
// receipt while the transaction is submitted, counts confirmations once it is
// mined, and reacts to reorganizations that detach the mined block.
//
// Handlers run on the tracker's single dispatch goroutine, so the watcher
// itself needs no locking beyond what the lifecycle provides; the transitions
// it applies can still race with user-driven ones, which is why every
// transition error below is tolerated rather than treated as fatal.
type watcher struct {
	m  *Manager
	lc *txlifecycle.Lifecycle

	attachOnce sync.Once
	detach     func()
}

// newWatcher attaches the confirmation handler for lc to the head stream,
// exactly once, and starts mirroring lifecycle transitions into the stage
// store. The returned watcher is already active.
func (m *Manager) newWatcher(ctx context.Context, lc *txlifecycle.Lifecycle) *watcher {
	w := &watcher{m: m, lc: lc}

	// Guard against duplicate attachment: a second registration would
	// double-count every confirmation.
	w.attachOnce.Do(func() {
		w.detach = m.heads.Attach(w.handle)
	})

	events, _ := lc.Subscribe()
	go w.mirror(ctx, events)

	return w
}

// stop detaches the handler from the head stream. Safe to call more than
// once.
func (w *watcher) stop() {
	if w.detach != nil {
		w.detach()
	}
}

// mirror persists each lifecycle transition to the stage store and detaches
// the block handler when the lifecycle completes, so finished transactions do
// not leak block-event subscriptions.
func (w *watcher) mirror(ctx context.Context, events <-chan txlifecycle.Event) {
	for ev := range events {
		stage, ok := stageForEvent(ev.Kind)
		if !ok {
			continue
		}

		hash := w.lc.TxHash()
		if hash == "" {
			continue
		}

		if err := w.m.stageStore.SaveStage(ctx, hash, stage); err != nil {
			logger.Error(ctx, "failed to persist lifecycle stage",
				"tx.hash", hash,
				"tx.stage", stage,
				"error", err,
			)
		}
	}

	// Channel closed: the lifecycle reached a terminal stage.
	w.stop()
}

// stageForEvent maps a stage-specific lifecycle event to the stage it
// announces. EventDone carries no stage of its own.
func stageForEvent(kind txlifecycle.EventKind) (txlifecycle.Stage, bool) {
	switch kind {
	case txlifecycle.EventSubmitted:
		return txlifecycle.StageSubmitted, true
	case txlifecycle.EventFailedToSubmit:
		return txlifecycle.StageFailedToSubmit, true
	case txlifecycle.EventMined:
		return txlifecycle.StageMined, true
	case txlifecycle.EventConfirmed:
		return txlifecycle.StageConfirmed, true
	case txlifecycle.EventConfirmedWithError:
		return txlifecycle.StageConfirmedWithError, true
	case txlifecycle.EventReorgedOut:
		return txlifecycle.StageReorgedOut, true
	}
	return 0, false
}

// handle processes one tracker event for this watcher's lifecycle.
func (w *watcher) handle(ctx context.Context, ev blocktracker.Event) {
	if w.lc.Stage().IsTerminal() {
		w.stop()
		return
	}

	switch {
	case ev.Block != nil:
		w.onBlock(ctx, *ev.Block)
	case ev.Reorg != nil:
		w.onReorg(ctx, *ev.Reorg)
	}
}

// onBlock advances the lifecycle for a newly accepted block: while submitted,
// it polls for the receipt; while mined, it counts the block as a
// confirmation if it is strictly above the mined height.
func (w *watcher) onBlock(ctx context.Context, header blocktracker.Header) {
	switch w.lc.Stage() {
	case txlifecycle.StageSubmitted:
		w.pollReceipt(ctx)

	case txlifecycle.StageMined:
		minedHeight, _ := w.lc.MinedBlock()
		if header.Number.Cmp(minedHeight) <= 0 {
			return
		}

		if w.lc.IncrementConfirmations() >= w.lc.ConfirmationsRequired() {
			w.finalize(ctx)
		}
	}
}

// pollReceipt asks the node for the transaction's receipt and, when present,
// records the mined block. With a zero confirmation target the lifecycle is
// finalized immediately.
func (w *watcher) pollReceipt(ctx context.Context) {
	hash := w.lc.TxHash()
	if hash == "" {
		return
	}

	receipt, err := w.m.node.TransactionReceipt(ctx, hash)
	if errors.Is(err, ErrReceiptNotAvailable) {
		return
	}
	if err != nil {
		logger.Error(ctx, "failed to fetch transaction receipt",
			"tx.hash", hash,
			"error", err,
		)
		return
	}

	if terr := w.lc.SetMined(receipt); terr != nil {
		// Lost a race with an externally driven transition; nothing to do.
		logger.Debug(ctx, "skipping mined transition", "tx.hash", hash, "error", terr)
		return
	}

	if w.lc.ConfirmationsRequired() == 0 {
		w.finalize(ctx)
	}
}

// finalize confirms the lifecycle, distinguishing on-chain success from
// reverted execution through the receipt status.
func (w *watcher) finalize(ctx context.Context) {
	var terr error
	if receipt := w.lc.Receipt(); receipt != nil && !receipt.Succeeded() {
		terr = w.lc.SetConfirmedWithError(ErrExecutionReverted)
	} else {
		terr = w.lc.SetConfirmed()
	}

	if terr != nil {
		logger.Debug(ctx, "skipping confirmation transition",
			"tx.hash", w.lc.TxHash(),
			"error", terr,
		)
	}
}

// onReorg marks the lifecycle reorged-out when its mined block is among the
// detached ones. A lifecycle that already reached a terminal stage is never
// changed retroactively; handle filters those before this point, and the
// transition precondition backstops any race.
func (w *watcher) onReorg(ctx context.Context, reorg blocktracker.Reorg) {
	if w.lc.Stage() != txlifecycle.StageMined {
		return
	}

	_, minedHash := w.lc.MinedBlock()
	if minedHash == "" || !reorg.DetachedHashes().Contains(minedHash) {
		return
	}

	if terr := w.lc.SetReorgedOut(); terr != nil {
		logger.Debug(ctx, "skipping reorged-out transition",
			"tx.hash", w.lc.TxHash(),
			"error", terr,
		)
	}
}
