package txlifecycle

import (
	"errors"
	"testing"

	"github.com/gabapcia/txwatch/internal/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReceipt() Receipt {
	return Receipt{
		TxHash:      "0xtx",
		BlockHash:   "0xblock",
		BlockNumber: types.Hex("0x10"),
		Status:      types.Hex("0x1"),
		GasUsed:     types.Hex("0x5208"),
	}
}

func drain(ch <-chan Event) []Event {
	events := make([]Event, 0, len(ch))
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func TestLifecycle_HappyPath(t *testing.T) {
	t.Run("submitted, mined, confirmed", func(t *testing.T) {
		lc := New(nil, 0)
		events, _ := lc.Subscribe()

		require.NoError(t, lc.SetSubmitted("0xtx"))
		require.NoError(t, lc.SetMined(testReceipt()))
		require.NoError(t, lc.SetConfirmed())

		got := drain(events)
		require.Len(t, got, 4)
		assert.Equal(t, EventSubmitted, got[0].Kind)
		assert.Equal(t, "0xtx", got[0].Hash)
		assert.Equal(t, EventMined, got[1].Kind)
		require.NotNil(t, got[1].Receipt)
		assert.Equal(t, "0xblock", got[1].Receipt.BlockHash)
		assert.Equal(t, EventConfirmed, got[2].Kind)
		assert.Equal(t, EventDone, got[3].Kind)

		assert.Equal(t, StageConfirmed, lc.Stage())
		assert.Equal(t, "0xtx", lc.TxHash())
	})

	t.Run("failed to submit", func(t *testing.T) {
		lc := New(nil, 0)
		events, _ := lc.Subscribe()

		submitErr := errors.New("node unavailable")
		require.NoError(t, lc.SetFailedToSubmit(submitErr))

		got := drain(events)
		require.Len(t, got, 2)
		assert.Equal(t, EventFailedToSubmit, got[0].Kind)
		assert.ErrorIs(t, got[0].Err, submitErr)
		assert.Equal(t, EventDone, got[1].Kind)
		assert.Equal(t, StageFailedToSubmit, lc.Stage())
	})

	t.Run("confirmed with error", func(t *testing.T) {
		lc := New(nil, 0)

		require.NoError(t, lc.SetSubmitted("0xtx"))
		require.NoError(t, lc.SetMined(testReceipt()))

		execErr := errors.New("execution reverted")
		require.NoError(t, lc.SetConfirmedWithError(execErr))
		assert.Equal(t, StageConfirmedWithError, lc.Stage())
	})

	t.Run("reorged out", func(t *testing.T) {
		lc := New(nil, 0)

		require.NoError(t, lc.SetSubmitted("0xtx"))
		require.NoError(t, lc.SetMined(testReceipt()))
		require.NoError(t, lc.SetReorgedOut())
		assert.Equal(t, StageReorgedOut, lc.Stage())
	})
}

func TestLifecycle_InvalidTransitions(t *testing.T) {
	t.Run("mined before submitted", func(t *testing.T) {
		lc := New(nil, 0)

		err := lc.SetMined(testReceipt())
		require.Error(t, err)

		var transitionErr *InvalidTransitionError
		require.ErrorAs(t, err, &transitionErr)
		assert.Equal(t, StageUnsubmitted, transitionErr.Current)
		assert.Equal(t, StageMined, transitionErr.Desired)
		assert.Equal(t, []Stage{StageSubmitted}, transitionErr.AllowedFrom)

		assert.Nil(t, lc.Receipt())
	})

	t.Run("transitions are not idempotent", func(t *testing.T) {
		lc := New(nil, 0)

		require.NoError(t, lc.SetSubmitted("0xtx"))
		require.Error(t, lc.SetSubmitted("0xother"))
		assert.Equal(t, "0xtx", lc.TxHash())
	})

	t.Run("no way out of a terminal stage", func(t *testing.T) {
		lc := New(nil, 0)

		require.NoError(t, lc.SetSubmitted("0xtx"))
		require.NoError(t, lc.SetMined(testReceipt()))
		require.NoError(t, lc.SetConfirmed())

		require.Error(t, lc.SetConfirmed())
		require.Error(t, lc.SetReorgedOut())
		require.Error(t, lc.SetConfirmedWithError(errors.New("late")))
		assert.Equal(t, StageConfirmed, lc.Stage())
	})

	t.Run("confirm before mined", func(t *testing.T) {
		lc := New(nil, 0)

		require.NoError(t, lc.SetSubmitted("0xtx"))
		require.Error(t, lc.SetConfirmed())
		assert.Equal(t, StageSubmitted, lc.Stage())
	})
}

func TestLifecycle_Subscribe(t *testing.T) {
	t.Run("done fires exactly once and last", func(t *testing.T) {
		lc := New(nil, 0)
		events, _ := lc.Subscribe()

		require.NoError(t, lc.SetSubmitted("0xtx"))
		require.NoError(t, lc.SetMined(testReceipt()))
		require.NoError(t, lc.SetConfirmed())

		got := drain(events)
		doneCount := 0
		for i, ev := range got {
			if ev.Kind == EventDone {
				doneCount++
				assert.Equal(t, len(got)-1, i, "done must be the final event")
			}
		}
		assert.Equal(t, 1, doneCount)
	})

	t.Run("subscribe after terminal yields a closed channel", func(t *testing.T) {
		lc := New(nil, 0)
		require.NoError(t, lc.SetFailedToSubmit(errors.New("boom")))

		events, _ := lc.Subscribe()
		_, open := <-events
		assert.False(t, open)
	})

	t.Run("unsubscribe stops delivery without affecting others", func(t *testing.T) {
		lc := New(nil, 0)

		first, unsubscribe := lc.Subscribe()
		second, _ := lc.Subscribe()

		unsubscribe()
		unsubscribe() // idempotent

		require.NoError(t, lc.SetSubmitted("0xtx"))

		_, open := <-first
		assert.False(t, open)

		ev := <-second
		assert.Equal(t, EventSubmitted, ev.Kind)
	})
}

func TestLifecycle_Confirmations(t *testing.T) {
	t.Run("count starts at zero once mined", func(t *testing.T) {
		lc := New(nil, 3)

		require.NoError(t, lc.SetSubmitted("0xtx"))
		require.NoError(t, lc.SetMined(testReceipt()))

		assert.Equal(t, 3, lc.ConfirmationsRequired())
		assert.Equal(t, 0, lc.ConfirmationCount())
		assert.Equal(t, 1, lc.IncrementConfirmations())
		assert.Equal(t, 2, lc.IncrementConfirmations())
	})

	t.Run("negative requirement is clamped to zero", func(t *testing.T) {
		lc := New(nil, -1)
		assert.Equal(t, 0, lc.ConfirmationsRequired())
	})

	t.Run("mined block is exposed with the receipt", func(t *testing.T) {
		lc := New(nil, 0)

		height, hash := lc.MinedBlock()
		assert.True(t, height.IsEmpty())
		assert.Empty(t, hash)

		require.NoError(t, lc.SetSubmitted("0xtx"))
		require.NoError(t, lc.SetMined(testReceipt()))

		height, hash = lc.MinedBlock()
		assert.Equal(t, types.Hex("0x10"), height)
		assert.Equal(t, "0xblock", hash)
	})
}
