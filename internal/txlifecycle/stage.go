package txlifecycle

import "fmt"

// Stage identifies where a tracked transaction currently is in its lifecycle.
//
// The zero value is StageUnsubmitted. Stages only ever advance along the
// transitions encoded in allowedTransitions; there is no way back.
type Stage int

const (
	// StageUnsubmitted is the initial stage: the transaction exists locally
	// but has not been handed to a node yet.
	StageUnsubmitted Stage = iota

	// StageSubmitted means the node accepted the transaction and returned
	// its hash, but it has not been included in a block.
	StageSubmitted

	// StageFailedToSubmit is a terminal stage: the node rejected the
	// submission (or the RPC call itself failed).
	StageFailedToSubmit

	// StageMined means the transaction is included in a block but has not
	// yet collected the required number of confirmations.
	StageMined

	// StageConfirmed is a terminal stage: the transaction collected the
	// required confirmations and executed successfully on-chain.
	StageConfirmed

	// StageConfirmedWithError is a terminal stage: the transaction collected
	// the required confirmations but its on-chain execution failed.
	StageConfirmedWithError

	// StageReorgedOut is a terminal stage: the block that contained the
	// transaction is no longer part of the canonical chain.
	StageReorgedOut
)

// allowedTransitions maps each desired stage to the set of stages it may be
// entered from. It is the single source of truth for lifecycle progression.
var allowedTransitions = map[Stage][]Stage{
	StageSubmitted:          {StageUnsubmitted},
	StageFailedToSubmit:     {StageUnsubmitted},
	StageMined:              {StageSubmitted},
	StageConfirmed:          {StageMined},
	StageConfirmedWithError: {StageMined},
	StageReorgedOut:         {StageMined},
}

// IsTerminal reports whether the stage ends the lifecycle. No transition is
// possible out of a terminal stage.
func (s Stage) IsTerminal() bool {
	switch s {
	case StageFailedToSubmit, StageConfirmed, StageConfirmedWithError, StageReorgedOut:
		return true
	}
	return false
}

// String returns the human-readable name of the stage.
func (s Stage) String() string {
	switch s {
	case StageUnsubmitted:
		return "unsubmitted"
	case StageSubmitted:
		return "submitted"
	case StageFailedToSubmit:
		return "failed-to-submit"
	case StageMined:
		return "mined"
	case StageConfirmed:
		return "confirmed"
	case StageConfirmedWithError:
		return "confirmed-with-error"
	case StageReorgedOut:
		return "reorged-out"
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// InvalidTransitionError reports an attempt to move a lifecycle into a stage
// that its current stage does not permit.
//
// This is a logic error on the caller's side: transitions are deliberately not
// idempotent, so applying the same operation twice always fails (a second
// "mined", for example, would silently overwrite the stored receipt).
type InvalidTransitionError struct {
	Current     Stage   // stage the lifecycle is currently in
	Desired     Stage   // stage the caller tried to enter
	AllowedFrom []Stage // stages from which Desired is reachable
}

// Error implements the error interface.
func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid lifecycle transition from %q to %q (reachable only from %v)",
		e.Current, e.Desired, e.AllowedFrom)
}

// newInvalidTransitionError builds an InvalidTransitionError for the given
// current and desired stages, filling AllowedFrom from the transition table.
func newInvalidTransitionError(current, desired Stage) *InvalidTransitionError {
	return &InvalidTransitionError{
		Current:     current,
		Desired:     desired,
		AllowedFrom: allowedTransitions[desired],
	}
}
