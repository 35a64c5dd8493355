package txlifecycle

// EventKind identifies which lifecycle notification an Event carries.
type EventKind int

const (
	// EventSubmitted fires when the node accepts the transaction. Hash is set.
	EventSubmitted EventKind = iota

	// EventFailedToSubmit fires when submission fails. Err is set.
	EventFailedToSubmit

	// EventMined fires when the transaction is included in a block. Receipt is set.
	EventMined

	// EventConfirmed fires when the required confirmations are collected and
	// the transaction succeeded on-chain. Receipt is set.
	EventConfirmed

	// EventConfirmedWithError fires when the required confirmations are
	// collected but the transaction failed on-chain. Receipt and Err are set.
	EventConfirmedWithError

	// EventReorgedOut fires when the mined block left the canonical chain.
	EventReorgedOut

	// EventDone fires exactly once, after the terminal stage-specific event.
	// It is always the last event a lifecycle emits.
	EventDone
)

// String returns the human-readable name of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventSubmitted:
		return "submitted"
	case EventFailedToSubmit:
		return "failedToSubmit"
	case EventMined:
		return "mined"
	case EventConfirmed:
		return "confirmed"
	case EventConfirmedWithError:
		return "confirmedWithError"
	case EventReorgedOut:
		return "reorgedOut"
	case EventDone:
		return "done"
	}
	return "unknown"
}

// Event is a single lifecycle notification. Exactly the fields relevant to
// Kind are populated; the rest hold their zero values.
type Event struct {
	Kind    EventKind
	Hash    string   // transaction hash (EventSubmitted)
	Receipt *Receipt // mined receipt (EventMined, EventConfirmed, EventConfirmedWithError)
	Err     error    // failure detail (EventFailedToSubmit, EventConfirmedWithError)
}

// subscriberChannelCapacity bounds the number of events a single lifecycle can
// ever emit: at most submitted, mined, one terminal stage event, and done.
// Sized with headroom so emitting never blocks on a slow consumer.
const subscriberChannelCapacity = 8

// emit delivers ev to every active subscriber in registration order.
// Callers must hold l.mu. Channels are buffered beyond the maximum event
// count, so the sends below cannot block.
func (l *Lifecycle) emit(ev Event) {
	for _, sub := range l.subscribers {
		if sub == nil {
			continue
		}
		sub <- ev
	}
}

// closeSubscribers closes every active subscriber channel and drops the
// subscriber list. Callers must hold l.mu.
func (l *Lifecycle) closeSubscribers() {
	for _, sub := range l.subscribers {
		if sub != nil {
			close(sub)
		}
	}
	l.subscribers = nil
}

// Subscribe registers a new consumer for this lifecycle's events.
//
// It returns a buffered receive-only channel that observes every event emitted
// after the call, in emission order, and an unsubscribe function. The channel
// is closed after EventDone is delivered, or when the unsubscribe function is
// called. Unsubscribing is idempotent and does not affect other consumers.
//
// Subscribing to a lifecycle that already reached a terminal stage returns a
// channel that is already closed.
func (l *Lifecycle) Subscribe() (<-chan Event, func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch := make(chan Event, subscriberChannelCapacity)
	if l.stage.IsTerminal() {
		close(ch)
		return ch, func() {}
	}

	idx := len(l.subscribers)
	l.subscribers = append(l.subscribers, ch)

	unsubscribe := func() {
		l.mu.Lock()
		defer l.mu.Unlock()

		if idx < len(l.subscribers) && l.subscribers[idx] != nil {
			close(l.subscribers[idx])
			l.subscribers[idx] = nil
		}
	}

	return ch, unsubscribe
}
