package blocktracker

import "github.com/gabapcia/txwatch/internal/pkg/types"

// Header is the subset of a block header the tracker needs to maintain chain
// continuity: its height, its hash, and the hash of the block it builds on.
type Header struct {
	Number     types.Hex // block height represented as a hex string
	Hash       string    // unique block hash
	ParentHash string    // hash of the parent block
}

// IsZero reports whether the header is the zero value.
func (h Header) IsZero() bool {
	return h.Hash == "" && h.ParentHash == "" && h.Number == ""
}

// Reorg describes a chain reorganization observed by the tracker.
//
// Detached holds the previously accepted headers that are no longer on the
// canonical chain, ordered ascending by height. Attached holds the headers of
// the branch that replaced them, also ascending. CommonAncestor is the last
// header shared by both branches; it is the zero value when the
// reorganization reached beyond the tracker's retained history.
type Reorg struct {
	CommonAncestor Header
	Detached       []Header
	Attached       []Header
}

// DetachedHashes returns the set of block hashes that left the canonical
// chain, for membership checks by consumers deciding whether a mined
// transaction was reorged out.
func (r Reorg) DetachedHashes() types.Set[string] {
	hashes := types.NewSet[string]()
	for _, h := range r.Detached {
		hashes.Add(h.Hash)
	}
	return hashes
}

// Event is a single tracker notification. Exactly one of Block and Reorg is
// set. Events are totally ordered per tracker: every attached handler observes
// them in the same order, and each event is handled to completion by all
// handlers before the next one is dispatched.
type Event struct {
	Block *Header // set for block-arrival events
	Reorg *Reorg  // set for reorganization events
}
