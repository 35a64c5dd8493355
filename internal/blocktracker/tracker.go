// Package blocktracker maintains the locally known canonical chain tip from a
// raw stream of block headers and turns it into an ordered sequence of
// block-arrival and reorganization events.
//
// The tracker is the only block feed the transaction manager consumes:
// confirmation counting is correct only if blocks are observed in order with
// no event processed before the previous one finished, so the tracker drains
// headers one at a time through a single goroutine and runs every attached
// handler to completion before touching the next header.
package blocktracker

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/gabapcia/txwatch/internal/pkg/logger"
	"github.com/gabapcia/txwatch/internal/pkg/resilience/retry"
	"github.com/gabapcia/txwatch/internal/pkg/x/chflow"
)

// ErrServiceAlreadyStarted is returned if Start is called on a tracker that is
// already running.
var ErrServiceAlreadyStarted = errors.New("service already started")

// defaultHistoryLimit bounds how many accepted headers the tracker retains for
// the common-ancestor walk during reorganization handling. Reorganizations
// deeper than this window are resolved with an unknown ancestor.
const defaultHistoryLimit = 64

// Handler processes one tracker event. Handlers are invoked sequentially, in
// attach order, from the tracker's single drain goroutine; a handler must
// return before the next event is dispatched, so long-running work belongs in
// the handler's own goroutines.
type Handler func(ctx context.Context, ev Event)

// Service is the consumer-facing contract of the block tracker.
type Service interface {
	// Start subscribes to the header source and begins dispatching events.
	// It returns ErrServiceAlreadyStarted if called twice without Close.
	Start(ctx context.Context) error

	// Close stops the tracker and releases its subscription.
	Close()

	// Attach registers a handler for future events and returns a detach
	// function. Detaching stops future dispatches to that handler without
	// affecting other handlers; it is safe to call from within the handler
	// itself.
	Attach(h Handler) (detach func())

	// Latest returns the most recently accepted header, or the zero value
	// before the first block is seen.
	Latest() Header
}

type closeFunc func()

type service struct {
	mu        sync.Mutex
	isStarted bool
	closeFunc closeFunc

	network           string
	source            HeaderSource
	checkpointStorage CheckpointStorage
	retry             retry.Retry
	historyLimit      int

	handlersMu sync.Mutex
	handlers   []Handler

	stateMu sync.Mutex
	latest  Header
	history []Header
}

var _ Service = (*service)(nil)

// config holds the tracker's optional settings.
type config struct {
	checkpointStorage CheckpointStorage
	retry             retry.Retry
	historyLimit      int
}

// Option configures the tracker before it is created.
type Option func(*config)

// WithCheckpointStorage persists the height of each accepted header so a
// restarted tracker resumes from where it stopped. Default: no persistence.
func WithCheckpointStorage(cs CheckpointStorage) Option {
	return func(c *config) {
		c.checkpointStorage = cs
	}
}

// WithRetry retries header fetches performed during reorganization
// resolution. Default: single attempt.
func WithRetry(r retry.Retry) Option {
	return func(c *config) {
		c.retry = r
	}
}

// WithHistoryLimit sets how many accepted headers are retained for the
// common-ancestor walk. Default: 64.
func WithHistoryLimit(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.historyLimit = n
		}
	}
}

// New creates a tracker for the given network label and header source.
func New(network string, source HeaderSource, opts ...Option) *service {
	cfg := config{
		checkpointStorage: nopCheckpoint{},
		retry:             nil,
		historyLimit:      defaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &service{
		network:           network,
		source:            source,
		checkpointStorage: cfg.checkpointStorage,
		retry:             cfg.retry,
		historyLimit:      cfg.historyLimit,
	}
}

// Start loads the last checkpoint, subscribes to the header source from the
// block after it, and launches the drain goroutine.
func (s *service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isStarted {
		return ErrServiceAlreadyStarted
	}

	startHeight, err := s.checkpointStorage.LoadLatestCheckpoint(ctx, s.network)
	if err != nil && !errors.Is(err, ErrNoCheckpointFound) {
		return err
	}

	if !startHeight.IsEmpty() {
		startHeight = startHeight.Add(1)
	}

	ctx, cancel := context.WithCancel(ctx)

	headerCh, err := s.source.Subscribe(ctx, startHeight)
	if err != nil {
		cancel()
		return err
	}

	go s.drain(ctx, headerCh)

	s.closeFunc = closeFunc(cancel)
	s.isStarted = true
	return nil
}

// Close cancels the subscription and stops event dispatch. It is safe to call
// even if the tracker was never started.
func (s *service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closeFunc != nil {
		s.closeFunc()
	}
	s.closeFunc = nil
	s.isStarted = false
}

// Attach implements Service.
func (s *service) Attach(h Handler) func() {
	s.handlersMu.Lock()
	defer s.handlersMu.Unlock()

	idx := len(s.handlers)
	s.handlers = append(s.handlers, h)

	return func() {
		s.handlersMu.Lock()
		defer s.handlersMu.Unlock()

		if idx < len(s.handlers) {
			s.handlers[idx] = nil
		}
	}
}

// Latest implements Service.
func (s *service) Latest() Header {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	return s.latest
}

// dispatch runs every attached handler for ev, sequentially and to
// completion, preserving the tracker's total event order.
func (s *service) dispatch(ctx context.Context, ev Event) {
	s.handlersMu.Lock()
	handlers := slices.Clone(s.handlers)
	s.handlersMu.Unlock()

	for _, h := range handlers {
		if h != nil {
			h(ctx, ev)
		}
	}
}

// drain consumes raw headers one at a time until the channel closes or ctx is
// canceled. Because it is the only goroutine mutating chain state and
// dispatching events, bursts from the feed are processed strictly in arrival
// order.
func (s *service) drain(ctx context.Context, headerCh <-chan Header) {
	for {
		header, ok := chflow.Receive(ctx, headerCh)
		if !ok {
			return
		}

		s.processHeader(ctx, header)
	}
}

// processHeader applies a single raw header to the tracked chain: it either
// extends the tip, gets dropped as a duplicate, or triggers reorganization
// handling.
func (s *service) processHeader(ctx context.Context, header Header) {
	s.stateMu.Lock()
	extends := s.latest.IsZero() || header.ParentHash == s.latest.Hash
	known := s.indexOfLocked(header.Hash) >= 0
	s.stateMu.Unlock()

	if known {
		logger.Debug(ctx, "dropping already accepted header",
			"block.network", s.network,
			"block.height", header.Number,
			"block.hash", header.Hash,
		)
		return
	}

	if extends {
		s.accept(ctx, header)
		return
	}

	s.handleReorg(ctx, header)
}

// accept records header as the new tip, persists the checkpoint, and emits a
// block event.
func (s *service) accept(ctx context.Context, header Header) {
	s.stateMu.Lock()
	s.latest = header
	s.history = append(s.history, header)
	if len(s.history) > s.historyLimit {
		s.history = s.history[len(s.history)-s.historyLimit:]
	}
	s.stateMu.Unlock()

	// Checkpoint failure must not stop block processing
	if err := s.checkpointStorage.SaveCheckpoint(ctx, s.network, header.Number); err != nil {
		logger.Error(ctx, "failed to save checkpoint",
			"block.network", s.network,
			"block.height", header.Number,
			"error", err,
		)
	}

	s.dispatch(ctx, Event{Block: &header})
}

// indexOfLocked returns the position of hash in the retained history, or -1.
// Callers must hold s.stateMu.
func (s *service) indexOfLocked(hash string) int {
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].Hash == hash {
			return i
		}
	}
	return -1
}

// fetchHeader retrieves a header by hash, applying the configured retry
// policy if one is set.
func (s *service) fetchHeader(ctx context.Context, hash string) (Header, error) {
	if s.retry == nil {
		return s.source.HeaderByHash(ctx, hash)
	}

	var header Header
	err := s.retry.Execute(ctx, func() error {
		var fetchErr error
		header, fetchErr = s.source.HeaderByHash(ctx, hash)
		return fetchErr
	})
	return header, err
}

// handleReorg resolves a header whose parent is not the current tip. It walks
// the new branch back towards the retained history to find the common
// ancestor, emits a single reorg event carrying the detached and attached
// branches, and then re-emits each attached header as a normal block event so
// consumers resume ordinary confirmation counting.
//
// If the walk exhausts the retained history without finding an ancestor, the
// whole window is treated as detached and the ancestor is reported as the
// zero Header.
func (s *service) handleReorg(ctx context.Context, incoming Header) {
	reorg, ancestorIdx, err := s.resolveReorg(ctx, incoming)
	if err != nil {
		// Leave the chain state untouched: a later header from the same
		// branch retriggers resolution.
		logger.Error(ctx, "failed to resolve reorganization",
			"block.network", s.network,
			"block.height", incoming.Number,
			"block.hash", incoming.Hash,
			"error", err,
		)
		return
	}

	s.stateMu.Lock()
	if ancestorIdx >= 0 {
		s.history = s.history[:ancestorIdx+1]
	} else {
		s.history = nil
	}
	s.stateMu.Unlock()

	logger.Warn(ctx, "chain reorganization detected",
		"block.network", s.network,
		"reorg.ancestor", reorg.CommonAncestor.Hash,
		"reorg.detached", len(reorg.Detached),
		"reorg.attached", len(reorg.Attached),
	)

	s.dispatch(ctx, Event{Reorg: &reorg})

	for _, header := range reorg.Attached {
		s.accept(ctx, header)
	}
}

// resolveReorg walks back from incoming along parent hashes until it reaches
// a header in the retained history. It returns the reorg description plus the
// index of the common ancestor in the history slice (-1 when the ancestor
// lies beyond the retained window). The walk is bounded by the history limit.
func (s *service) resolveReorg(ctx context.Context, incoming Header) (Reorg, int, error) {
	attached := []Header{incoming}
	cursor := incoming

	for range s.historyLimit {
		s.stateMu.Lock()
		idx := s.indexOfLocked(cursor.ParentHash)
		var (
			ancestor Header
			detached []Header
		)
		if idx >= 0 {
			ancestor = s.history[idx]
			detached = slices.Clone(s.history[idx+1:])
		}
		s.stateMu.Unlock()

		if idx >= 0 {
			slices.Reverse(attached)
			return Reorg{CommonAncestor: ancestor, Detached: detached, Attached: attached}, idx, nil
		}

		parent, err := s.fetchHeader(ctx, cursor.ParentHash)
		if err != nil {
			return Reorg{}, 0, err
		}

		attached = append(attached, parent)
		cursor = parent
	}

	s.stateMu.Lock()
	detached := slices.Clone(s.history)
	s.stateMu.Unlock()

	slices.Reverse(attached)
	return Reorg{Detached: detached, Attached: attached}, -1, nil
}
