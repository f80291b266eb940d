// Package editbatch collects editor keystrokes and writes them as coalesced batches.
package editbatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MarcoPoloResearchLab/decks/internal/deck"
	"go.uber.org/zap"
)

const (
	defaultMaxPending = 64
	defaultDelay      = 500 * time.Millisecond
)

var (
	errMissingFlush = errors.New("editbatch: flush function is required")
	// ErrClosed is returned when an edit arrives after Close.
	ErrClosed = errors.New("editbatch: batcher closed")
)

// FlushFunc persists a coalesced set of edits.
type FlushFunc func(ctx context.Context, edits []deck.EditInput) error

// Config configures a Batcher.
type Config struct {
	Flush      FlushFunc
	MaxPending int
	Delay      time.Duration
	Logger     *zap.Logger
}

// Batcher keeps the latest value per (slide, field path) until a flush.
// A flush happens when MaxPending distinct keys are waiting, when Delay elapses
// after the first pending edit, or on Flush and Close. Edits from a failed flush
// stay pending unless a newer value for the same key arrived meanwhile.
type Batcher struct {
	flush      FlushFunc
	maxPending int
	delay      time.Duration
	logger     *zap.Logger

	mu        sync.Mutex
	pending   map[string]int
	edits     []deck.EditInput
	timer     *time.Timer
	closed    bool
	flushLock sync.Mutex
}

// New constructs a Batcher.
func New(cfg Config) (*Batcher, error) {
	if cfg.Flush == nil {
		return nil, errMissingFlush
	}
	maxPending := cfg.MaxPending
	if maxPending <= 0 {
		maxPending = defaultMaxPending
	}
	delay := cfg.Delay
	if delay <= 0 {
		delay = defaultDelay
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Batcher{
		flush:      cfg.Flush,
		maxPending: maxPending,
		delay:      delay,
		logger:     logger,
		pending:    make(map[string]int),
	}, nil
}

// Add queues an edit, replacing any pending value for the same key.
func (b *Batcher) Add(ctx context.Context, edit deck.EditInput) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	b.putLocked(edit)
	full := len(b.edits) >= b.maxPending
	if !full {
		b.scheduleLocked()
	}
	b.mu.Unlock()

	if full {
		return b.Flush(ctx)
	}
	return nil
}

// Pending reports how many distinct keys are waiting.
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.edits)
}

// Flush writes the pending edits now.
func (b *Batcher) Flush(ctx context.Context) error {
	b.flushLock.Lock()
	defer b.flushLock.Unlock()

	edits := b.take()
	if len(edits) == 0 {
		return nil
	}
	if err := b.flush(ctx, edits); err != nil {
		b.logger.Error("edit batch flush failed", zap.Int("edits", len(edits)), zap.Error(err))
		b.restore(edits)
		return err
	}
	return nil
}

// Close flushes the remaining edits and rejects further ones.
func (b *Batcher) Close(ctx context.Context) error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return b.Flush(ctx)
}

func (b *Batcher) take() []deck.EditInput {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	edits := b.edits
	b.edits = nil
	b.pending = make(map[string]int)
	return edits
}

// putLocked stores edit as the newest pending value for its key.
func (b *Batcher) putLocked(edit deck.EditInput) {
	key := edit.Key()
	if position, ok := b.pending[key]; ok {
		b.edits = append(b.edits[:position], b.edits[position+1:]...)
		for index := position; index < len(b.edits); index++ {
			b.pending[b.edits[index].Key()] = index
		}
	}
	b.pending[key] = len(b.edits)
	b.edits = append(b.edits, edit)
}

func (b *Batcher) scheduleLocked() {
	if b.closed || b.timer != nil || len(b.edits) == 0 {
		return
	}
	b.timer = time.AfterFunc(b.delay, b.flushOnTimer)
}

// restore puts unflushed edits back ahead of anything added during the flush.
func (b *Batcher) restore(failed []deck.EditInput) {
	b.mu.Lock()
	defer b.mu.Unlock()
	newer := b.edits
	b.edits = make([]deck.EditInput, 0, len(failed)+len(newer))
	b.pending = make(map[string]int, len(failed)+len(newer))
	for _, edit := range failed {
		b.putLocked(edit)
	}
	for _, edit := range newer {
		b.putLocked(edit)
	}
	b.scheduleLocked()
}

func (b *Batcher) flushOnTimer() {
	if err := b.Flush(context.Background()); err != nil {
		b.logger.Warn("timed edit flush failed", zap.Error(err))
	}
}
