// Package tracking buffers viewer tracking events and writes them in the background.
// Delivery is best effort: a full buffer drops events instead of blocking the request.
package tracking

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MarcoPoloResearchLab/decks/internal/deck"
	"go.uber.org/zap"
)

const (
	defaultBufferSize    = 256
	defaultBatchSize     = 32
	defaultFlushInterval = 2 * time.Second
	flushTimeout         = 5 * time.Second
)

var errMissingSink = errors.New("tracking: sink is required")

// Sink persists a batch of view events.
type Sink interface {
	RecordViewEvents(ctx context.Context, events []deck.ViewEventInput) error
}

// Config configures a Recorder.
type Config struct {
	Sink          Sink
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
	Logger        *zap.Logger
}

// Recorder accepts events without blocking and flushes them on size or on a timer.
type Recorder struct {
	sink      Sink
	events    chan deck.ViewEventInput
	batchSize int
	interval  time.Duration
	logger    *zap.Logger
	mu        sync.RWMutex
	closed    bool
	done      chan struct{}
	dropped   atomic.Int64
}

// NewRecorder starts the background flusher.
func NewRecorder(cfg Config) (*Recorder, error) {
	if cfg.Sink == nil {
		return nil, errMissingSink
	}
	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	interval := cfg.FlushInterval
	if interval <= 0 {
		interval = defaultFlushInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	recorder := &Recorder{
		sink:      cfg.Sink,
		events:    make(chan deck.ViewEventInput, bufferSize),
		batchSize: batchSize,
		interval:  interval,
		logger:    logger,
		done:      make(chan struct{}),
	}
	go recorder.run()
	return recorder, nil
}

// Track queues an event. It reports false when the event was dropped.
func (r *Recorder) Track(event deck.ViewEventInput) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.dropped.Add(1)
		return false
	}
	select {
	case r.events <- event:
		return true
	default:
		r.dropped.Add(1)
		r.logger.Debug("tracking buffer full, dropping event", zap.String("link_id", event.LinkID))
		return false
	}
}

// Dropped returns the number of events discarded so far.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close stops accepting events and waits for the queued ones to be flushed.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.events)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	batch := make([]deck.ViewEventInput, 0, r.batchSize)
	for {
		select {
		case event, ok := <-r.events:
			if !ok {
				r.flush(batch)
				return
			}
			batch = append(batch, event)
			if len(batch) >= r.batchSize {
				r.flush(batch)
				batch = make([]deck.ViewEventInput, 0, r.batchSize)
			}
		case <-ticker.C:
			if len(batch) > 0 {
				r.flush(batch)
				batch = make([]deck.ViewEventInput, 0, r.batchSize)
			}
		}
	}
}

func (r *Recorder) flush(batch []deck.ViewEventInput) {
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := r.sink.RecordViewEvents(ctx, batch); err != nil {
		r.logger.Warn("view events not recorded", zap.Int("events", len(batch)), zap.Error(err))
	}
}
