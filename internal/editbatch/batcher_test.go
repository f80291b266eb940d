package editbatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/decks/internal/deck"
)

type flushRecorder struct {
	mu      sync.Mutex
	batches [][]deck.EditInput
	err     error
}

func (r *flushRecorder) flush(_ context.Context, edits []deck.EditInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, edits)
	return r.err
}

func (r *flushRecorder) setErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *flushRecorder) snapshot() [][]deck.EditInput {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]deck.EditInput(nil), r.batches...)
}

func mustBatcher(t *testing.T, cfg Config) *Batcher {
	t.Helper()
	batcher, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create batcher: %v", err)
	}
	return batcher
}

func TestBatcherCoalescesSameKey(t *testing.T) {
	recorder := &flushRecorder{}
	batcher := mustBatcher(t, Config{Flush: recorder.flush, Delay: time.Hour})
	ctx := context.Background()

	for _, value := range []string{"H", "He", "Hel", "Hello"} {
		if err := batcher.Add(ctx, deck.EditInput{SlideID: "intro", FieldPath: "title", Value: value}); err != nil {
			t.Fatalf("add failed: %v", err)
		}
	}
	if err := batcher.Add(ctx, deck.EditInput{SlideID: "intro", FieldPath: "subtitle", Value: "World"}); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if batcher.Pending() != 2 {
		t.Fatalf("expected 2 pending keys, got %d", batcher.Pending())
	}
	if err := batcher.Flush(ctx); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	batches := recorder.snapshot()
	if len(batches) != 1 || len(batches[0]) != 2 {
		t.Fatalf("expected one batch of two edits, got %+v", batches)
	}
	if batches[0][0].Value != "Hello" || batches[0][1].FieldPath != "subtitle" {
		t.Fatalf("unexpected coalesced batch %+v", batches[0])
	}
	if batcher.Pending() != 0 {
		t.Fatalf("expected nothing pending after flush")
	}
}

func TestBatcherFlushesWhenFull(t *testing.T) {
	recorder := &flushRecorder{}
	batcher := mustBatcher(t, Config{Flush: recorder.flush, MaxPending: 2, Delay: time.Hour})
	ctx := context.Background()

	_ = batcher.Add(ctx, deck.EditInput{SlideID: "a", FieldPath: "title", Value: "1"})
	if len(recorder.snapshot()) != 0 {
		t.Fatalf("expected no flush below the limit")
	}
	_ = batcher.Add(ctx, deck.EditInput{SlideID: "b", FieldPath: "title", Value: "2"})
	if batches := recorder.snapshot(); len(batches) != 1 || len(batches[0]) != 2 {
		t.Fatalf("expected a size-triggered flush, got %+v", batches)
	}
}

func TestBatcherFlushesAfterDelay(t *testing.T) {
	recorder := &flushRecorder{}
	batcher := mustBatcher(t, Config{Flush: recorder.flush, Delay: 20 * time.Millisecond})

	_ = batcher.Add(context.Background(), deck.EditInput{SlideID: "a", FieldPath: "title", Value: "1"})

	deadline := time.After(time.Second)
	for len(recorder.snapshot()) == 0 {
		select {
		case <-deadline:
			t.Fatal("expected timer flush")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestBatcherCloseFlushesAndRejects(t *testing.T) {
	recorder := &flushRecorder{}
	batcher := mustBatcher(t, Config{Flush: recorder.flush, Delay: time.Hour})
	ctx := context.Background()

	_ = batcher.Add(ctx, deck.EditInput{SlideID: "a", FieldPath: "title", Value: "1"})
	if err := batcher.Close(ctx); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if len(recorder.snapshot()) != 1 {
		t.Fatalf("expected close to flush pending edits")
	}
	if err := batcher.Add(ctx, deck.EditInput{SlideID: "a", FieldPath: "title", Value: "2"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestBatcherReturnsFlushError(t *testing.T) {
	recorder := &flushRecorder{err: errors.New("store down")}
	batcher := mustBatcher(t, Config{Flush: recorder.flush, Delay: time.Hour})
	ctx := context.Background()

	_ = batcher.Add(ctx, deck.EditInput{SlideID: "a", FieldPath: "title", Value: "1"})
	if err := batcher.Flush(ctx); err == nil {
		t.Fatalf("expected flush error")
	}
}

func TestBatcherKeepsEditsAfterFailedFlush(t *testing.T) {
	recorder := &flushRecorder{err: errors.New("store down")}
	batcher := mustBatcher(t, Config{Flush: recorder.flush, Delay: time.Hour})
	ctx := context.Background()

	_ = batcher.Add(ctx, deck.EditInput{SlideID: "a", FieldPath: "title", Value: "old"})
	_ = batcher.Add(ctx, deck.EditInput{SlideID: "a", FieldPath: "bullets.0", Value: "x"})
	if err := batcher.Flush(ctx); err == nil {
		t.Fatalf("expected flush error")
	}
	if batcher.Pending() != 2 {
		t.Fatalf("expected failed edits to stay pending, got %d", batcher.Pending())
	}

	_ = batcher.Add(ctx, deck.EditInput{SlideID: "a", FieldPath: "title", Value: "new"})
	recorder.setErr(nil)
	if err := batcher.Flush(ctx); err != nil {
		t.Fatalf("retry flush failed: %v", err)
	}

	batches := recorder.snapshot()
	last := batches[len(batches)-1]
	if len(last) != 2 {
		t.Fatalf("expected both keys in the retried batch, got %+v", last)
	}
	if last[0].FieldPath != "bullets.0" || last[1].FieldPath != "title" || last[1].Value != "new" {
		t.Fatalf("unexpected retried batch %+v", last)
	}
	if batcher.Pending() != 0 {
		t.Fatalf("expected nothing pending after successful retry")
	}
}

func TestBatcherRetriesFailedTimedFlush(t *testing.T) {
	recorder := &flushRecorder{err: errors.New("store down")}
	batcher := mustBatcher(t, Config{Flush: recorder.flush, Delay: 10 * time.Millisecond})

	_ = batcher.Add(context.Background(), deck.EditInput{SlideID: "a", FieldPath: "title", Value: "1"})

	deadline := time.After(time.Second)
	for len(recorder.snapshot()) == 0 {
		select {
		case <-deadline:
			t.Fatal("expected timer flush attempt")
		case <-time.After(5 * time.Millisecond):
		}
	}
	recorder.setErr(nil)
	for batcher.Pending() != 0 {
		select {
		case <-deadline:
			t.Fatal("expected timed retry to deliver the edit")
		case <-time.After(5 * time.Millisecond):
		}
	}
	batches := recorder.snapshot()
	if last := batches[len(batches)-1]; len(last) != 1 || last[0].Value != "1" {
		t.Fatalf("unexpected delivered batch %+v", last)
	}
}

func TestBatcherReAddedKeyMovesToEnd(t *testing.T) {
	recorder := &flushRecorder{}
	batcher := mustBatcher(t, Config{Flush: recorder.flush, Delay: time.Hour})
	ctx := context.Background()

	_ = batcher.Add(ctx, deck.EditInput{SlideID: "a", FieldPath: "bullets.0", Value: "x"})
	_ = batcher.Add(ctx, deck.EditInput{SlideID: "a", FieldPath: "bullets", Value: []any{"p"}})
	_ = batcher.Add(ctx, deck.EditInput{SlideID: "a", FieldPath: "bullets.0", Value: "y"})
	if err := batcher.Flush(ctx); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	batch := recorder.snapshot()[0]
	if len(batch) != 2 || batch[0].FieldPath != "bullets" || batch[1].Value != "y" {
		t.Fatalf("expected the latest write last, got %+v", batch)
	}
}

func TestNewRequiresFlush(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error without flush function")
	}
}
