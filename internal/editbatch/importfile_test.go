package editbatch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleEdits = `
[[edits]]
slide_id = "intro"
field = "title"
value = "Draft"

[[edits]]
slide_id = "intro"
field = "title"
value = "Final"

[[edits]]
slide_id = "metrics"
field = "bullets"
value = ["one", "two"]
`

func TestDecodeEdits(t *testing.T) {
	edits, err := DecodeEdits(strings.NewReader(sampleEdits))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(edits) != 3 {
		t.Fatalf("expected 3 edits, got %d", len(edits))
	}
	bullets, ok := edits[2].Value.([]any)
	if !ok || len(bullets) != 2 {
		t.Fatalf("expected list value, got %#v", edits[2].Value)
	}
}

func TestDecodeEditsRejectsIncompleteEntries(t *testing.T) {
	_, err := DecodeEdits(strings.NewReader("[[edits]]\nslide_id = \"intro\"\nvalue = \"x\"\n"))
	if err == nil {
		t.Fatalf("expected error for missing field")
	}
}

func TestImportFileCoalescesThroughBatcher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edits.toml")
	if err := os.WriteFile(path, []byte(sampleEdits), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	recorder := &flushRecorder{}
	batcher := mustBatcher(t, Config{Flush: recorder.flush, Delay: time.Hour})

	count, err := ImportFile(context.Background(), batcher, path)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 imported edits, got %d", count)
	}
	batches := recorder.snapshot()
	if len(batches) != 1 || len(batches[0]) != 2 {
		t.Fatalf("expected one coalesced batch of 2, got %+v", batches)
	}
	if batches[0][0].Value != "Final" {
		t.Fatalf("expected last title value to win, got %#v", batches[0][0].Value)
	}
}
