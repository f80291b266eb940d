package editbatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/MarcoPoloResearchLab/decks/internal/deck"
)

var errMissingEditField = errors.New("editbatch: edit requires slide_id, field and value")

type editFile struct {
	Edits []editRecord `toml:"edits"`
}

type editRecord struct {
	SlideID string `toml:"slide_id"`
	Field   string `toml:"field"`
	Value   any    `toml:"value"`
}

// DecodeEdits reads a TOML document of [[edits]] tables.
func DecodeEdits(reader io.Reader) ([]deck.EditInput, error) {
	var file editFile
	if _, err := toml.NewDecoder(reader).Decode(&file); err != nil {
		return nil, fmt.Errorf("editbatch: decode edits: %w", err)
	}
	edits := make([]deck.EditInput, 0, len(file.Edits))
	for index, record := range file.Edits {
		if strings.TrimSpace(record.SlideID) == "" || strings.TrimSpace(record.Field) == "" || record.Value == nil {
			return nil, fmt.Errorf("%w (entry %d)", errMissingEditField, index+1)
		}
		edits = append(edits, deck.EditInput{
			SlideID:   record.SlideID,
			FieldPath: record.Field,
			Value:     record.Value,
		})
	}
	return edits, nil
}

// ImportFile streams the edits in path through the batcher and flushes at the end.
func ImportFile(ctx context.Context, batcher *Batcher, path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("editbatch: open %s: %w", path, err)
	}
	defer file.Close()

	edits, err := DecodeEdits(file)
	if err != nil {
		return 0, err
	}
	for _, edit := range edits {
		if err := batcher.Add(ctx, edit); err != nil {
			return 0, err
		}
	}
	if err := batcher.Flush(ctx); err != nil {
		return 0, err
	}
	return len(edits), nil
}
