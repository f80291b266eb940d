// Package reconcile turns the base catalog, persisted edits, persisted ordering and share
// link snapshots into the slide sequence a caller renders. It performs no I/O.
package reconcile

import "github.com/MarcoPoloResearchLab/decks/internal/catalog"

// Edit overrides one field path on one slide.
type Edit struct {
	SlideID   string
	FieldPath string
	Value     any
}

// SkippedEdit records an edit that could not be applied to the current slide shape.
type SkippedEdit struct {
	Edit Edit
	Err  error
}

// MergeResult is the outcome of MergeEdits.
type MergeResult struct {
	Slides  []catalog.Slide
	Skipped []SkippedEdit
}

// MergeEdits applies edits to copies of the slides. The output has the same length and order
// as the input. Edits that do not resolve against a slide are skipped and reported; edits for
// slides that are not present are ignored.
func MergeEdits(slides []catalog.Slide, edits []Edit) MergeResult {
	bySlide := make(map[string][]Edit, len(edits))
	for _, edit := range edits {
		bySlide[edit.SlideID] = append(bySlide[edit.SlideID], edit)
	}

	result := MergeResult{Slides: make([]catalog.Slide, len(slides))}
	for position, slide := range slides {
		merged := slide.Clone()
		for _, edit := range bySlide[slide.ID] {
			path, err := ParseFieldPath(edit.FieldPath)
			if err == nil {
				err = applyFieldPath(&merged, path, edit.Value)
			}
			if err != nil {
				result.Skipped = append(result.Skipped, SkippedEdit{Edit: edit, Err: err})
			}
		}
		result.Slides[position] = merged
	}
	return result
}
