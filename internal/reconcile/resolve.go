package reconcile

import "github.com/MarcoPoloResearchLab/decks/internal/catalog"

// DeckState is everything reconciliation reads: the catalog, the reduced edit set and the
// persisted order (nil when none was ever saved).
type DeckState struct {
	Catalog []catalog.Slide
	Edits   []Edit
	Order   *Order
}

// LinkState is the part of a share link that decides what a viewer sees.
type LinkState struct {
	Disabled bool
	Snapshot []string
}

// ViewerResolution is what an anonymous viewer of a share link is shown.
type ViewerResolution struct {
	Available    bool
	FromSnapshot bool
	Slides       []catalog.Slide
	Skipped      []SkippedEdit
}

// Editor merges edits and applies the order, keeping the graveyard reachable.
func (state DeckState) Editor() (Arrangement, []SkippedEdit) {
	merged := MergeEdits(state.Catalog, state.Edits)
	return Arrange(merged.Slides, state.Order), merged.Skipped
}

// ActiveIDs returns the identifiers of the live, non-archived sequence. New share links and
// refreshed ones freeze this list as their snapshot.
func (state DeckState) ActiveIDs() []string {
	arrangement, _ := state.Editor()
	return arrangement.ActiveIDs()
}

// Viewer resolves the slides for a share link. A nil or disabled link is unavailable and no
// content is computed. Content is always merged live; a non-empty snapshot freezes which
// slides are shown and in what order, dropping ids the catalog no longer has. Links without
// a snapshot follow the live order's active projection.
func (state DeckState) Viewer(link *LinkState) ViewerResolution {
	if link == nil || link.Disabled {
		return ViewerResolution{Available: false}
	}

	merged := MergeEdits(state.Catalog, state.Edits)
	if len(link.Snapshot) > 0 {
		return ViewerResolution{
			Available:    true,
			FromSnapshot: true,
			Slides:       selectSnapshot(merged.Slides, link.Snapshot),
			Skipped:      merged.Skipped,
		}
	}

	arrangement := Arrange(merged.Slides, state.Order)
	return ViewerResolution{
		Available: true,
		Slides:    arrangement.Active(),
		Skipped:   merged.Skipped,
	}
}

func selectSnapshot(slides []catalog.Slide, snapshot []string) []catalog.Slide {
	byID := make(map[string]catalog.Slide, len(slides))
	for _, slide := range slides {
		byID[slide.ID] = slide
	}
	selected := make([]catalog.Slide, 0, len(snapshot))
	for _, id := range snapshot {
		slide, ok := byID[id]
		if !ok {
			continue
		}
		delete(byID, id)
		selected = append(selected, slide)
	}
	return selected
}
