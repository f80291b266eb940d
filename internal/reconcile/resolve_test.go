package reconcile

import (
	"reflect"
	"testing"
)

func TestViewerUnavailableForMissingOrDisabledLink(t *testing.T) {
	state := DeckState{
		Catalog: sampleSlides("A", "B"),
		Edits:   []Edit{{SlideID: "A", FieldPath: "title", Value: "edited"}},
	}

	if resolution := state.Viewer(nil); resolution.Available || resolution.Slides != nil {
		t.Fatalf("expected missing link to be unavailable, got %+v", resolution)
	}

	disabled := &LinkState{Disabled: true, Snapshot: []string{"A"}}
	if resolution := state.Viewer(disabled); resolution.Available || resolution.Slides != nil {
		t.Fatalf("expected disabled link to return no content, got %+v", resolution)
	}
}

func TestViewerSnapshotIsStableAcrossOrderChanges(t *testing.T) {
	link := &LinkState{Snapshot: []string{"X", "Y"}}
	state := DeckState{Catalog: sampleSlides("X", "Y", "Z")}

	before := state.Viewer(link)
	assertIDs(t, before.Slides, "X", "Y")
	if !before.FromSnapshot {
		t.Fatalf("expected snapshot resolution")
	}

	state.Order = &Order{SlideIDs: []string{"Y", "Z", "X"}, GraveyardIndex: NoGraveyard}
	after := state.Viewer(link)
	assertIDs(t, after.Slides, "X", "Y")

	link.Snapshot = state.ActiveIDs()
	refreshed := state.Viewer(link)
	assertIDs(t, refreshed.Slides, "Y", "Z", "X")
}

func TestViewerSnapshotDropsRemovedSlides(t *testing.T) {
	state := DeckState{Catalog: sampleSlides("A", "C")}
	resolution := state.Viewer(&LinkState{Snapshot: []string{"C", "B", "A"}})
	assertIDs(t, resolution.Slides, "C", "A")
}

func TestViewerRendersLiveContentForSnapshotLinks(t *testing.T) {
	state := DeckState{
		Catalog: sampleSlides("A", "B"),
		Edits:   []Edit{{SlideID: "B", FieldPath: "title", Value: "fresh"}},
	}
	resolution := state.Viewer(&LinkState{Snapshot: []string{"B"}})
	assertIDs(t, resolution.Slides, "B")
	if resolution.Slides[0].Title != "fresh" {
		t.Fatalf("expected live edit in snapshot view, got %q", resolution.Slides[0].Title)
	}
}

func TestViewerFallsBackToLiveOrderWithoutSnapshot(t *testing.T) {
	state := DeckState{
		Catalog: sampleSlides("A", "B", "C", "D"),
		Order:   &Order{SlideIDs: []string{"D", "C", "B", "A"}, GraveyardIndex: 3},
	}
	resolution := state.Viewer(&LinkState{})
	if resolution.FromSnapshot {
		t.Fatalf("expected live resolution")
	}
	assertIDs(t, resolution.Slides, "D", "C", "B")

	state.Order = nil
	catalogOrder := state.Viewer(&LinkState{})
	assertIDs(t, catalogOrder.Slides, "A", "B", "C", "D")
}

func TestEditorKeepsGraveyardReachable(t *testing.T) {
	state := DeckState{
		Catalog: sampleSlides("A", "B", "C", "D"),
		Order:   &Order{SlideIDs: []string{"A", "B", "C", "D"}, GraveyardIndex: 2},
	}
	arrangement, skipped := state.Editor()
	if len(skipped) != 0 {
		t.Fatalf("unexpected skipped edits %v", skipped)
	}
	assertIDs(t, arrangement.Slides, "A", "B", "C", "D")
	if !reflect.DeepEqual(state.ActiveIDs(), []string{"A", "B"}) {
		t.Fatalf("unexpected active ids %v", state.ActiveIDs())
	}
}
