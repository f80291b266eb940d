package reconcile

import (
	"testing"

	"github.com/MarcoPoloResearchLab/decks/internal/catalog"
)

func sampleSlides(ids ...string) []catalog.Slide {
	slides := make([]catalog.Slide, 0, len(ids))
	for _, id := range ids {
		slides = append(slides, catalog.Slide{ID: id, Layout: catalog.LayoutText, Title: "title " + id})
	}
	return slides
}

func assertIDs(t *testing.T, slides []catalog.Slide, expected ...string) {
	t.Helper()
	if len(slides) != len(expected) {
		t.Fatalf("expected %d slides %v, got %d %v", len(expected), expected, len(slides), slideIDs(slides))
	}
	for index, id := range expected {
		if slides[index].ID != id {
			t.Fatalf("expected %v, got %v", expected, slideIDs(slides))
		}
	}
}
