package reconcile

import "testing"

func TestArrangeWithoutOrderKeepsCatalogOrder(t *testing.T) {
	slides := sampleSlides("A", "B", "C")

	arrangement := Arrange(slides, nil)
	assertIDs(t, arrangement.Slides, "A", "B", "C")
	if arrangement.GraveyardIndex != NoGraveyard {
		t.Fatalf("expected no graveyard, got %d", arrangement.GraveyardIndex)
	}

	empty := Arrange(slides, &Order{GraveyardIndex: 1})
	assertIDs(t, empty.Slides, "A", "B", "C")
	if empty.GraveyardIndex != NoGraveyard {
		t.Fatalf("expected empty order to ignore graveyard, got %d", empty.GraveyardIndex)
	}
}

func TestApplyOrderReturnsFullPermutation(t *testing.T) {
	slides := sampleSlides("A", "B", "C", "D")
	ordered := ApplyOrder(slides, &Order{SlideIDs: []string{"D", "B", "A", "C"}, GraveyardIndex: NoGraveyard})
	assertIDs(t, ordered, "D", "B", "A", "C")
}

func TestApplyOrderDropsUnknownAndRepeatedIDs(t *testing.T) {
	slides := sampleSlides("A", "B")
	ordered := ApplyOrder(slides, &Order{SlideIDs: []string{"B", "gone", "B", "A"}, GraveyardIndex: NoGraveyard})
	assertIDs(t, ordered, "B", "A")
}

func TestApplyOrderInsertsNewSlidesNearCatalogNeighbours(t *testing.T) {
	testCases := []struct {
		name     string
		catalog  []string
		order    []string
		expected []string
	}{
		{name: "missing-first", catalog: []string{"A", "B", "C"}, order: []string{"B", "C"}, expected: []string{"A", "B", "C"}},
		{name: "missing-middle", catalog: []string{"A", "B", "C"}, order: []string{"C", "A"}, expected: []string{"C", "A", "B"}},
		{name: "missing-last", catalog: []string{"A", "B", "C"}, order: []string{"B", "A"}, expected: []string{"B", "C", "A"}},
		{name: "chain-of-new", catalog: []string{"A", "B", "C", "D"}, order: []string{"D"}, expected: []string{"A", "B", "C", "D"}},
		{name: "after-rearranged-predecessor", catalog: []string{"A", "B", "C", "D"}, order: []string{"C", "A", "D"}, expected: []string{"C", "A", "B", "D"}},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			ordered := ApplyOrder(sampleSlides(testCase.catalog...), &Order{SlideIDs: testCase.order, GraveyardIndex: NoGraveyard})
			assertIDs(t, ordered, testCase.expected...)
		})
	}
}

func TestApplyOrderAppendsWhenNothingIsPlaced(t *testing.T) {
	slides := sampleSlides("X", "Y", "Z")
	ordered := ApplyOrder(slides, &Order{SlideIDs: []string{"removed-1", "removed-2"}, GraveyardIndex: 1})
	assertIDs(t, ordered, "X", "Y", "Z")
}

func TestArrangeGraveyardProjections(t *testing.T) {
	slides := sampleSlides("A", "B", "C", "D")
	arrangement := Arrange(slides, &Order{SlideIDs: []string{"A", "B", "C", "D"}, GraveyardIndex: 2})

	assertIDs(t, arrangement.Slides, "A", "B", "C", "D")
	assertIDs(t, arrangement.Active(), "A", "B")
	assertIDs(t, arrangement.Archived(), "C", "D")
	if arrangement.GraveyardIndex != 2 {
		t.Fatalf("expected graveyard index 2, got %d", arrangement.GraveyardIndex)
	}
}

func TestArrangeClampsGraveyardIndex(t *testing.T) {
	slides := sampleSlides("A", "B")
	testCases := []struct {
		name          string
		index         int
		expectedIndex int
		expectedLive  []string
	}{
		{name: "beyond-length", index: 7, expectedIndex: 2, expectedLive: []string{"A", "B"}},
		{name: "below-sentinel", index: -4, expectedIndex: NoGraveyard, expectedLive: []string{"A", "B"}},
		{name: "zero", index: 0, expectedIndex: 0, expectedLive: []string{}},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			arrangement := Arrange(slides, &Order{SlideIDs: []string{"A", "B"}, GraveyardIndex: testCase.index})
			if arrangement.GraveyardIndex != testCase.expectedIndex {
				t.Fatalf("expected index %d, got %d", testCase.expectedIndex, arrangement.GraveyardIndex)
			}
			assertIDs(t, arrangement.Active(), testCase.expectedLive...)
		})
	}
}
