package reconcile

import "github.com/MarcoPoloResearchLab/decks/internal/catalog"

// NoGraveyard marks an order without an archived tail.
const NoGraveyard = -1

// Order is the persisted custom sequence of slide ids plus the graveyard cut.
type Order struct {
	SlideIDs       []string
	GraveyardIndex int
}

// Arrangement is an ordered slide sequence with the effective graveyard index.
// Slides at GraveyardIndex and beyond are archived; NoGraveyard keeps every slide active.
type Arrangement struct {
	Slides         []catalog.Slide
	GraveyardIndex int
}

// Active returns the slides shown in the live deck.
func (a Arrangement) Active() []catalog.Slide {
	if a.GraveyardIndex < 0 || a.GraveyardIndex >= len(a.Slides) {
		return a.Slides
	}
	return a.Slides[:a.GraveyardIndex]
}

// Archived returns the graveyard tail.
func (a Arrangement) Archived() []catalog.Slide {
	if a.GraveyardIndex < 0 || a.GraveyardIndex >= len(a.Slides) {
		return nil
	}
	return a.Slides[a.GraveyardIndex:]
}

// ActiveIDs returns the identifiers of the active slides in order.
func (a Arrangement) ActiveIDs() []string {
	return slideIDs(a.Active())
}

// IDs returns every identifier in order, graveyard included.
func (a Arrangement) IDs() []string {
	return slideIDs(a.Slides)
}

// ApplyOrder returns the slides arranged by the order, graveyard included.
func ApplyOrder(slides []catalog.Slide, order *Order) []catalog.Slide {
	return Arrange(slides, order).Slides
}

// Arrange applies the order to the slides and computes the effective graveyard index.
//
// Ids in the order that do not name a slide are dropped, as are repeats. Slides missing
// from the order are placed right after their nearest earlier catalog neighbour that is
// already placed, or right before the nearest later one when no earlier neighbour is
// placed, or at the end when nothing is placed yet.
func Arrange(slides []catalog.Slide, order *Order) Arrangement {
	if order == nil || len(order.SlideIDs) == 0 {
		return Arrangement{
			Slides:         append([]catalog.Slide(nil), slides...),
			GraveyardIndex: NoGraveyard,
		}
	}

	positions := make(map[string]int, len(slides))
	for position, slide := range slides {
		positions[slide.ID] = position
	}

	placed := make([]bool, len(slides))
	sequence := make([]int, 0, len(slides))
	for _, id := range order.SlideIDs {
		position, ok := positions[id]
		if !ok || placed[position] {
			continue
		}
		sequence = append(sequence, position)
		placed[position] = true
	}

	for position := range slides {
		if placed[position] {
			continue
		}
		at := insertionPoint(sequence, placed, position)
		sequence = append(sequence, 0)
		copy(sequence[at+1:], sequence[at:])
		sequence[at] = position
		placed[position] = true
	}

	arranged := make([]catalog.Slide, len(sequence))
	for index, position := range sequence {
		arranged[index] = slides[position]
	}
	return Arrangement{
		Slides:         arranged,
		GraveyardIndex: clampGraveyard(order.GraveyardIndex, len(arranged)),
	}
}

func insertionPoint(sequence []int, placed []bool, position int) int {
	for predecessor := position - 1; predecessor >= 0; predecessor-- {
		if placed[predecessor] {
			return indexOf(sequence, predecessor) + 1
		}
	}
	for successor := position + 1; successor < len(placed); successor++ {
		if placed[successor] {
			return indexOf(sequence, successor)
		}
	}
	return len(sequence)
}

func indexOf(sequence []int, position int) int {
	for index, candidate := range sequence {
		if candidate == position {
			return index
		}
	}
	return len(sequence)
}

func clampGraveyard(index, length int) int {
	if index < 0 {
		return NoGraveyard
	}
	if index > length {
		return length
	}
	return index
}

func slideIDs(slides []catalog.Slide) []string {
	ids := make([]string, len(slides))
	for index, slide := range slides {
		ids[index] = slide.ID
	}
	return ids
}
