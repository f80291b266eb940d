// Package catalog holds the fixed base deck that every reconciliation starts from.
package catalog

import (
	_ "embed"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed default_deck.toml
var defaultDeck string

// Catalog is an ordered, read-only sequence of slides with unique identifiers.
type Catalog struct {
	slides []Slide
	index  map[string]int
}

type deckFile struct {
	Slides []Slide `toml:"slides"`
}

// New validates the slides and returns a Catalog holding private copies of them.
func New(slides []Slide) (*Catalog, error) {
	catalog := &Catalog{
		slides: make([]Slide, 0, len(slides)),
		index:  make(map[string]int, len(slides)),
	}
	for position, slide := range slides {
		id, err := NewSlideID(slide.ID)
		if err != nil {
			return nil, fmt.Errorf("slide %d: %w", position, err)
		}
		layout, err := ParseLayout(string(slide.Layout))
		if err != nil {
			return nil, fmt.Errorf("slide %s: %w", id, err)
		}
		if _, exists := catalog.index[id.String()]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSlideID, id)
		}
		stored := slide.Clone()
		stored.ID = id.String()
		stored.Layout = layout
		catalog.index[stored.ID] = len(catalog.slides)
		catalog.slides = append(catalog.slides, stored)
	}
	return catalog, nil
}

// Decode parses a TOML deck definition.
func Decode(reader io.Reader) (*Catalog, error) {
	var file deckFile
	if _, err := toml.NewDecoder(reader).Decode(&file); err != nil {
		return nil, fmt.Errorf("catalog: decode deck: %w", err)
	}
	return New(file.Slides)
}

// LoadFile reads a TOML deck definition from disk.
func LoadFile(path string) (*Catalog, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open deck: %w", err)
	}
	defer file.Close()
	return Decode(file)
}

// Default returns the deck compiled into the binary.
func Default() (*Catalog, error) {
	var file deckFile
	if _, err := toml.Decode(defaultDeck, &file); err != nil {
		return nil, fmt.Errorf("catalog: decode default deck: %w", err)
	}
	return New(file.Slides)
}

// Slides returns deep copies of the catalog slides in catalog order.
func (c *Catalog) Slides() []Slide {
	if c == nil {
		return nil
	}
	copies := make([]Slide, len(c.slides))
	for index, slide := range c.slides {
		copies[index] = slide.Clone()
	}
	return copies
}

// IDs returns the slide identifiers in catalog order.
func (c *Catalog) IDs() []string {
	if c == nil {
		return nil
	}
	ids := make([]string, len(c.slides))
	for index, slide := range c.slides {
		ids[index] = slide.ID
	}
	return ids
}

// Contains reports whether the catalog defines the slide.
func (c *Catalog) Contains(id string) bool {
	if c == nil {
		return false
	}
	_, ok := c.index[id]
	return ok
}

// Len returns the number of slides.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.slides)
}
