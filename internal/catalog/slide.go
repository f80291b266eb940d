package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// Layout enumerates the slide layouts the viewer knows how to render.
type Layout string

const (
	// LayoutTitle renders a title and subtitle.
	LayoutTitle Layout = "title"
	// LayoutSection renders a single large statement.
	LayoutSection Layout = "section"
	// LayoutText renders a title with a body paragraph.
	LayoutText Layout = "text"
	// LayoutTwoColumn renders left and right text columns.
	LayoutTwoColumn Layout = "two-column"
	// LayoutBullets renders an ordered list of bullets.
	LayoutBullets Layout = "bullets"
	// LayoutTable renders a header row and table rows.
	LayoutTable Layout = "table"
)

var (
	// ErrInvalidSlideID indicates that a slide identifier is empty or exceeds storage bounds.
	ErrInvalidSlideID = errors.New("catalog: invalid slide id")
	// ErrInvalidLayout indicates that a slide layout is not one of the known layouts.
	ErrInvalidLayout = errors.New("catalog: invalid layout")
	// ErrDuplicateSlideID indicates that two catalog slides share an identifier.
	ErrDuplicateSlideID = errors.New("catalog: duplicate slide id")
)

const maxIdentifierLength = 190

// ParseLayout validates raw input and returns a Layout. "big-text" is accepted as an alias of section.
func ParseLayout(rawInput string) (Layout, error) {
	switch Layout(strings.ToLower(strings.TrimSpace(rawInput))) {
	case LayoutTitle:
		return LayoutTitle, nil
	case LayoutSection, "big-text":
		return LayoutSection, nil
	case LayoutText:
		return LayoutText, nil
	case LayoutTwoColumn:
		return LayoutTwoColumn, nil
	case LayoutBullets:
		return LayoutBullets, nil
	case LayoutTable:
		return LayoutTable, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidLayout, rawInput)
	}
}

// SlideID represents a validated slide identifier.
type SlideID string

// NewSlideID validates raw input and returns a SlideID.
func NewSlideID(rawInput string) (SlideID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidSlideID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidSlideID, maxIdentifierLength)
	}
	return SlideID(trimmed), nil
}

// String returns the underlying string identifier.
func (id SlideID) String() string {
	return string(id)
}

// Slide is one catalog entry. The field names double as the top-level edit field paths.
type Slide struct {
	ID           string     `json:"id" toml:"id"`
	Layout       Layout     `json:"layout" toml:"layout"`
	Title        string     `json:"title,omitempty" toml:"title"`
	Subtitle     string     `json:"subtitle,omitempty" toml:"subtitle"`
	Body         string     `json:"body,omitempty" toml:"body"`
	Bullets      []string   `json:"bullets,omitempty" toml:"bullets"`
	LeftText     string     `json:"leftText,omitempty" toml:"left_text"`
	RightText    string     `json:"rightText,omitempty" toml:"right_text"`
	Note         string     `json:"note,omitempty" toml:"note"`
	TableHeaders []string   `json:"tableHeaders,omitempty" toml:"table_headers"`
	TableRows    [][]string `json:"tableRows,omitempty" toml:"table_rows"`
}

// Clone returns a deep copy so callers can write into slices without touching the original.
func (s Slide) Clone() Slide {
	clone := s
	clone.Bullets = cloneStrings(s.Bullets)
	clone.TableHeaders = cloneStrings(s.TableHeaders)
	if s.TableRows != nil {
		clone.TableRows = make([][]string, len(s.TableRows))
		for index, row := range s.TableRows {
			clone.TableRows[index] = cloneStrings(row)
		}
	}
	return clone
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	return append([]string(nil), values...)
}
