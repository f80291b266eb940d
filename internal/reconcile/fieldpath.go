package reconcile

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/MarcoPoloResearchLab/decks/internal/catalog"
)

var (
	// ErrInvalidFieldPath indicates that a field path is empty or has an empty segment.
	ErrInvalidFieldPath = errors.New("reconcile: invalid field path")
	// ErrUnresolvedFieldPath indicates that a field path does not address anything on the slide.
	ErrUnresolvedFieldPath = errors.New("reconcile: unresolved field path")
	// ErrValueType indicates that an edit value does not fit the addressed field.
	ErrValueType = errors.New("reconcile: value type mismatch")
)

const (
	fieldTitle        = "title"
	fieldSubtitle     = "subtitle"
	fieldBody         = "body"
	fieldLeftText     = "leftText"
	fieldRightText    = "rightText"
	fieldNote         = "note"
	fieldBullets      = "bullets"
	fieldTableHeaders = "tableHeaders"
	fieldTableRows    = "tableRows"
)

type pathSegment struct {
	key     string
	index   int
	isIndex bool
}

func (segment pathSegment) String() string {
	if segment.isIndex {
		return strconv.Itoa(segment.index)
	}
	return segment.key
}

// FieldPath addresses a slide field, an element of an array field, or a table cell.
type FieldPath struct {
	raw      string
	segments []pathSegment
}

// ParseFieldPath splits a dotted path into key and index segments.
// It only checks syntax; whether the path resolves depends on the slide it is applied to.
func ParseFieldPath(rawInput string) (FieldPath, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return FieldPath{}, fmt.Errorf("%w: empty", ErrInvalidFieldPath)
	}
	parts := strings.Split(trimmed, ".")
	segments := make([]pathSegment, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			return FieldPath{}, fmt.Errorf("%w: empty segment in %q", ErrInvalidFieldPath, trimmed)
		}
		if isNumeric(part) {
			index, err := strconv.Atoi(part)
			if err != nil {
				return FieldPath{}, fmt.Errorf("%w: index %q out of range", ErrInvalidFieldPath, part)
			}
			segments = append(segments, pathSegment{index: index, isIndex: true})
			continue
		}
		segments = append(segments, pathSegment{key: part})
	}
	canonical := make([]string, len(segments))
	for index, segment := range segments {
		canonical[index] = segment.String()
	}
	return FieldPath{raw: strings.Join(canonical, "."), segments: segments}, nil
}

// String returns the normalized dotted path; index segments carry no leading zeros.
func (path FieldPath) String() string {
	return path.raw
}

func isNumeric(value string) bool {
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return value != ""
}

func applyFieldPath(slide *catalog.Slide, path FieldPath, value any) error {
	if len(path.segments) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidFieldPath)
	}
	head := path.segments[0]
	rest := path.segments[1:]
	if head.isIndex {
		return fmt.Errorf("%w: %s does not name a field", ErrUnresolvedFieldPath, path)
	}

	switch head.key {
	case fieldTitle:
		return writeString(&slide.Title, path, rest, value)
	case fieldSubtitle:
		return writeString(&slide.Subtitle, path, rest, value)
	case fieldBody:
		return writeString(&slide.Body, path, rest, value)
	case fieldLeftText:
		return writeString(&slide.LeftText, path, rest, value)
	case fieldRightText:
		return writeString(&slide.RightText, path, rest, value)
	case fieldNote:
		return writeString(&slide.Note, path, rest, value)
	case fieldBullets:
		return writeStrings(&slide.Bullets, path, rest, value)
	case fieldTableHeaders:
		return writeStrings(&slide.TableHeaders, path, rest, value)
	case fieldTableRows:
		return writeRows(&slide.TableRows, path, rest, value)
	default:
		return fmt.Errorf("%w: unknown field %q", ErrUnresolvedFieldPath, head.key)
	}
}

func writeString(target *string, path FieldPath, rest []pathSegment, value any) error {
	if len(rest) > 0 {
		return fmt.Errorf("%w: %s indexes into a text field", ErrUnresolvedFieldPath, path)
	}
	text, ok := asString(value)
	if !ok {
		return fmt.Errorf("%w: %s expects text", ErrValueType, path)
	}
	*target = text
	return nil
}

func writeStrings(target *[]string, path FieldPath, rest []pathSegment, value any) error {
	switch len(rest) {
	case 0:
		values, ok := asStrings(value)
		if !ok {
			return fmt.Errorf("%w: %s expects a list of text", ErrValueType, path)
		}
		*target = values
		return nil
	case 1:
		index, err := resolveIndex(rest[0], len(*target), path)
		if err != nil {
			return err
		}
		text, ok := asString(value)
		if !ok {
			return fmt.Errorf("%w: %s expects text", ErrValueType, path)
		}
		(*target)[index] = text
		return nil
	default:
		return fmt.Errorf("%w: %s is too deep", ErrUnresolvedFieldPath, path)
	}
}

func writeRows(target *[][]string, path FieldPath, rest []pathSegment, value any) error {
	switch len(rest) {
	case 0:
		rows, ok := asRows(value)
		if !ok {
			return fmt.Errorf("%w: %s expects a list of rows", ErrValueType, path)
		}
		*target = rows
		return nil
	case 1:
		index, err := resolveIndex(rest[0], len(*target), path)
		if err != nil {
			return err
		}
		row, ok := asStrings(value)
		if !ok {
			return fmt.Errorf("%w: %s expects a row of text", ErrValueType, path)
		}
		(*target)[index] = row
		return nil
	case 2:
		rowIndex, err := resolveIndex(rest[0], len(*target), path)
		if err != nil {
			return err
		}
		row := (*target)[rowIndex]
		cellIndex, err := resolveIndex(rest[1], len(row), path)
		if err != nil {
			return err
		}
		text, ok := asString(value)
		if !ok {
			return fmt.Errorf("%w: %s expects text", ErrValueType, path)
		}
		row[cellIndex] = text
		return nil
	default:
		return fmt.Errorf("%w: %s is too deep", ErrUnresolvedFieldPath, path)
	}
}

func resolveIndex(segment pathSegment, length int, path FieldPath) (int, error) {
	if !segment.isIndex {
		return 0, fmt.Errorf("%w: %s uses key %q on a list", ErrUnresolvedFieldPath, path, segment.key)
	}
	if segment.index >= length {
		return 0, fmt.Errorf("%w: %s index %d out of range (length %d)", ErrUnresolvedFieldPath, path, segment.index, length)
	}
	return segment.index, nil
}

func asString(value any) (string, bool) {
	text, ok := value.(string)
	return text, ok
}

func asStrings(value any) ([]string, bool) {
	switch typed := value.(type) {
	case []string:
		return append([]string(nil), typed...), true
	case []any:
		values := make([]string, 0, len(typed))
		for _, element := range typed {
			text, ok := element.(string)
			if !ok {
				return nil, false
			}
			values = append(values, text)
		}
		return values, true
	default:
		return nil, false
	}
}

func asRows(value any) ([][]string, bool) {
	switch typed := value.(type) {
	case [][]string:
		rows := make([][]string, len(typed))
		for index, row := range typed {
			rows[index] = append([]string(nil), row...)
		}
		return rows, true
	case []any:
		rows := make([][]string, 0, len(typed))
		for _, element := range typed {
			row, ok := asStrings(element)
			if !ok {
				return nil, false
			}
			rows = append(rows, row)
		}
		return rows, true
	default:
		return nil, false
	}
}
