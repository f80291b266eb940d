package deck

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/MarcoPoloResearchLab/decks/internal/analytics"
)

const (
	maxLinkIDLength  = 64
	maxEmailLength   = 320
	maxAuthorLength  = 120
	maxCommentLength = 4000
	orderKeyDeck     = "deck"
)

// DefaultCommentAuthor is stored when a comment is posted without a name.
const DefaultCommentAuthor = "Anonymous"

var (
	// ErrInvalidLinkID indicates that a share link identifier is empty or malformed.
	ErrInvalidLinkID = errors.New("deck: invalid link id")
	// ErrInvalidEmail indicates that a viewer email address could not be parsed.
	ErrInvalidEmail = errors.New("deck: invalid email")
)

// LinkID represents a validated share link identifier.
type LinkID string

// NewLinkID validates raw input and returns a LinkID.
func NewLinkID(rawInput string) (LinkID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidLinkID)
	}
	if len(trimmed) > maxLinkIDLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidLinkID, maxLinkIDLength)
	}
	for _, r := range trimmed {
		if !isLinkIDRune(r) {
			return "", fmt.Errorf("%w: unexpected character %q", ErrInvalidLinkID, r)
		}
	}
	return LinkID(trimmed), nil
}

// String returns the underlying string identifier.
func (id LinkID) String() string {
	return string(id)
}

func isLinkIDRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_'
}

// Email represents a validated, lower-cased viewer address.
type Email string

// NewEmail validates raw input and returns an Email.
func NewEmail(rawInput string) (Email, error) {
	normalized := analytics.NormalizeEmail(rawInput)
	if normalized == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidEmail)
	}
	if len(normalized) > maxEmailLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidEmail, maxEmailLength)
	}
	address, err := mail.ParseAddress(normalized)
	if err != nil || address.Address != normalized {
		return "", fmt.Errorf("%w: %q", ErrInvalidEmail, rawInput)
	}
	return Email(normalized), nil
}

// String returns the address.
func (email Email) String() string {
	return string(email)
}

// SlideEdit is the latest override for one (slide, field path) pair.
type SlideEdit struct {
	SlideID          string `gorm:"column:slide_id;primaryKey;size:190;not null"`
	FieldPath        string `gorm:"column:field_path;primaryKey;size:190;not null"`
	ValueJSON        string `gorm:"column:value_json;type:text;not null"`
	UpdatedAtSeconds int64  `gorm:"column:updated_at_s;not null"`
	// WriteSequence orders replay; a parent path written after a child path overrides it.
	WriteSequence int64 `gorm:"column:write_seq;not null;default:0;index"`
}

// TableName provides the explicit table binding for GORM.
func (SlideEdit) TableName() string {
	return "slide_edits"
}

// SlideOrder is the persisted custom sequence and graveyard cut. There is one row per deck.
type SlideOrder struct {
	OrderKey         string   `gorm:"column:order_key;primaryKey;size:32;not null"`
	SlideIDs         []string `gorm:"column:slide_ids;type:text;not null;serializer:json"`
	GraveyardIndex   int      `gorm:"column:graveyard_index;not null;default:-1"`
	UpdatedAtSeconds int64    `gorm:"column:updated_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (SlideOrder) TableName() string {
	return "slide_orders"
}

// ShareLink is a view-only link to the deck, optionally frozen to a snapshot of slide ids.
type ShareLink struct {
	LinkID           string   `gorm:"column:link_id;primaryKey;size:64;not null"`
	Label            string   `gorm:"column:label;size:190;not null;default:''"`
	CreatedAtSeconds int64    `gorm:"column:created_at_s;not null;index"`
	UpdatedAtSeconds int64    `gorm:"column:updated_at_s;not null"`
	Disabled         bool     `gorm:"column:disabled;not null;default:false"`
	Snapshot         []string `gorm:"column:snapshot;type:text;serializer:json"`
}

// TableName provides the explicit table binding for GORM.
func (ShareLink) TableName() string {
	return "share_links"
}

// ShareLinkUpdate lists the fields to change on a share link; nil fields are left alone.
type ShareLinkUpdate struct {
	Label            *string
	Disabled         *bool
	Snapshot         *[]string
	UpdatedAtSeconds int64
}

// Comment is an append-only note left on a slide.
type Comment struct {
	CommentID        string `gorm:"column:comment_id;primaryKey;size:64;not null"`
	SlideID          string `gorm:"column:slide_id;size:190;not null;index:idx_comments_slide_time,priority:1"`
	Author           string `gorm:"column:author;size:120;not null"`
	Text             string `gorm:"column:text;type:text;not null"`
	CreatedAtSeconds int64  `gorm:"column:created_at_s;not null;index:idx_comments_slide_time,priority:2"`
}

// TableName provides the explicit table binding for GORM.
func (Comment) TableName() string {
	return "slide_comments"
}

// ViewEvent records how long a viewer of a link stayed on one slide.
type ViewEvent struct {
	EventID           int64   `gorm:"column:event_id;primaryKey;autoIncrement"`
	LinkID            string  `gorm:"column:link_id;size:64;not null;index:idx_view_events_link_time,priority:1"`
	Email             string  `gorm:"column:email;size:320;not null"`
	SlideID           string  `gorm:"column:slide_id;size:190;not null"`
	DurationSeconds   float64 `gorm:"column:duration_s;not null"`
	RecordedAtSeconds int64   `gorm:"column:recorded_at_s;not null;index:idx_view_events_link_time,priority:2"`
}

// TableName provides the explicit table binding for GORM.
func (ViewEvent) TableName() string {
	return "view_events"
}

// Visitor is an email captured by a link's access gate.
type Visitor struct {
	LinkID             string `gorm:"column:link_id;primaryKey;size:64;not null"`
	Email              string `gorm:"column:email;primaryKey;size:320;not null"`
	FirstSeenAtSeconds int64  `gorm:"column:first_seen_at_s;not null"`
	LastSeenAtSeconds  int64  `gorm:"column:last_seen_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Visitor) TableName() string {
	return "link_visitors"
}

// Models lists every table the deck service persists, in migration order.
func Models() []any {
	return []any{&SlideEdit{}, &SlideOrder{}, &ShareLink{}, &Comment{}, &ViewEvent{}, &Visitor{}}
}

// EditInput is an unvalidated edit submitted by the editor.
type EditInput struct {
	SlideID   string
	FieldPath string
	Value     any
}

// Key identifies the (slide, field path) pair an edit overrides.
func (input EditInput) Key() string {
	return strings.TrimSpace(input.SlideID) + "\x00" + strings.TrimSpace(input.FieldPath)
}

// CoalesceEdits keeps the last value per (slide, field path), ordered by last appearance
// so overlapping paths replay in write order.
func CoalesceEdits(inputs []EditInput) []EditInput {
	lastPositions := make(map[string]int, len(inputs))
	for position, input := range inputs {
		lastPositions[input.Key()] = position
	}
	coalesced := make([]EditInput, 0, len(lastPositions))
	for position, input := range inputs {
		if lastPositions[input.Key()] == position {
			coalesced = append(coalesced, input)
		}
	}
	return coalesced
}

// CommentInput is an unvalidated comment submission.
type CommentInput struct {
	SlideID string
	Author  string
	Text    string
}

// ViewEventInput is one tracked stretch of viewing time.
type ViewEventInput struct {
	LinkID          string
	Email           string
	SlideID         string
	DurationSeconds float64
	RecordedAt      int64
}
