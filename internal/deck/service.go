// Package deck persists editor state, share links, comments and view events, and is the
// only place that feeds them through reconciliation.
package deck

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/decks/internal/analytics"
	"github.com/MarcoPoloResearchLab/decks/internal/catalog"
	"github.com/MarcoPoloResearchLab/decks/internal/reconcile"
	"go.uber.org/zap"
)

const (
	opServiceNew        = "deck.service.new"
	opEditorDeck        = "deck.editor_deck"
	opSaveEdits         = "deck.save_edits"
	opSaveOrder         = "deck.save_order"
	opCreateShareLink   = "deck.create_share_link"
	opListShareLinks    = "deck.list_share_links"
	opUpdateShareLink   = "deck.update_share_link"
	opRefreshShareLink  = "deck.refresh_share_link"
	opViewerDeck        = "deck.viewer_deck"
	opRegisterVisitor   = "deck.register_visitor"
	opAddComment        = "deck.add_comment"
	opListComments      = "deck.list_comments"
	opCommentCounts     = "deck.comment_counts"
	opClearComments     = "deck.clear_comments"
	opRecordViewEvents  = "deck.record_view_events"
	opLinkAnalytics     = "deck.link_analytics"
	opDashboard         = "deck.dashboard_analytics"
	opCheckLink         = "deck.check_link"
	opLinkVisitors      = "deck.link_visitors"
	reasonInvalidSlide  = "invalid_slide_id"
	reasonInvalidField  = "invalid_field_path"
	reasonInvalidLink   = "invalid_link_id"
	reasonQueryFailed   = "query_failed"
	reasonSaveFailed    = "save_failed"
	maxLinkIDAttempts   = 5
	skippedEditsMessage = "skipping unresolved slide edit"
)

var noOpLogger = zap.NewNop()

// ServiceConfig describes the dependencies of the deck service.
type ServiceConfig struct {
	Repository     Repository
	Catalog        *catalog.Catalog
	Clock          func() time.Time
	IDProvider     IDProvider
	LinkIDProvider IDProvider
	Logger         *zap.Logger
}

// Service coordinates persistence and reconciliation for the editor, link manager and viewer.
type Service struct {
	repo           Repository
	catalog        *catalog.Catalog
	clock          func() time.Time
	idProvider     IDProvider
	linkIDProvider IDProvider
	logger         *zap.Logger
}

// NewService validates the configuration and constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Repository == nil {
		return nil, newServiceError(opServiceNew, "missing_repository", KindInternal, errMissingRepository)
	}
	if cfg.Catalog == nil {
		return nil, newServiceError(opServiceNew, "missing_catalog", KindInternal, errMissingCatalog)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", KindInternal, errMissingIDProvider)
	}
	linkIDProvider := cfg.LinkIDProvider
	if linkIDProvider == nil {
		linkIDProvider = NewShortIDProvider()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		repo:           cfg.Repository,
		catalog:        cfg.Catalog,
		clock:          clock,
		idProvider:     cfg.IDProvider,
		linkIDProvider: linkIDProvider,
		logger:         logger,
	}, nil
}

// Catalog returns the base slides in catalog order.
func (s *Service) Catalog() []catalog.Slide {
	return s.catalog.Slides()
}

// EditorDeck is the full arrangement shown to the editor, graveyard included.
type EditorDeck struct {
	Slides         []catalog.Slide
	GraveyardIndex int
}

// EditorDeck returns every slide with edits merged, in the saved order.
func (s *Service) EditorDeck(ctx context.Context) (EditorDeck, error) {
	state, err := s.loadDeckState(ctx, opEditorDeck)
	if err != nil {
		return EditorDeck{}, err
	}
	arrangement, skipped := state.Editor()
	s.logSkipped(opEditorDeck, skipped)
	return EditorDeck{Slides: arrangement.Slides, GraveyardIndex: arrangement.GraveyardIndex}, nil
}

// SaveEdit stores one field override; a later save for the same pair replaces it.
func (s *Service) SaveEdit(ctx context.Context, input EditInput) (SlideEdit, error) {
	edits, err := s.SaveEdits(ctx, []EditInput{input})
	if err != nil {
		return SlideEdit{}, err
	}
	return edits[0], nil
}

// SaveEdits validates a batch, keeps the last value per (slide, field path) and stores the
// result in one transaction.
func (s *Service) SaveEdits(ctx context.Context, inputs []EditInput) ([]SlideEdit, error) {
	if len(inputs) == 0 {
		return nil, newServiceError(opSaveEdits, "empty_batch", KindValidation, errMissingValue)
	}
	now := s.clock().UTC().Unix()
	normalized := make([]EditInput, 0, len(inputs))
	for _, input := range inputs {
		if path, err := reconcile.ParseFieldPath(input.FieldPath); err == nil {
			input.FieldPath = path.String()
		}
		normalized = append(normalized, input)
	}
	coalesced := CoalesceEdits(normalized)
	edits := make([]SlideEdit, 0, len(coalesced))
	for _, input := range coalesced {
		edit, err := s.validateEdit(input, now)
		if err != nil {
			return nil, err
		}
		edits = append(edits, edit)
	}
	if err := s.repo.SaveSlideEdits(ctx, edits); err != nil {
		s.logError(opSaveEdits, reasonSaveFailed, err, zap.Int("edits", len(edits)))
		return nil, newServiceError(opSaveEdits, reasonSaveFailed, KindInternal, err)
	}
	return edits, nil
}

func (s *Service) validateEdit(input EditInput, now int64) (SlideEdit, error) {
	slideID, err := catalog.NewSlideID(input.SlideID)
	if err != nil {
		return SlideEdit{}, newServiceError(opSaveEdits, reasonInvalidSlide, KindValidation, err)
	}
	if !s.catalog.Contains(slideID.String()) {
		return SlideEdit{}, newServiceError(opSaveEdits, "unknown_slide", KindValidation, fmt.Errorf("%w: %s", errUnknownSlide, slideID))
	}
	path, err := reconcile.ParseFieldPath(input.FieldPath)
	if err != nil {
		return SlideEdit{}, newServiceError(opSaveEdits, reasonInvalidField, KindValidation, err)
	}
	if input.Value == nil {
		return SlideEdit{}, newServiceError(opSaveEdits, "missing_value", KindValidation, errMissingValue)
	}
	encoded, err := json.Marshal(input.Value)
	if err != nil {
		return SlideEdit{}, newServiceError(opSaveEdits, "invalid_value", KindValidation, err)
	}
	return SlideEdit{
		SlideID:          slideID.String(),
		FieldPath:        path.String(),
		ValueJSON:        string(encoded),
		UpdatedAtSeconds: now,
	}, nil
}

// SaveOrder replaces the custom order and graveyard index.
func (s *Service) SaveOrder(ctx context.Context, slideIDs []string, graveyardIndex int) (SlideOrder, error) {
	seen := make(map[string]struct{}, len(slideIDs))
	ids := make([]string, 0, len(slideIDs))
	for _, raw := range slideIDs {
		id, err := catalog.NewSlideID(raw)
		if err != nil {
			return SlideOrder{}, newServiceError(opSaveOrder, reasonInvalidSlide, KindValidation, err)
		}
		if _, exists := seen[id.String()]; exists {
			return SlideOrder{}, newServiceError(opSaveOrder, "duplicate_slide_id", KindValidation, fmt.Errorf("%w: %s", errDuplicateSlide, id))
		}
		seen[id.String()] = struct{}{}
		ids = append(ids, id.String())
	}
	if graveyardIndex < reconcile.NoGraveyard || graveyardIndex > len(ids) {
		return SlideOrder{}, newServiceError(opSaveOrder, "invalid_graveyard_index", KindValidation, fmt.Errorf("%w: %d", errGraveyardRange, graveyardIndex))
	}

	order := SlideOrder{
		OrderKey:         orderKeyDeck,
		SlideIDs:         ids,
		GraveyardIndex:   graveyardIndex,
		UpdatedAtSeconds: s.clock().UTC().Unix(),
	}
	if err := s.repo.SaveSlideOrder(ctx, order); err != nil {
		s.logError(opSaveOrder, reasonSaveFailed, err)
		return SlideOrder{}, newServiceError(opSaveOrder, reasonSaveFailed, KindInternal, err)
	}
	return order, nil
}

// CreateShareLink issues a new link frozen to the current active slides.
func (s *Service) CreateShareLink(ctx context.Context, label string) (ShareLink, error) {
	state, err := s.loadDeckState(ctx, opCreateShareLink)
	if err != nil {
		return ShareLink{}, err
	}
	linkID, err := s.allocateLinkID(ctx)
	if err != nil {
		return ShareLink{}, err
	}
	now := s.clock().UTC().Unix()
	link := ShareLink{
		LinkID:           linkID,
		Label:            strings.TrimSpace(label),
		CreatedAtSeconds: now,
		UpdatedAtSeconds: now,
		Snapshot:         state.ActiveIDs(),
	}
	created, err := s.repo.CreateShareLink(ctx, link)
	if err != nil {
		s.logError(opCreateShareLink, reasonSaveFailed, err, zap.String("link_id", linkID))
		return ShareLink{}, newServiceError(opCreateShareLink, reasonSaveFailed, KindInternal, err)
	}
	s.loggerOrDefault().Info("share link created", zap.String("link_id", created.LinkID), zap.Int("slides", len(created.Snapshot)))
	return created, nil
}

func (s *Service) allocateLinkID(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxLinkIDAttempts; attempt++ {
		candidate, err := s.linkIDProvider.NewID()
		if err != nil {
			s.logError(opCreateShareLink, "id_generation_failed", err)
			return "", newServiceError(opCreateShareLink, "id_generation_failed", KindInternal, err)
		}
		existing, err := s.repo.GetShareLink(ctx, candidate)
		if err != nil {
			s.logError(opCreateShareLink, reasonQueryFailed, err)
			return "", newServiceError(opCreateShareLink, reasonQueryFailed, KindInternal, err)
		}
		if existing == nil {
			return candidate, nil
		}
	}
	return "", newServiceError(opCreateShareLink, "id_generation_failed", KindInternal, errLinkIDExhausted)
}

// LinkOverview is a share link with the number of captured visitor emails.
type LinkOverview struct {
	Link     ShareLink
	Visitors int64
}

// ListShareLinks returns every link, newest first.
func (s *Service) ListShareLinks(ctx context.Context) ([]LinkOverview, error) {
	links, err := s.repo.GetAllShareLinks(ctx)
	if err != nil {
		s.logError(opListShareLinks, reasonQueryFailed, err)
		return nil, newServiceError(opListShareLinks, reasonQueryFailed, KindInternal, err)
	}
	counts, err := s.repo.CountVisitorsByLink(ctx)
	if err != nil {
		s.loggerOrDefault().Warn("visitor counts unavailable", zap.String("operation", opListShareLinks), zap.Error(err))
		counts = map[string]int64{}
	}
	overviews := make([]LinkOverview, 0, len(links))
	for _, link := range links {
		overviews = append(overviews, LinkOverview{Link: link, Visitors: counts[link.LinkID]})
	}
	return overviews, nil
}

// SetShareLinkDisabled disables or re-enables a link without deleting it.
func (s *Service) SetShareLinkDisabled(ctx context.Context, rawLinkID string, disabled bool) (ShareLink, error) {
	linkID, err := NewLinkID(rawLinkID)
	if err != nil {
		return ShareLink{}, newServiceError(opUpdateShareLink, reasonInvalidLink, KindValidation, err)
	}
	update := ShareLinkUpdate{Disabled: &disabled, UpdatedAtSeconds: s.clock().UTC().Unix()}
	return s.updateShareLink(ctx, opUpdateShareLink, linkID, update)
}

// RefreshShareLink re-freezes the link to the current active slides. It is the only
// operation that changes which slides an already shared link shows.
func (s *Service) RefreshShareLink(ctx context.Context, rawLinkID string) (ShareLink, error) {
	linkID, err := NewLinkID(rawLinkID)
	if err != nil {
		return ShareLink{}, newServiceError(opRefreshShareLink, reasonInvalidLink, KindValidation, err)
	}
	state, err := s.loadDeckState(ctx, opRefreshShareLink)
	if err != nil {
		return ShareLink{}, err
	}
	snapshot := state.ActiveIDs()
	update := ShareLinkUpdate{Snapshot: &snapshot, UpdatedAtSeconds: s.clock().UTC().Unix()}
	return s.updateShareLink(ctx, opRefreshShareLink, linkID, update)
}

func (s *Service) updateShareLink(ctx context.Context, operation string, linkID LinkID, update ShareLinkUpdate) (ShareLink, error) {
	updated, err := s.repo.UpdateShareLink(ctx, linkID.String(), update)
	if err != nil {
		s.logError(operation, reasonSaveFailed, err, zap.String("link_id", linkID.String()))
		return ShareLink{}, newServiceError(operation, reasonSaveFailed, KindInternal, err)
	}
	if updated == nil {
		return ShareLink{}, newServiceError(operation, "not_found", KindNotFound, fmt.Errorf("%w: %s", errLinkNotFound, linkID))
	}
	return *updated, nil
}

// ViewerDeck is what an anonymous viewer of a link is shown.
type ViewerDeck struct {
	Available bool
	Link      *ShareLink
	Slides    []catalog.Slide
}

// ViewerDeck resolves a link for the public viewer. Unknown and disabled links come back
// unavailable without reading edits or order.
func (s *Service) ViewerDeck(ctx context.Context, rawLinkID string) (ViewerDeck, error) {
	linkID, err := NewLinkID(rawLinkID)
	if err != nil {
		return ViewerDeck{}, newServiceError(opViewerDeck, reasonInvalidLink, KindValidation, err)
	}
	link, err := s.repo.GetShareLink(ctx, linkID.String())
	if err != nil {
		s.logError(opViewerDeck, reasonQueryFailed, err, zap.String("link_id", linkID.String()))
		return ViewerDeck{}, newServiceError(opViewerDeck, reasonQueryFailed, KindInternal, err)
	}
	if link == nil || link.Disabled {
		return ViewerDeck{Available: false, Link: link}, nil
	}

	state, err := s.loadDeckState(ctx, opViewerDeck)
	if err != nil {
		return ViewerDeck{}, err
	}
	resolution := state.Viewer(&reconcile.LinkState{Disabled: link.Disabled, Snapshot: link.Snapshot})
	s.logSkipped(opViewerDeck, resolution.Skipped)
	return ViewerDeck{Available: resolution.Available, Link: link, Slides: resolution.Slides}, nil
}

// RegisterVisitor records the email a viewer entered at a link's access gate.
func (s *Service) RegisterVisitor(ctx context.Context, rawLinkID, rawEmail string) (Visitor, error) {
	linkID, err := NewLinkID(rawLinkID)
	if err != nil {
		return Visitor{}, newServiceError(opRegisterVisitor, reasonInvalidLink, KindValidation, err)
	}
	email, err := NewEmail(rawEmail)
	if err != nil {
		return Visitor{}, newServiceError(opRegisterVisitor, "invalid_email", KindValidation, err)
	}
	if err := s.ensureAvailable(ctx, opRegisterVisitor, linkID); err != nil {
		return Visitor{}, err
	}
	now := s.clock().UTC().Unix()
	visitor := Visitor{
		LinkID:             linkID.String(),
		Email:              email.String(),
		FirstSeenAtSeconds: now,
		LastSeenAtSeconds:  now,
	}
	if err := s.repo.UpsertVisitor(ctx, visitor); err != nil {
		s.logError(opRegisterVisitor, reasonSaveFailed, err, zap.String("link_id", linkID.String()))
		return Visitor{}, newServiceError(opRegisterVisitor, reasonSaveFailed, KindInternal, err)
	}
	return visitor, nil
}

// CheckLinkAvailable returns an unavailable error for unknown and disabled links.
func (s *Service) CheckLinkAvailable(ctx context.Context, rawLinkID string) error {
	linkID, err := NewLinkID(rawLinkID)
	if err != nil {
		return newServiceError(opCheckLink, reasonInvalidLink, KindValidation, err)
	}
	return s.ensureAvailable(ctx, opCheckLink, linkID)
}

func (s *Service) ensureAvailable(ctx context.Context, operation string, linkID LinkID) error {
	link, err := s.repo.GetShareLink(ctx, linkID.String())
	if err != nil {
		s.logError(operation, reasonQueryFailed, err, zap.String("link_id", linkID.String()))
		return newServiceError(operation, reasonQueryFailed, KindInternal, err)
	}
	if link == nil || link.Disabled {
		return newServiceError(operation, "link_unavailable", KindUnavailable, fmt.Errorf("%w: %s", errLinkUnavailable, linkID))
	}
	return nil
}

// LinkVisitors lists the viewers who passed a link's email gate, most recent first.
// Disabled links keep their visitor history.
func (s *Service) LinkVisitors(ctx context.Context, rawLinkID string) ([]Visitor, error) {
	linkID, err := NewLinkID(rawLinkID)
	if err != nil {
		return nil, newServiceError(opLinkVisitors, reasonInvalidLink, KindValidation, err)
	}
	link, err := s.repo.GetShareLink(ctx, linkID.String())
	if err != nil {
		s.logError(opLinkVisitors, reasonQueryFailed, err, zap.String("link_id", linkID.String()))
		return nil, newServiceError(opLinkVisitors, reasonQueryFailed, KindInternal, err)
	}
	if link == nil {
		return nil, newServiceError(opLinkVisitors, "not_found", KindNotFound, fmt.Errorf("%w: %s", errLinkNotFound, linkID))
	}
	visitors, err := s.repo.ListVisitors(ctx, linkID.String())
	if err != nil {
		s.logError(opLinkVisitors, reasonQueryFailed, err, zap.String("link_id", linkID.String()))
		return nil, newServiceError(opLinkVisitors, reasonQueryFailed, KindInternal, err)
	}
	return visitors, nil
}

// AddComment appends a comment to a catalog slide.
func (s *Service) AddComment(ctx context.Context, input CommentInput) (Comment, error) {
	slideID, err := catalog.NewSlideID(input.SlideID)
	if err != nil {
		return Comment{}, newServiceError(opAddComment, reasonInvalidSlide, KindValidation, err)
	}
	if !s.catalog.Contains(slideID.String()) {
		return Comment{}, newServiceError(opAddComment, "unknown_slide", KindNotFound, fmt.Errorf("%w: %s", errUnknownSlide, slideID))
	}
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return Comment{}, newServiceError(opAddComment, "empty_text", KindValidation, errEmptyComment)
	}
	if len(text) > maxCommentLength {
		return Comment{}, newServiceError(opAddComment, "text_too_long", KindValidation, errCommentTooLong)
	}
	author := strings.TrimSpace(input.Author)
	if author == "" {
		author = DefaultCommentAuthor
	}
	if len(author) > maxAuthorLength {
		author = author[:maxAuthorLength]
	}
	commentID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opAddComment, "id_generation_failed", err)
		return Comment{}, newServiceError(opAddComment, "id_generation_failed", KindInternal, err)
	}
	comment := Comment{
		CommentID:        commentID,
		SlideID:          slideID.String(),
		Author:           author,
		Text:             text,
		CreatedAtSeconds: s.clock().UTC().Unix(),
	}
	if err := s.repo.AppendComment(ctx, comment); err != nil {
		s.logError(opAddComment, reasonSaveFailed, err, zap.String("slide_id", slideID.String()))
		return Comment{}, newServiceError(opAddComment, reasonSaveFailed, KindInternal, err)
	}
	return comment, nil
}

// ListComments returns a slide's comments, oldest first.
func (s *Service) ListComments(ctx context.Context, rawSlideID string) ([]Comment, error) {
	slideID, err := catalog.NewSlideID(rawSlideID)
	if err != nil {
		return nil, newServiceError(opListComments, reasonInvalidSlide, KindValidation, err)
	}
	comments, err := s.repo.ListComments(ctx, slideID.String())
	if err != nil {
		s.logError(opListComments, reasonQueryFailed, err, zap.String("slide_id", slideID.String()))
		return nil, newServiceError(opListComments, reasonQueryFailed, KindInternal, err)
	}
	return comments, nil
}

// CommentCounts returns the number of comments per slide. Failures are logged and yield
// an empty map so the editor keeps working.
func (s *Service) CommentCounts(ctx context.Context) map[string]int64 {
	counts, err := s.repo.CountCommentsBySlide(ctx)
	if err != nil {
		s.loggerOrDefault().Warn("comment counts unavailable", zap.String("operation", opCommentCounts), zap.Error(err))
		return map[string]int64{}
	}
	return counts
}

// ClearComments deletes every comment and returns how many were removed.
func (s *Service) ClearComments(ctx context.Context) (int64, error) {
	removed, err := s.repo.ClearComments(ctx)
	if err != nil {
		s.logError(opClearComments, reasonSaveFailed, err)
		return 0, newServiceError(opClearComments, reasonSaveFailed, KindInternal, err)
	}
	s.loggerOrDefault().Info("comments cleared", zap.Int64("removed", removed))
	return removed, nil
}

// RecordViewEvents appends tracked viewing time. Malformed events are dropped.
func (s *Service) RecordViewEvents(ctx context.Context, inputs []ViewEventInput) error {
	now := s.clock().UTC().Unix()
	events := make([]ViewEvent, 0, len(inputs))
	for _, input := range inputs {
		event, err := normalizeViewEvent(input, now)
		if err != nil {
			s.loggerOrDefault().Debug("dropping view event", zap.String("operation", opRecordViewEvents), zap.Error(err))
			continue
		}
		events = append(events, event)
	}
	if len(events) == 0 {
		return nil
	}
	if err := s.repo.AppendViewEvents(ctx, events); err != nil {
		s.logError(opRecordViewEvents, reasonSaveFailed, err, zap.Int("events", len(events)))
		return newServiceError(opRecordViewEvents, reasonSaveFailed, KindInternal, err)
	}
	return nil
}

func normalizeViewEvent(input ViewEventInput, now int64) (ViewEvent, error) {
	linkID, err := NewLinkID(input.LinkID)
	if err != nil {
		return ViewEvent{}, err
	}
	email, err := NewEmail(input.Email)
	if err != nil {
		return ViewEvent{}, err
	}
	slideID, err := catalog.NewSlideID(input.SlideID)
	if err != nil {
		return ViewEvent{}, err
	}
	if input.DurationSeconds < 0 {
		return ViewEvent{}, fmt.Errorf("negative duration %v", input.DurationSeconds)
	}
	recordedAt := input.RecordedAt
	if recordedAt <= 0 {
		recordedAt = now
	}
	return ViewEvent{
		LinkID:            linkID.String(),
		Email:             email.String(),
		SlideID:           slideID.String(),
		DurationSeconds:   input.DurationSeconds,
		RecordedAtSeconds: recordedAt,
	}, nil
}

// LinkAnalytics summarizes viewing time for one link.
func (s *Service) LinkAnalytics(ctx context.Context, rawLinkID string) (analytics.Summary, error) {
	linkID, err := NewLinkID(rawLinkID)
	if err != nil {
		return analytics.Summary{}, newServiceError(opLinkAnalytics, reasonInvalidLink, KindValidation, err)
	}
	link, err := s.repo.GetShareLink(ctx, linkID.String())
	if err != nil {
		s.logError(opLinkAnalytics, reasonQueryFailed, err, zap.String("link_id", linkID.String()))
		return analytics.Summary{}, newServiceError(opLinkAnalytics, reasonQueryFailed, KindInternal, err)
	}
	if link == nil {
		return analytics.Summary{}, newServiceError(opLinkAnalytics, "not_found", KindNotFound, fmt.Errorf("%w: %s", errLinkNotFound, linkID))
	}
	events, err := s.repo.ListViewEvents(ctx, linkID.String())
	if err != nil {
		s.logError(opLinkAnalytics, reasonQueryFailed, err, zap.String("link_id", linkID.String()))
		return analytics.Summary{}, newServiceError(opLinkAnalytics, reasonQueryFailed, KindInternal, err)
	}
	slideOrder, err := s.slideOrderFor(ctx, opLinkAnalytics, *link)
	if err != nil {
		return analytics.Summary{}, err
	}
	return analytics.Summarize(link.LinkID, toAnalyticsEvents(events), slideOrder), nil
}

// DashboardAnalytics summarizes every link, newest link first.
func (s *Service) DashboardAnalytics(ctx context.Context) ([]analytics.Summary, error) {
	links, err := s.repo.GetAllShareLinks(ctx)
	if err != nil {
		s.logError(opDashboard, reasonQueryFailed, err)
		return nil, newServiceError(opDashboard, reasonQueryFailed, KindInternal, err)
	}
	events, err := s.repo.ListViewEvents(ctx, "")
	if err != nil {
		s.logError(opDashboard, reasonQueryFailed, err)
		return nil, newServiceError(opDashboard, reasonQueryFailed, KindInternal, err)
	}
	state, err := s.loadDeckState(ctx, opDashboard)
	if err != nil {
		return nil, err
	}
	liveOrder := state.ActiveIDs()
	converted := toAnalyticsEvents(events)

	summaries := make([]analytics.Summary, 0, len(links))
	for _, link := range links {
		slideOrder := liveOrder
		if len(link.Snapshot) > 0 {
			slideOrder = link.Snapshot
		}
		summaries = append(summaries, analytics.Summarize(link.LinkID, converted, slideOrder))
	}
	return summaries, nil
}

func (s *Service) slideOrderFor(ctx context.Context, operation string, link ShareLink) ([]string, error) {
	if len(link.Snapshot) > 0 {
		return link.Snapshot, nil
	}
	state, err := s.loadDeckState(ctx, operation)
	if err != nil {
		return nil, err
	}
	return state.ActiveIDs(), nil
}

func toAnalyticsEvents(events []ViewEvent) []analytics.Event {
	converted := make([]analytics.Event, 0, len(events))
	for _, event := range events {
		converted = append(converted, analytics.Event{
			LinkID:          event.LinkID,
			Email:           event.Email,
			SlideID:         event.SlideID,
			DurationSeconds: event.DurationSeconds,
			RecordedAt:      time.Unix(event.RecordedAtSeconds, 0).UTC(),
		})
	}
	return converted
}

func (s *Service) loadDeckState(ctx context.Context, operation string) (reconcile.DeckState, error) {
	stored, err := s.repo.GetSlideEdits(ctx)
	if err != nil {
		s.logError(operation, "edits_query_failed", err)
		return reconcile.DeckState{}, newServiceError(operation, "edits_query_failed", KindInternal, err)
	}
	order, err := s.repo.GetSlideOrder(ctx)
	if err != nil {
		s.logError(operation, "order_query_failed", err)
		return reconcile.DeckState{}, newServiceError(operation, "order_query_failed", KindInternal, err)
	}

	edits := make([]reconcile.Edit, 0, len(stored))
	for _, edit := range stored {
		var value any
		if err := json.Unmarshal([]byte(edit.ValueJSON), &value); err != nil {
			s.loggerOrDefault().Warn(skippedEditsMessage,
				zap.String("operation", operation),
				zap.String("slide_id", edit.SlideID),
				zap.String("field_path", edit.FieldPath),
				zap.Error(err))
			continue
		}
		edits = append(edits, reconcile.Edit{SlideID: edit.SlideID, FieldPath: edit.FieldPath, Value: value})
	}

	state := reconcile.DeckState{Catalog: s.catalog.Slides(), Edits: edits}
	if order != nil {
		state.Order = &reconcile.Order{SlideIDs: order.SlideIDs, GraveyardIndex: order.GraveyardIndex}
	}
	return state, nil
}

func (s *Service) logSkipped(operation string, skipped []reconcile.SkippedEdit) {
	for _, entry := range skipped {
		s.loggerOrDefault().Warn(skippedEditsMessage,
			zap.String("operation", operation),
			zap.String("slide_id", entry.Edit.SlideID),
			zap.String("field_path", entry.Edit.FieldPath),
			zap.Error(entry.Err))
	}
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil || s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("deck service error", attrs...)
}
