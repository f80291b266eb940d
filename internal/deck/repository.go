package deck

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the persistence collaborator behind the deck service. Each method is a
// durable read or a serializable read-modify-write of one record type.
type Repository interface {
	GetSlideEdits(ctx context.Context) ([]SlideEdit, error)
	SaveSlideEdit(ctx context.Context, edit SlideEdit) error
	SaveSlideEdits(ctx context.Context, edits []SlideEdit) error
	GetSlideOrder(ctx context.Context) (*SlideOrder, error)
	SaveSlideOrder(ctx context.Context, order SlideOrder) error
	GetShareLink(ctx context.Context, linkID string) (*ShareLink, error)
	CreateShareLink(ctx context.Context, link ShareLink) (ShareLink, error)
	UpdateShareLink(ctx context.Context, linkID string, update ShareLinkUpdate) (*ShareLink, error)
	GetAllShareLinks(ctx context.Context) ([]ShareLink, error)
	AppendComment(ctx context.Context, comment Comment) error
	ListComments(ctx context.Context, slideID string) ([]Comment, error)
	CountCommentsBySlide(ctx context.Context) (map[string]int64, error)
	ClearComments(ctx context.Context) (int64, error)
	AppendViewEvents(ctx context.Context, events []ViewEvent) error
	ListViewEvents(ctx context.Context, linkID string) ([]ViewEvent, error)
	UpsertVisitor(ctx context.Context, visitor Visitor) error
	ListVisitors(ctx context.Context, linkID string) ([]Visitor, error)
	CountVisitorsByLink(ctx context.Context) (map[string]int64, error)
}

const (
	querySlideID     = "slide_id = ?"
	queryLinkID      = "link_id = ?"
	queryOrderKey    = "order_key = ?"
	orderCreatedDesc = "created_at_s DESC"
)

// GormRepository stores deck state through GORM.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository wraps a migrated database handle.
func NewGormRepository(db *gorm.DB) (*GormRepository, error) {
	if db == nil {
		return nil, errMissingDatabase
	}
	return &GormRepository{db: db}, nil
}

func (r *GormRepository) GetSlideEdits(ctx context.Context) ([]SlideEdit, error) {
	var edits []SlideEdit
	err := r.db.WithContext(ctx).
		Order("write_seq ASC").
		Order("updated_at_s ASC").
		Order("slide_id ASC").
		Order("field_path ASC").
		Find(&edits).Error
	return edits, err
}

func (r *GormRepository) SaveSlideEdit(ctx context.Context, edit SlideEdit) error {
	return r.SaveSlideEdits(ctx, []SlideEdit{edit})
}

// SaveSlideEdits upserts every edit in one transaction; the stored value for a
// (slide, field path) pair is always the last one written. Each edit receives the next
// write sequence in slice order.
func (r *GormRepository) SaveSlideEdits(ctx context.Context, edits []SlideEdit) error {
	if len(edits) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var latest int64
		if err := tx.Model(&SlideEdit{}).Select("COALESCE(MAX(write_seq), 0)").Scan(&latest).Error; err != nil {
			return err
		}
		for index := range edits {
			edits[index].WriteSequence = latest + int64(index) + 1
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "slide_id"}, {Name: "field_path"}},
				DoUpdates: clause.AssignmentColumns([]string{"value_json", "updated_at_s", "write_seq"}),
			}).Create(&edits[index]).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *GormRepository) GetSlideOrder(ctx context.Context) (*SlideOrder, error) {
	var order SlideOrder
	err := r.db.WithContext(ctx).Where(queryOrderKey, orderKeyDeck).Take(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepository) SaveSlideOrder(ctx context.Context, order SlideOrder) error {
	order.OrderKey = orderKeyDeck
	return r.db.WithContext(ctx).Save(&order).Error
}

func (r *GormRepository) GetShareLink(ctx context.Context, linkID string) (*ShareLink, error) {
	var link ShareLink
	err := r.db.WithContext(ctx).Where(queryLinkID, linkID).Take(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *GormRepository) CreateShareLink(ctx context.Context, link ShareLink) (ShareLink, error) {
	if err := r.db.WithContext(ctx).Create(&link).Error; err != nil {
		return ShareLink{}, err
	}
	return link, nil
}

// UpdateShareLink applies the update and returns the stored link, or nil when the id is unknown.
func (r *GormRepository) UpdateShareLink(ctx context.Context, linkID string, update ShareLinkUpdate) (*ShareLink, error) {
	var updated *ShareLink
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var link ShareLink
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(queryLinkID, linkID).
			Take(&link).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if update.Label != nil {
			link.Label = *update.Label
		}
		if update.Disabled != nil {
			link.Disabled = *update.Disabled
		}
		if update.Snapshot != nil {
			link.Snapshot = append([]string(nil), (*update.Snapshot)...)
		}
		if update.UpdatedAtSeconds > 0 {
			link.UpdatedAtSeconds = update.UpdatedAtSeconds
		}
		if err := tx.Save(&link).Error; err != nil {
			return err
		}
		updated = &link
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *GormRepository) GetAllShareLinks(ctx context.Context) ([]ShareLink, error) {
	var links []ShareLink
	err := r.db.WithContext(ctx).Order(orderCreatedDesc).Order("link_id ASC").Find(&links).Error
	return links, err
}

func (r *GormRepository) AppendComment(ctx context.Context, comment Comment) error {
	return r.db.WithContext(ctx).Create(&comment).Error
}

func (r *GormRepository) ListComments(ctx context.Context, slideID string) ([]Comment, error) {
	var comments []Comment
	err := r.db.WithContext(ctx).
		Where(querySlideID, slideID).
		Order("created_at_s ASC").
		Order("comment_id ASC").
		Find(&comments).Error
	return comments, err
}

type groupCount struct {
	GroupKey string
	Total    int64
}

func (r *GormRepository) CountCommentsBySlide(ctx context.Context) (map[string]int64, error) {
	var rows []groupCount
	err := r.db.WithContext(ctx).
		Model(&Comment{}).
		Select("slide_id AS group_key, COUNT(*) AS total").
		Group("slide_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return countsByKey(rows), nil
}

func (r *GormRepository) ClearComments(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Where("1 = 1").Delete(&Comment{})
	return result.RowsAffected, result.Error
}

func (r *GormRepository) AppendViewEvents(ctx context.Context, events []ViewEvent) error {
	if len(events) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&events).Error
}

// ListViewEvents returns the events for one link, or for every link when linkID is empty.
func (r *GormRepository) ListViewEvents(ctx context.Context, linkID string) ([]ViewEvent, error) {
	query := r.db.WithContext(ctx).Order("recorded_at_s ASC").Order("event_id ASC")
	if linkID != "" {
		query = query.Where(queryLinkID, linkID)
	}
	var events []ViewEvent
	err := query.Find(&events).Error
	return events, err
}

// UpsertVisitor records a visit, keeping the first-seen time of an existing visitor.
func (r *GormRepository) UpsertVisitor(ctx context.Context, visitor Visitor) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "link_id"}, {Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_seen_at_s"}),
	}).Create(&visitor).Error
}

func (r *GormRepository) ListVisitors(ctx context.Context, linkID string) ([]Visitor, error) {
	var visitors []Visitor
	err := r.db.WithContext(ctx).
		Where(queryLinkID, linkID).
		Order("last_seen_at_s DESC").
		Order("email ASC").
		Find(&visitors).Error
	return visitors, err
}

func (r *GormRepository) CountVisitorsByLink(ctx context.Context) (map[string]int64, error) {
	var rows []groupCount
	err := r.db.WithContext(ctx).
		Model(&Visitor{}).
		Select("link_id AS group_key, COUNT(*) AS total").
		Group("link_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return countsByKey(rows), nil
}

func countsByKey(rows []groupCount) map[string]int64 {
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.GroupKey] = row.Total
	}
	return counts
}
