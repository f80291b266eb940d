package database

import (
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/decks/internal/deck"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationNormalizeGraveyardIndex = "2026-01-12_normalize_graveyard_index"
	migrationBackfillCommentAuthor   = "2026-01-20_backfill_comment_author"
	migrationSequenceSlideEdits      = "2026-02-03_sequence_slide_edits"
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationNormalizeGraveyardIndex, apply: normalizeGraveyardIndex},
		{name: migrationBackfillCommentAuthor, apply: backfillCommentAuthor},
		{name: migrationSequenceSlideEdits, apply: sequenceSlideEdits},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// Older clients stored any negative cut; -1 is the only "no graveyard" value.
func normalizeGraveyardIndex(db *gorm.DB) error {
	return db.Model(&deck.SlideOrder{}).
		Where("graveyard_index < ?", -1).
		Update("graveyard_index", -1).Error
}

func backfillCommentAuthor(db *gorm.DB) error {
	return db.Model(&deck.Comment{}).
		Where("TRIM(author) = ''").
		Update("author", deck.DefaultCommentAuthor).Error
}

// Rows written before write_seq existed replay in their previous timestamp order.
func sequenceSlideEdits(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var edits []deck.SlideEdit
		err := tx.Where("write_seq = ?", 0).
			Order("updated_at_s ASC").
			Order("slide_id ASC").
			Order("field_path ASC").
			Find(&edits).Error
		if err != nil {
			return err
		}
		for index, edit := range edits {
			err := tx.Model(&deck.SlideEdit{}).
				Where("slide_id = ? AND field_path = ?", edit.SlideID, edit.FieldPath).
				Update("write_seq", int64(index)+1).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}
