package preferences

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Preference is the SQLite row behind GormStore.
type Preference struct {
	ProfileID        string `gorm:"column:profile_id;primaryKey;size:64"`
	Key              string `gorm:"column:pref_key;primaryKey;size:64"`
	Value            string `gorm:"column:pref_value;not null"`
	UpdatedAtSeconds int64  `gorm:"column:updated_at_s;not null"`
}

// TableName binds Preference to profile_preferences.
func (Preference) TableName() string {
	return "profile_preferences"
}

// GormStore keeps preferences in the main database when Redis is not configured.
type GormStore struct {
	db    *gorm.DB
	clock func() time.Time
}

// NewGormStore constructs a GormStore.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, errors.New("preferences: database handle is required")
	}
	return &GormStore{db: db, clock: time.Now}, nil
}

// All returns every preference of the profile.
func (s *GormStore) All(ctx context.Context, profileID string) (map[string]string, error) {
	profile := strings.TrimSpace(profileID)
	if profile == "" {
		return nil, ErrInvalidProfile
	}
	var rows []Preference
	if err := s.db.WithContext(ctx).Where("profile_id = ?", profile).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("preferences: load: %w", err)
	}
	values := make(map[string]string, len(rows))
	for _, row := range rows {
		values[row.Key] = row.Value
	}
	return values, nil
}

// Get returns one preference or ErrNotFound.
func (s *GormStore) Get(ctx context.Context, profileID, key string) (string, error) {
	profile, normalizedKey, err := validateEntry(profileID, key)
	if err != nil {
		return "", err
	}
	var row Preference
	err = s.db.WithContext(ctx).Where("profile_id = ? AND pref_key = ?", profile, normalizedKey).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("preferences: get: %w", err)
	}
	return row.Value, nil
}

// Set stores a preference.
func (s *GormStore) Set(ctx context.Context, profileID, key, value string) error {
	profile, normalizedKey, err := validateEntry(profileID, key)
	if err != nil {
		return err
	}
	if err := validateValue(value); err != nil {
		return err
	}
	row := Preference{
		ProfileID:        profile,
		Key:              normalizedKey,
		Value:            value,
		UpdatedAtSeconds: s.clock().UTC().Unix(),
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "profile_id"}, {Name: "pref_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"pref_value", "updated_at_s"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("preferences: set: %w", err)
	}
	return nil
}

// Delete removes a preference. Missing keys are not an error.
func (s *GormStore) Delete(ctx context.Context, profileID, key string) error {
	profile, normalizedKey, err := validateEntry(profileID, key)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Where("profile_id = ? AND pref_key = ?", profile, normalizedKey).Delete(&Preference{}).Error
	if err != nil {
		return fmt.Errorf("preferences: delete: %w", err)
	}
	return nil
}
