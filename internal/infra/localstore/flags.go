package localstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FlagStore implements port.FlagStore on the flags table.
type FlagStore struct {
	database *gorm.DB
}

func NewFlagStore(database *gorm.DB) *FlagStore {
	return &FlagStore{database: database}
}

func (s *FlagStore) GetFlag(ctx context.Context, key string) (string, bool, error) {
	var rec flagRecord
	err := s.database.WithContext(ctx).Where("name = ?", key).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return rec.Value, true, nil
}

func (s *FlagStore) SetFlag(ctx context.Context, key, value string) error {
	rec := flagRecord{Name: key, Value: value, UpdatedAt: time.Now().UTC()}
	return s.database.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rec).Error
}

func (s *FlagStore) DeleteFlag(ctx context.Context, key string) error {
	return s.database.WithContext(ctx).Where("name = ?", key).Delete(&flagRecord{}).Error
}
