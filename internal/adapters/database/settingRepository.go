package database

import (
	"context"
	"errors"

	"newsdesk/internal/core/setting"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingRepositoryDatabase struct {
	db *gorm.DB
}

func NewSettingRepositoryDatabase(db *gorm.DB) *SettingRepositoryDatabase {
	return &SettingRepositoryDatabase{db: db}
}

func (repo *SettingRepositoryDatabase) Get(ctx context.Context, key string) (string, bool, error) {
	var s setting.Setting
	if err := repo.db.WithContext(ctx).Where("setting_key = ?", key).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return s.Value, true, nil
}

// Set upsert روی کلید
func (repo *SettingRepositoryDatabase) Set(ctx context.Context, key, value string) error {
	return repo.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "setting_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting.Setting{Key: key, Value: value}).Error
}
