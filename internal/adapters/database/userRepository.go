package database

import (
	"context"
	"errors"

	"newsdesk/internal/core/user"

	"gorm.io/gorm"
)

// UserRepositoryDatabase پیاده‌سازی UserRepository برای دیتابیس
type UserRepositoryDatabase struct {
	db *gorm.DB
}

// NewUserRepositoryDatabase سازنده UserRepositoryDatabase
func NewUserRepositoryDatabase(db *gorm.DB) *UserRepositoryDatabase {
	return &UserRepositoryDatabase{db: db}
}

func (repo *UserRepositoryDatabase) Create(ctx context.Context, u *user.User) (*user.User, error) {
	if err := repo.db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

func (repo *UserRepositoryDatabase) FindByID(ctx context.Context, id string) (*user.User, error) {
	return repo.first(ctx, "id = ?", id)
}

func (repo *UserRepositoryDatabase) FindByUsernameOrEmail(ctx context.Context, username, email string) (*user.User, error) {
	if email == "" {
		return repo.first(ctx, "username = ?", username)
	}
	return repo.first(ctx, "username = ? OR email = ?", username, email)
}

func (repo *UserRepositoryDatabase) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	return repo.first(ctx, "username = ?", username)
}

func (repo *UserRepositoryDatabase) FindByClientKey(ctx context.Context, key string) (*user.User, error) {
	if key == "" {
		return nil, nil
	}
	u, err := repo.first(ctx, "client_key = ?", key)
	if errors.Is(err, user.ErrNotFound) {
		return nil, nil
	}
	return u, err
}

func (repo *UserRepositoryDatabase) SetAutoPublish(ctx context.Context, id string, enabled bool) error {
	res := repo.db.WithContext(ctx).Model(&user.User{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("auto_publish_enabled", enabled)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo *UserRepositoryDatabase) first(ctx context.Context, query string, args ...interface{}) (*user.User, error) {
	var u user.User
	if err := repo.db.WithContext(ctx).Where("deleted_at IS NULL").Where(query, args...).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
