package database

import (
	"context"
	"errors"
	"time"

	"newsdesk/internal/core/moderation"
	"newsdesk/internal/core/post"

	"gorm.io/gorm"
)

// PostRepositoryDatabase پیاده‌سازی PostRepository برای دیتابیس
type PostRepositoryDatabase struct {
	db *gorm.DB
}

// NewPostRepositoryDatabase سازنده PostRepositoryDatabase
func NewPostRepositoryDatabase(db *gorm.DB) *PostRepositoryDatabase {
	return &PostRepositoryDatabase{db: db}
}

func (repo *PostRepositoryDatabase) Create(ctx context.Context, p *post.Post) (*post.Post, error) {
	if err := repo.db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

func (repo *PostRepositoryDatabase) FindByID(ctx context.Context, id string) (*post.Post, error) {
	var p post.Post
	if err := repo.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, post.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (repo *PostRepositoryDatabase) List(ctx context.Context, status post.Status, offset, limit int) ([]*post.Post, int64, error) {
	q := repo.db.WithContext(ctx).Model(&post.Post{})
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var posts []*post.Post
	if err := q.Session(&gorm.Session{}).Order("created_at DESC").Offset(offset).Limit(limit).Find(&posts).Error; err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (repo *PostRepositoryDatabase) ListPublished(ctx context.Context, limit int) ([]*post.Post, error) {
	var posts []*post.Post
	if err := repo.db.WithContext(ctx).
		Where("status = ?", post.StatusPublished).
		Order("pub_date DESC").
		Limit(limit).
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func (repo *PostRepositoryDatabase) Delete(ctx context.Context, id string) error {
	res := repo.db.WithContext(ctx).Where("id = ?", id).Delete(&post.Post{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return post.ErrNotFound
	}
	return nil
}

func (repo *PostRepositoryDatabase) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	res := repo.db.WithContext(ctx).Model(&post.Post{}).Where("id = ?", id).UpdateColumns(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return post.ErrNotFound
	}
	return nil
}

func (repo *PostRepositoryDatabase) MarkPublished(ctx context.Context, id string, now time.Time) (bool, error) {
	res := repo.db.WithContext(ctx).Model(&post.Post{}).
		Where("id = ? AND status = ?", id, post.StatusDraft).
		Updates(map[string]interface{}{
			"status":     post.StatusPublished,
			"pub_date":   gorm.Expr("COALESCE(pub_date, ?)", now),
			"updated_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SelectPendingModeration پست‌های draft زمان‌بندی شده که هنوز بررسی نشده‌اند
func (repo *PostRepositoryDatabase) SelectPendingModeration(ctx context.Context, limit int) ([]*post.Post, error) {
	var posts []*post.Post
	if err := repo.db.WithContext(ctx).
		Where("publish_at IS NOT NULL AND moderation_checked_at IS NULL AND status = ?", post.StatusDraft).
		Order("publish_at ASC").
		Limit(limit).
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// SelectPendingPublish پست‌های بررسی شده‌ای که موعد انتشارشان رسیده.
// پست‌هایی که moderation آن‌ها با خطا تمام شده در draft می‌مانند.
func (repo *PostRepositoryDatabase) SelectPendingPublish(ctx context.Context, now time.Time, limit int) ([]*post.Post, error) {
	var posts []*post.Post
	if err := repo.db.WithContext(ctx).
		Where("status = ? AND publish_at IS NOT NULL AND publish_at <= ? AND moderation_checked_at IS NOT NULL", post.StatusDraft, now).
		Where("moderation_reason NOT LIKE ?", moderation.ErrorReasonPrefix+"%").
		Order("publish_at ASC").
		Limit(limit).
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}
