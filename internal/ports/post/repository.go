package post

import (
	"context"
	"time"

	"newsdesk/internal/core/post"
)

// PostRepository پورت برای ذخیره‌سازی و بازیابی پست‌ها
type PostRepository interface {
	Create(ctx context.Context, p *post.Post) (*post.Post, error)
	FindByID(ctx context.Context, id string) (*post.Post, error)
	List(ctx context.Context, status post.Status, offset, limit int) ([]*post.Post, int64, error)
	ListPublished(ctx context.Context, limit int) ([]*post.Post, error)
	Delete(ctx context.Context, id string) error

	// UpdateFields partial update by column name. A nil value writes NULL;
	// updated_at is written only when the caller includes it.
	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error
	// MarkPublished flips a draft to published, keeping any existing pub_date.
	// Returns false when the post was not a draft anymore.
	MarkPublished(ctx context.Context, id string, now time.Time) (bool, error)

	// کوئری‌های worker
	SelectPendingModeration(ctx context.Context, limit int) ([]*post.Post, error)
	SelectPendingPublish(ctx context.Context, now time.Time, limit int) ([]*post.Post, error)
}

// DTOها برای UseCase
type PostDTO struct {
	ID                  string     `json:"id"`
	Title               string     `json:"title"`
	Text                string     `json:"text"`
	CoverImage          string     `json:"cover_image,omitempty"`
	Status              string     `json:"status"`
	ClientKey           string     `json:"client_key,omitempty"`
	PublishAt           *time.Time `json:"publish_at"`
	ModerationCheckedAt *time.Time `json:"moderation_checked_at"`
	ModerationReason    string     `json:"moderation_reason,omitempty"`
	PubDate             *time.Time `json:"pub_date"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

type CreatePostInput struct {
	Title      string
	Text       string
	CoverImage string
	ClientKey  string
}

type UpdatePostInput struct {
	Title      *string
	Text       *string
	CoverImage *string
}

// CreatePostResult پاسخ ingestion به همراه وضعیت زمان‌بندی
type CreatePostResult struct {
	Post                 *PostDTO   `json:"post"`
	AutoPublishScheduled bool       `json:"auto_publish_scheduled"`
	PublishAt            *time.Time `json:"publish_at"`
}

type PostListDTO struct {
	Items []*PostDTO `json:"items"`
	Total int64      `json:"total"`
	Page  int        `json:"page"`
	Limit int        `json:"limit"`
}

func ToDTO(p *post.Post) *PostDTO {
	return &PostDTO{
		ID:                  p.ID.String(),
		Title:               p.Title,
		Text:                p.Text,
		CoverImage:          p.CoverImage,
		Status:              string(p.Status),
		ClientKey:           p.ClientKeyValue(),
		PublishAt:           p.PublishAt,
		ModerationCheckedAt: p.ModerationCheckedAt,
		ModerationReason:    p.ModerationReason,
		PubDate:             p.PubDate,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}
