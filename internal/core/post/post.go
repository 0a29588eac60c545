package post

import (
	"errors"
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// Status وضعیت چرخه عمر پست
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
	StatusWarning   Status = "warning" // رد شده توسط moderation، پایانی
)

var (
	ErrNotFound          = errors.New("post not found")
	ErrInvalidTransition = errors.New("invalid post status transition")
)

type Post struct {
	ID                  uuid.UUID  `gorm:"primary_key;type:char(36)"`
	Title               string     `gorm:"type:varchar(255);not null;default:''"`
	Text                string     `gorm:"type:text;not null"`
	CoverImage          string     `gorm:"type:varchar(512);not null;default:''"`
	Status              Status     `gorm:"type:varchar(20);not null;default:'draft';index"`
	ClientKey           *string    `gorm:"type:varchar(128);index"`
	PublishAt           *time.Time `gorm:"index"`
	ModerationCheckedAt *time.Time
	ModerationReason    string     `gorm:"type:text"`
	PubDate             *time.Time `gorm:"index"`
	CreatedAt           time.Time  `gorm:"autoCreateTime"`
	UpdatedAt           time.Time  `gorm:"autoUpdateTime"`
}

// BeforeCreate شناسه را قبل از درج تولید می‌کند
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.Must(uuid.NewV4())
	}
	if p.Status == "" {
		p.Status = StatusDraft
	}
	return nil
}

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived, StatusWarning:
		return true
	}
	return false
}

// CanTransition reports whether an editor or the worker may move a post from -> to.
func CanTransition(from, to Status) bool {
	switch to {
	case StatusPublished, StatusWarning:
		return from == StatusDraft
	case StatusArchived:
		return from != StatusArchived
	case StatusDraft:
		return false
	}
	return false
}

// AutoPublishManaged پست تحت مدیریت auto-publish است اگر publish_at مقدار داشته باشد
func (p *Post) AutoPublishManaged() bool {
	return p.PublishAt != nil
}

func (p *Post) ClientKeyValue() string {
	if p.ClientKey == nil {
		return ""
	}
	return *p.ClientKey
}
