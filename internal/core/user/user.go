package user

import (
	"errors"
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("user not found")

type User struct {
	ID                 uuid.UUID  `gorm:"primary_key;type:char(36)"`
	Name               string     `gorm:"not null"`
	Username           string     `gorm:"type:varchar(64);unique;not null"`
	Email              string     `gorm:"type:varchar(255);not null;default:''"`
	Password           string     `gorm:"not null"`
	ClientKey          *string    `gorm:"type:varchar(128);uniqueIndex"` // کلید ارتباط با پست‌های ingestion
	AutoPublishEnabled bool       `gorm:"not null;default:false"`
	CreatedAt          time.Time  `gorm:"autoCreateTime"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime"`
	DeletedAt          *time.Time `gorm:"index"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.Must(uuid.NewV4())
	}
	return nil
}
