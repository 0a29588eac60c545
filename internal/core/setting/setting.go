package setting

import "time"

// کلیدهای تنظیمات قابل ویرایش توسط ادمین
const (
	KeyModerationPrompt = "moderation_prompt"
)

// Setting یک ردیف key/value در جدول settings
type Setting struct {
	Key       string    `gorm:"column:setting_key;primary_key;type:varchar(64)"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
