package setting

import "context"

// SettingRepository key/value store for admin-editable settings.
type SettingRepository interface {
	// Get returns "", false, nil when key was never saved.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}
