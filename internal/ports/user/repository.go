package user

import (
	"context"

	"newsdesk/internal/core/user"
)

// UserRepository پورت برای ذخیره‌سازی و بازیابی کاربران
type UserRepository interface {
	Create(ctx context.Context, u *user.User) (*user.User, error)
	FindByID(ctx context.Context, id string) (*user.User, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*user.User, error)
	FindByUsername(ctx context.Context, username string) (*user.User, error)
	// FindByClientKey returns nil, nil when no user owns key.
	FindByClientKey(ctx context.Context, key string) (*user.User, error)
	SetAutoPublish(ctx context.Context, id string, enabled bool) error
}

// DTOها برای UseCase
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

type UserDTO struct {
	ID                 string `json:"id"`
	Username           string `json:"username"`
	Email              string `json:"email"`
	ClientKey          string `json:"client_key,omitempty"`
	AutoPublishEnabled bool   `json:"auto_publish_enabled"`
}

func ToDTO(u *user.User) *UserDTO {
	dto := &UserDTO{
		ID:                 u.ID.String(),
		Username:           u.Username,
		Email:              u.Email,
		AutoPublishEnabled: u.AutoPublishEnabled,
	}
	if u.ClientKey != nil {
		dto.ClientKey = *u.ClientKey
	}
	return dto
}
