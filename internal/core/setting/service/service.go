package settingapp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"newsdesk/internal/core/moderation"
	"newsdesk/internal/core/setting"
	settingPort "newsdesk/internal/ports/setting"
)

var ErrPromptMissingPlaceholder = errors.New("moderation prompt must contain " + moderation.TextPlaceholder)

type SettingService struct {
	SettingRepository settingPort.SettingRepository
}

func NewSettingService(repo settingPort.SettingRepository) *SettingService {
	return &SettingService{SettingRepository: repo}
}

// GetModerationPrompt آخرین prompt ذخیره شده یا prompt پیش‌فرض
func (s *SettingService) GetModerationPrompt(ctx context.Context) (string, error) {
	v, ok, err := s.SettingRepository.Get(ctx, setting.KeyModerationPrompt)
	if err != nil {
		return "", fmt.Errorf("load moderation prompt: %w", err)
	}
	if !ok || strings.TrimSpace(v) == "" {
		return moderation.DefaultPrompt, nil
	}
	return v, nil
}

func (s *SettingService) SetModerationPrompt(ctx context.Context, prompt string) error {
	if !strings.Contains(prompt, moderation.TextPlaceholder) {
		return ErrPromptMissingPlaceholder
	}
	return s.SettingRepository.Set(ctx, setting.KeyModerationPrompt, prompt)
}
