package moderation

import (
	"context"

	"newsdesk/internal/core/moderation"
)

// Moderator sends post text to the moderation LLM.
// Malformed model output comes back as a rejection verdict; only transport
// and credential problems are returned as errors.
type Moderator interface {
	Moderate(ctx context.Context, text, promptOverride string) (*moderation.Verdict, error)
}

// PromptSource خواندن آخرین نسخه prompt قبل از هر فراخوانی
type PromptSource interface {
	GetModerationPrompt(ctx context.Context) (string, error)
}
