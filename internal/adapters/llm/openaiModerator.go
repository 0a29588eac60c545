package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"newsdesk/internal/core/moderation"
	moderationPort "newsdesk/internal/ports/moderation"

	"go.uber.org/zap"
)

var ErrMissingAPIKey = errors.New("OPENAI_API_KEY is not set")

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
)

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OpenAIModerator پیاده‌سازی Moderator با API سازگار با OpenAI (chat/completions)
type OpenAIModerator struct {
	cfg        Config
	prompts    moderationPort.PromptSource
	httpClient *http.Client
	logger     *zap.Logger
}

func NewOpenAIModerator(cfg Config, prompts moderationPort.PromptSource, logger *zap.Logger) *OpenAIModerator {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	client := &http.Client{}
	if cfg.Timeout > 0 {
		client.Timeout = cfg.Timeout
	}
	return &OpenAIModerator{
		cfg:        cfg,
		prompts:    prompts,
		httpClient: client,
		logger:     logger,
	}
}

// Moderate متن پست را برای بررسی به LLM می‌فرستد.
// خطا فقط برای مشکلات اعتبارنامه و انتقال برگردانده می‌شود.
func (m *OpenAIModerator) Moderate(ctx context.Context, text, promptOverride string) (*moderation.Verdict, error) {
	if m.cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	template := promptOverride
	if strings.TrimSpace(template) == "" {
		template = m.loadPrompt(ctx)
	}

	content, err := m.complete(ctx, moderation.BuildPrompt(template, text))
	if err != nil {
		return nil, err
	}

	verdict := moderation.ParseVerdict(content)
	if !verdict.IsApproved && verdict.Reason == moderation.InvalidJSONReason {
		m.logger.Warn("⚠️ Moderation LLM returned no usable JSON", zap.String("raw", truncateStr(content, 200)))
	}
	return &verdict, nil
}

// loadPrompt هر بار از storage خوانده می‌شود تا تغییرات ادمین فوراً اعمال شود
func (m *OpenAIModerator) loadPrompt(ctx context.Context) string {
	if m.prompts == nil {
		return moderation.DefaultPrompt
	}
	p, err := m.prompts.GetModerationPrompt(ctx)
	if err != nil {
		m.logger.Warn("⚠️ Could not load moderation prompt, using default", zap.Error(err))
		return moderation.DefaultPrompt
	}
	return p
}

func (m *OpenAIModerator) complete(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"model":       m.cfg.Model,
		"temperature": 0,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := strings.TrimRight(m.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.cfg.APIKey)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("moderation request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read moderation response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("moderation API error (%d): %s", resp.StatusCode, truncateStr(string(respBody), 200))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decode moderation response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

func truncateStr(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
