package moderation

import (
	"encoding/json"
	"strings"
)

const (
	// MaxTextRunes سقف طول متنی که به LLM فرستاده می‌شود
	MaxTextRunes = 3000

	TextPlaceholder = "{{text}}"

	InvalidJSONReason = "Invalid JSON response from moderation LLM"
	ApprovedReason    = "Approved"
	ErrorReasonPrefix = "Moderation error: "
)

// DefaultPrompt is used when no prompt has been saved by an admin yet.
const DefaultPrompt = `You are a content moderator for a news feed.
Decide whether the following article is suitable for automatic publication.
Reject spam, hate speech, adult content, personal data leaks and off-topic material.

Respond ONLY with a JSON object of the form:
{"is_approved": true|false, "reason": "short explanation"}

Article:
{{text}}`

// Verdict نتیجه بررسی یک پست
type Verdict struct {
	IsApproved bool   `json:"is_approved"`
	Reason     string `json:"reason"`
}

// Truncate keeps the first MaxTextRunes characters of text.
func Truncate(text string) string {
	if len(text) <= MaxTextRunes {
		return text
	}
	runes := []rune(text)
	if len(runes) <= MaxTextRunes {
		return text
	}
	return string(runes[:MaxTextRunes])
}

// BuildPrompt substitutes the truncated text into template.
func BuildPrompt(template, text string) string {
	if strings.TrimSpace(template) == "" {
		template = DefaultPrompt
	}
	return strings.ReplaceAll(template, TextPlaceholder, Truncate(text))
}

// ParseVerdict پاسخ خام مدل را به Verdict تبدیل می‌کند.
// خروجی نامعتبر هیچ‌وقت خطا نیست و به رد شدن با InvalidJSONReason تبدیل می‌شود.
func ParseVerdict(raw string) Verdict {
	obj, ok := extractJSONObject(raw)
	if !ok {
		return invalid()
	}

	var resp struct {
		IsApproved *bool   `json:"is_approved"`
		Reason     *string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(obj), &resp); err != nil || resp.IsApproved == nil {
		return invalid()
	}

	v := Verdict{IsApproved: *resp.IsApproved}
	if resp.Reason != nil {
		v.Reason = strings.TrimSpace(*resp.Reason)
	}
	return v
}

func invalid() Verdict {
	return Verdict{IsApproved: false, Reason: InvalidJSONReason}
}

// extractJSONObject returns the first balanced {...} span of s.
// Braces inside JSON strings are ignored.
func extractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
