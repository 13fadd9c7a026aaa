package ocrprocessor

import (
	"errors"
	"regexp"
	"strings"
)

// API key validation errors.
var (
	ErrEmptyAPIKey         = errors.New("ocrprocessor: API key is empty")
	ErrInvalidAPIKeyFormat = errors.New("ocrprocessor: API key has invalid format")
	ErrAPIKeyTooShort      = errors.New("ocrprocessor: API key is too short (minimum 20 characters)")
	ErrAPIKeyTooLong       = errors.New("ocrprocessor: API key is too long (maximum 100 characters)")
)

// Google API keys are "AIza" followed by 35 URL-safe characters.
var googleAPIKeyPattern = regexp.MustCompile(`^AIza[0-9A-Za-z_-]{35}$`)

// ValidateGoogleAPIKey checks length bounds and, for keys that start with
// "AIza", the full Google key pattern.
//
// This is a pure function with no side effects.
func ValidateGoogleAPIKey(apiKey string) error {
	trimmed := strings.TrimSpace(apiKey)
	switch {
	case trimmed == "":
		return ErrEmptyAPIKey
	case len(trimmed) < 20:
		return ErrAPIKeyTooShort
	case len(trimmed) > 100:
		return ErrAPIKeyTooLong
	case strings.HasPrefix(trimmed, "AIza") && !googleAPIKeyPattern.MatchString(trimmed):
		return ErrInvalidAPIKeyFormat
	}
	return nil
}

// MaskAPIKey shows the first 8 and last 4 characters of a key for logs.
func MaskAPIKey(apiKey string) string {
	if apiKey == "" {
		return "[empty]"
	}
	if len(apiKey) <= 12 {
		if len(apiKey) <= 4 {
			return strings.Repeat("*", len(apiKey))
		}
		return apiKey[:4] + strings.Repeat("*", len(apiKey)-4)
	}
	return apiKey[:8] + "****" + apiKey[len(apiKey)-4:]
}

// FilterCharacters applies allow and deny lists to engine output for engines
// that cannot restrict characters themselves. Newlines always survive so
// line structure is preserved. Empty lists disable the respective filter.
func FilterCharacters(text, allow, deny string) string {
	if allow == "" && deny == "" {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r == '\n' {
			b.WriteRune(r)
			continue
		}
		if allow != "" && !strings.ContainsRune(allow, r) {
			continue
		}
		if deny != "" && strings.ContainsRune(deny, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
