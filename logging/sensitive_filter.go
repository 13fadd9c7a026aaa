package logging

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Replacement markers written in place of redacted values.
const (
	RedactedPlaceholder = "[REDACTED]"
	EmailPlaceholder    = "[EMAIL]"
	PhonePlaceholder    = "[PHONE]"
)

// secretPatterns match credentials. They run before the PII patterns so a key
// containing digit runs is not half-replaced as a phone number.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`AIza[0-9A-Za-z_-]{35}`),
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9._-]{20,}`),
	regexp.MustCompile(`(?i)(?:api_?key|token|secret|password)\s*[:=]\s*[^\s,;&]{8,}`),
	regexp.MustCompile(`([?&]key=)[^&\s]+`),
}

// CV text is full of personal data; previews of it end up in logs.
var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?\(?\d{2,4}\)?[ .-]?\d{3,4}[ .-]?\d{3,4}\b`)
)

// sensitiveKeys are field-name fragments whose values are always redacted.
var sensitiveKeys = []string{
	"GOOGLE_VISION_API_KEY",
	"API_KEY",
	"APIKEY",
	"PASSWORD",
	"SECRET",
	"TOKEN",
}

// RedactSensitiveData replaces credentials, e-mail addresses and phone numbers
// in value.
//
//	RedactSensitiveData("jane@example.com, +44 20 7946 0958")
//	// "[EMAIL], [PHONE]"
func RedactSensitiveData(value string) string {
	if value == "" {
		return value
	}
	result := value
	for _, p := range secretPatterns {
		if p.NumSubexp() > 0 {
			result = p.ReplaceAllString(result, "${1}"+RedactedPlaceholder)
			continue
		}
		result = p.ReplaceAllString(result, RedactedPlaceholder)
	}
	result = emailPattern.ReplaceAllString(result, EmailPlaceholder)
	result = phonePattern.ReplaceAllString(result, PhonePlaceholder)
	return result
}

// IsSensitiveField reports whether a field name marks its value as secret.
func IsSensitiveField(fieldName string) bool {
	upper := strings.ToUpper(fieldName)
	for _, key := range sensitiveKeys {
		if strings.Contains(upper, key) {
			return true
		}
	}
	return false
}

// ContainsSensitiveData reports whether RedactSensitiveData would change value.
func ContainsSensitiveData(value string) bool {
	return RedactSensitiveData(value) != value
}

// Preview shortens text for a log field, cutting on a rune boundary.
// Redaction still happens when the preview is logged.
func Preview(text string, maxRunes int) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxRunes]) + "..."
}
