package core

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigError represents a configuration-related error with actionable instructions.
type ConfigError struct {
	Code    string // Error code for programmatic handling
	Message string // Human-readable error message
	Action  string // Actionable instruction for resolution
}

func (e *ConfigError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s. %s", e.Message, e.Action)
	}
	return e.Message
}

// Error codes for configuration errors
const (
	ErrCodeInvalidValue   = "INVALID_VALUE"
	ErrCodeOutOfRange     = "OUT_OF_RANGE"
	ErrCodeMissingAuth    = "MISSING_AUTH"
	ErrCodeUnknownBackend = "UNKNOWN_BACKEND"
	ErrCodeRulesFile      = "RULES_FILE"
)

// ErrInvalidValue reports a key whose value could not be parsed.
func ErrInvalidValue(key, value, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidValue,
		Message: fmt.Sprintf("Invalid %s value %q: %s", key, value, reason),
		Action:  fmt.Sprintf("Fix %s in your .env file or environment", key),
	}
}

// ErrOutOfRange reports a numeric key outside its accepted range.
func ErrOutOfRange(key string, value interface{}, bounds string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeOutOfRange,
		Message: fmt.Sprintf("%s is %v, must be %s", key, value, bounds),
		Action:  fmt.Sprintf("Set %s within range", key),
	}
}

// ErrMissingAuth reports a backend selected without its credentials.
func ErrMissingAuth(backend, key string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeMissingAuth,
		Message: fmt.Sprintf("OCR backend %q needs credentials", backend),
		Action:  fmt.Sprintf("Set %s in your .env file", key),
	}
}

// ErrUnknownBackend reports an unsupported OCR_BACKEND value.
func ErrUnknownBackend(name string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeUnknownBackend,
		Message: fmt.Sprintf("Unknown OCR_BACKEND %q", name),
		Action:  "Set OCR_BACKEND to tesseract or vision",
	}
}

// ErrRulesFile reports an unreadable or invalid normalizer rules file.
func ErrRulesFile(path string, cause error) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeRulesFile,
		Message: fmt.Sprintf("Cannot load NORMALIZER_RULES_FILE %s: %v", path, cause),
		Action:  "Fix the YAML file or unset NORMALIZER_RULES_FILE",
	}
}

// IsConfigError returns the first ConfigError in err's chain.
func IsConfigError(err error) (*ConfigError, bool) {
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return configErr, true
	}
	return nil, false
}

// ConfigErrors aggregates every problem found while loading configuration.
type ConfigErrors []error

func (e ConfigErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (e ConfigErrors) Unwrap() []error {
	return e
}
