package extraction

import (
	"time"

	"cv_backend/core"
)

// Config is the attempt policy of the orchestrator.
type Config struct {
	// MaxAttempts is the OCR budget per image or PDF page, excluding the last-resort pass
	MaxAttempts int

	// EarlyStopScore ends the search once an attempt scores at least this much
	EarlyStopScore int

	// FallbackScore triggers the last-resort pass when the best score is below it
	FallbackScore int

	// MinTextLength is the shortest final text reported as success
	MinTextLength int

	// PrimaryStrategies is how many recognizer configs are paired with each variant
	PrimaryStrategies int

	// Parallelism runs attempts in waves of this size; 1 is sequential
	Parallelism int

	// Timeout bounds one request; 0 disables it
	Timeout time.Duration
}

// DefaultConfig returns the tuned defaults: six attempts, early stop at 85,
// last resort below 40.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:       6,
		EarlyStopScore:    85,
		FallbackScore:     40,
		MinTextLength:     10,
		PrimaryStrategies: 2,
		Parallelism:       1,
	}
}

// ConfigFromCore copies the attempt policy out of the process configuration.
func ConfigFromCore(c *core.Config) Config {
	return Config{
		MaxAttempts:       c.MaxAttempts,
		EarlyStopScore:    c.EarlyStopScore,
		FallbackScore:     c.FallbackScore,
		MinTextLength:     c.MinTextLength,
		PrimaryStrategies: c.PrimaryStrategies,
		Parallelism:       c.Parallelism,
		Timeout:           c.Timeout,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.EarlyStopScore <= 0 {
		c.EarlyStopScore = d.EarlyStopScore
	}
	if c.FallbackScore < 0 {
		c.FallbackScore = 0
	}
	if c.MinTextLength <= 0 {
		c.MinTextLength = d.MinTextLength
	}
	if c.PrimaryStrategies <= 0 {
		c.PrimaryStrategies = d.PrimaryStrategies
	}
	if c.Parallelism <= 0 {
		c.Parallelism = 1
	}
	return c
}
