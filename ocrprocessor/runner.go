// Package ocrprocessor runs single OCR passes over prepared images.
//
// A Runner wraps one engine. Two adapters exist: a local Tesseract engine
// (built with the "tesseract" tag) and Google Cloud Vision over HTTP. Both
// take the same RecognizerConfig catalog so the search logic upstream does
// not depend on the engine.
package ocrprocessor

import (
	"context"
	"errors"
	"image"
)

var (
	// ErrEngineUnavailable is returned when the selected engine was not
	// compiled in or cannot be reached.
	ErrEngineUnavailable = errors.New("ocrprocessor: engine unavailable")

	// ErrNilImage indicates Recognize was called without an image.
	ErrNilImage = errors.New("ocrprocessor: image is nil")

	// ErrUnknownConfig indicates a recognizer config name not in the catalog.
	ErrUnknownConfig = errors.New("ocrprocessor: unknown recognizer config")
)

// Recognition is the raw output of one engine pass.
type Recognition struct {
	// Text as returned by the engine, not yet normalized
	Text string

	// Confidence is the engine's own certainty, 0-100
	Confidence float64
}

// Runner executes one OCR pass. Implementations create and release their own
// engine instance per call and never retry.
type Runner interface {
	Name() string
	Recognize(ctx context.Context, img image.Image, cfg RecognizerConfig) (Recognition, error)
}

// Page segmentation modes used by the catalog (Tesseract numbering).
const (
	PSMAuto        = 3
	PSMSingleBlock = 6
	PSMSparseText  = 11
)

// Engine modes (Tesseract numbering).
const (
	OEMLSTMOnly = 1
	OEMDefault  = 3
)

// Recognizer config names.
const (
	ConfigAuto         = "auto"
	ConfigSingleBlock  = "single-block"
	ConfigSparseText   = "sparse-text"
	ConfigConservative = "conservative"
)

// conservativeAllowlist keeps letters, digits and punctuation that appears in
// contact details and dates.
const conservativeAllowlist = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789@.,:;-+()/&'# "

// RecognizerConfig is one named engine parameter set.
type RecognizerConfig struct {
	Name        string
	PageSegMode int
	EngineMode  int

	// Allowlist restricts output characters when non-empty
	Allowlist string

	// Denylist removes characters from output when non-empty
	Denylist string
}

var catalog = [...]RecognizerConfig{
	{Name: ConfigAuto, PageSegMode: PSMAuto, EngineMode: OEMLSTMOnly},
	{Name: ConfigSingleBlock, PageSegMode: PSMSingleBlock, EngineMode: OEMLSTMOnly},
	{Name: ConfigSparseText, PageSegMode: PSMSparseText, EngineMode: OEMDefault},
	{Name: ConfigConservative, PageSegMode: PSMSingleBlock, EngineMode: OEMLSTMOnly, Allowlist: conservativeAllowlist},
}

// Catalog returns a copy of every config in search order. The conservative
// config is last and is reserved for the last-resort pass.
func Catalog() []RecognizerConfig {
	out := make([]RecognizerConfig, len(catalog))
	copy(out, catalog[:])
	return out
}

// PrimaryConfigs returns the first n search configs, excluding the
// conservative one. n is clamped to [1, 3].
func PrimaryConfigs(n int) []RecognizerConfig {
	if n < 1 {
		n = 1
	}
	if n > len(catalog)-1 {
		n = len(catalog) - 1
	}
	out := make([]RecognizerConfig, n)
	copy(out, catalog[:n])
	return out
}

// Conservative returns the last-resort config.
func Conservative() RecognizerConfig {
	return catalog[len(catalog)-1]
}

// ConfigByName looks a config up by name.
func ConfigByName(name string) (RecognizerConfig, error) {
	for _, c := range catalog {
		if c.Name == name {
			return c, nil
		}
	}
	return RecognizerConfig{}, ErrUnknownConfig
}
