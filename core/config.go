package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// OCR backends selectable with OCR_BACKEND.
const (
	BackendTesseract = "tesseract"
	BackendVision    = "vision"
)

// Config holds all configuration values
type Config struct {
	// OCR engine
	OCRBackend      string // tesseract or vision
	OCRLanguage     string // Tesseract language codes, e.g. "eng" or "eng+deu"
	GoogleVisionKey string
	VisionEndpoint  string // empty uses the public endpoint

	// Attempt policy
	MaxAttempts       int           // OCR attempts per image or page, excluding the last-resort pass
	EarlyStopScore    int           // stop searching once an attempt scores this high
	FallbackScore     int           // run the last-resort pass when the best score is below this
	MinTextLength     int           // shorter final text is reported as no text
	PrimaryStrategies int           // recognizer configs paired with each variant
	Parallelism       int           // attempts run concurrently within one wave
	Timeout           time.Duration // per-request deadline, 0 for none

	// PDF
	PDFRenderDPI   float64
	PDFMaxOCRPages int

	// Normalizer
	RulesFile string // optional YAML file with extra rules

	// Logging and metrics
	LogFile        string
	LogLevel       string
	DevMode        bool
	MetricsHistory int
}

// DefaultConfig returns the configuration used when no variables are set.
func DefaultConfig() Config {
	return Config{
		OCRBackend:        BackendTesseract,
		OCRLanguage:       "eng",
		MaxAttempts:       6,
		EarlyStopScore:    85,
		FallbackScore:     40,
		MinTextLength:     10,
		PrimaryStrategies: 2,
		Parallelism:       1,
		PDFRenderDPI:      200,
		PDFMaxOCRPages:    10,
		LogLevel:          "info",
		MetricsHistory:    100,
	}
}

// LoadConfig reads envFile (or ./.env when envFile is empty and the file
// exists) into the environment, then builds and validates a Config.
// Variables already set in the environment win over the file.
func LoadConfig(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, ErrInvalidValue("env file", envFile, err.Error())
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, ErrInvalidValue("env file", ".env", err.Error())
	}
	return loadFromEnv(os.LookupEnv)
}

func loadFromEnv(lookup func(string) (string, bool)) (*Config, error) {
	r := &envReader{lookup: lookup}
	d := DefaultConfig()

	cfg := &Config{
		OCRBackend:        strings.ToLower(r.String("OCR_BACKEND", d.OCRBackend)),
		OCRLanguage:       r.String("OCR_LANGUAGE", d.OCRLanguage),
		GoogleVisionKey:   r.String("GOOGLE_VISION_API_KEY", ""),
		VisionEndpoint:    r.String("VISION_ENDPOINT", ""),
		MaxAttempts:       r.Int("EXTRACT_MAX_ATTEMPTS", d.MaxAttempts),
		EarlyStopScore:    r.Int("EXTRACT_EARLY_STOP_SCORE", d.EarlyStopScore),
		FallbackScore:     r.Int("EXTRACT_FALLBACK_SCORE", d.FallbackScore),
		MinTextLength:     r.Int("EXTRACT_MIN_TEXT_LENGTH", d.MinTextLength),
		PrimaryStrategies: r.Int("EXTRACT_PRIMARY_STRATEGIES", d.PrimaryStrategies),
		Parallelism:       r.Int("EXTRACT_PARALLELISM", d.Parallelism),
		Timeout:           r.Seconds("EXTRACT_TIMEOUT_SECONDS", d.Timeout),
		PDFRenderDPI:      r.Float("PDF_RENDER_DPI", d.PDFRenderDPI),
		PDFMaxOCRPages:    r.Int("PDF_MAX_OCR_PAGES", d.PDFMaxOCRPages),
		RulesFile:         r.String("NORMALIZER_RULES_FILE", ""),
		LogFile:           r.String("LOG_FILE", ""),
		LogLevel:          r.String("LOG_LEVEL", d.LogLevel),
		DevMode:           r.Bool("DEV_MODE", d.DevMode),
		MetricsHistory:    r.Int("METRICS_HISTORY", d.MetricsHistory),
	}

	errs := ConfigErrors(r.errs)
	if err := cfg.Validate(); err != nil {
		var more ConfigErrors
		if errors.As(err, &more) {
			errs = append(errs, more...)
		} else {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return cfg, nil
}

// Validate checks ranges and cross-field rules. It returns ConfigErrors
// listing every problem, or nil.
func (c *Config) Validate() error {
	var errs ConfigErrors

	switch c.OCRBackend {
	case BackendTesseract:
	case BackendVision:
		if c.GoogleVisionKey == "" {
			errs = append(errs, ErrMissingAuth(BackendVision, "GOOGLE_VISION_API_KEY"))
		}
	default:
		errs = append(errs, ErrUnknownBackend(c.OCRBackend))
	}

	checkRange := func(key string, v, lo, hi int) {
		if v < lo || v > hi {
			errs = append(errs, ErrOutOfRange(key, v, rangeText(lo, hi)))
		}
	}
	checkRange("EXTRACT_MAX_ATTEMPTS", c.MaxAttempts, 1, 24)
	checkRange("EXTRACT_EARLY_STOP_SCORE", c.EarlyStopScore, 1, 100)
	checkRange("EXTRACT_FALLBACK_SCORE", c.FallbackScore, 0, 100)
	checkRange("EXTRACT_MIN_TEXT_LENGTH", c.MinTextLength, 1, 10000)
	checkRange("EXTRACT_PRIMARY_STRATEGIES", c.PrimaryStrategies, 1, 3)
	checkRange("EXTRACT_PARALLELISM", c.Parallelism, 1, 16)
	checkRange("PDF_MAX_OCR_PAGES", c.PDFMaxOCRPages, 1, 500)
	checkRange("METRICS_HISTORY", c.MetricsHistory, 1, 100000)

	if c.FallbackScore > c.EarlyStopScore {
		errs = append(errs, ErrOutOfRange("EXTRACT_FALLBACK_SCORE", c.FallbackScore, "at most EXTRACT_EARLY_STOP_SCORE"))
	}
	if c.Timeout < 0 {
		errs = append(errs, ErrOutOfRange("EXTRACT_TIMEOUT_SECONDS", c.Timeout, "zero or positive"))
	}
	if c.PDFRenderDPI < 36 || c.PDFRenderDPI > 600 {
		errs = append(errs, ErrOutOfRange("PDF_RENDER_DPI", c.PDFRenderDPI, "between 36 and 600"))
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func rangeText(lo, hi int) string {
	return fmt.Sprintf("between %d and %d", lo, hi)
}
