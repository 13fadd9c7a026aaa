package ocrprocessor

import (
	"context"
	"fmt"
	"time"

	"cv_backend/logging"
	"cv_backend/quality"
	"cv_backend/vision"

	"go.uber.org/zap"
)

// Attempt is the result of one (variant, config) pass after normalization and
// scoring. A failed engine call is still an Attempt, scored zero.
type Attempt struct {
	// Index is the position in the work list; the last-resort pass uses -1
	Index    int
	Strategy string
	Variant  string

	// Text is the normalized engine output
	Text       string
	Confidence float64
	Report     quality.Report

	Err      error
	Duration time.Duration
}

// LastResortIndex marks the attempt issued outside the search budget.
const LastResortIndex = -1

// Score is shorthand for Report.Score.
func (a Attempt) Score() int { return a.Report.Score }

// Failed reports whether the engine call returned an error.
func (a Attempt) Failed() bool { return a.Err != nil }

// TextNormalizer cleans raw engine output before scoring.
type TextNormalizer interface {
	Normalize(text string) string
}

// Executor runs one attempt at a time against a Runner and turns the raw
// recognition into a scored Attempt. It is safe for concurrent use when the
// Runner is.
type Executor struct {
	runner     Runner
	normalizer TextNormalizer
	logger     *logging.Logger
}

// NewExecutor wires a runner with the normalizer applied to every result.
func NewExecutor(runner Runner, normalizer TextNormalizer, logger *logging.Logger) *Executor {
	return &Executor{
		runner:     runner,
		normalizer: normalizer,
		logger:     logging.OrNop(logger).Named("ocr-attempt"),
	}
}

// Run executes a single pass. Engine errors and panics are captured in the
// returned Attempt rather than propagated.
func (e *Executor) Run(ctx context.Context, index int, variant vision.ImageVariant, cfg RecognizerConfig) (a Attempt) {
	a = Attempt{Index: index, Strategy: cfg.Name, Variant: variant.Name}
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			a.Err = fmt.Errorf("ocrprocessor: %s panicked: %v", e.runner.Name(), r)
			a.Text, a.Confidence = "", 0
		}
		a.Duration = time.Since(start)
		if a.Err != nil {
			a.Report = failedReport(a.Err)
			e.logger.Warn("OCR attempt failed",
				zap.Int("attempt", index),
				zap.String("variant", a.Variant),
				zap.String("config", a.Strategy),
				zap.Duration("duration", a.Duration),
				zap.Error(a.Err),
			)
			return
		}
		e.logger.Debug("OCR attempt scored",
			zap.Int("attempt", index),
			zap.String("variant", a.Variant),
			zap.String("config", a.Strategy),
			zap.Float64("confidence", a.Confidence),
			zap.Int("score", a.Report.Score),
			zap.String("tier", string(a.Report.Tier)),
			zap.Duration("duration", a.Duration),
		)
	}()

	rec, err := e.runner.Recognize(ctx, variant.Image, cfg)
	if err != nil {
		a.Err = err
		return a
	}

	text := rec.Text
	if e.normalizer != nil {
		text = e.normalizer.Normalize(text)
	}
	a.Text = text
	a.Confidence = rec.Confidence
	a.Report = quality.Score(text, rec.Confidence)
	return a
}

func failedReport(err error) quality.Report {
	return quality.Report{
		Score:  0,
		Tier:   quality.TierFailed,
		Issues: []string{"Engine failure: " + err.Error()},
	}
}
