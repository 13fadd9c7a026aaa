package ocrprocessor

import (
	"context"
	"errors"
	"image"
	"strings"
	"testing"

	"cv_backend/logging"
	"cv_backend/quality"
	"cv_backend/vision"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type funcRunner func(ctx context.Context, img image.Image, cfg RecognizerConfig) (Recognition, error)

func (f funcRunner) Name() string { return "fake" }

func (f funcRunner) Recognize(ctx context.Context, img image.Image, cfg RecognizerConfig) (Recognition, error) {
	return f(ctx, img, cfg)
}

type upperNormalizer struct{}

func (upperNormalizer) Normalize(s string) string { return strings.ToUpper(s) }

func testVariant() vision.ImageVariant {
	return vision.ImageVariant{Name: vision.VariantBinarized, Image: testImage()}
}

func TestExecutor_Run(t *testing.T) {
	text := "Jane Doe\njane@example.com\n+1 555 123 4567\nEXPERIENCE\n2019 - 2023 Acme Inc"
	runner := funcRunner(func(ctx context.Context, img image.Image, cfg RecognizerConfig) (Recognition, error) {
		if cfg.Name != ConfigSingleBlock {
			t.Errorf("config = %s", cfg.Name)
		}
		return Recognition{Text: text, Confidence: 90}, nil
	})

	exec := NewExecutor(runner, nil, nil)
	cfg, _ := ConfigByName(ConfigSingleBlock)
	a := exec.Run(context.Background(), 3, testVariant(), cfg)

	if a.Failed() {
		t.Fatalf("unexpected error: %v", a.Err)
	}
	if a.Index != 3 || a.Variant != vision.VariantBinarized || a.Strategy != ConfigSingleBlock {
		t.Errorf("attempt identity = %d/%s/%s", a.Index, a.Variant, a.Strategy)
	}
	want := quality.Score(text, 90)
	if a.Score() != want.Score || a.Report.Tier != want.Tier {
		t.Errorf("report = %+v, want %+v", a.Report, want)
	}
}

func TestExecutor_NormalizesBeforeScoring(t *testing.T) {
	runner := funcRunner(func(context.Context, image.Image, RecognizerConfig) (Recognition, error) {
		return Recognition{Text: "skills", Confidence: 40}, nil
	})
	a := NewExecutor(runner, upperNormalizer{}, nil).Run(context.Background(), 0, testVariant(), Catalog()[0])

	if a.Text != "SKILLS" {
		t.Errorf("Text = %q, want normalized", a.Text)
	}
	if a.Report.Score != quality.Score("SKILLS", 40).Score {
		t.Error("score should be computed on normalized text")
	}
}

func TestExecutor_EngineErrorScoresZero(t *testing.T) {
	obsCore, logs := observer.New(zap.DebugLevel)
	boom := errors.New("engine crashed")
	runner := funcRunner(func(context.Context, image.Image, RecognizerConfig) (Recognition, error) {
		return Recognition{}, boom
	})

	a := NewExecutor(runner, nil, logging.NewFromCore(obsCore)).Run(context.Background(), 1, testVariant(), Catalog()[0])

	if !errors.Is(a.Err, boom) || !a.Failed() {
		t.Fatalf("Err = %v", a.Err)
	}
	if a.Score() != 0 || a.Report.Tier != quality.TierFailed {
		t.Errorf("report = %+v", a.Report)
	}
	if logs.FilterMessage("OCR attempt failed").Len() != 1 {
		t.Error("expected a warning log")
	}
}

func TestExecutor_RecoversPanic(t *testing.T) {
	runner := funcRunner(func(context.Context, image.Image, RecognizerConfig) (Recognition, error) {
		panic("cgo exploded")
	})

	a := NewExecutor(runner, nil, nil).Run(context.Background(), 2, testVariant(), Catalog()[0])
	if a.Err == nil || !strings.Contains(a.Err.Error(), "cgo exploded") {
		t.Fatalf("Err = %v", a.Err)
	}
	if a.Score() != 0 {
		t.Errorf("Score() = %d", a.Score())
	}
}
