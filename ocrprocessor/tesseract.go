//go:build tesseract

package ocrprocessor

import (
	"context"
	"fmt"
	"image"
	"strconv"
	"strings"

	"cv_backend/logging"
	"cv_backend/vision"

	"github.com/otiai10/gosseract/v2"
	"go.uber.org/zap"
)

// TesseractRunner runs the local Tesseract engine through gosseract. A new
// client is created for every Recognize call.
type TesseractRunner struct {
	languages []string
	logger    *logging.Logger
	newClient func() *gosseract.Client
}

// NewTesseractRunner creates a runner for language codes such as "eng" or
// "eng+deu".
func NewTesseractRunner(language string, logger *logging.Logger) *TesseractRunner {
	return &TesseractRunner{
		languages: splitLanguages(language),
		logger:    logging.OrNop(logger).Named("ocr-tesseract"),
		newClient: gosseract.NewClient,
	}
}

// Available reports whether the engine was compiled in.
func (r *TesseractRunner) Available() bool { return true }

func (r *TesseractRunner) Name() string { return "tesseract" }

func (r *TesseractRunner) Recognize(ctx context.Context, img image.Image, cfg RecognizerConfig) (Recognition, error) {
	if img == nil {
		return Recognition{}, ErrNilImage
	}
	if err := ctx.Err(); err != nil {
		return Recognition{}, err
	}

	data, err := vision.EncodePNG(img)
	if err != nil {
		return Recognition{}, err
	}

	c := r.newClient()
	defer c.Close()

	if err := c.SetLanguage(r.languages...); err != nil {
		return Recognition{}, fmt.Errorf("ocrprocessor: set languages: %w", err)
	}
	if err := c.SetPageSegMode(gosseract.PageSegMode(cfg.PageSegMode)); err != nil {
		return Recognition{}, fmt.Errorf("ocrprocessor: set page segmentation: %w", err)
	}
	// Engine mode is an init-time parameter; some builds reject it here.
	if err := c.SetVariable(gosseract.SettableVariable("tessedit_ocr_engine_mode"), strconv.Itoa(cfg.EngineMode)); err != nil {
		r.logger.Debug("Engine mode not applied", zap.String("config", cfg.Name), zap.Error(err))
	}
	if cfg.Allowlist != "" {
		if err := c.SetWhitelist(cfg.Allowlist); err != nil {
			return Recognition{}, fmt.Errorf("ocrprocessor: set allowlist: %w", err)
		}
	}
	if cfg.Denylist != "" {
		if err := c.SetBlacklist(cfg.Denylist); err != nil {
			return Recognition{}, fmt.Errorf("ocrprocessor: set denylist: %w", err)
		}
	}
	if err := c.SetImageFromBytes(data); err != nil {
		return Recognition{}, fmt.Errorf("ocrprocessor: set image: %w", err)
	}

	text, err := c.Text()
	if err != nil {
		return Recognition{}, fmt.Errorf("ocrprocessor: recognize: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Recognition{}, err
	}

	return Recognition{
		Text:       strings.TrimSpace(text),
		Confidence: wordConfidence(c),
	}, nil
}

// wordConfidence averages per-word confidences (already 0-100).
func wordConfidence(c *gosseract.Client) float64 {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence
	}
	return sum / float64(len(boxes))
}
