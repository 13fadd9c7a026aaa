//go:build !tesseract

package ocrprocessor

import (
	"context"
	"image"

	"cv_backend/logging"
)

// TesseractRunner is a placeholder used when the binary is built without the
// "tesseract" tag. Every call fails with ErrEngineUnavailable.
type TesseractRunner struct {
	languages []string
	logger    *logging.Logger
}

func NewTesseractRunner(language string, logger *logging.Logger) *TesseractRunner {
	return &TesseractRunner{
		languages: splitLanguages(language),
		logger:    logging.OrNop(logger).Named("ocr-tesseract"),
	}
}

// Available reports whether the engine was compiled in.
func (r *TesseractRunner) Available() bool { return false }

func (r *TesseractRunner) Name() string { return "tesseract" }

func (r *TesseractRunner) Recognize(ctx context.Context, img image.Image, cfg RecognizerConfig) (Recognition, error) {
	return Recognition{}, ErrEngineUnavailable
}
