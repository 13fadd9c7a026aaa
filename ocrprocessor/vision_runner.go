package ocrprocessor

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	"cv_backend/logging"
	"cv_backend/vision"

	"go.uber.org/zap"
)

// DefaultVisionEndpoint is the public images:annotate endpoint.
const DefaultVisionEndpoint = "https://vision.googleapis.com/v1/images:annotate"

// Feature types understood by the Vision API.
const (
	featureDocumentText = "DOCUMENT_TEXT_DETECTION"
	featureText         = "TEXT_DETECTION"
)

// neutralConfidence is reported when Vision returns text but no page
// confidence.
const neutralConfidence = 50

var (
	ErrNilClient = errors.New("ocrprocessor: HTTP client cannot be nil")

	// ErrVisionStatus wraps non-200 responses.
	ErrVisionStatus = errors.New("ocrprocessor: vision API returned an error status")

	// ErrVisionAPI wraps an error object inside a 200 response.
	ErrVisionAPI = errors.New("ocrprocessor: vision API error")

	// ErrEmptyResponse means the response had no result entries.
	ErrEmptyResponse = errors.New("ocrprocessor: empty response from vision API")
)

// VisionConfig configures a VisionRunner.
type VisionConfig struct {
	// Endpoint is the images:annotate URL
	Endpoint string

	// Timeout bounds one request; the caller's context may be shorter
	Timeout time.Duration

	// LanguageHints are BCP-47 codes passed as imageContext.languageHints
	LanguageHints []string
}

// DefaultVisionConfig returns the public endpoint with a 30s timeout.
func DefaultVisionConfig() VisionConfig {
	return VisionConfig{
		Endpoint: DefaultVisionEndpoint,
		Timeout:  30 * time.Second,
	}
}

// VisionRunner runs Google Cloud Vision text detection. Each Recognize call is
// one independent HTTP request; the runner holds no per-call state.
type VisionRunner struct {
	apiKey     string
	httpClient *http.Client
	logger     *logging.Logger
	config     VisionConfig
}

// NewVisionRunner validates apiKey and builds a runner. An empty endpoint in
// config falls back to DefaultVisionEndpoint.
func NewVisionRunner(apiKey string, httpClient *http.Client, logger *logging.Logger, config VisionConfig) (*VisionRunner, error) {
	if httpClient == nil {
		return nil, ErrNilClient
	}
	if err := ValidateGoogleAPIKey(apiKey); err != nil {
		return nil, err
	}
	if config.Endpoint == "" {
		config.Endpoint = DefaultVisionEndpoint
	}
	return &VisionRunner{
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     logging.OrNop(logger).Named("ocr-vision"),
		config:     config,
	}, nil
}

func (r *VisionRunner) Name() string { return "vision" }

type visionRequest struct {
	Requests []visionRequestItem `json:"requests"`
}

type visionRequestItem struct {
	Image        visionImage         `json:"image"`
	Features     []visionFeature     `json:"features"`
	ImageContext *visionImageContext `json:"imageContext,omitempty"`
}

type visionImage struct {
	Content string `json:"content"`
}

type visionFeature struct {
	Type string `json:"type"`
}

type visionImageContext struct {
	LanguageHints []string `json:"languageHints,omitempty"`
}

type visionResponse struct {
	Responses []visionResponseItem `json:"responses"`
}

type visionResponseItem struct {
	FullTextAnnotation *struct {
		Text  string `json:"text"`
		Pages []struct {
			Confidence float64 `json:"confidence"`
		} `json:"pages"`
	} `json:"fullTextAnnotation"`
	TextAnnotations []struct {
		Description string `json:"description"`
	} `json:"textAnnotations"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// featureFor maps a recognizer config to a Vision feature: sparse text uses
// plain TEXT_DETECTION, everything else the dense document model.
func featureFor(cfg RecognizerConfig) string {
	if cfg.PageSegMode == PSMSparseText {
		return featureText
	}
	return featureDocumentText
}

func (r *VisionRunner) Recognize(ctx context.Context, img image.Image, cfg RecognizerConfig) (Recognition, error) {
	if img == nil {
		return Recognition{}, ErrNilImage
	}
	data, err := vision.EncodePNG(img)
	if err != nil {
		return Recognition{}, err
	}

	item := visionRequestItem{
		Image:    visionImage{Content: base64.StdEncoding.EncodeToString(data)},
		Features: []visionFeature{{Type: featureFor(cfg)}},
	}
	if len(r.config.LanguageHints) > 0 {
		item.ImageContext = &visionImageContext{LanguageHints: r.config.LanguageHints}
	}
	body, err := json.Marshal(visionRequest{Requests: []visionRequestItem{item}})
	if err != nil {
		return Recognition{}, fmt.Errorf("ocrprocessor: marshal request: %w", err)
	}

	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return Recognition{}, fmt.Errorf("ocrprocessor: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", r.apiKey)

	start := time.Now()
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return Recognition{}, fmt.Errorf("ocrprocessor: send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Recognition{}, fmt.Errorf("ocrprocessor: read response: %w", err)
	}
	r.logger.Debug("Vision response",
		zap.String("config", cfg.Name),
		zap.Int("status_code", resp.StatusCode),
		zap.Int("image_bytes", len(data)),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		return Recognition{}, fmt.Errorf("%w: status %d: %s", ErrVisionStatus, resp.StatusCode,
			logging.Preview(logging.RedactSensitiveData(string(respBody)), 200))
	}

	var parsed visionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return Recognition{}, fmt.Errorf("ocrprocessor: decode response: %w", err)
	}
	rec, err := recognitionFromResponse(&parsed)
	if err != nil {
		return Recognition{}, err
	}
	rec.Text = FilterCharacters(rec.Text, cfg.Allowlist, cfg.Denylist)
	return rec, nil
}

// recognitionFromResponse reads the first response entry. No text is a valid
// empty result, not an error.
func recognitionFromResponse(resp *visionResponse) (Recognition, error) {
	if len(resp.Responses) == 0 {
		return Recognition{}, ErrEmptyResponse
	}
	item := resp.Responses[0]
	if item.Error != nil && item.Error.Message != "" {
		return Recognition{}, fmt.Errorf("%w: %s (code %d)", ErrVisionAPI, item.Error.Message, item.Error.Code)
	}

	var rec Recognition
	switch {
	case item.FullTextAnnotation != nil && item.FullTextAnnotation.Text != "":
		rec.Text = item.FullTextAnnotation.Text
		rec.Confidence = neutralConfidence
		if pages := item.FullTextAnnotation.Pages; len(pages) > 0 {
			var sum float64
			for _, p := range pages {
				sum += p.Confidence
			}
			rec.Confidence = sum / float64(len(pages)) * 100
		}
	case len(item.TextAnnotations) > 0:
		rec.Text = item.TextAnnotations[0].Description
		rec.Confidence = neutralConfidence
	}
	return rec, nil
}
