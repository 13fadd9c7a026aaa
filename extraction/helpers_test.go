package extraction

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"cv_backend/ocrprocessor"
	"cv_backend/quality"
	"cv_backend/textcleaner"
)

const (
	excellentText = `John Smith
john.smith@example.com
+1 555-123-4567

EXPERIENCE
Software Engineer, Acme Inc
2019 - 2023
Built internal tooling in Python and SQL.`

	mediocreText = "Jane Doe\nSkills and projects in data engineering"
	garbageText  = "@@ ## ~~ %%"
)

// scoreOf mirrors what an attempt would score for text at confidence.
func scoreOf(text string, confidence float64) int {
	return quality.Score(textcleaner.NewDefaultNormalizer().Normalize(text), confidence).Score
}

// scriptedRunner answers each call with script(call, cfg). Calls are counted
// in issue order.
type scriptedRunner struct {
	mu     sync.Mutex
	calls  int
	script func(call int, cfg ocrprocessor.RecognizerConfig) (ocrprocessor.Recognition, error)
}

func (r *scriptedRunner) Name() string { return "scripted" }

func (r *scriptedRunner) Recognize(ctx context.Context, img image.Image, cfg ocrprocessor.RecognizerConfig) (ocrprocessor.Recognition, error) {
	r.mu.Lock()
	call := r.calls
	r.calls++
	r.mu.Unlock()
	return r.script(call, cfg)
}

func (r *scriptedRunner) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func constantRunner(text string, confidence float64) *scriptedRunner {
	return &scriptedRunner{script: func(int, ocrprocessor.RecognizerConfig) (ocrprocessor.Recognition, error) {
		return ocrprocessor.Recognition{Text: text, Confidence: confidence}, nil
	}}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 24, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 24; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func imageRequest(t *testing.T) Request {
	return Request{Data: pngBytes(t), MIMEType: "image/png", Filename: "scan.png"}
}

// traceKeys renders the trace as "variant/strategy" strings.
func traceKeys(trace []AttemptSummary) []string {
	out := make([]string, len(trace))
	for i, s := range trace {
		out[i] = s.Variant + "/" + s.Strategy
	}
	return out
}
