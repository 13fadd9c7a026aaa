package extraction

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"cv_backend/logging"
	"cv_backend/metrics"
	"cv_backend/ocrprocessor"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestOrchestrator(cfg Config, runner ocrprocessor.Runner) *Orchestrator {
	return New(cfg, Dependencies{Runner: runner})
}

func TestExtract_UnsupportedTypeSpendsNoAttempts(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"plain text", Request{Data: []byte("plain"), MIMEType: "text/plain", Filename: "cv.txt"}},
		{"declared zip named like an image", Request{Data: []byte("PK\x03\x04"), MIMEType: "application/zip", Filename: "scan.png"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := constantRunner(excellentText, 90)
			o := newTestOrchestrator(DefaultConfig(), runner)

			out := o.Extract(context.Background(), tt.req)

			if out.Failure == nil || out.Failure.Reason != ReasonUnsupportedType {
				t.Fatalf("Failure = %+v, want unsupported type", out.Failure)
			}
			if out.Attempts != 0 || runner.Calls() != 0 || len(out.Trace) != 0 {
				t.Errorf("attempts = %d, runner calls = %d", out.Attempts, runner.Calls())
			}
			if out.Failure.Message != ReasonUnsupportedType.UserMessage() {
				t.Errorf("Message = %q", out.Failure.Message)
			}
			if out.Format != FormatUnknown || out.RequestID == "" {
				t.Errorf("Format = %s, RequestID = %q", out.Format, out.RequestID)
			}
		})
	}
}

func TestExtract_EmptyFile(t *testing.T) {
	for _, mt := range []string{"image/png", "application/pdf", mimeDocx} {
		t.Run(mt, func(t *testing.T) {
			runner := constantRunner(excellentText, 90)
			out := newTestOrchestrator(DefaultConfig(), runner).Extract(context.Background(), Request{MIMEType: mt})
			if out.Failure == nil || out.Failure.Reason != ReasonNoTextExtracted {
				t.Fatalf("Failure = %+v, want no text", out.Failure)
			}
			if out.Attempts != 0 || runner.Calls() != 0 {
				t.Errorf("attempts = %d", out.Attempts)
			}
		})
	}
}

func TestExtract_EarlyStop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EarlyStopScore = scoreOf(excellentText, 90)
	runner := &scriptedRunner{script: func(call int, _ ocrprocessor.RecognizerConfig) (ocrprocessor.Recognition, error) {
		if call == 1 {
			return ocrprocessor.Recognition{Text: excellentText, Confidence: 90}, nil
		}
		return ocrprocessor.Recognition{Text: garbageText, Confidence: 10}, nil
	}}

	out := newTestOrchestrator(cfg, runner).Extract(context.Background(), imageRequest(t))

	if !out.Succeeded() {
		t.Fatalf("Failure = %v", out.Failure)
	}
	if out.Attempts != 2 || runner.Calls() != 2 || out.LastResort {
		t.Errorf("attempts = %d, calls = %d, last resort = %v", out.Attempts, runner.Calls(), out.LastResort)
	}
	if !strings.Contains(out.Text, "EXPERIENCE") {
		t.Errorf("Text = %q", out.Text)
	}
	if out.Report.Score != cfg.EarlyStopScore || out.Source != SourceOCR {
		t.Errorf("Report = %+v, Source = %s", out.Report, out.Source)
	}
}

func TestExtract_BudgetAndOrder(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EarlyStopScore = 101
	cfg.FallbackScore = 0
	runner := constantRunner(mediocreText, 20)

	out := newTestOrchestrator(cfg, runner).Extract(context.Background(), imageRequest(t))

	if out.Attempts != 6 || runner.Calls() != 6 {
		t.Fatalf("attempts = %d, calls = %d, want 6", out.Attempts, runner.Calls())
	}
	want := []string{
		"identity/auto", "identity/single-block",
		"binarized/auto", "binarized/single-block",
		"adaptive-threshold/auto", "adaptive-threshold/single-block",
	}
	if got := traceKeys(out.Trace); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("trace = %v, want %v", got, want)
	}
	if !out.Succeeded() {
		t.Errorf("Failure = %v", out.Failure)
	}
}

func TestExtract_NeverExceedsBudget(t *testing.T) {
	for _, budget := range []int{1, 3, 6, 8, 12} {
		for _, parallel := range []int{1, 4} {
			cfg := DefaultConfig()
			cfg.MaxAttempts = budget
			cfg.PrimaryStrategies = 3
			cfg.Parallelism = parallel
			cfg.EarlyStopScore = 101
			runner := constantRunner(garbageText, 0)

			out := newTestOrchestrator(cfg, runner).Extract(context.Background(), imageRequest(t))

			if out.Attempts != budget {
				t.Errorf("budget %d/parallel %d: attempts = %d", budget, parallel, out.Attempts)
			}
			if runner.Calls() != budget+1 || !out.LastResort {
				t.Errorf("budget %d/parallel %d: calls = %d, want budget plus one last resort", budget, parallel, runner.Calls())
			}
		}
	}
}

func TestExtract_LastResort(t *testing.T) {
	runner := &scriptedRunner{script: func(_ int, cfg ocrprocessor.RecognizerConfig) (ocrprocessor.Recognition, error) {
		if cfg.Name == ocrprocessor.ConfigConservative {
			return ocrprocessor.Recognition{Text: excellentText, Confidence: 70}, nil
		}
		return ocrprocessor.Recognition{Text: garbageText, Confidence: 5}, nil
	}}

	out := newTestOrchestrator(DefaultConfig(), runner).Extract(context.Background(), imageRequest(t))

	if !out.LastResort || out.Attempts != 6 || runner.Calls() != 7 {
		t.Fatalf("last resort = %v, attempts = %d, calls = %d", out.LastResort, out.Attempts, runner.Calls())
	}
	last := out.Trace[len(out.Trace)-1]
	if last.Index != ocrprocessor.LastResortIndex || last.Strategy != ocrprocessor.ConfigConservative || last.Variant != "binarized" {
		t.Errorf("last trace = %+v", last)
	}
	if !out.Succeeded() || !strings.Contains(out.Text, "Acme") {
		t.Errorf("outcome = %+v", out)
	}
}

func TestExtract_NoLastResortAboveFallback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EarlyStopScore = 101
	cfg.FallbackScore = scoreOf(mediocreText, 20)
	runner := constantRunner(mediocreText, 20)

	out := newTestOrchestrator(cfg, runner).Extract(context.Background(), imageRequest(t))
	if out.LastResort || runner.Calls() != 6 {
		t.Errorf("last resort = %v, calls = %d", out.LastResort, runner.Calls())
	}
}

func TestExtract_AllAttemptsFail(t *testing.T) {
	boom := errors.New("tesseract crashed")
	runner := &scriptedRunner{script: func(int, ocrprocessor.RecognizerConfig) (ocrprocessor.Recognition, error) {
		return ocrprocessor.Recognition{}, boom
	}}

	out := newTestOrchestrator(DefaultConfig(), runner).Extract(context.Background(), imageRequest(t))

	if out.Failure == nil || out.Failure.Reason != ReasonEngineFailure {
		t.Fatalf("Failure = %+v, want engine failure", out.Failure)
	}
	if !errors.Is(out.Err(), boom) {
		t.Errorf("Err() = %v, want to wrap boom", out.Err())
	}
	if out.Attempts != 6 || !out.LastResort {
		t.Errorf("attempts = %d, last resort = %v", out.Attempts, out.LastResort)
	}
}

func TestExtract_SomeAttemptsFail(t *testing.T) {
	runner := &scriptedRunner{script: func(call int, _ ocrprocessor.RecognizerConfig) (ocrprocessor.Recognition, error) {
		if call%2 == 0 {
			return ocrprocessor.Recognition{}, errors.New("flaky")
		}
		return ocrprocessor.Recognition{Text: excellentText, Confidence: 90}, nil
	}}

	out := newTestOrchestrator(DefaultConfig(), runner).Extract(context.Background(), imageRequest(t))
	if !out.Succeeded() {
		t.Fatalf("Failure = %v", out.Failure)
	}
	if out.Trace[0].Error == "" || out.Trace[0].Score != 0 {
		t.Errorf("failed attempt should score zero: %+v", out.Trace[0])
	}
}

func TestExtract_NoText(t *testing.T) {
	out := newTestOrchestrator(DefaultConfig(), constantRunner("   ", 0)).Extract(context.Background(), imageRequest(t))
	if out.Failure == nil || out.Failure.Reason != ReasonNoTextExtracted {
		t.Fatalf("Failure = %+v", out.Failure)
	}
	if out.Text != "" || out.Report.Tier != "failed" {
		t.Errorf("Text = %q, Tier = %s", out.Text, out.Report.Tier)
	}
}

func TestExtract_UndecodableImage(t *testing.T) {
	out := newTestOrchestrator(DefaultConfig(), constantRunner(excellentText, 90)).
		Extract(context.Background(), Request{Data: []byte("not an image"), MIMEType: "image/jpeg"})
	if out.Failure == nil || out.Failure.Reason != ReasonEngineFailure || out.Attempts != 0 {
		t.Errorf("outcome = %+v", out)
	}
}

func TestExtract_ParallelWavesKeepSelection(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Parallelism = 4
	cfg.EarlyStopScore = scoreOf(excellentText, 90)
	runner := &scriptedRunner{script: func(_ int, c ocrprocessor.RecognizerConfig) (ocrprocessor.Recognition, error) {
		if c.Name == ocrprocessor.ConfigSingleBlock {
			return ocrprocessor.Recognition{Text: excellentText, Confidence: 90}, nil
		}
		return ocrprocessor.Recognition{Text: mediocreText, Confidence: 20}, nil
	}}

	out := newTestOrchestrator(cfg, runner).Extract(context.Background(), imageRequest(t))

	if out.Attempts != 4 || runner.Calls() != 4 {
		t.Errorf("attempts = %d, calls = %d, want one wave of 4", out.Attempts, runner.Calls())
	}
	if !strings.Contains(out.Text, "Acme") {
		t.Errorf("Text = %q", out.Text)
	}
	want := []string{"identity/auto", "identity/single-block", "binarized/auto", "binarized/single-block"}
	if got := traceKeys(out.Trace); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("trace = %v", got)
	}
}

func TestExtract_DeadlineReturnsBestSoFar(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EarlyStopScore = 101
	cfg.Timeout = 50 * time.Millisecond
	runner := &scriptedRunner{script: func(int, ocrprocessor.RecognizerConfig) (ocrprocessor.Recognition, error) {
		time.Sleep(30 * time.Millisecond)
		return ocrprocessor.Recognition{Text: mediocreText, Confidence: 20}, nil
	}}

	out := newTestOrchestrator(cfg, runner).Extract(context.Background(), imageRequest(t))

	if out.Attempts >= 6 || out.LastResort {
		t.Errorf("attempts = %d, last resort = %v; deadline should stop the search", out.Attempts, out.LastResort)
	}
	if !out.Succeeded() {
		t.Errorf("best result so far should be returned, got %v", out.Failure)
	}
}

func TestExtract_RecordsMetricsAndLogs(t *testing.T) {
	store := metrics.NewStore(metrics.DefaultStoreConfig(), time.Now())
	obsCore, logs := observer.New(zap.InfoLevel)
	o := New(DefaultConfig(), Dependencies{
		Runner:  constantRunner(excellentText, 90),
		Metrics: store,
		Logger:  logging.NewFromCore(obsCore),
	})

	o.Extract(context.Background(), imageRequest(t))
	o.Extract(context.Background(), Request{Data: []byte("x"), Filename: "cv.odt"})

	sum := store.Summary()
	if sum.TotalProcessed != 2 || sum.TotalSuccess != 1 || sum.ByReason[string(ReasonUnsupportedType)] != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if logs.FilterMessage("Extraction succeeded").Len() != 1 || logs.FilterMessage("Extraction failed").Len() != 1 {
		t.Errorf("unexpected log entries: %v", logs.All())
	}
	for _, entry := range logs.FilterMessage("Extraction succeeded").All() {
		if low, ok := entry.ContextMap()["low_quality"].(bool); !ok || low {
			t.Errorf("low_quality = %v for excellent text", entry.ContextMap()["low_quality"])
		}
		if preview, ok := entry.ContextMap()["preview"].(string); ok && strings.Contains(preview, "john.smith@example.com") {
			t.Errorf("preview leaks e-mail: %q", preview)
		}
	}
}

func TestScoreText(t *testing.T) {
	o := newTestOrchestrator(DefaultConfig(), nil)
	clean, report := o.ScoreText(excellentText, 90)
	if clean == "" || report.Score != scoreOf(excellentText, 90) {
		t.Errorf("ScoreText() = %q, %+v", clean, report)
	}
}

func TestExtract_NoRunnerConfigured(t *testing.T) {
	out := newTestOrchestrator(DefaultConfig(), nil).Extract(context.Background(), imageRequest(t))
	if out.Failure == nil || out.Failure.Reason != ReasonEngineFailure {
		t.Fatalf("Failure = %+v", out.Failure)
	}
	if !errors.Is(out.Err(), ocrprocessor.ErrEngineUnavailable) {
		t.Errorf("Err() = %v", out.Err())
	}
}
