package extraction

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"
	"unicode/utf8"

	"cv_backend/docprocessor"
	"cv_backend/logging"
	"cv_backend/metrics"
	"cv_backend/ocrprocessor"
	"cv_backend/pdfprocessor"
	"cv_backend/quality"
	"cv_backend/shutdown"
	"cv_backend/textcleaner"
	"cv_backend/vision"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Dependencies are the collaborators of an Orchestrator. Nil fields get
// defaults, except Runner: without one every OCR path fails with
// ocrprocessor.ErrEngineUnavailable.
type Dependencies struct {
	Runner     ocrprocessor.Runner
	Normalizer *textcleaner.Normalizer
	PDF        *pdfprocessor.Extractor
	Word       *docprocessor.Extractor
	Metrics    metrics.Collector
	Logger     *logging.Logger
}

// Orchestrator is the entry point of the extraction pipeline. It holds no
// per-request state and is safe for concurrent use.
type Orchestrator struct {
	cfg        Config
	executor   *ocrprocessor.Executor
	normalizer *textcleaner.Normalizer
	pdf        *pdfprocessor.Extractor
	word       *docprocessor.Extractor
	metrics    metrics.Collector
	logger     *logging.Logger
	newID      func() string
}

// New builds an Orchestrator.
func New(cfg Config, deps Dependencies) *Orchestrator {
	logger := logging.OrNop(deps.Logger)

	runner := deps.Runner
	if runner == nil {
		runner = unavailableRunner{}
	}
	normalizer := deps.Normalizer
	if normalizer == nil {
		normalizer = textcleaner.NewDefaultNormalizer()
	}
	pdf := deps.PDF
	if pdf == nil {
		pdf = pdfprocessor.NewExtractor(pdfprocessor.DefaultExtractorConfig(), nil, nil, logger)
	}
	word := deps.Word
	if word == nil {
		word = docprocessor.NewExtractor(logger)
	}
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.Nop{}
	}

	return &Orchestrator{
		cfg:        cfg.withDefaults(),
		executor:   ocrprocessor.NewExecutor(runner, normalizer, logger),
		normalizer: normalizer,
		pdf:        pdf,
		word:       word,
		metrics:    collector,
		logger:     logger.Named("extraction"),
		newID:      func() string { return uuid.New().String() },
	}
}

// Config returns the effective attempt policy.
func (o *Orchestrator) Config() Config { return o.cfg }

// Extract runs the pipeline for one request. It never returns an error;
// failures are reported on the Outcome.
func (o *Orchestrator) Extract(ctx context.Context, req Request) Outcome {
	start := time.Now()
	out := Outcome{
		RequestID: o.newID(),
		Filename:  req.Filename,
		Format:    DetectFormat(req.MIMEType, req.Filename),
	}
	log := o.logger.With(
		zap.String("request_id", out.RequestID),
		zap.String("filename", req.Filename),
		zap.String("format", string(out.Format)),
	)

	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	// Request-scoped resources are released on every path.
	scope := shutdown.NewRegistry()
	defer func() {
		if err := scope.Close(context.Background()); err != nil {
			log.Warn("Releasing request resources failed", zap.Error(err))
		}
	}()

	switch {
	case out.Format == FormatUnknown:
		out.Failure = newFailure(ReasonUnsupportedType, fmt.Errorf("mime type %q", req.MIMEType))
	case len(req.Data) == 0:
		out.Failure = newFailure(ReasonNoTextExtracted, errors.New("empty file"))
	default:
		switch out.Format {
		case FormatImage:
			o.extractImage(ctx, req.Data, &out, log)
		case FormatPDF:
			o.extractPDF(ctx, req.Data, scope, &out, log)
		case FormatDocx, FormatDoc:
			o.extractWord(ctx, req.Data, &out, log)
		}
	}

	if out.Failure != nil {
		out.Text = ""
		if out.Report.Tier == "" {
			out.Report = quality.Report{Tier: quality.TierFailed}
		}
	}
	out.Duration = time.Since(start)
	o.record(out)

	if out.Failure != nil {
		log.Info("Extraction failed",
			zap.String("reason", string(out.Failure.Reason)),
			zap.Int("attempts", out.Attempts),
			zap.Bool("last_resort", out.LastResort),
			zap.Duration("duration", out.Duration),
			zap.NamedError("cause", out.Failure.Cause),
		)
	} else {
		log.Info("Extraction succeeded",
			zap.String("source", out.Source),
			zap.Int("score", out.Report.Score),
			zap.String("tier", string(out.Report.Tier)),
			zap.Bool("low_quality", !out.Report.Tier.AtLeast(quality.TierGood)),
			zap.Int("attempts", out.Attempts),
			zap.Bool("last_resort", out.LastResort),
			zap.Int("length", utf8.RuneCountInString(out.Text)),
			zap.Duration("duration", out.Duration),
			zap.String("preview", logging.Preview(out.Text, 80)),
		)
	}
	return out
}

func (o *Orchestrator) extractImage(ctx context.Context, data []byte, out *Outcome, log *logging.Logger) {
	out.Source = SourceOCR
	img, err := vision.DecodeImage(data)
	if err != nil {
		out.Failure = newFailure(ReasonEngineFailure, err)
		return
	}

	res := o.searchImage(ctx, img, newAttemptBudget(o.cfg.MaxAttempts), log)
	out.Attempts = res.attempts
	out.LastResort = res.lastResort
	out.Trace = res.trace

	switch {
	case res.allFailed && ctx.Err() == nil:
		out.Failure = newFailure(ReasonEngineFailure, searchError(res))
	case !res.found:
		out.Failure = newFailure(ReasonNoTextExtracted, noTextCause(ctx, res))
	case utf8.RuneCountInString(res.best.Text) < o.cfg.MinTextLength:
		out.Report = res.best.Report
		out.Failure = newFailure(ReasonNoTextExtracted,
			fmt.Errorf("best text has %d characters", utf8.RuneCountInString(res.best.Text)))
	default:
		out.Text = res.best.Text
		out.Report = res.best.Report
	}
}

func noTextCause(ctx context.Context, res searchResult) error {
	if err := ctx.Err(); err != nil {
		return errors.Join(err, searchError(res))
	}
	return errors.New("no attempt produced text")
}

func (o *Orchestrator) extractPDF(ctx context.Context, data []byte, scope *shutdown.Registry, out *Outcome, log *logging.Logger) {
	pages := &pageOCR{o: o, log: log, budget: newAttemptBudget(o.cfg.MaxAttempts), trace: &out.Trace}
	res, err := o.pdf.Extract(ctx, data, pages, scope)
	if res != nil {
		out.Attempts = res.OCRAttempts
		out.LastResort = res.LastResortRuns > 0
		out.Source = res.Source
	}
	if err != nil {
		switch {
		case errors.Is(err, pdfprocessor.ErrScannedDocument):
			out.Failure = newFailure(ReasonSourceLooksScanned, err)
		case errors.Is(err, pdfprocessor.ErrEmptyDocument):
			out.Failure = newFailure(ReasonNoTextExtracted, err)
		default:
			out.Failure = newFailure(ReasonEngineFailure, err)
		}
		return
	}
	o.finishText(res.Text, out)
}

func (o *Orchestrator) extractWord(ctx context.Context, data []byte, out *Outcome, log *logging.Logger) {
	out.Source = SourceWord
	kind := docprocessor.KindDocx
	if out.Format == FormatDoc {
		kind = docprocessor.KindDoc
	}
	if sniffed, ok := docprocessor.SniffKind(data); ok && sniffed != kind {
		log.Debug("Declared Word type does not match content", zap.String("content", string(sniffed)))
		kind = sniffed
	}

	text, err := o.word.Extract(ctx, data, kind)
	if err != nil {
		if errors.Is(err, docprocessor.ErrNoText) {
			out.Failure = newFailure(ReasonNoTextExtracted, err)
		} else {
			out.Failure = newFailure(ReasonEngineFailure, err)
		}
		return
	}
	o.finishText(text, out)
}

// finishText normalizes and scores text that did not come from OCR.
func (o *Orchestrator) finishText(text string, out *Outcome) {
	clean := o.normalizer.Normalize(text)
	out.Report = quality.Score(clean, quality.NoConfidence)
	if n := utf8.RuneCountInString(clean); n < o.cfg.MinTextLength {
		out.Failure = newFailure(ReasonNoTextExtracted, fmt.Errorf("text has %d characters", n))
		return
	}
	out.Text = clean
}

// ScoreText normalizes text and scores it. Use quality.NoConfidence when no
// engine confidence is known.
func (o *Orchestrator) ScoreText(text string, confidence float64) (string, quality.Report) {
	clean := o.normalizer.Normalize(text)
	return clean, quality.Score(clean, confidence)
}

func (o *Orchestrator) record(out Outcome) {
	rec := metrics.ExtractionRecord{
		RequestID:  out.RequestID,
		Filename:   out.Filename,
		Format:     string(out.Format),
		Source:     out.Source,
		Status:     metrics.StatusSuccess,
		Tier:       string(out.Report.Tier),
		Score:      out.Report.Score,
		Attempts:   out.Attempts,
		LastResort: out.LastResort,
		StartTime:  time.Now().Add(-out.Duration),
		Duration:   out.Duration,
	}
	if out.Failure != nil {
		rec.Status = metrics.StatusFailed
		rec.Reason = string(out.Failure.Reason)
	}
	o.metrics.Record(rec)
}

// pageOCR runs the image search on rendered PDF pages. All pages of one
// document share a single attempt budget.
type pageOCR struct {
	o      *Orchestrator
	log    *logging.Logger
	budget *attemptBudget
	page   int
	trace  *[]AttemptSummary
}

func (p *pageOCR) RecognizePage(ctx context.Context, img image.Image) (pdfprocessor.PageOCR, error) {
	p.page++
	res := p.o.searchImage(ctx, img, p.budget, p.log.With(zap.Int("ocr_page", p.page)))
	*p.trace = append(*p.trace, res.trace...)

	out := pdfprocessor.PageOCR{Attempts: res.attempts, LastResort: res.lastResort}
	if res.allFailed {
		return out, searchError(res)
	}
	if res.found {
		out.Text = res.best.Text
		out.Score = res.best.Score()
	}
	return out, nil
}

type unavailableRunner struct{}

func (unavailableRunner) Name() string { return "none" }

func (unavailableRunner) Recognize(context.Context, image.Image, ocrprocessor.RecognizerConfig) (ocrprocessor.Recognition, error) {
	return ocrprocessor.Recognition{}, ocrprocessor.ErrEngineUnavailable
}
