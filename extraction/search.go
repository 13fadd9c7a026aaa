package extraction

import (
	"context"
	"errors"
	"image"

	"cv_backend/logging"
	"cv_backend/ocrprocessor"
	"cv_backend/vision"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// workItem is one (variant, config) pair of the OCR search.
type workItem struct {
	variant string
	config  ocrprocessor.RecognizerConfig
}

// buildWorkList orders pairs variant-major: identity with every primary
// config first, then each preprocessed variant in turn, cut at budget.
func buildWorkList(primaries []ocrprocessor.RecognizerConfig, budget int) []workItem {
	work := make([]workItem, 0, budget)
	for _, variant := range vision.VariantNames {
		for _, cfg := range primaries {
			if len(work) == budget {
				return work
			}
			work = append(work, workItem{variant: variant, config: cfg})
		}
	}
	return work
}

// lastResortVariant is the rendering used with the conservative config.
const lastResortVariant = vision.VariantBinarized

// attemptBudget is the OCR effort left for one request. Every image of the
// request draws from it, and the last-resort pass runs at most once. It is
// not safe for concurrent use.
type attemptBudget struct {
	remaining      int
	lastResortUsed bool
}

func newAttemptBudget(attempts int) *attemptBudget {
	return &attemptBudget{remaining: attempts}
}

func (b *attemptBudget) spent() bool {
	return b.remaining <= 0 && b.lastResortUsed
}

// searchResult is what the OCR search over one image produced.
type searchResult struct {
	best       ocrprocessor.Attempt
	found      bool
	attempts   int
	lastResort bool
	trace      []AttemptSummary

	// errs holds the error of every failed attempt; allFailed is set when no
	// attempt succeeded
	errs      []error
	allFailed bool
}

// selectBest picks the strict maximum score among successful attempts; the
// earliest attempt wins ties.
func selectBest(attempts []ocrprocessor.Attempt) (ocrprocessor.Attempt, bool) {
	var best ocrprocessor.Attempt
	found := false
	for _, a := range attempts {
		if a.Failed() {
			continue
		}
		if !found || a.Score() > best.Score() {
			best, found = a, true
		}
	}
	return best, found
}

// searchImage runs the variant x config search over src, issuing no more
// attempts than budget has left.
func (o *Orchestrator) searchImage(ctx context.Context, src image.Image, budget *attemptBudget, log *logging.Logger) searchResult {
	if budget.spent() {
		log.Debug("Attempt budget spent, skipping image")
		return searchResult{}
	}
	prepared := vision.PrepareSource(src)
	work := buildWorkList(ocrprocessor.PrimaryConfigs(o.cfg.PrimaryStrategies), max(budget.remaining, 0))

	var results []ocrprocessor.Attempt
	if o.cfg.Parallelism <= 1 {
		results = o.runSequential(ctx, prepared, work)
	} else {
		results = o.runWaves(ctx, prepared, work)
	}

	budget.remaining -= len(results)
	res := searchResult{attempts: len(results)}
	res.best, res.found = selectBest(results)

	if ctx.Err() != nil {
		log.Warn("Deadline reached, skipping remaining attempts",
			zap.Int("issued", len(results)),
			zap.Int("planned", len(work)),
		)
	} else if !budget.lastResortUsed && (!res.found || res.best.Score() < o.cfg.FallbackScore) {
		log.Debug("Running last-resort pass",
			zap.Bool("found", res.found),
			zap.Int("best_score", res.best.Score()),
		)
		results = append(results, o.runAttempt(ctx, ocrprocessor.LastResortIndex, prepared, workItem{
			variant: lastResortVariant,
			config:  ocrprocessor.Conservative(),
		}))
		budget.lastResortUsed = true
		res.lastResort = true
		res.best, res.found = selectBest(results)
	}

	for _, a := range results {
		s := AttemptSummary{
			Index:      a.Index,
			Variant:    a.Variant,
			Strategy:   a.Strategy,
			Confidence: a.Confidence,
			Score:      a.Score(),
		}
		if a.Err != nil {
			s.Error = a.Err.Error()
			res.errs = append(res.errs, a.Err)
		}
		res.trace = append(res.trace, s)
	}
	res.allFailed = len(results) > 0 && len(res.errs) == len(results)
	return res
}

func (o *Orchestrator) runSequential(ctx context.Context, src image.Image, work []workItem) []ocrprocessor.Attempt {
	results := make([]ocrprocessor.Attempt, 0, len(work))
	for i, w := range work {
		if ctx.Err() != nil {
			break
		}
		a := o.runAttempt(ctx, i, src, w)
		results = append(results, a)
		if !a.Failed() && a.Score() >= o.cfg.EarlyStopScore {
			break
		}
	}
	return results
}

// runWaves runs the work list in waves of Parallelism attempts. Early stop is
// checked between waves, so a wave always completes; results keep work-list
// order so the first-found tiebreak is unchanged.
func (o *Orchestrator) runWaves(ctx context.Context, src image.Image, work []workItem) []ocrprocessor.Attempt {
	results := make([]ocrprocessor.Attempt, 0, len(work))
	for start := 0; start < len(work); start += o.cfg.Parallelism {
		if ctx.Err() != nil {
			break
		}
		end := min(start+o.cfg.Parallelism, len(work))
		wave := make([]ocrprocessor.Attempt, end-start)

		var g errgroup.Group
		for j := range wave {
			j := j
			g.Go(func() error {
				wave[j] = o.runAttempt(ctx, start+j, src, work[start+j])
				return nil
			})
		}
		_ = g.Wait()

		results = append(results, wave...)
		for _, a := range wave {
			if !a.Failed() && a.Score() >= o.cfg.EarlyStopScore {
				return results
			}
		}
	}
	return results
}

// runAttempt builds the variant for this attempt only and runs one pass.
func (o *Orchestrator) runAttempt(ctx context.Context, index int, src image.Image, w workItem) ocrprocessor.Attempt {
	variant, err := vision.BuildVariant(w.variant, src)
	if err != nil {
		return ocrprocessor.Attempt{
			Index:    index,
			Variant:  w.variant,
			Strategy: w.config.Name,
			Err:      err,
		}
	}
	return o.executor.Run(ctx, index, variant, w.config)
}

// searchError summarises why a search yielded nothing.
func searchError(res searchResult) error {
	if len(res.errs) == 0 {
		return nil
	}
	return errors.Join(res.errs...)
}
