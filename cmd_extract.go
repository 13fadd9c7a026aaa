package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cv_backend/core"
	"cv_backend/extraction"
	"cv_backend/shutdown"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newExtractCmd(a *app) *cobra.Command {
	var (
		mimeType string
		asJSON   bool
		trace    bool
	)

	cmd := &cobra.Command{
		Use:   "extract FILE...",
		Short: "Extract text from one or more CV files",
		Long: `Extract text from PDF, Word and image files.

The file type is taken from --mime when given, otherwise from the file
extension. Text goes to stdout; logs go to stderr.

Exit codes: 0 all files produced text, 2 at least one extraction failed,
3 at least one file type is unsupported, 1 configuration or I/O error.`,
		Args:    cobra.MinimumNArgs(1),
		PreRunE: a.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			results := make([]extractResult, 0, len(args))

			for _, path := range args {
				var out extraction.Outcome
				err := a.manager.Run(a.manager.Context(), path, func(ctx context.Context) error {
					data, err := os.ReadFile(path)
					if err != nil {
						return err
					}
					out = a.orchestrator.Extract(ctx, extraction.Request{
						Data:     data,
						MIMEType: mimeType,
						Filename: filepath.Base(path),
					})
					return nil
				})
				if err != nil {
					if errors.Is(err, shutdown.ErrTrackerClosed) || a.manager.Interrupted() {
						a.logger.Warn("Stopping before remaining files",
							zap.String("next", path),
							zap.Int64("in_flight", a.manager.ActiveWork()),
						)
						break
					}
					a.fail(core.ExitCodeError)
					a.logger.Error("Cannot read file", zap.String("file", path), zap.Error(err))
					continue
				}

				a.fail(exitCodeFor(out))
				res := newExtractResult(path, out, trace)
				if asJSON {
					results = append(results, res)
					continue
				}
				printOutcome(a.stdout, res)
			}

			if asJSON {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(results); err != nil {
					return fmt.Errorf("write results: %w", err)
				}
			}
			if len(args) > 1 {
				printSummary(a.stderr, a.store.Summary())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mimeType, "mime", "", "MIME type applied to every file (default: from extension)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as a JSON array")
	cmd.Flags().BoolVar(&trace, "trace", false, "include the OCR attempt trace")
	return cmd
}

// exitCodeFor maps one outcome to the CLI exit code.
func exitCodeFor(out extraction.Outcome) int {
	switch {
	case out.Failure == nil:
		return core.ExitCodeSuccess
	case out.Failure.Reason == extraction.ReasonUnsupportedType:
		return core.ExitCodeUnsupportedType
	default:
		return core.ExitCodeExtractionFailed
	}
}

// extractResult is the printed form of an Outcome.
type extractResult struct {
	File       string                      `json:"file"`
	RequestID  string                      `json:"request_id"`
	Format     string                      `json:"format"`
	Source     string                      `json:"source,omitempty"`
	Text       string                      `json:"text"`
	Score      int                         `json:"score"`
	Tier       string                      `json:"tier"`
	Indicators []string                    `json:"indicators,omitempty"`
	Issues     []string                    `json:"issues,omitempty"`
	Attempts   int                         `json:"attempts"`
	LastResort bool                        `json:"last_resort"`
	DurationMS int64                       `json:"duration_ms"`
	Error      *failureResult              `json:"error,omitempty"`
	Trace      []extraction.AttemptSummary `json:"trace,omitempty"`
}

type failureResult struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

func newExtractResult(path string, out extraction.Outcome, withTrace bool) extractResult {
	res := extractResult{
		File:       path,
		RequestID:  out.RequestID,
		Format:     string(out.Format),
		Source:     out.Source,
		Text:       out.Text,
		Score:      out.Report.Score,
		Tier:       string(out.Report.Tier),
		Indicators: out.Report.Indicators,
		Issues:     out.Report.Issues,
		Attempts:   out.Attempts,
		LastResort: out.LastResort,
		DurationMS: out.Duration.Milliseconds(),
	}
	if out.Failure != nil {
		res.Error = &failureResult{Reason: string(out.Failure.Reason), Message: out.Failure.Message}
	}
	if withTrace {
		res.Trace = out.Trace
	}
	return res
}
