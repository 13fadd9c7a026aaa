package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"cv_backend/metrics"
	"cv_backend/quality"

	"github.com/fatih/color"
)

var (
	headerColor = color.New(color.Bold)
	errorColor  = color.New(color.FgRed)
	dimColor    = color.New(color.Faint)
)

// tierColor picks the colour a tier is printed in.
func tierColor(tier string) *color.Color {
	switch quality.Tier(tier) {
	case quality.TierExcellent:
		return color.New(color.FgGreen, color.Bold)
	case quality.TierGood:
		return color.New(color.FgCyan)
	case quality.TierPoor:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

func printOutcome(w io.Writer, res extractResult) {
	headerColor.Fprintf(w, "== %s", res.File)
	fmt.Fprintf(w, " [%s", res.Format)
	if res.Source != "" {
		fmt.Fprintf(w, ", %s", res.Source)
	}
	fmt.Fprint(w, "] ")
	tierColor(res.Tier).Fprintf(w, "%s %d", res.Tier, res.Score)
	dimColor.Fprintf(w, " (%d attempts", res.Attempts)
	if res.LastResort {
		dimColor.Fprint(w, ", last resort")
	}
	dimColor.Fprintf(w, ", %dms)\n", res.DurationMS)

	if res.Error != nil {
		errorColor.Fprintf(w, "%s: %s\n\n", res.Error.Reason, res.Error.Message)
		return
	}
	fmt.Fprintln(w, res.Text)
	fmt.Fprintln(w)
}

func printReport(w io.Writer, report quality.Report) {
	fmt.Fprint(w, "Score: ")
	tierColor(string(report.Tier)).Fprintf(w, "%d (%s)\n", report.Score, report.Tier)
	if len(report.Indicators) > 0 {
		fmt.Fprintf(w, "Indicators: %s\n", strings.Join(report.Indicators, ", "))
	}
	for _, issue := range report.Issues {
		fmt.Fprintf(w, "  - %s\n", issue)
	}
}

func printSummary(w io.Writer, s metrics.Summary) {
	headerColor.Fprintln(w, "Summary")
	fmt.Fprintf(w, "  files: %d, succeeded: %d, failed: %d\n", s.TotalProcessed, s.TotalSuccess, s.TotalFailed)
	fmt.Fprintf(w, "  OCR attempts: %d, last-resort passes: %d\n", s.TotalAttempts, s.LastResortRuns)

	for _, format := range sortedKeys(s.ByFormat) {
		f := s.ByFormat[format]
		fmt.Fprintf(w, "  %-6s %d files, %.0f%% ok, avg score %.1f, avg %v\n",
			format, f.Count, f.SuccessRate, f.AvgScore, f.AvgDuration.Round(time.Millisecond))
	}
	for _, reason := range sortedKeys(s.ByReason) {
		errorColor.Fprintf(w, "  %s: %d\n", reason, s.ByReason[reason])
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
