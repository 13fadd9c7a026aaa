package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"cv_backend/core"
	"cv_backend/quality"

	"github.com/spf13/cobra"
)

func newScoreCmd(a *app) *cobra.Command {
	var (
		confidence float64
		asJSON     bool
		showText   bool
	)

	cmd := &cobra.Command{
		Use:   "score [FILE|-]",
		Short: "Normalize plain text and print its quality score",
		Long: `Read plain text from FILE, or from stdin when FILE is "-" or omitted,
run it through the normalizer and print the quality report.

--confidence sets the engine confidence (0-100) the text is scored with;
leave it unset for text that did not come from OCR.

Exits with status 2 when the text scores in the failed tier.`,
		Args:    cobra.MaximumNArgs(1),
		PreRunE: a.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readTextInput(a.stdin, args)
			if err != nil {
				return err
			}
			if confidence != quality.NoConfidence && (confidence < 0 || confidence > 100) {
				return fmt.Errorf("--confidence must be between 0 and 100, got %v", confidence)
			}

			clean, report := a.orchestrator.ScoreText(text, confidence)
			if !report.Passed() {
				a.fail(core.ExitCodeExtractionFailed)
			}

			if asJSON {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Text   string         `json:"text,omitempty"`
					Report quality.Report `json:"report"`
				}{Text: textIf(showText, clean), Report: report})
			}
			if showText {
				fmt.Fprintln(a.stdout, clean)
				fmt.Fprintln(a.stdout)
			}
			printReport(a.stdout, report)
			return nil
		},
	}

	cmd.Flags().Float64Var(&confidence, "confidence", quality.NoConfidence, "engine confidence 0-100")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	cmd.Flags().BoolVar(&showText, "text", false, "also print the normalized text")
	return cmd
}

func readTextInput(stdin io.Reader, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func textIf(ok bool, text string) string {
	if ok {
		return text
	}
	return ""
}
