// Package metrics keeps in-memory statistics about extraction outcomes.
package metrics

import "time"

// ExtractionRecord describes one finished extraction request.
type ExtractionRecord struct {
	// RequestID correlates the record with log lines
	RequestID string `json:"request_id"`

	// Filename is the caller-supplied name, may be empty
	Filename string `json:"filename,omitempty"`

	// Format is the dispatched document kind (pdf, docx, doc, image)
	Format string `json:"format"`

	// Source is where the text came from (text-layer, ocr, mixed, word)
	Source string `json:"source,omitempty"`

	// Status is StatusSuccess or StatusFailed
	Status string `json:"status"`

	// Reason is the failure reason, empty on success
	Reason string `json:"reason,omitempty"`

	// Tier and Score come from the final quality report
	Tier  string `json:"tier,omitempty"`
	Score int    `json:"score"`

	// Attempts counts OCR attempts issued, LastResort whether the extra pass ran
	Attempts   int  `json:"attempts"`
	LastResort bool `json:"last_resort"`

	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
}

// FormatMetrics aggregates records of one format.
type FormatMetrics struct {
	Count       int64         `json:"count"`
	SuccessRate float64       `json:"success_rate"`
	AvgDuration time.Duration `json:"avg_duration"`
	AvgAttempts float64       `json:"avg_attempts"`
	AvgScore    float64       `json:"avg_score"`
}

// Summary is a snapshot of all recorded extractions.
type Summary struct {
	TotalProcessed int64                     `json:"total_processed"`
	TotalSuccess   int64                     `json:"total_success"`
	TotalFailed    int64                     `json:"total_failed"`
	TotalAttempts  int64                     `json:"total_attempts"`
	LastResortRuns int64                     `json:"last_resort_runs"`
	ByFormat       map[string]*FormatMetrics `json:"by_format"`
	ByReason       map[string]int64          `json:"by_reason"`
	ByTier         map[string]int64          `json:"by_tier"`
	Version        string                    `json:"version"`
	Uptime         time.Duration             `json:"uptime"`
}

// Record statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)
