// Package extraction turns uploaded CV files into plain text. It dispatches
// by file type, drives the bounded OCR search over image variants and
// recognizer configs, and reports either text with a quality report or a
// typed failure.
package extraction

import (
	"fmt"
	"time"

	"cv_backend/quality"
)

// Request is one file to extract. It is not modified by the orchestrator.
type Request struct {
	Data     []byte
	MIMEType string
	Filename string
}

// Format is the dispatched document family.
type Format string

const (
	FormatPDF     Format = "pdf"
	FormatDocx    Format = "docx"
	FormatDoc     Format = "doc"
	FormatImage   Format = "image"
	FormatUnknown Format = "unknown"
)

// Text sources reported on an Outcome.
const (
	SourceTextLayer = "text-layer"
	SourceOCR       = "ocr"
	SourceMixed     = "mixed"
	SourceWord      = "word"
)

// Reason classifies a failed extraction.
type Reason string

const (
	// ReasonUnsupportedType means the file type is not handled; no attempt was made.
	ReasonUnsupportedType Reason = "unsupported_type"
	// ReasonNoTextExtracted means every attempt yielded unusable text.
	ReasonNoTextExtracted Reason = "no_text_extracted"
	// ReasonSourceLooksScanned means a PDF had no usable text layer and OCR did not recover it.
	ReasonSourceLooksScanned Reason = "source_looks_scanned"
	// ReasonEngineFailure means every OCR or parse call failed with an error.
	ReasonEngineFailure Reason = "engine_failure"
)

var userMessages = map[Reason]string{
	ReasonUnsupportedType:    "This file type is not supported. Please upload a PDF, a Word document or an image.",
	ReasonNoTextExtracted:    "No readable text could be found in this file. Please upload a clearer copy.",
	ReasonSourceLooksScanned: "The document appears to be a scanned image; please upload an image file directly.",
	ReasonEngineFailure:      "Text recognition failed for this file. Please try again later.",
}

// UserMessage returns the display text for r.
func (r Reason) UserMessage() string {
	if msg, ok := userMessages[r]; ok {
		return msg
	}
	return "The file could not be processed."
}

// Failure is a typed extraction failure. Message is safe to show to the
// person who uploaded the file; Cause is for logs.
type Failure struct {
	Reason  Reason
	Message string
	Cause   error
}

func newFailure(reason Reason, cause error) *Failure {
	return &Failure{Reason: reason, Message: reason.UserMessage(), Cause: cause}
}

func (f *Failure) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("extraction: %s: %v", f.Reason, f.Cause)
	}
	return fmt.Sprintf("extraction: %s", f.Reason)
}

func (f *Failure) Unwrap() error { return f.Cause }

// AttemptSummary is the diagnostic trace of one OCR attempt.
type AttemptSummary struct {
	Index      int     `json:"index"`
	Variant    string  `json:"variant"`
	Strategy   string  `json:"strategy"`
	Confidence float64 `json:"confidence"`
	Score      int     `json:"score"`
	Error      string  `json:"error,omitempty"`
}

// Outcome is the terminal result of Extract. Exactly one of Text or Failure
// is meaningful: Failure is nil on success.
type Outcome struct {
	RequestID string
	Filename  string
	Format    Format

	// Source is where the text came from; empty on failure before extraction
	Source string

	Text    string
	Report  quality.Report
	Failure *Failure

	// Attempts counts budgeted OCR attempts; LastResort reports the extra pass
	Attempts   int
	LastResort bool

	// Trace lists image OCR attempts in the order they were issued
	Trace []AttemptSummary

	Duration time.Duration
}

// Succeeded reports whether text was extracted.
func (o Outcome) Succeeded() bool { return o.Failure == nil }

// Err returns the Failure as an error, or nil.
func (o Outcome) Err() error {
	if o.Failure == nil {
		return nil
	}
	return o.Failure
}
