package pdfprocessor

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// TextLayer reads the embedded text of every page. The returned slice has one
// entry per page, in page order; an unreadable page is an empty string.
type TextLayer interface {
	PageTexts(ctx context.Context, data []byte) ([]string, error)
}

// LedongTextLayer reads text layers with github.com/ledongthuc/pdf.
type LedongTextLayer struct{}

func (LedongTextLayer) PageTexts(ctx context.Context, data []byte) (pages []string, err error) {
	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("pdfprocessor: text layer parser panicked: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("pdfprocessor: open text layer: %w", err)
	}

	total := r.NumPage()
	pages = make([]string, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return pages, err
		}
		pages[i-1] = readPage(r, i)
	}
	return pages, nil
}

// readPage returns "" for null pages, extraction errors and parser panics so
// the caller routes that page to OCR.
func readPage(r *pdf.Reader, index int) (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()

	p := r.Page(index)
	if p.V.IsNull() {
		return ""
	}
	text, err := p.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}
