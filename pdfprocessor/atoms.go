// Package pdfprocessor extracts text from PDF documents, reading the embedded
// text layer where it is usable and falling back to OCR of rendered pages.
package pdfprocessor

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MeaningfulChars counts letters and digits in text.
//
// This is a pure function with no side effects.
func MeaningfulChars(text string) int {
	n := 0
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

// TrimmedLen returns the rune count of text without surrounding whitespace.
func TrimmedLen(text string) int {
	return utf8.RuneCountInString(strings.TrimSpace(text))
}

// joinPages concatenates non-empty page texts with a blank line between them.
func joinPages(pages []PageResult) string {
	var b strings.Builder
	for _, p := range pages {
		if p.Text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(p.Text)
	}
	return b.String()
}
