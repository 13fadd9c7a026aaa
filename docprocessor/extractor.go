// Package docprocessor extracts raw text from Word documents.
package docprocessor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"cv_backend/logging"

	"code.sajari.com/docconv"
	"go.uber.org/zap"
)

// Kind is a Word container format.
type Kind string

const (
	// KindDocx is Office Open XML (.docx)
	KindDocx Kind = "docx"
	// KindDoc is the legacy binary format (.doc)
	KindDoc Kind = "doc"
)

// MinTextLength is the shortest text accepted from a Word document.
const MinTextLength = 10

var (
	// ErrNoText means the converter returned fewer than MinTextLength characters.
	ErrNoText = errors.New("docprocessor: document contains no usable text")

	// ErrUnknownKind is returned for a Kind other than KindDocx or KindDoc.
	ErrUnknownKind = errors.New("docprocessor: unknown document kind")

	// ErrConversion wraps converter failures.
	ErrConversion = errors.New("docprocessor: conversion failed")
)

// ConvertFunc turns a document stream into plain text and metadata.
type ConvertFunc func(r io.Reader) (string, map[string]string, error)

// Extractor delegates to docconv, adding only a length check.
type Extractor struct {
	converters map[Kind]ConvertFunc
	logger     *logging.Logger
}

// NewExtractor uses docconv.ConvertDocx and docconv.ConvertDoc.
func NewExtractor(logger *logging.Logger) *Extractor {
	return NewExtractorWith(map[Kind]ConvertFunc{
		KindDocx: docconv.ConvertDocx,
		KindDoc:  docconv.ConvertDoc,
	}, logger)
}

// NewExtractorWith allows replacing the converters.
func NewExtractorWith(converters map[Kind]ConvertFunc, logger *logging.Logger) *Extractor {
	return &Extractor{
		converters: converters,
		logger:     logging.OrNop(logger).Named("word-extractor"),
	}
}

// Extract converts data of the given kind and returns the trimmed text.
func (e *Extractor) Extract(ctx context.Context, data []byte, kind Kind) (text string, err error) {
	convert, ok := e.converters[kind]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: converter panicked: %v", ErrConversion, r)
		}
	}()

	raw, meta, convErr := convert(bytes.NewReader(data))
	if convErr != nil {
		return "", fmt.Errorf("%w: %w", ErrConversion, convErr)
	}

	text = strings.TrimSpace(raw)
	e.logger.Debug("Word document converted",
		zap.String("kind", string(kind)),
		zap.Int("length", utf8.RuneCountInString(text)),
		zap.Int("metadata_keys", len(meta)),
	)
	if utf8.RuneCountInString(text) < MinTextLength {
		return "", ErrNoText
	}
	return text, nil
}

// Signatures at the start of Word containers.
var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// SniffKind guesses the container from the leading bytes. It returns false
// when neither signature matches.
func SniffKind(data []byte) (Kind, bool) {
	switch {
	case bytes.HasPrefix(data, zipMagic):
		return KindDocx, true
	case bytes.HasPrefix(data, oleMagic):
		return KindDoc, true
	default:
		return "", false
	}
}
