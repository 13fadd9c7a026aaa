package pdfprocessor

import (
	"errors"
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// DefaultRenderDPI balances OCR accuracy against render time for A4 pages.
const DefaultRenderDPI = 200

// ErrPageOutOfRange is returned by RenderPage for a bad page index.
var ErrPageOutOfRange = errors.New("pdfprocessor: page out of range")

// Rasterizer opens a document for page rendering.
type Rasterizer interface {
	Open(data []byte) (RasterDocument, error)
}

// RasterDocument renders individual pages. Page indexes are zero-based.
// Close must be called once the document is no longer needed.
type RasterDocument interface {
	NumPage() int
	RenderPage(index int) (image.Image, error)
	Close() error
}

// FitzRasterizer renders pages with MuPDF through go-fitz.
type FitzRasterizer struct {
	DPI float64
}

func NewFitzRasterizer(dpi float64) *FitzRasterizer {
	if dpi <= 0 {
		dpi = DefaultRenderDPI
	}
	return &FitzRasterizer{DPI: dpi}
}

func (f *FitzRasterizer) Open(data []byte) (RasterDocument, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("pdfprocessor: open for rendering: %w", err)
	}
	return &fitzDocument{doc: doc, dpi: f.DPI}, nil
}

type fitzDocument struct {
	doc *fitz.Document
	dpi float64
}

func (d *fitzDocument) NumPage() int { return d.doc.NumPage() }

func (d *fitzDocument) RenderPage(index int) (image.Image, error) {
	if index < 0 || index >= d.doc.NumPage() {
		return nil, fmt.Errorf("%w: %d", ErrPageOutOfRange, index+1)
	}
	img, err := d.doc.ImageDPI(index, d.dpi)
	if err != nil {
		return nil, fmt.Errorf("pdfprocessor: render page %d: %w", index+1, err)
	}
	return img, nil
}

func (d *fitzDocument) Close() error {
	return d.doc.Close()
}
