package pdfprocessor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"cv_backend/logging"
	"cv_backend/shutdown"
	"cv_backend/textcleaner"

	"go.uber.org/zap"
)

var (
	// ErrScannedDocument means neither the text layer nor OCR produced enough
	// text; the document is most likely a scanned image.
	ErrScannedDocument = errors.New("pdfprocessor: no extractable text layer, document looks scanned")

	// ErrEmptyDocument is returned for zero-byte input.
	ErrEmptyDocument = errors.New("pdfprocessor: empty document")
)

// Where page text came from.
const (
	SourceTextLayer = "text-layer"
	SourceOCR       = "ocr"
	SourceMixed     = "mixed"
	SourceNone      = "none"
)

// PageOCR is the outcome of running the image OCR path on one rendered page.
type PageOCR struct {
	Text       string
	Score      int
	Attempts   int
	LastResort bool
}

// PageRecognizer runs the image OCR path on a rendered page.
type PageRecognizer interface {
	RecognizePage(ctx context.Context, img image.Image) (PageOCR, error)
}

// PageResult is the text kept for one page.
type PageResult struct {
	// PageNumber is 1-based
	PageNumber int

	// Text is empty when the page contributed nothing
	Text string

	// Source is SourceTextLayer, SourceOCR or SourceNone
	Source string

	// Err is set when rendering or OCR of this page failed
	Err error
}

// ExtractionResult describes a PDF extraction.
type ExtractionResult struct {
	Text       string
	TotalPages int
	Pages      []PageResult

	// TextLayerPages and OCRPages count pages that contributed text
	TextLayerPages int
	OCRPages       int

	// OCRAttempts sums OCR attempts over all rendered pages
	OCRAttempts    int
	LastResortRuns int

	// ArtifactFallback is set when the text layer was rejected as PDF syntax
	ArtifactFallback bool

	// Source summarises where the final text came from
	Source string
}

// ExtractorConfig holds the page thresholds.
type ExtractorConfig struct {
	// MinPageMeaningful is the letter/digit count above which a text-layer page is kept
	MinPageMeaningful int

	// MinOCRPageLength is the length above which OCR output for a page is kept
	MinOCRPageLength int

	// MinDocumentLength is the final length below which ErrScannedDocument is returned
	MinDocumentLength int

	// MaxOCRPages bounds how many pages are rendered and recognized
	MaxOCRPages int
}

func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		MinPageMeaningful: 20,
		MinOCRPageLength:  10,
		MinDocumentLength: 50,
		MaxOCRPages:       10,
	}
}

// Extractor combines a text layer, a rasterizer and the OCR path.
type Extractor struct {
	config     ExtractorConfig
	textLayer  TextLayer
	rasterizer Rasterizer
	logger     *logging.Logger
}

// NewExtractor wires the components. A nil textLayer uses LedongTextLayer
// and a nil rasterizer a FitzRasterizer at DefaultRenderDPI.
func NewExtractor(config ExtractorConfig, textLayer TextLayer, rasterizer Rasterizer, logger *logging.Logger) *Extractor {
	d := DefaultExtractorConfig()
	if config.MinPageMeaningful <= 0 {
		config.MinPageMeaningful = d.MinPageMeaningful
	}
	if config.MinOCRPageLength <= 0 {
		config.MinOCRPageLength = d.MinOCRPageLength
	}
	if config.MinDocumentLength <= 0 {
		config.MinDocumentLength = d.MinDocumentLength
	}
	if config.MaxOCRPages <= 0 {
		config.MaxOCRPages = d.MaxOCRPages
	}
	if textLayer == nil {
		textLayer = LedongTextLayer{}
	}
	if rasterizer == nil {
		rasterizer = NewFitzRasterizer(DefaultRenderDPI)
	}
	return &Extractor{
		config:     config,
		textLayer:  textLayer,
		rasterizer: rasterizer,
		logger:     logging.OrNop(logger).Named("pdf-extractor"),
	}
}

// extraction is the per-call state. The raster document is opened lazily and
// its Close is handed to the request scope.
type extraction struct {
	e        *Extractor
	data     []byte
	ocr      PageRecognizer
	scope    *shutdown.Registry
	doc      RasterDocument
	docErr   error
	ocrCalls int
	result   *ExtractionResult

	// recognized keeps OCR output by page index so the artifact re-run does
	// not recognize a page twice
	recognized map[int]recognizedPage
}

type recognizedPage struct {
	out PageOCR
	err error
}

// Extract returns the document text. Pages with a usable text layer are kept
// as-is; the rest are rendered and sent through ocr. If the combined text
// looks like PDF internals, every page is re-read through OCR instead.
//
// The rendered document is released through scope; a nil scope closes it
// before Extract returns. A nil ocr disables the OCR fallback.
func (e *Extractor) Extract(ctx context.Context, data []byte, ocr PageRecognizer, scope *shutdown.Registry) (*ExtractionResult, error) {
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}
	if scope == nil {
		scope = shutdown.NewRegistry()
		defer scope.Close(context.Background())
	}

	x := &extraction{
		e:          e,
		data:       data,
		ocr:        ocr,
		scope:      scope,
		result:     &ExtractionResult{},
		recognized: make(map[int]recognizedPage),
	}
	res := x.result

	layer, layerErr := e.textLayer.PageTexts(ctx, data)
	switch {
	case layerErr != nil && ctx.Err() == nil:
		e.logger.Warn("Text layer unreadable, using OCR for every page", zap.Error(layerErr))
		x.ocrAllPages(ctx)
	default:
		res.TotalPages = len(layer)
		x.mergeTextLayer(ctx, layer)

		if joined := joinPages(res.Pages); joined != "" {
			if report := textcleaner.DetectArtifacts(joined); report.Positive {
				e.logger.Warn("Text layer contains PDF syntax, using OCR for every page",
					zap.Strings("keywords", report.Keywords),
					zap.Any("pattern_hits", report.PatternHits),
					zap.Float64("suspicion_ratio", report.SuspicionRatio),
				)
				res.ArtifactFallback = true
				x.ocrAllPages(ctx)
			}
		}
	}

	res.Text = strings.TrimSpace(joinPages(res.Pages))
	res.Source = sourceOf(res)

	e.logger.Debug("PDF extracted",
		zap.Int("pages", res.TotalPages),
		zap.Int("text_layer_pages", res.TextLayerPages),
		zap.Int("ocr_pages", res.OCRPages),
		zap.Int("ocr_attempts", res.OCRAttempts),
		zap.Int("length", TrimmedLen(res.Text)),
	)

	if TrimmedLen(res.Text) < e.config.MinDocumentLength {
		if x.docErr != nil {
			return res, fmt.Errorf("%w: %w", ErrScannedDocument, x.docErr)
		}
		return res, ErrScannedDocument
	}
	return res, nil
}

func (x *extraction) mergeTextLayer(ctx context.Context, layer []string) {
	res := x.result
	for i, text := range layer {
		page := PageResult{PageNumber: i + 1, Source: SourceNone}
		if MeaningfulChars(text) > x.e.config.MinPageMeaningful {
			page.Text = text
			page.Source = SourceTextLayer
			res.TextLayerPages++
		} else if ctx.Err() == nil {
			x.ocrPage(ctx, i, &page)
		}
		res.Pages = append(res.Pages, page)
	}
}

// ocrAllPages discards collected pages and reads the whole document by OCR.
// Pages already recognized are reused and MaxOCRPages still bounds the
// whole document.
func (x *extraction) ocrAllPages(ctx context.Context) {
	res := x.result
	res.Pages = nil
	res.TextLayerPages = 0
	res.OCRPages = 0

	doc := x.document()
	if doc == nil {
		return
	}
	res.TotalPages = doc.NumPage()
	for i := 0; i < res.TotalPages; i++ {
		page := PageResult{PageNumber: i + 1, Source: SourceNone}
		if ctx.Err() == nil {
			x.ocrPage(ctx, i, &page)
		}
		res.Pages = append(res.Pages, page)
	}
}

func (x *extraction) ocrPage(ctx context.Context, index int, page *PageResult) {
	if x.ocr == nil {
		return
	}
	rec, ok := x.recognized[index]
	if !ok {
		if !x.recognize(ctx, index, page) {
			return
		}
		rec = x.recognized[index]
	}
	if rec.err != nil {
		page.Err = rec.err
		return
	}

	text := strings.TrimSpace(rec.out.Text)
	if TrimmedLen(text) > x.e.config.MinOCRPageLength {
		page.Text = text
		page.Source = SourceOCR
		x.result.OCRPages++
	}
}

// recognize renders one page and runs OCR on it, once per page. It returns
// false when the page was not recognized.
func (x *extraction) recognize(ctx context.Context, index int, page *PageResult) bool {
	if x.ocrCalls >= x.e.config.MaxOCRPages {
		x.e.logger.Debug("OCR page limit reached", zap.Int("page", index+1))
		return false
	}
	doc := x.document()
	if doc == nil {
		page.Err = x.docErr
		return false
	}

	img, err := doc.RenderPage(index)
	if err != nil {
		page.Err = err
		x.e.logger.Warn("Page render failed", zap.Int("page", index+1), zap.Error(err))
		return false
	}

	x.ocrCalls++
	out, err := x.ocr.RecognizePage(ctx, img)
	x.result.OCRAttempts += out.Attempts
	if out.LastResort {
		x.result.LastResortRuns++
	}
	if err != nil {
		x.e.logger.Warn("Page OCR failed", zap.Int("page", index+1), zap.Error(err))
	}
	x.recognized[index] = recognizedPage{out: out, err: err}
	return true
}

// document opens the raster document once and registers its Close.
func (x *extraction) document() RasterDocument {
	if x.doc != nil || x.docErr != nil {
		return x.doc
	}
	doc, err := x.e.rasterizer.Open(x.data)
	if err != nil {
		x.docErr = err
		x.e.logger.Warn("Cannot render document", zap.Error(err))
		return nil
	}
	x.doc = doc
	x.scope.Register("pdf raster document", shutdown.PriorityDocuments, func(context.Context) error {
		return doc.Close()
	})
	return doc
}

func sourceOf(res *ExtractionResult) string {
	switch {
	case res.TextLayerPages > 0 && res.OCRPages > 0:
		return SourceMixed
	case res.OCRPages > 0:
		return SourceOCR
	case res.TextLayerPages > 0:
		return SourceTextLayer
	default:
		return SourceNone
	}
}
