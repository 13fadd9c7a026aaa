package pdfprocessor

import (
	"context"
	"errors"
	"image"
	"strings"
	"testing"

	"cv_backend/shutdown"
)

const (
	pageOne   = "Jane Doe, Senior Software Engineer, jane.doe@example.com"
	pageThree = "Education: BSc Computer Science, University of Leeds 2012 - 2015"
	ocrPage   = "Experience: Acme Corp 2015 - Present, backend services in Go"
)

type fakeTextLayer struct {
	pages []string
	err   error
}

func (f fakeTextLayer) PageTexts(ctx context.Context, data []byte) ([]string, error) {
	return f.pages, f.err
}

type fakeRasterizer struct {
	pages   int
	openErr error
	opened  int
	closed  int
}

func (f *fakeRasterizer) Open(data []byte) (RasterDocument, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.opened++
	return &fakeDoc{r: f}, nil
}

type fakeDoc struct {
	r *fakeRasterizer
}

func (d *fakeDoc) NumPage() int { return d.r.pages }

// RenderPage encodes the page index in the image width.
func (d *fakeDoc) RenderPage(index int) (image.Image, error) {
	return image.NewGray(image.Rect(0, 0, index+1, 1)), nil
}

func (d *fakeDoc) Close() error {
	d.r.closed++
	return nil
}

type fakeOCR struct {
	texts map[int]string
	err   error
	calls []int
}

func (f *fakeOCR) RecognizePage(ctx context.Context, img image.Image) (PageOCR, error) {
	index := img.Bounds().Dx() - 1
	f.calls = append(f.calls, index)
	if f.err != nil {
		return PageOCR{Attempts: 2}, f.err
	}
	return PageOCR{Text: f.texts[index], Attempts: 2, Score: 70}, nil
}

func newTestExtractor(layer TextLayer, r *fakeRasterizer) *Extractor {
	return NewExtractor(DefaultExtractorConfig(), layer, r, nil)
}

func TestExtract_TextLayerOnly(t *testing.T) {
	r := &fakeRasterizer{pages: 2}
	e := newTestExtractor(fakeTextLayer{pages: []string{pageOne, pageThree}}, r)

	res, err := e.Extract(context.Background(), []byte("%PDF"), &fakeOCR{}, nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if res.Text != pageOne+"\n\n"+pageThree {
		t.Errorf("Text = %q", res.Text)
	}
	if res.Source != SourceTextLayer || res.TextLayerPages != 2 {
		t.Errorf("Source = %s, TextLayerPages = %d", res.Source, res.TextLayerPages)
	}
	if r.opened != 0 {
		t.Error("rasterizer should not be opened when every page has text")
	}
}

func TestExtract_MixedPagesKeepOrder(t *testing.T) {
	r := &fakeRasterizer{pages: 4}
	ocr := &fakeOCR{texts: map[int]string{1: ocrPage, 3: "  short  "}}
	e := newTestExtractor(fakeTextLayer{pages: []string{pageOne, "", pageThree, "12"}}, r)
	scope := shutdown.NewRegistry()

	res, err := e.Extract(context.Background(), []byte("%PDF"), ocr, scope)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	want := strings.Join([]string{pageOne, ocrPage, pageThree}, "\n\n")
	if res.Text != want {
		t.Errorf("Text = %q, want %q", res.Text, want)
	}
	if res.Source != SourceMixed || res.OCRPages != 1 || res.TextLayerPages != 2 {
		t.Errorf("result = %+v", res)
	}
	if res.OCRAttempts != 4 {
		t.Errorf("OCRAttempts = %d, want 4", res.OCRAttempts)
	}
	if len(ocr.calls) != 2 || ocr.calls[0] != 1 || ocr.calls[1] != 3 {
		t.Errorf("OCR calls = %v, want [1 3]", ocr.calls)
	}
	if res.Pages[3].Source != SourceNone {
		t.Errorf("short OCR page should be dropped, got %+v", res.Pages[3])
	}

	if r.closed != 0 {
		t.Error("document closed before the request scope")
	}
	scope.Close(context.Background())
	if r.opened != 1 || r.closed != 1 {
		t.Errorf("opened = %d, closed = %d", r.opened, r.closed)
	}
}

func TestExtract_ArtifactFallbackUsesOCR(t *testing.T) {
	r := &fakeRasterizer{pages: 2}
	ocr := &fakeOCR{texts: map[int]string{0: pageOne, 1: ocrPage}}
	leaked := "1 0 obj << /Type /Page /Filter /FlateDecode /Length 512 >> stream x endstream endobj xref trailer startxref"
	e := newTestExtractor(fakeTextLayer{pages: []string{leaked, pageThree}}, r)

	res, err := e.Extract(context.Background(), []byte("%PDF"), ocr, nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !res.ArtifactFallback {
		t.Fatal("ArtifactFallback = false")
	}
	if strings.Contains(res.Text, "endobj") || strings.Contains(res.Text, pageThree) {
		t.Errorf("text layer should be discarded entirely: %q", res.Text)
	}
	if res.Text != pageOne+"\n\n"+ocrPage || res.Source != SourceOCR {
		t.Errorf("Text = %q, Source = %s", res.Text, res.Source)
	}
	if r.closed != 1 {
		t.Error("nil scope should close the document before returning")
	}
}

func TestExtract_ScannedDocument(t *testing.T) {
	tests := []struct {
		name string
		ocr  *fakeOCR
		r    *fakeRasterizer
	}{
		{"ocr finds nothing", &fakeOCR{}, &fakeRasterizer{pages: 2}},
		{"ocr fails", &fakeOCR{err: errors.New("engine down")}, &fakeRasterizer{pages: 2}},
		{"cannot render", &fakeOCR{}, &fakeRasterizer{openErr: errors.New("mupdf")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestExtractor(fakeTextLayer{pages: []string{"", "Page 2"}}, tt.r)
			_, err := e.Extract(context.Background(), []byte("%PDF"), tt.ocr, nil)
			if !errors.Is(err, ErrScannedDocument) {
				t.Errorf("Extract() error = %v, want ErrScannedDocument", err)
			}
		})
	}
}

func TestExtract_UnreadableTextLayerUsesOCR(t *testing.T) {
	r := &fakeRasterizer{pages: 2}
	ocr := &fakeOCR{texts: map[int]string{0: pageOne, 1: ocrPage}}
	e := newTestExtractor(fakeTextLayer{err: errors.New("malformed xref")}, r)

	res, err := e.Extract(context.Background(), []byte("%PDF"), ocr, nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if res.TotalPages != 2 || res.OCRPages != 2 {
		t.Errorf("result = %+v", res)
	}
}

func TestExtract_MaxOCRPages(t *testing.T) {
	r := &fakeRasterizer{pages: 5}
	ocr := &fakeOCR{texts: map[int]string{0: pageOne, 1: ocrPage, 2: pageThree}}
	cfg := DefaultExtractorConfig()
	cfg.MaxOCRPages = 2
	e := NewExtractor(cfg, fakeTextLayer{pages: make([]string, 5)}, r, nil)

	res, err := e.Extract(context.Background(), []byte("%PDF"), ocr, nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(ocr.calls) != 2 {
		t.Errorf("OCR calls = %v, want 2", ocr.calls)
	}
	if len(res.Pages) != 5 {
		t.Errorf("pages = %d, want 5", len(res.Pages))
	}
}

func TestExtract_ArtifactFallbackReusesRecognizedPages(t *testing.T) {
	leaked := "1 0 obj << /Type /Page /Filter /FlateDecode /Length 512 >> stream x endstream endobj xref trailer startxref"
	tests := []struct {
		name        string
		maxOCR      int
		wantCalls   []int
		wantPages   int
		wantAttempt int
	}{
		{"limit spent before fallback", 3, []int{1, 2, 3}, 3, 6},
		{"limit left for remaining pages", 5, []int{1, 2, 3, 4, 0}, 3, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRasterizer{pages: 5}
			ocr := &fakeOCR{texts: map[int]string{1: pageOne, 2: ocrPage, 3: pageThree}}
			cfg := DefaultExtractorConfig()
			cfg.MaxOCRPages = tt.maxOCR
			e := NewExtractor(cfg, fakeTextLayer{pages: []string{leaked, "", "", "", ""}}, r, nil)

			res, err := e.Extract(context.Background(), []byte("%PDF"), ocr, nil)
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if !res.ArtifactFallback {
				t.Fatal("ArtifactFallback = false")
			}
			if len(ocr.calls) != len(tt.wantCalls) {
				t.Fatalf("OCR calls = %v, want %v", ocr.calls, tt.wantCalls)
			}
			for i := range tt.wantCalls {
				if ocr.calls[i] != tt.wantCalls[i] {
					t.Errorf("OCR calls = %v, want %v", ocr.calls, tt.wantCalls)
					break
				}
			}
			if res.OCRPages != tt.wantPages || res.OCRAttempts != tt.wantAttempt {
				t.Errorf("OCRPages = %d, OCRAttempts = %d, want %d and %d",
					res.OCRPages, res.OCRAttempts, tt.wantPages, tt.wantAttempt)
			}
			if want := strings.Join([]string{pageOne, ocrPage, pageThree}, "\n\n"); res.Text != want {
				t.Errorf("Text = %q, want %q", res.Text, want)
			}
		})
	}
}

func TestExtract_EmptyInput(t *testing.T) {
	e := newTestExtractor(fakeTextLayer{}, &fakeRasterizer{})
	if _, err := e.Extract(context.Background(), nil, nil, nil); !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("error = %v, want ErrEmptyDocument", err)
	}
}

func TestMeaningfulChars(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"  \n\t", 0},
		{"a-b c!", 3},
		{"Zürich 2024", 10},
	}
	for _, tt := range tests {
		if got := MeaningfulChars(tt.in); got != tt.want {
			t.Errorf("MeaningfulChars(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
