package extract

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"io"
	"net/http"
	"strings"
	"time"

	"tenderscan/internal/config"
	"tenderscan/internal/ocr"
	"tenderscan/internal/proxy"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// Recognizer turns rendered document pages into text; see ocr.Client.
type Recognizer interface {
	Recognize(ctx context.Context, pages []ocr.Page) []ocr.Result
}

// Extractor recovers the text of a termination document. Direct extraction of
// the embedded text layer is cheap and accurate for digitally-authored
// documents; OCR is expensive but the only option for scans. Trying cheap
// first keeps cost down without losing coverage.
type Extractor struct {
	client     *http.Client
	agents     *proxy.Manager
	recognizer Recognizer
	logger     *zap.Logger
}

func New(cfg *config.Config, agents *proxy.Manager, recognizer Recognizer, l *zap.Logger) *Extractor {
	return &Extractor{
		agents:     agents,
		recognizer: recognizer,
		logger:     l,
		client: &http.Client{
			Timeout: time.Duration(cfg.DocFetchTimeout) * time.Second,
		},
	}
}

// Extract fetches the document and recovers its text: the embedded text layer
// first, then OCR over rendered pages when the layer is empty or forceOCR is
// set. Returns ok=false when nothing could be recovered; a missing document is
// a degraded result here, never an error.
func (e *Extractor) Extract(ctx context.Context, docURL string, forceOCR bool) (string, bool) {
	data, err := e.fetch(ctx, docURL)
	if err != nil {
		e.logger.Warn("document fetch failed", zap.String("url", docURL), zap.Error(err))
		return "", false
	}

	pages := e.directPages(data)

	if len(pages) == 0 || forceOCR {
		pages = append(pages, e.ocrPages(ctx, data)...)
	}

	if len(pages) == 0 {
		return "", false
	}
	return strings.Join(pages, "\n\n"), true
}

func (e *Extractor) fetch(ctx context.Context, docURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, docURL, nil)
	if err != nil {
		return nil, err
	}
	e.agents.ApplyHeaders(req)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// directPages reads the embedded text layer page by page, keeping non-blank
// pages under a reading-order heading. Any reader failure yields zero pages
// and lets the caller fall through to OCR.
func (e *Extractor) directPages(data []byte) (pages []string) {
	// The reader panics on some malformed documents.
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("embedded text reader panicked", zap.Any("cause", r))
			pages = nil
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		e.logger.Warn("embedded text reader failed", zap.Error(err))
		return nil
	}

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil || strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, fmt.Sprintf("--- Страница %d ---\n%s", i, text))
	}
	return pages
}

// ocrPages renders every page to a JPEG and runs the recognizer over the
// whole ordered batch.
func (e *Extractor) ocrPages(ctx context.Context, data []byte) []string {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		e.logger.Warn("cannot open document for rendering", zap.Error(err))
		return nil
	}
	defer doc.Close()

	var rendered []ocr.Page
	for n := 0; n < doc.NumPage(); n++ {
		img, err := doc.Image(n)
		if err != nil {
			e.logger.Warn("page render failed", zap.Int("page", n+1), zap.Error(err))
			continue
		}
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
			e.logger.Warn("page encode failed", zap.Int("page", n+1), zap.Error(err))
			continue
		}
		rendered = append(rendered, ocr.Page{Index: n + 1, Image: buf.Bytes()})
	}
	if len(rendered) == 0 {
		return nil
	}

	results := e.recognizer.Recognize(ctx, rendered)
	pages := make([]string, 0, len(results))
	for _, r := range results {
		pages = append(pages, fmt.Sprintf("--- Страница %d (OCR) ---\n%s", r.Index, r.Text))
	}
	return pages
}
