package extract

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tenderscan/internal/config"
	"tenderscan/internal/ocr"
	"tenderscan/internal/proxy"

	"go.uber.org/zap"
)

type stubRecognizer struct {
	called bool
}

func (s *stubRecognizer) Recognize(ctx context.Context, pages []ocr.Page) []ocr.Result {
	s.called = true
	results := make([]ocr.Result, len(pages))
	for i, p := range pages {
		results[i] = ocr.Result{Index: p.Index, Text: "распознанный текст"}
	}
	return results
}

func testExtractor(recognizer Recognizer) *Extractor {
	cfg := &config.Config{DocFetchTimeout: 5}
	return New(cfg, proxy.NewManager(""), recognizer, zap.NewNop())
}

// textPDF assembles a one-page PDF with an embedded text layer, tracking
// object offsets so the xref table is valid for both readers.
func textPDF(t *testing.T, text string) []byte {
	t.Helper()
	var buf bytes.Buffer
	offsets := make([]int, 6)
	writeObj := func(num int, body string) {
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
	}

	buf.WriteString("%PDF-1.4\n")
	writeObj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	writeObj(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	writeObj(3, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
		"/Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>")
	content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
	writeObj(4, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	writeObj(5, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")

	xref := buf.Len()
	buf.WriteString("xref\n0 6\n0000000000 65535 f \n")
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size 6 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", xref)
	return buf.Bytes()
}

func servePDF(t *testing.T, doc []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(doc)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExtractDirectTextSkipsOCR(t *testing.T) {
	srv := servePDF(t, textPDF(t, "Contract terminated by mutual consent"))

	rec := &stubRecognizer{}
	e := testExtractor(rec)

	text, ok := e.Extract(context.Background(), srv.URL+"/contract.pdf", false)
	if !ok {
		t.Fatal("expected text from the embedded layer")
	}
	if !strings.Contains(text, "--- Страница 1 ---") {
		t.Errorf("missing page heading: %q", text)
	}
	if !strings.Contains(text, "Contract terminated by mutual consent") {
		t.Errorf("missing embedded text: %q", text)
	}
	if strings.Contains(text, "(OCR)") {
		t.Errorf("direct extraction must not include OCR pages: %q", text)
	}
	if rec.called {
		t.Error("recognizer must not run when the text layer suffices")
	}
}

func TestExtractForceOCRAppendsRecognizedPages(t *testing.T) {
	srv := servePDF(t, textPDF(t, "Contract terminated by mutual consent"))

	rec := &stubRecognizer{}
	e := testExtractor(rec)

	text, ok := e.Extract(context.Background(), srv.URL+"/contract.pdf", true)
	if !ok {
		t.Fatal("expected text with forced recognition")
	}
	if !rec.called {
		t.Fatal("recognizer must run when recognition is forced")
	}
	if !strings.Contains(text, "--- Страница 1 ---") ||
		!strings.Contains(text, "Contract terminated by mutual consent") {
		t.Errorf("forced recognition must keep the directly-extracted pages: %q", text)
	}
	direct := strings.Index(text, "--- Страница 1 ---")
	recognized := strings.Index(text, "--- Страница 1 (OCR) ---")
	if recognized < 0 || !strings.Contains(text, "распознанный текст") {
		t.Fatalf("missing recognized pages: %q", text)
	}
	if recognized < direct {
		t.Errorf("recognized pages must follow the directly-extracted ones: %q", text)
	}
}

func TestExtractFetchFailureIsAbsentResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	rec := &stubRecognizer{}
	e := testExtractor(rec)

	if text, ok := e.Extract(context.Background(), srv.URL+"/contract.pdf", false); ok {
		t.Fatalf("expected absent result on fetch failure, got %q", text)
	}
	if rec.called {
		t.Error("recognizer must not run when the document cannot be fetched")
	}
}

func TestExtractUnreadableDocumentDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not a document"))
	}))
	defer srv.Close()

	e := testExtractor(&stubRecognizer{})

	// Both the text reader and the renderer reject the bytes; the result is
	// absent, not an error.
	if text, ok := e.Extract(context.Background(), srv.URL+"/contract.pdf", false); ok {
		t.Fatalf("expected absent result for unreadable bytes, got %q", text)
	}
}

func TestDirectPagesSurvivesGarbage(t *testing.T) {
	e := testExtractor(&stubRecognizer{})
	if pages := e.directPages([]byte("%PDF-1.4 truncated garbage")); len(pages) != 0 {
		t.Fatalf("expected zero pages from garbage, got %d", len(pages))
	}
}
