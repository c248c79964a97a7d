package ocr

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"tenderscan/internal/config"
	"tenderscan/internal/monitoring"

	"go.uber.org/zap"
)

var testMetrics = monitoring.NewMetrics()

func testClient(t *testing.T, endpoint string, attempts int) *Client {
	t.Helper()
	cfg := &config.Config{
		OCRURL:         endpoint,
		OCRToken:       "test-token",
		OCRFolderID:    "test-folder",
		OCRConcurrency: 5,
		OCRMaxAttempts: attempts,
		OCRBackoffMs:   1,
		OCRTimeout:     5,
	}
	return NewClient(cfg, testMetrics, zap.NewNop())
}

// recognitionJSON builds a minimal block/line/word response whose flattened
// text is the given words on one line.
func recognitionJSON(words ...string) []byte {
	type word struct {
		Text string `json:"text"`
	}
	var ws []word
	for _, w := range words {
		ws = append(ws, word{Text: w})
	}
	payload := map[string]any{
		"result": map[string]any{
			"textAnnotation": map[string]any{
				"blocks": []any{
					map[string]any{"lines": []any{map[string]any{"words": ws}}},
				},
			},
		},
	}
	b, _ := json.Marshal(payload)
	return b
}

func pageContent(r *http.Request) string {
	var req recognizeRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	raw, _ := base64.StdEncoding.DecodeString(req.Content)
	return string(raw)
}

func TestRecognizeReassemblesInPageOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("x-folder-id"); got != "test-folder" {
			t.Errorf("x-folder-id = %q", got)
		}
		content := pageContent(r)
		// Invert completion order: page 1 finishes last, page 3 first.
		switch content {
		case "page-1":
			time.Sleep(120 * time.Millisecond)
		case "page-2":
			time.Sleep(60 * time.Millisecond)
		}
		w.Write(recognitionJSON("текст", content))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 5)
	pages := []Page{
		{Index: 1, Image: []byte("page-1")},
		{Index: 2, Image: []byte("page-2")},
		{Index: 3, Image: []byte("page-3")},
	}

	results := c.Recognize(context.Background(), pages)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, want := range []string{"текст page-1", "текст page-2", "текст page-3"} {
		if results[i].Index != i+1 {
			t.Errorf("results[%d].Index = %d", i, results[i].Index)
		}
		if results[i].Failed {
			t.Errorf("results[%d] unexpectedly failed", i)
		}
		if results[i].Text != want {
			t.Errorf("results[%d].Text = %q, want %q", i, results[i].Text, want)
		}
	}
}

func TestRecognizeRateLimitedPageYieldsMarker(t *testing.T) {
	var rateLimited atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if pageContent(r) == "page-2" {
			rateLimited.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write(recognitionJSON("ок"))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 3)
	pages := []Page{
		{Index: 1, Image: []byte("page-1")},
		{Index: 2, Image: []byte("page-2")},
		{Index: 3, Image: []byte("page-3")},
	}

	results := c.Recognize(context.Background(), pages)
	if results[0].Text != "ок" || results[2].Text != "ок" {
		t.Errorf("sibling pages should keep their text: %+v", results)
	}
	if !results[1].Failed || results[1].Text != FailureMarker {
		t.Errorf("rate-limited page should carry the failure marker, got %+v", results[1])
	}
	if got := rateLimited.Load(); got != 3 {
		t.Errorf("expected 3 attempts against the rate-limited page, got %d", got)
	}
}

func TestRecognizeAbandonsPageOnPermanentError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad image", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 5)
	results := c.Recognize(context.Background(), []Page{{Index: 1, Image: []byte("x")}})
	if !results[0].Failed || results[0].Text != FailureMarker {
		t.Fatalf("expected failure marker, got %+v", results[0])
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("permanent errors must not be retried, got %d calls", got)
	}
}

func TestRecognizeEmptyAnnotationIsNotAFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":{"textAnnotation":{"blocks":[]}}}`)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 5)
	results := c.Recognize(context.Background(), []Page{{Index: 1, Image: []byte("blank")}})
	if results[0].Failed {
		t.Fatal("blank page must not be a failure")
	}
	if results[0].Text != "" {
		t.Errorf("expected empty text, got %q", results[0].Text)
	}
}

func TestFlatten(t *testing.T) {
	var resp recognizeResponse
	raw := `{"result":{"textAnnotation":{"blocks":[
		{"lines":[{"words":[{"text":"Договор"},{"text":"расторгнут"}]},{"words":[{"text":"сторонами"}]}]},
		{"lines":[{"words":[{"text":"01.02.2024"}]}]}
	]}}}`
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}
	want := "Договор расторгнут\nсторонами\n01.02.2024"
	if got := flatten(&resp); got != want {
		t.Errorf("flatten = %q, want %q", got, want)
	}
}
