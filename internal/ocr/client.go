package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"tenderscan/internal/config"
	"tenderscan/internal/monitoring"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// FailureMarker stands in for a page whose recognition permanently failed.
// Keeping the slot occupied preserves positional alignment of the document.
const FailureMarker = "[Ошибка OCR]"

// Page is one rendered document page queued for recognition, identified by
// its 1-based index so results can be reordered after parallel completion.
type Page struct {
	Index int
	Image []byte // JPEG bytes
}

// Result is the tagged outcome of recognizing one page.
type Result struct {
	Index  int
	Text   string
	Failed bool
}

// Client calls the Yandex Vision OCR endpoint. A single admission gate bounds
// in-flight calls across all documents; the external service rate-limits
// aggressively and unconstrained fan-out starves every page behind 429s.
type Client struct {
	endpoint    string
	token       string
	folderID    string
	httpClient  *http.Client
	gate        *semaphore.Weighted
	maxAttempts int
	backoffBase time.Duration
	metrics     *monitoring.Metrics
	logger      *zap.Logger
}

func NewClient(cfg *config.Config, m *monitoring.Metrics, l *zap.Logger) *Client {
	concurrency := cfg.OCRConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	attempts := cfg.OCRMaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	return &Client{
		endpoint:    cfg.OCRURL,
		token:       cfg.OCRToken,
		folderID:    cfg.OCRFolderID,
		gate:        semaphore.NewWeighted(int64(concurrency)),
		maxAttempts: attempts,
		backoffBase: time.Duration(cfg.OCRBackoffMs) * time.Millisecond,
		metrics:     m,
		logger:      l,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.OCRTimeout) * time.Second,
		},
	}
}

// Recognize dispatches every page concurrently and returns results ordered by
// page index. One unreadable page degrades to the failure marker; it never
// invalidates its siblings.
func (c *Client) Recognize(ctx context.Context, pages []Page) []Result {
	// Slot i always holds pages[i]'s result, so completion order is irrelevant.
	results := make([]Result, len(pages))

	var wg sync.WaitGroup
	for i, page := range pages {
		wg.Add(1)
		go func(slot int, p Page) {
			defer wg.Done()
			results[slot] = c.recognizePage(ctx, p)
		}(i, page)
	}
	wg.Wait()

	return results
}

// recognizePage runs the per-page call protocol: up to maxAttempts tries,
// sleeping a doubling backoff after a 429 or a transient network error. Any
// other error abandons this page only.
func (c *Client) recognizePage(ctx context.Context, p Page) Result {
	body, err := json.Marshal(recognizeRequest{
		MimeType:      "image/jpeg",
		LanguageCodes: []string{"ru", "en"},
		Content:       base64.StdEncoding.EncodeToString(p.Image),
	})
	if err != nil {
		return Result{Index: p.Index, Text: FailureMarker, Failed: true}
	}

	backoff := c.backoffBase
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		text, retry, err := c.attempt(ctx, body)
		if err == nil {
			return Result{Index: p.Index, Text: text}
		}
		if !retry {
			c.logger.Warn("OCR page abandoned", zap.Int("page", p.Index), zap.Error(err))
			break
		}

		c.logger.Warn("OCR attempt failed, backing off",
			zap.Int("page", p.Index),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err))
		c.metrics.OCRRetries.Inc()

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			attempt = c.maxAttempts
		}
		backoff *= 2
	}

	c.metrics.OCRPageFailures.Inc()
	return Result{Index: p.Index, Text: FailureMarker, Failed: true}
}

// attempt performs one recognition call under the admission gate. The second
// return value reports whether the failure is worth retrying.
func (c *Client) attempt(ctx context.Context, body []byte) (string, bool, error) {
	if err := c.gate.Acquire(ctx, 1); err != nil {
		return "", false, err
	}
	defer c.gate.Release(1)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("x-folder-id", c.folderID)

	c.metrics.OCRRequests.Inc()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transient network errors follow the same backoff as 429s.
		return "", true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", true, fmt.Errorf("rate limited: status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("recognition failed: status %d", resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, err
	}

	var parsed recognizeResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", false, fmt.Errorf("unexpected recognition response: %w", err)
	}
	return flatten(&parsed), false, nil
}

type recognizeRequest struct {
	MimeType      string   `json:"mimeType"`
	LanguageCodes []string `json:"languageCodes"`
	Content       string   `json:"content"`
}

type recognizeResponse struct {
	Result struct {
		TextAnnotation struct {
			Blocks []struct {
				Lines []struct {
					Words []struct {
						Text string `json:"text"`
					} `json:"words"`
				} `json:"lines"`
			} `json:"blocks"`
		} `json:"textAnnotation"`
	} `json:"result"`
}

// flatten joins words with spaces within a line and lines with newlines.
// No recognized blocks yields empty text, which is a valid result for a
// blank page.
func flatten(resp *recognizeResponse) string {
	var lines []string
	for _, block := range resp.Result.TextAnnotation.Blocks {
		for _, line := range block.Lines {
			var words []string
			for _, word := range line.Words {
				if word.Text != "" {
					words = append(words, word.Text)
				}
			}
			if len(words) > 0 {
				lines = append(lines, strings.Join(words, " "))
			}
		}
	}
	return strings.Join(lines, "\n")
}
