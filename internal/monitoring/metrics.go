package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	PagesFetched    prometheus.Counter
	PageErrors      *prometheus.CounterVec
	EntriesParsed   prometheus.Counter
	EntriesSkipped  prometheus.Counter
	OCRRequests     prometheus.Counter
	OCRRetries      prometheus.Counter
	OCRPageFailures prometheus.Counter
	AnalysesTotal   *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		PagesFetched: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tenderscan_listing_pages_fetched_total",
			Help: "The total number of listing pages fetched",
		}),
		PageErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tenderscan_page_errors_total",
			Help: "The total number of per-page failures",
		}, []string{"type"}), // e.g., 'fetch_failed', 'bad_status'
		EntriesParsed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tenderscan_entries_parsed_total",
			Help: "The total number of listing entries parsed into records",
		}),
		EntriesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tenderscan_entries_skipped_total",
			Help: "The total number of listing entries skipped for missing fields",
		}),
		OCRRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tenderscan_ocr_requests_total",
			Help: "The total number of OCR recognition calls dispatched",
		}),
		OCRRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tenderscan_ocr_retries_total",
			Help: "The total number of OCR calls retried after 429 or network errors",
		}),
		OCRPageFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tenderscan_ocr_page_failures_total",
			Help: "The total number of pages abandoned after exhausting OCR attempts",
		}),
		AnalysesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tenderscan_analyses_total",
			Help: "The total number of tender analyses run",
		}, []string{"status"}), // 'ok', 'no_document', 'failed'
	}
}
