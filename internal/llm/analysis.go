package llm

import (
	"context"
	"fmt"

	"tenderscan/internal/domain"
	"tenderscan/internal/monitoring"

	"go.uber.org/zap"
)

// DocumentLocator finds a tender's termination document; see contract.Locator.
type DocumentLocator interface {
	TerminationDocumentURL(ctx context.Context, rec domain.TenderRecord) (string, bool)
}

// TextExtractor recovers the text of a document; see extract.Extractor.
type TextExtractor interface {
	Extract(ctx context.Context, docURL string, forceOCR bool) (string, bool)
}

// Completer produces the analysis text; see Analyzer.
type Completer interface {
	Analyze(ctx context.Context, contractText string) (string, error)
}

// TextCache stores extracted document text so repeated analyses of the same
// tender skip the extraction pipeline. A nil cache disables caching.
type TextCache interface {
	CachedDocumentText(ctx context.Context, key string) (string, bool, error)
	CacheDocumentText(ctx context.Context, key, text string) error
}

// Service runs the full analysis pipeline for one tender: locate the
// termination document, recover its text, and summarize it.
type Service struct {
	locator   DocumentLocator
	extractor TextExtractor
	completer Completer
	cache     TextCache
	metrics   *monitoring.Metrics
	logger    *zap.Logger
}

func NewService(locator DocumentLocator, extractor TextExtractor, completer Completer, cache TextCache, m *monitoring.Metrics, l *zap.Logger) *Service {
	return &Service{
		locator:   locator,
		extractor: extractor,
		completer: completer,
		cache:     cache,
		metrics:   m,
		logger:    l,
	}
}

// AnalyzeTender returns the analysis text for a tender, or "" when the tender
// has no termination document. Documents are processed one at a time; the OCR
// client bounds its own concurrency internally.
func (s *Service) AnalyzeTender(ctx context.Context, rec domain.TenderRecord, forceOCR bool) (string, error) {
	docURL, found := s.locator.TerminationDocumentURL(ctx, rec)
	if !found {
		s.metrics.AnalysesTotal.WithLabelValues("no_document").Inc()
		return "", nil
	}

	var text string
	if s.cache != nil && !forceOCR {
		if cached, ok, err := s.cache.CachedDocumentText(ctx, rec.Link); err == nil && ok {
			s.logger.Info("using cached document text", zap.String("tender", rec.Title))
			text = cached
		}
	}

	if text == "" {
		extracted, ok := s.extractor.Extract(ctx, docURL, forceOCR)
		if !ok {
			s.metrics.AnalysesTotal.WithLabelValues("failed").Inc()
			return "", fmt.Errorf("%w: no text recovered from %s", domain.ErrExternalService, docURL)
		}
		text = extracted
		if s.cache != nil {
			if err := s.cache.CacheDocumentText(ctx, rec.Link, text); err != nil {
				s.logger.Warn("cannot cache document text", zap.Error(err))
			}
		}
	}

	result, err := s.completer.Analyze(ctx, text)
	if err != nil {
		s.metrics.AnalysesTotal.WithLabelValues("failed").Inc()
		return "", err
	}
	s.metrics.AnalysesTotal.WithLabelValues("ok").Inc()
	return result, nil
}
