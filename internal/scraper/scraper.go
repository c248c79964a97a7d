package scraper

import (
	"context"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"tenderscan/internal/config"
	"tenderscan/internal/domain"
	"tenderscan/internal/monitoring"
	"tenderscan/internal/proxy"
	"tenderscan/internal/search"

	"go.uber.org/zap"
)

// PageTask is the unit of work handed to one worker: fetch and parse a single
// listing page for the given filters.
type PageTask struct {
	Filters *search.Filters
	Page    int
}

// Scraper fetches listing pages from the procurement site and parses them
// into tender records.
type Scraper struct {
	cfg     *config.Config
	client  *http.Client
	agents  *proxy.Manager
	metrics *monitoring.Metrics
	logger  *zap.Logger

	allocOnce sync.Once
	allocCtx  context.Context
}

func New(cfg *config.Config, agents *proxy.Manager, m *monitoring.Metrics, l *zap.Logger) *Scraper {
	return &Scraper{
		cfg:     cfg,
		agents:  agents,
		metrics: m,
		logger:  l,
		client: &http.Client{
			Timeout: time.Duration(cfg.ScrapeTimeout) * time.Second,
		},
	}
}

// Run fetches every page in the filter's range through a fixed-size worker
// pool and concatenates the results in page order regardless of completion
// order. Failed pages contribute an empty slice; callers seeing fewer records
// than expected must infer that some pages failed.
func (s *Scraper) Run(ctx context.Context, f *search.Filters) []domain.TenderRecord {
	pages := f.PageEnd - f.PageStart + 1

	// Slot i always holds page PageStart+i's records. Each worker writes only
	// the slot of the task it took, so no locking is needed.
	slots := make([][]domain.TenderRecord, pages)

	workers := s.cfg.ScrapeWorkers
	if workers <= 0 {
		workers = 1
	}
	if workers > pages {
		workers = pages
	}

	tasks := make(chan PageTask)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range tasks {
				slots[task.Page-f.PageStart] = s.FetchPage(ctx, task)
			}
		}()
	}

	for p := f.PageStart; p <= f.PageEnd; p++ {
		tasks <- PageTask{Filters: f, Page: p}
	}
	close(tasks)
	wg.Wait()

	var all []domain.TenderRecord
	for _, records := range slots {
		all = append(all, records...)
	}
	return all
}

// politenessSleep throttles the sustained request rate against the origin
// site: each worker sleeps a randomized interval after finishing a page.
func (s *Scraper) politenessSleep(ctx context.Context) {
	min, max := s.cfg.PolitenessMinMs, s.cfg.PolitenessMaxMs
	if min <= 0 && max <= 0 {
		return
	}
	if max < min {
		max = min
	}
	d := time.Duration(min+rand.Intn(max-min+1)) * time.Millisecond
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
