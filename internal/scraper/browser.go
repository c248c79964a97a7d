package scraper

import (
	"context"
	"fmt"
	"time"

	"tenderscan/internal/domain"

	"github.com/chromedp/chromedp"
)

// renderedHTML fetches a page through a headless browser. Used when the
// origin starts rejecting plain HTTP clients outright; enabled via
// USE_BROWSER.
func (s *Scraper) renderedHTML(ctx context.Context, pageURL string) (string, error) {
	s.allocOnce.Do(func() {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(s.agents.UserAgent()),
		)
		s.allocCtx, _ = chromedp.NewExecAllocator(context.Background(), opts...)
	})

	taskCtx, cancel := chromedp.NewContext(s.allocCtx)
	defer cancel()
	taskCtx, cancelTimeout := context.WithTimeout(taskCtx, time.Duration(s.cfg.ScrapeTimeout)*time.Second)
	defer cancelTimeout()

	var htmlContent string
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &htmlContent),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrFetch, err)
	}
	return htmlContent, nil
}
