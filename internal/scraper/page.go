package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"tenderscan/internal/domain"
	"tenderscan/internal/search"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const originBase = "https://zakupki.gov.ru"

// FetchPage performs one listing-page fetch and parse. A failing page is
// logged and yields an empty result so sibling pages in the same run are
// unaffected.
func (s *Scraper) FetchPage(ctx context.Context, task PageTask) []domain.TenderRecord {
	pageURL, err := search.BuildURL(s.cfg.SearchBaseURL, task.Filters, task.Page)
	if err != nil {
		s.logger.Error("cannot build listing URL", zap.Int("page", task.Page), zap.Error(err))
		return nil
	}

	body, err := s.pageHTML(ctx, pageURL)
	if err != nil {
		s.logger.Warn("listing page fetch failed", zap.Int("page", task.Page), zap.Error(err))
		s.metrics.PageErrors.WithLabelValues("fetch_failed").Inc()
		return nil
	}
	s.metrics.PagesFetched.Inc()

	records := s.parsePage(body)

	s.politenessSleep(ctx)
	return records
}

func (s *Scraper) pageHTML(ctx context.Context, pageURL string) (string, error) {
	if s.cfg.UseBrowser {
		return s.renderedHTML(ctx, pageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	s.agents.ApplyHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", domain.ErrFetch, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrFetch, err)
	}
	return string(body), nil
}

// parsePage extracts all well-formed listing entries from a page body. An
// entry whose required fields cannot be located is skipped, not fatal.
func (s *Scraper) parsePage(body string) []domain.TenderRecord {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		s.logger.Warn("listing page is not parseable HTML",
			zap.Error(fmt.Errorf("%w: %v", domain.ErrParse, err)))
		s.metrics.PageErrors.WithLabelValues("parse_failed").Inc()
		return nil
	}

	var records []domain.TenderRecord
	doc.Find(".search-registry-entry-block").Each(func(_ int, block *goquery.Selection) {
		rec, ok := parseEntry(block)
		if !ok {
			s.metrics.EntriesSkipped.Inc()
			return
		}
		s.metrics.EntriesParsed.Inc()
		records = append(records, rec)
	})
	return records
}

func parseEntry(block *goquery.Selection) (domain.TenderRecord, bool) {
	var rec domain.TenderRecord

	titleBlock := block.Find(".registry-entry__header-mid__number").First()
	rec.Title = strings.TrimSpace(titleBlock.Text())
	href, hasLink := titleBlock.Find("a").First().Attr("href")
	if rec.Title == "" || !hasLink {
		return rec, false
	}
	if strings.HasPrefix(href, "http") {
		rec.Link = href
	} else {
		rec.Link = originBase + href
	}

	rec.Customer = trimmedText(block, ".registry-entry__body-href")
	rec.Price = trimmedText(block, ".price-block__value")
	number := trimmedText(block, ".registry-entry__body-value")
	if rec.Customer == "" || rec.Price == "" || number == "" {
		return rec, false
	}
	rec.ContractNumber = normalizeContractNumber(number)

	// Legitimately absent on many entries; defaults to empty.
	rec.PurchaseObjects = trimmedText(block, ".lots-wrap-content__body__val span span")

	dates := block.Find(".data-block__value")
	if dates.Length() < 4 {
		return rec, false
	}
	rec.ContractDate = strings.TrimSpace(dates.Eq(0).Text())
	rec.ExecutionDate = strings.TrimSpace(dates.Eq(1).Text())
	rec.PublishDate = strings.TrimSpace(dates.Eq(2).Text())
	rec.UpdateDate = strings.TrimSpace(dates.Eq(3).Text())

	return rec, true
}

func trimmedText(block *goquery.Selection, selector string) string {
	return strings.TrimSpace(block.Find(selector).First().Text())
}

var contractNumberStrip = strings.NewReplacer("\n", "", " ", "")

// normalizeContractNumber collapses the whitespace the site scatters through
// the number and restores a single space after the № sign.
func normalizeContractNumber(raw string) string {
	return strings.ReplaceAll(contractNumberStrip.Replace(raw), "№", "№ ")
}
