package contract

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"tenderscan/internal/config"
	"tenderscan/internal/domain"
	"tenderscan/internal/proxy"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// The attachments block holding the termination document carries this title
// on the contract card.
const terminationBlockTitle = "информация об исполнении"

// Locator finds the termination-document PDF for a tender on its contract
// card. Most tenders have none, so a missing document is an ordinary outcome,
// not an error.
type Locator struct {
	cfg    *config.Config
	client *http.Client
	agents *proxy.Manager
	logger *zap.Logger
}

func NewLocator(cfg *config.Config, agents *proxy.Manager, l *zap.Logger) *Locator {
	return &Locator{
		cfg:    cfg,
		agents: agents,
		logger: l,
		client: &http.Client{
			Timeout: time.Duration(cfg.DocFetchTimeout) * time.Second,
		},
	}
}

// TerminationDocumentURL derives the contract card URL from the record's
// registry number, fetches it, and returns the href of the first PDF
// attachment inside the termination block. The second return value reports
// whether a document was found.
func (l *Locator) TerminationDocumentURL(ctx context.Context, rec domain.TenderRecord) (string, bool) {
	number := registryNumber(rec.Title)
	if number == "" {
		return "", false
	}
	cardURL := l.cfg.ContractCardURL + "?reestrNumber=" + number

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cardURL, nil)
	if err != nil {
		return "", false
	}
	l.agents.ApplyHeaders(req)

	resp, err := l.client.Do(req)
	if err != nil {
		l.logger.Warn("contract card fetch failed", zap.String("url", cardURL), zap.Error(err))
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		l.logger.Warn("contract card returned non-success status",
			zap.String("url", cardURL), zap.Int("status", resp.StatusCode))
		return "", false
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false
	}
	return findTerminationPDF(string(body))
}

// registryNumber strips the "№ " prefix the listing puts before the number.
func registryNumber(title string) string {
	runes := []rune(title)
	if len(runes) <= 2 {
		return ""
	}
	return string(runes[2:])
}

func findTerminationPDF(body string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", false
	}

	var href string
	doc.Find("div.card-attachments__block").EachWithBreak(func(_ int, block *goquery.Selection) bool {
		title := strings.ToLower(strings.TrimSpace(block.Find("div.title.pb-0").First().Text()))
		if !strings.Contains(title, terminationBlockTitle) {
			return true
		}
		block.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			linkTitle, _ := a.Attr("title")
			linkHref, _ := a.Attr("href")
			if strings.Contains(strings.ToLower(linkTitle), "pdf") && strings.Contains(linkHref, "filestore") {
				href = linkHref
				return false
			}
			return true
		})
		return href == ""
	})

	return href, href != ""
}
