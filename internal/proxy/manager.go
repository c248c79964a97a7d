package proxy

import (
	"math/rand"
	"net/http"
)

// Manager hands out realistic browser identities for requests to the origin
// site, which rejects clients it does not recognize.
type Manager struct {
	userAgents []string
	referer    string
}

func NewManager(referer string) *Manager {
	return &Manager{
		referer: referer,
		userAgents: []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 YaBrowser/25.2.2.0 Yowser/2.5 Safari/537.36",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
			"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		},
	}
}

// UserAgent returns a random user agent string.
func (m *Manager) UserAgent() string {
	return m.userAgents[rand.Intn(len(m.userAgents))]
}

// ApplyHeaders sets the full browser header set on an origin-site request.
func (m *Manager) ApplyHeaders(req *http.Request) {
	req.Header.Set("User-Agent", m.UserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("Connection", "keep-alive")
	if m.referer != "" {
		req.Header.Set("Referer", m.referer)
	}
}
