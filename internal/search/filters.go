package search

import (
	"fmt"
	"time"

	"tenderscan/internal/domain"
)

// Sort keys, 1-based to match the external API contract.
const (
	SortUpdateDate = iota + 1
	SortPublishDate
	SortPrice
	SortRelevance
)

// Ordinal table mapping a sort key to its external query-string name.
var sortByNames = []string{"UPDATE_DATE", "PUBLISH_DATE", "PRICE", "RELEVANCE"}

const (
	dateLayout  = "02.01.2006"
	maxPageSpan = 10
)

// Filters describes one validated parse run. Normalize it once
// after decoding; it is treated as immutable afterwards.
type Filters struct {
	PageStart          int    `json:"pageStart"`
	PageEnd            int    `json:"pageEnd"`
	PriceFrom          int64  `json:"priceFrom"`
	PriceTo            int64  `json:"priceTo"`
	TerminationGrounds []int  `json:"terminationGrounds"`
	SortBy             int    `json:"sortBy"`
	SortAscending      bool   `json:"sortAscending"`
	SearchString       string `json:"searchString"`

	ContractDateFrom   string `json:"contractDateFrom"`
	ContractDateTo     string `json:"contractDateTo"`
	PublishDateFrom    string `json:"publishDateFrom"`
	PublishDateTo      string `json:"publishDateTo"`
	UpdateDateFrom     string `json:"updateDateFrom"`
	UpdateDateTo       string `json:"updateDateTo"`
	ExecutionDateStart string `json:"executionDateStart"`
	ExecutionDateEnd   string `json:"executionDateEnd"`
}

// Normalize fills defaults and validates every range. It must succeed before
// the filters touch any I/O path.
func (f *Filters) Normalize() error {
	if f.PageStart > 0 && f.PageEnd == 0 {
		f.PageEnd = f.PageStart
	}
	if f.PageEnd > 0 && f.PageStart == 0 {
		f.PageStart = f.PageEnd
	}
	if f.PageStart == 0 && f.PageEnd == 0 {
		f.PageStart, f.PageEnd = 1, 1
	}
	if f.PageStart < 1 || f.PageEnd < 1 {
		return fmt.Errorf("%w: page numbers must be positive", domain.ErrConfiguration)
	}
	if f.PageStart > f.PageEnd {
		return fmt.Errorf("%w: pageStart (%d) is greater than pageEnd (%d)", domain.ErrConfiguration, f.PageStart, f.PageEnd)
	}
	if f.PageEnd-f.PageStart+1 > maxPageSpan {
		return fmt.Errorf("%w: at most %d pages per run", domain.ErrConfiguration, maxPageSpan)
	}

	if len(f.TerminationGrounds) == 0 {
		f.TerminationGrounds = []int{1, 2, 3}
	}
	for _, g := range f.TerminationGrounds {
		if g < 1 || g > 3 {
			return fmt.Errorf("%w: termination ground %d out of range 1..3", domain.ErrConfiguration, g)
		}
	}

	if f.SortBy == 0 {
		f.SortBy = SortUpdateDate
	}
	if f.SortBy < SortUpdateDate || f.SortBy > SortRelevance {
		return fmt.Errorf("%w: sortBy %d out of range 1..%d", domain.ErrConfiguration, f.SortBy, SortRelevance)
	}

	if f.PriceFrom < 0 || f.PriceTo < 0 {
		return fmt.Errorf("%w: price bounds must be non-negative", domain.ErrConfiguration)
	}
	if f.PriceFrom > 0 && f.PriceTo > 0 && f.PriceFrom > f.PriceTo {
		return fmt.Errorf("%w: priceFrom (%d) is greater than priceTo (%d)", domain.ErrConfiguration, f.PriceFrom, f.PriceTo)
	}

	pairs := []struct {
		fromName, toName string
		from, to         string
	}{
		{"contractDateFrom", "contractDateTo", f.ContractDateFrom, f.ContractDateTo},
		{"publishDateFrom", "publishDateTo", f.PublishDateFrom, f.PublishDateTo},
		{"updateDateFrom", "updateDateTo", f.UpdateDateFrom, f.UpdateDateTo},
		{"executionDateStart", "executionDateEnd", f.ExecutionDateStart, f.ExecutionDateEnd},
	}
	for _, p := range pairs {
		from, err := parseDate(p.fromName, p.from)
		if err != nil {
			return err
		}
		to, err := parseDate(p.toName, p.to)
		if err != nil {
			return err
		}
		if p.from != "" && p.to != "" && from.After(to) {
			return fmt.Errorf("%w: %s (%s) is after %s (%s)", domain.ErrConfiguration, p.fromName, p.from, p.toName, p.to)
		}
	}

	return nil
}

func parseDate(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s (%s) is not a dd.mm.yyyy date", domain.ErrConfiguration, name, value)
	}
	return t, nil
}
