package search

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"tenderscan/internal/domain"
)

// Fixed query parameters of the contract search endpoint. contractStageList=2
// restricts results to executed/terminated contracts.
const fixedParams = "?morphology=on&search-filter=Дате+размещения" +
	"&fz44=on&contractStageList_2=on&contractStageList=2" +
	"&budgetLevelsIdNameHidden=%7B%7D" +
	"&recordsPerPage=_50&showLotsInfoHidden=false"

// BuildURL maps validated filters and a page number to the listing-page URL.
// Pure: identical inputs always yield the identical string. Optional fields
// are omitted entirely when unset rather than encoded empty.
func BuildURL(baseURL string, f *Filters, page int) (string, error) {
	if f.SortBy < SortUpdateDate || f.SortBy > SortRelevance {
		return "", fmt.Errorf("%w: sortBy %d has no external name", domain.ErrConfiguration, f.SortBy)
	}

	var b strings.Builder
	b.WriteString(baseURL)
	b.WriteString(fixedParams)
	b.WriteString("&pageNumber=")
	b.WriteString(strconv.Itoa(page))

	var joined strings.Builder
	for i := 1; i <= 3; i++ {
		if !containsInt(f.TerminationGrounds, i) {
			continue
		}
		fmt.Fprintf(&b, "&groundsTerminationContractsList_%d=on", i)
		if joined.Len() > 0 {
			joined.WriteString("%2C")
		}
		joined.WriteString(strconv.Itoa(i))
	}
	b.WriteString("&groundsTerminationContractsList=")
	b.WriteString(joined.String())

	if f.PriceFrom > 0 {
		fmt.Fprintf(&b, "&contractPriceFrom=%d", f.PriceFrom)
	}
	if f.PriceTo > 0 {
		fmt.Fprintf(&b, "&contractPriceTo=%d", f.PriceTo)
	}
	if f.SearchString != "" {
		b.WriteString("&searchString=")
		b.WriteString(url.QueryEscape(f.SearchString))
	}

	fmt.Fprintf(&b, "&sortDirection=%t", f.SortAscending)
	b.WriteString("&sortBy=")
	b.WriteString(sortByNames[f.SortBy-1])

	dates := []struct{ name, value string }{
		{"contractDateFrom", f.ContractDateFrom},
		{"contractDateTo", f.ContractDateTo},
		{"executionDateStart", f.ExecutionDateStart},
		{"executionDateEnd", f.ExecutionDateEnd},
		{"updateDateFrom", f.UpdateDateFrom},
		{"updateDateTo", f.UpdateDateTo},
		{"publishDateFrom", f.PublishDateFrom},
		{"publishDateTo", f.PublishDateTo},
	}
	for _, d := range dates {
		if d.value != "" {
			fmt.Fprintf(&b, "&%s=%s", d.name, d.value)
		}
	}

	return b.String(), nil
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
