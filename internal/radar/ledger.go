package radar

import (
	"tripradarbackend/internal/tools"
)

// Ledger tracks the tool usage of one detection run. It is rebuilt from the
// agent trace on every attempt and carries no cross-run state.
type Ledger struct {
	order           []string
	searches        []string
	officialSearch  []string
	scraped         map[string]struct{}
	officialScraped map[string]struct{}
}

// NewLedger records a tool trace in call order.
func NewLedger(trace []ToolCall) *Ledger {
	l := &Ledger{
		scraped:         make(map[string]struct{}),
		officialScraped: make(map[string]struct{}),
	}
	for _, call := range trace {
		if call.Tool == "" {
			continue
		}
		l.order = append(l.order, call.Tool)
		switch call.Tool {
		case tools.NameWebSearch:
			l.searches = append(l.searches, call.Input)
		case tools.NameOfficialSearch:
			l.officialSearch = append(l.officialSearch, call.Input)
		case tools.NameWebScrape:
			if url := tools.NormalizeURL(call.Input); url != "" {
				l.scraped[url] = struct{}{}
			}
		case tools.NameOfficialScrape:
			if url := tools.NormalizeURL(call.Input); url != "" {
				l.officialScraped[url] = struct{}{}
			}
		}
	}
	return l
}

// FirstCallIsSearch reports whether the run opened with a web search.
func (l *Ledger) FirstCallIsSearch() bool {
	return len(l.order) > 0 && l.order[0] == tools.NameWebSearch
}

// HasSearch reports whether any web search was made.
func (l *Ledger) HasSearch() bool { return len(l.searches) > 0 }

// HasScrape reports whether any page was scraped.
func (l *Ledger) HasScrape() bool { return len(l.scraped) > 0 }

// HasOfficialSearch reports whether the official hazard search was used.
func (l *Ledger) HasOfficialSearch() bool { return len(l.officialSearch) > 0 }

// HasOfficialScrape reports whether an official page was scraped.
func (l *Ledger) HasOfficialScrape() bool { return len(l.officialScraped) > 0 }

// Scraped reports whether the URL was fetched during this run, via either
// scrape tool.
func (l *Ledger) Scraped(url string) bool {
	normalized := tools.NormalizeURL(url)
	if normalized == "" {
		return false
	}
	if _, ok := l.scraped[normalized]; ok {
		return true
	}
	_, ok := l.officialScraped[normalized]
	return ok
}

// MissingSources returns every cited source URL that was never scraped.
func (l *Ledger) MissingSources(events []Event) []string {
	var missing []string
	seen := make(map[string]struct{})
	for _, event := range events {
		for _, source := range event.Sources {
			if source.URL == "" {
				continue
			}
			url := tools.NormalizeURL(source.URL)
			if url == "" {
				url = source.URL
			}
			if l.Scraped(source.URL) {
				continue
			}
			if _, ok := seen[url]; ok {
				continue
			}
			seen[url] = struct{}{}
			missing = append(missing, url)
		}
	}
	return missing
}

// AllCitedSourcesScraped reports whether every cited URL has scrape evidence.
func (l *Ledger) AllCitedSourcesScraped(events []Event) bool {
	return len(l.MissingSources(events)) == 0
}
