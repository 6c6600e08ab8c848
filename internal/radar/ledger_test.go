package radar

import "testing"

func TestLedgerFirstCallMustBeSearch(t *testing.T) {
	scrapeFirst := NewLedger([]ToolCall{
		{Tool: "web_scrape", Input: "https://a.example/page"},
		{Tool: "web_search", Input: "montreal weather"},
	})
	if scrapeFirst.FirstCallIsSearch() {
		t.Fatal("scrape-first trace must not count as search-first")
	}

	searchFirst := NewLedger([]ToolCall{
		{Tool: "web_search", Input: "montreal weather"},
		{Tool: "web_scrape", Input: "https://a.example/page"},
	})
	if !searchFirst.FirstCallIsSearch() {
		t.Fatal("search-first trace not recognized")
	}
	if !searchFirst.HasSearch() || !searchFirst.HasScrape() {
		t.Fatal("search and scrape usage not recorded")
	}
}

func TestLedgerMissingSources(t *testing.T) {
	ledger := NewLedger([]ToolCall{
		{Tool: "web_search", Input: "quebec festival"},
		{Tool: "web_scrape", Input: "https://a.example/scraped"},
	})

	events := []Event{{
		Sources: []Source{
			{URL: "https://a.example/scraped"},
			{URL: "https://b.example/never-fetched"},
		},
	}}

	missing := ledger.MissingSources(events)
	if len(missing) != 1 || missing[0] != "https://b.example/never-fetched" {
		t.Fatalf("unexpected missing list: %v", missing)
	}
	if ledger.AllCitedSourcesScraped(events) {
		t.Fatal("events with an unscraped citation must not pass")
	}
}

func TestLedgerUnwrapsRedirectsBeforeMatching(t *testing.T) {
	wrapped := "https://duckduckgo.com/l/?uddg=https%3A%2F%2Fweather.gc.ca%2Fwarn"
	ledger := NewLedger([]ToolCall{
		{Tool: "web_search", Input: "storm"},
		{Tool: "web_scrape", Input: wrapped},
	})

	if !ledger.Scraped("https://weather.gc.ca/warn") {
		t.Fatal("direct URL should match the unwrapped scrape")
	}
	if !ledger.Scraped(wrapped) {
		t.Fatal("wrapped URL should match via normalization")
	}
}

func TestLedgerOfficialTools(t *testing.T) {
	ledger := NewLedger([]ToolCall{
		{Tool: "web_search", Input: "storm"},
		{Tool: "official_hazard_search", Input: "storm warning"},
		{Tool: "official_hazard_scrape", Input: "https://weather.gc.ca/warn"},
	})

	if !ledger.HasOfficialSearch() || !ledger.HasOfficialScrape() {
		t.Fatal("official tool usage not recorded")
	}
	if !ledger.Scraped("https://weather.gc.ca/warn") {
		t.Fatal("official scrape must count as scrape evidence")
	}
}
