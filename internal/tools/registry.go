package tools

import (
	"context"
	"fmt"
	"strings"
)

// Tool names form the closed capability set exposed to the agent.
const (
	NameWebSearch      = "web_search"
	NameWebScrape      = "web_scrape"
	NameOfficialSearch = "official_hazard_search"
	NameOfficialScrape = "official_hazard_scrape"
)

// Handler executes one tool call and returns its textual observation.
type Handler func(ctx context.Context, input string) (string, error)

// Registry maps tool names to handlers.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry builds the standard tool set backed by the given client and
// official-domain allow-list.
func NewRegistry(client *Client, officialDomains []string) *Registry {
	r := &Registry{handlers: make(map[string]Handler, 4)}

	r.handlers[NameWebSearch] = func(ctx context.Context, query string) (string, error) {
		results, err := client.Search(ctx, query, 5)
		if err != nil {
			return "", err
		}
		if len(results) == 0 {
			return "No results found.", nil
		}
		return formatResults(results), nil
	}

	r.handlers[NameWebScrape] = func(ctx context.Context, url string) (string, error) {
		return client.Scrape(ctx, url, 2000)
	}

	r.handlers[NameOfficialSearch] = func(ctx context.Context, query string) (string, error) {
		if len(officialDomains) == 0 {
			return "No official domains configured.", nil
		}
		var all []SearchResult
		for _, domain := range officialDomains {
			results, err := client.Search(ctx, fmt.Sprintf("site:%s %s", domain, query), 3)
			if err != nil {
				continue
			}
			all = append(all, results...)
		}
		if len(all) == 0 {
			return "No official results found.", nil
		}
		return formatResults(all), nil
	}

	r.handlers[NameOfficialScrape] = func(ctx context.Context, url string) (string, error) {
		return client.Scrape(ctx, url, 4000)
	}

	return r
}

// Names returns the registered tool names.
func (r *Registry) Names() []string {
	return []string{NameWebSearch, NameWebScrape, NameOfficialSearch, NameOfficialScrape}
}

// Call dispatches a named tool. Handler errors are folded into the
// observation text so the agent loop can keep going.
func (r *Registry) Call(ctx context.Context, name, input string) string {
	handler, ok := r.handlers[name]
	if !ok {
		return fmt.Sprintf("Unknown tool: %s", name)
	}
	out, err := handler(ctx, input)
	if err != nil {
		return fmt.Sprintf("Fetch failed: %v", err)
	}
	return out
}

func formatResults(results []SearchResult) string {
	lines := make([]string, 0, len(results))
	for _, res := range results {
		lines = append(lines, fmt.Sprintf("%s - %s", res.Title, res.URL))
	}
	return strings.Join(lines, "\n")
}
