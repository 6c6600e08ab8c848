package tools

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// SearchResult is one hit returned by the search endpoint.
type SearchResult struct {
	Title string
	URL   string
}

// Search runs a DuckDuckGo HTML search and returns up to limit results.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 5
	}

	body, err := c.postForm(ctx, c.searchURL, url.Values{"q": {query}})
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	results := parseSearchResults(string(body), limit)
	return results, nil
}

// parseSearchResults extracts result anchors (class result__a) from the
// DuckDuckGo HTML response.
func parseSearchResults(page string, limit int) []SearchResult {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil
	}

	var results []SearchResult
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(results) >= limit {
			return
		}
		if n.Type == html.ElementNode && n.Data == "a" && hasClass(n, "result__a") {
			href := attr(n, "href")
			normalized := NormalizeURL(href)
			title := strings.TrimSpace(nodeText(n))
			if normalized != "" && title != "" {
				results = append(results, SearchResult{Title: title, URL: normalized})
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return results
}

func hasClass(n *html.Node, class string) bool {
	for _, field := range strings.Fields(attr(n, "class")) {
		if field == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return sb.String()
}
