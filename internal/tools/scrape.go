package tools

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// Scrape fetches a URL and returns a cleaned text excerpt limited to maxLen
// characters.
func (c *Client) Scrape(ctx context.Context, rawURL string, maxLen int) (string, error) {
	normalized := NormalizeURL(rawURL)
	if normalized == "" {
		return "", fmt.Errorf("scrape: invalid URL %q", rawURL)
	}
	if maxLen <= 0 {
		maxLen = 2000
	}

	body, err := c.get(ctx, normalized)
	if err != nil {
		return "", fmt.Errorf("scrape %s: %w", normalized, err)
	}

	text := extractText(string(body))
	if text == "" {
		return "", fmt.Errorf("scrape %s: no text content", normalized)
	}
	if len(text) > maxLen {
		cut := maxLen
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return strings.TrimSpace(text), nil
}

// extractText parses HTML and returns readable text content.
func extractText(page string) string {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return ""
	}

	skipTags := map[string]bool{
		"script": true, "style": true, "noscript": true,
		"nav": true, "header": true, "footer": true,
		"aside": true, "iframe": true,
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipTags[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				sb.WriteString(text)
				sb.WriteString(" ")
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	return strings.Join(strings.Fields(sb.String()), " ")
}
