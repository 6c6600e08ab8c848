package tools

import (
	"net/url"
	"strings"
)

// NormalizeURL unwraps DuckDuckGo redirect links and rejects scheme-less
// values. It returns "" when the input cannot name a fetchable page.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	if strings.HasSuffix(parsed.Host, "duckduckgo.com") && strings.HasPrefix(parsed.Path, "/l/") {
		target := parsed.Query().Get("uddg")
		if target == "" {
			return ""
		}
		return target
	}

	if parsed.Scheme == "" {
		return ""
	}
	return raw
}
