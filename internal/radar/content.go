package radar

import "strings"

// minSolutionLength is the shortest acceptable recommendation or proposed
// change after trimming.
const minSolutionLength = 20

var hazardKeywords = []string{
	"storm",
	"snow",
	"wind",
	"strike",
	"closure",
	"warning",
	"advisory",
	"security",
	"travel advisory",
	"civil unrest",
	"demonstration",
	"terrorism",
	"crime",
	"warning level",
}

var severityCues = []string{
	"severe",
	"heavy",
	"major",
	"warning",
	"alert",
	"advisory",
	"cancel",
	"high",
	"elevated",
	"level",
}

// FilterHazards keeps non-hazard events untouched and drops hazard events
// that lack hazard wording, severity cues, snippet evidence, or (when the
// allow-list is non-empty) an official-domain source. Returns the kept
// events and the number dropped.
func FilterHazards(events []Event, officialDomains []string) ([]Event, int) {
	var kept []Event
	dropped := 0
	for _, event := range events {
		if event.Category != CategoryHazard {
			kept = append(kept, event)
			continue
		}

		text := strings.ToLower(event.Description + " " + event.Rationale + " " + event.Recommendation)
		var snippets []string
		hasSnippet := false
		for _, source := range event.Sources {
			if source.Snippet != "" {
				hasSnippet = true
				snippets = append(snippets, source.Snippet)
			}
		}
		sourceText := strings.ToLower(strings.Join(snippets, " "))

		hasKeyword := containsAny(text, hazardKeywords) || containsAny(sourceText, hazardKeywords)
		hasSeverity := containsAny(text, severityCues) || containsAny(sourceText, severityCues)
		hasOfficial := len(officialDomains) == 0 || citesDomain(event, officialDomains)

		// Foreign-ministry advisories pass on snippet evidence alone.
		isAdvisorySource := citesDomain(event, []string{"mofa.go.jp"})

		if (hasKeyword && hasSeverity && hasSnippet && hasOfficial) || (isAdvisorySource && hasSnippet) {
			kept = append(kept, event)
			continue
		}
		dropped++
	}
	return kept, dropped
}

// FilterOpportunities drops opportunity events without snippet evidence or
// whose location matches none of the itinerary's cities/areas (when known).
func FilterOpportunities(events []Event, allowedTerms []string) ([]Event, int) {
	var kept []Event
	dropped := 0
	for _, event := range events {
		if event.Category != CategoryOpportunity {
			kept = append(kept, event)
			continue
		}

		hasSnippet := false
		for _, source := range event.Sources {
			if source.Snippet != "" {
				hasSnippet = true
				break
			}
		}

		matchesLocation := true
		if len(allowedTerms) > 0 {
			location := strings.ToLower(event.Location)
			matchesLocation = false
			for _, term := range allowedTerms {
				if term != "" && strings.Contains(location, strings.ToLower(term)) {
					matchesLocation = true
					break
				}
			}
		}

		if hasSnippet && matchesLocation {
			kept = append(kept, event)
			continue
		}
		dropped++
	}
	return kept, dropped
}

// FilterSolutionQuality drops events whose recommendation or proposed change
// is too short to act on. Returns the kept events and the number dropped; any
// drop triggers a corrective retry.
func FilterSolutionQuality(events []Event) ([]Event, int) {
	var kept []Event
	dropped := 0
	for _, event := range events {
		if len(strings.TrimSpace(event.Recommendation)) < minSolutionLength ||
			len(strings.TrimSpace(event.ProposedChange)) < minSolutionLength {
			dropped++
			continue
		}
		kept = append(kept, event)
	}
	return kept, dropped
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

func citesDomain(event Event, domains []string) bool {
	for _, source := range event.Sources {
		for _, domain := range domains {
			if domain != "" && strings.Contains(source.URL, domain) {
				return true
			}
		}
	}
	return false
}
