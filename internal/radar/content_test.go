package radar

import "testing"

func officialHazard() Event {
	return Event{
		Category:       CategoryHazard,
		Title:          "Snowfall warning",
		Location:       "Montreal",
		Date:           "2026-02-04",
		Description:    "Heavy snow with a snowfall warning in effect",
		Rationale:      "Outdoor walking tour is scheduled that afternoon",
		Recommendation: "Move the walking tour to the next morning slot",
		ProposedChange: "Shift day 2 outdoor activities to day 3 morning",
		Sources: []Source{{
			Title:   "Environment Canada",
			URL:     "https://weather.gc.ca/warnings/mtl",
			Snippet: "Snowfall warning in effect, 25 cm expected",
		}},
	}
}

func TestFilterHazardsRequiresOfficialSource(t *testing.T) {
	domains := []string{"weather.gc.ca", "canada.ca"}

	kept, dropped := FilterHazards([]Event{officialHazard()}, domains)
	if len(kept) != 1 || dropped != 0 {
		t.Fatalf("official hazard rejected: kept=%d dropped=%d", len(kept), dropped)
	}

	blog := officialHazard()
	blog.Sources = []Source{{URL: "https://someblog.example/storm", Snippet: "Snowfall warning in effect"}}
	kept, dropped = FilterHazards([]Event{blog}, domains)
	if len(kept) != 0 || dropped != 1 {
		t.Fatalf("unofficial hazard kept: kept=%d dropped=%d", len(kept), dropped)
	}
}

func TestFilterHazardsAdvisoryException(t *testing.T) {
	advisory := Event{
		Category:       CategoryHazard,
		Title:          "Travel notice",
		Location:       "Tokyo",
		Date:           "2026-02-04",
		Description:    "General notice without the usual wording",
		Rationale:      "Affects the planned district visit",
		Recommendation: "Avoid the listed district during the visit",
		ProposedChange: "Replace the district visit with the museum day",
		Sources: []Source{{
			URL:     "https://www.mofa.go.jp/advisory/123",
			Snippet: "Ministry advisory for travelers",
		}},
	}

	kept, dropped := FilterHazards([]Event{advisory}, []string{"weather.gc.ca"})
	if len(kept) != 1 || dropped != 0 {
		t.Fatalf("ministry advisory should pass on snippet evidence: kept=%d dropped=%d", len(kept), dropped)
	}
}

func TestFilterHazardsEmptyAllowListSkipsDomainCheck(t *testing.T) {
	event := officialHazard()
	event.Sources[0].URL = "https://anywhere.example/warn"

	kept, dropped := FilterHazards([]Event{event}, nil)
	if len(kept) != 1 || dropped != 0 {
		t.Fatalf("empty allow-list must not require official sources: kept=%d dropped=%d", len(kept), dropped)
	}
}

func TestFilterOpportunities(t *testing.T) {
	good := Event{
		Category: CategoryOpportunity,
		Title:    "Winter festival",
		Location: "Old Quebec, Quebec City",
		Sources:  []Source{{Snippet: "Festival runs all week"}},
	}
	noSnippet := good
	noSnippet.Sources = []Source{{URL: "https://a.example"}}
	wrongCity := good
	wrongCity.Location = "Toronto"

	kept, dropped := FilterOpportunities([]Event{good, noSnippet, wrongCity}, []string{"Quebec City", "Montreal"})
	if len(kept) != 1 || dropped != 2 {
		t.Fatalf("kept=%d dropped=%d, want 1/2", len(kept), dropped)
	}
	if kept[0].Title != "Winter festival" {
		t.Fatalf("wrong event kept: %q", kept[0].Title)
	}
}

func TestFilterSolutionQuality(t *testing.T) {
	strong := officialHazard()
	weak := officialHazard()
	weak.Recommendation = "reschedule"

	kept, dropped := FilterSolutionQuality([]Event{strong, weak})
	if dropped != 1 {
		t.Fatalf("dropped = %d, want 1", dropped)
	}
	if len(kept) != 1 || kept[0].Recommendation != strong.Recommendation {
		t.Fatalf("unexpected kept set: %+v", kept)
	}

	kept, dropped = FilterSolutionQuality([]Event{strong})
	if dropped != 0 || len(kept) != 1 {
		t.Fatal("strong solution should pass untouched")
	}
}
