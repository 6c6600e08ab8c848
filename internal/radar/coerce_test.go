package radar

import "testing"

func TestCoerceValidPayload(t *testing.T) {
	raw := "```json\n" + `{
  "events": [
    {
      "category": "hazard",
      "title": "Snow storm warning",
      "location": "Montreal",
      "date": "2026-02-04",
      "description": "Heavy snow expected downtown",
      "rationale": "Walking tour runs through the affected area",
      "recommendation": "Move the walking tour to the following morning",
      "proposed_change": "Shift day 2 outdoor activities to day 3",
      "sources": [{"title": "Advisory", "url": "https://weather.gc.ca/warn", "snippet": "snowfall warning"}]
    }
  ]
}` + "\n```"

	events, errs := Coerce(raw)
	if len(errs) != 0 {
		t.Fatalf("unexpected field errors: %v", errs)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Title != "Snow storm warning" {
		t.Fatalf("unexpected title %q", events[0].Title)
	}
	if len(events[0].Sources) != 1 || events[0].Sources[0].URL != "https://weather.gc.ca/warn" {
		t.Fatalf("source not preserved: %+v", events[0].Sources)
	}
}

func TestCoerceDropsInvalidEventsKeepsRest(t *testing.T) {
	raw := `{
  "events": [
    {
      "category": "hazard",
      "title": "Storm",
      "location": "Montreal",
      "date": "February 4th",
      "description": "d",
      "rationale": "r",
      "recommendation": "rec",
      "proposed_change": "p",
      "sources": [{"url": "https://a.example/1"}]
    },
    {
      "category": "opportunity",
      "title": "Festival",
      "location": "Quebec City",
      "date": "2026-02-04",
      "description": "d",
      "rationale": "r",
      "recommendation": "rec",
      "proposed_change": "p",
      "sources": [{"url": "https://a.example/2"}]
    },
    {
      "category": "opportunity",
      "title": "Market",
      "location": "Quebec City",
      "date": "2026-02-05",
      "description": "d",
      "rationale": "r",
      "recommendation": "rec",
      "proposed_change": "p",
      "sources": [{"url": "https://a.example/3"}]
    }
  ]
}`

	events, errs := Coerce(raw)
	if len(events) != 2 {
		t.Fatalf("expected 2 valid events, got %d", len(events))
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 field error, got %d: %v", len(errs), errs)
	}
	if errs[0].EventIndex != 0 || errs[0].Field != "date" || errs[0].Reason != ReasonBadDate {
		t.Fatalf("unexpected field error: %+v", errs[0])
	}
}

func TestCoerceRejectsEventsWithoutEvidence(t *testing.T) {
	raw := `{"events": [{
  "category": "hazard",
  "title": "Storm",
  "location": "Montreal",
  "date": "2026-02-04",
  "description": "d",
  "rationale": "r",
  "recommendation": "rec",
  "proposed_change": "p",
  "sources": []
}]}`

	events, errs := Coerce(raw)
	if len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
	if len(errs) != 1 || errs[0].Reason != ReasonNoEvidence {
		t.Fatalf("expected no_evidence error, got %v", errs)
	}
}

func TestCoerceUnparseableOutput(t *testing.T) {
	events, errs := Coerce("I could not find any events, sorry.")
	if len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
	if len(errs) != 1 || errs[0].EventIndex != -1 {
		t.Fatalf("expected one sentinel error, got %v", errs)
	}
}

func TestIsISODate(t *testing.T) {
	cases := map[string]bool{
		"2026-02-04":   true,
		"2026-2-4":     false,
		"2026-13-01":   false,
		"Feb 4, 2026":  false,
		"2026-02-30":   false,
		"":             false,
		"2026-02-04T0": false,
	}
	for value, want := range cases {
		if got := IsISODate(value); got != want {
			t.Errorf("IsISODate(%q) = %t, want %t", value, got, want)
		}
	}
}
