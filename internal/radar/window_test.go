package radar

import (
	"testing"
	"time"
)

func TestFilterWindowKeepsInclusiveBounds(t *testing.T) {
	start, _ := time.Parse("2006-01-02", "2026-02-03")
	end, _ := time.Parse("2006-01-02", "2026-02-05")

	events := []Event{
		{Title: "before", Date: "2026-02-02"},
		{Title: "start", Date: "2026-02-03"},
		{Title: "inside", Date: "2026-02-04"},
		{Title: "end", Date: "2026-02-05"},
		{Title: "after", Date: "2026-02-06"},
	}

	kept := FilterWindow(events, start, end)
	if len(kept) != 3 {
		t.Fatalf("expected 3 events, got %d", len(kept))
	}
	for _, event := range kept {
		if event.Title == "before" || event.Title == "after" {
			t.Fatalf("out-of-window event %q kept", event.Title)
		}
	}
}

func TestFilterWindowZeroBoundsDisable(t *testing.T) {
	events := []Event{{Date: "1999-01-01"}, {Date: "2050-12-31"}}
	kept := FilterWindow(events, time.Time{}, time.Time{})
	if len(kept) != 2 {
		t.Fatalf("zero bounds must keep everything, got %d", len(kept))
	}
}

func TestParseWindow(t *testing.T) {
	start, end := ParseWindow(TripContext{DateMin: "2026-02-03", DateMax: "2026-02-05"})
	if start.IsZero() || end.IsZero() {
		t.Fatal("bounds should parse")
	}

	start, end = ParseWindow(TripContext{})
	if !start.IsZero() || !end.IsZero() {
		t.Fatal("empty context should yield zero bounds")
	}
}
