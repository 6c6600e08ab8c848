package radar

import (
	"strings"
	"testing"
)

func TestEventIDDeterministic(t *testing.T) {
	event := Event{
		Category: CategoryHazard,
		Title:    "Snow Storm Warning",
		Location: "Montreal",
		Date:     "2026-02-04",
	}

	first := EventID(event)
	second := EventID(event)
	if first != second {
		t.Fatalf("id not stable: %s vs %s", first, second)
	}
	if !strings.HasPrefix(first, "evt_") || len(first) != len("evt_")+12 {
		t.Fatalf("unexpected id shape: %s", first)
	}
}

func TestEventIDNormalizesTitle(t *testing.T) {
	base := Event{Category: CategoryHazard, Title: "Snow Storm", Location: "Montreal", Date: "2026-02-04"}
	shouting := base
	shouting.Title = "  SNOW STORM  "

	if EventID(base) != EventID(shouting) {
		t.Fatal("title case and whitespace must not change the id")
	}
}

func TestEventIDSensitiveToIdentityFields(t *testing.T) {
	base := Event{Category: CategoryHazard, Title: "Snow Storm", Location: "Montreal", Date: "2026-02-04"}

	otherDate := base
	otherDate.Date = "2026-02-05"
	if EventID(base) == EventID(otherDate) {
		t.Fatal("date must contribute to the id")
	}

	otherCategory := base
	otherCategory.Category = CategoryOpportunity
	if EventID(base) == EventID(otherCategory) {
		t.Fatal("category must contribute to the id")
	}

	// Mutable fields stay outside the identity.
	otherDescription := base
	otherDescription.Description = "updated details"
	if EventID(base) != EventID(otherDescription) {
		t.Fatal("description must not contribute to the id")
	}
}
