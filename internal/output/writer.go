package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"tripradarbackend/internal/itinerary"
	"tripradarbackend/internal/memory"
)

// ChangeSet groups decided changes by outcome.
type ChangeSet struct {
	Approved []itinerary.Change `json:"approved"`
	Rejected []itinerary.Change `json:"rejected"`
}

// BuildChangeSet turns the memory record's decisions into change records,
// ordered by event id for stable artifacts.
func BuildChangeSet(record memory.Record) ChangeSet {
	ids := make([]string, 0, len(record.Approvals))
	for id := range record.Approvals {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var set ChangeSet
	for _, id := range ids {
		event, ok := record.Events[id]
		if !ok {
			continue
		}
		change := itinerary.Change{
			ID:             event.ID,
			Date:           event.Date,
			Title:          event.Title,
			Rationale:      event.Rationale,
			ProposedChange: event.ProposedChange,
			Location:       event.Location,
			ItineraryDay:   event.ItineraryDay,
			ItineraryRowID: event.ItineraryRowID,
			ChangeType:     event.ChangeType,
			NewTime:        event.NewTime,
			NewLocation:    event.NewLocation,
		}
		if record.Approvals[id].Approved {
			set.Approved = append(set.Approved, change)
		} else {
			set.Rejected = append(set.Rejected, change)
		}
	}
	return set
}

// WriteText renders the change set as a human-readable report.
func WriteText(set ChangeSet, path string) error {
	var lines []string
	lines = append(lines, "APPROVED CHANGES")
	lines = append(lines, formatChanges(set.Approved)...)
	lines = append(lines, "", "REJECTED CHANGES")
	lines = append(lines, formatChanges(set.Rejected)...)

	return writeFile(path, []byte(strings.Join(lines, "\n")))
}

// WriteJSON renders the change set as a machine-readable patch file.
func WriteJSON(set ChangeSet, path string) error {
	raw, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal changes: %w", err)
	}
	return writeFile(path, raw)
}

func formatChanges(changes []itinerary.Change) []string {
	if len(changes) == 0 {
		return []string{"- None"}
	}
	lines := make([]string, 0, len(changes))
	for _, change := range changes {
		lines = append(lines, fmt.Sprintf("- [%s] %s | %s | %s | %s",
			change.ID, change.Date, change.Title, change.Rationale, change.ProposedChange))
	}
	return lines
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
