package itinerary

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Change is one approved or rejected itinerary change derived from an event.
type Change struct {
	ID             string `json:"id"`
	Date           string `json:"date"`
	Title          string `json:"title"`
	Rationale      string `json:"rationale"`
	ProposedChange string `json:"proposed_change"`
	Location       string `json:"location"`
	ItineraryDay   string `json:"itinerary_day"`
	ItineraryRowID string `json:"itinerary_row_id"`
	ChangeType     string `json:"change_type"`
	NewTime        string `json:"new_time"`
	NewLocation    string `json:"new_location"`
}

// outputColumns is the canonical column order for the updated itinerary.
var outputColumns = []string{
	"day", "date", "start_time", "end_time", "city",
	"location_area", "activity_type", "activity_description", "notes", "row_id",
}

// ApplyChanges mutates itinerary rows according to the approved changes and
// returns the result. Unknown row ids are skipped.
func ApplyChanges(rows []Row, approved []Change) []Row {
	rowIndex := make(map[string]Row, len(rows))
	for _, row := range rows {
		rowIndex[row["row_id"]] = row
	}

	for _, change := range approved {
		target := rowIndex[change.ItineraryRowID]

		switch change.ChangeType {
		case "move", "replace", "swap":
			if target == nil {
				continue
			}
			if change.NewTime != "" {
				if strings.Contains(change.NewTime, "-") {
					parts := strings.SplitN(change.NewTime, "-", 2)
					target["start_time"] = strings.TrimSpace(parts[0])
					target["end_time"] = strings.TrimSpace(parts[1])
				} else {
					target["start_time"] = change.NewTime
				}
			}
			if change.NewLocation != "" {
				target["location_area"] = change.NewLocation
			}
			target["notes"] = appendNote(target["notes"], change.ProposedChange)
		case "cancel":
			if target == nil {
				continue
			}
			target["activity_type"] = "Cancelled"
			target["notes"] = appendNote(target["notes"], change.ProposedChange)
		case "add":
			description := change.Title
			if description == "" {
				description = change.ProposedChange
			}
			rows = append(rows, Row{
				"day":                  change.ItineraryDay,
				"date":                 change.Date,
				"start_time":           change.NewTime,
				"end_time":             "",
				"city":                 change.Location,
				"location_area":        change.NewLocation,
				"activity_type":        "Added",
				"activity_description": description,
				"notes":                change.Rationale,
			})
		}
	}

	return rows
}

// Write renders rows to a CSV file in canonical column order.
func Write(rows []Row, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create itinerary %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(outputColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		record := make([]string, len(outputColumns))
		for i, col := range outputColumns {
			record[i] = row[col]
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush itinerary %s: %w", path, err)
	}
	return nil
}

func appendNote(notes, addition string) string {
	if addition == "" {
		return notes
	}
	if notes == "" {
		return addition
	}
	return notes + " | " + addition
}
