package itinerary

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Row is one normalized itinerary row keyed by canonical column names.
type Row map[string]string

// requiredColumns must be present after header normalization.
var requiredColumns = []string{"day", "date", "start_time", "end_time", "city"}

// columnAliases maps normalized header variants onto canonical names.
var columnAliases = map[string]string{
	"daynumber":        "day",
	"day_no":           "day",
	"daynum":           "day",
	"start":            "start_time",
	"starttime":        "start_time",
	"begin":            "start_time",
	"from":             "start_time",
	"depart":           "start_time",
	"departure":        "start_time",
	"end":              "end_time",
	"endtime":          "end_time",
	"finish":           "end_time",
	"to":               "end_time",
	"arrive":           "end_time",
	"arrival":          "end_time",
	"town":             "city",
	"location_city":    "city",
	"city_name":        "city",
	"destination_city": "city",
	"destination":      "city",
	"location":         "location_area",
	"area":             "location_area",
	"activity":         "activity_description",
	"details":          "activity_description",
	"desc":             "activity_description",
	"description":      "activity_description",
}

// Load reads an itinerary CSV, normalizes headers, and validates that the
// required columns are present. Every row gets a stable row_id defaulting to
// its 1-based position.
func Load(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open itinerary: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read itinerary %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("itinerary %s is empty", path)
	}

	columns := normalizeColumns(records[0])
	if err := validateColumns(columns); err != nil {
		return nil, err
	}

	var rows []Row
	for idx, record := range records[1:] {
		if isBlank(record) {
			continue
		}
		row := make(Row, len(columns)+1)
		for i, col := range columns {
			value := ""
			if i < len(record) {
				value = strings.TrimSpace(record[i])
			}
			row[col] = value
		}
		if row["row_id"] == "" {
			row["row_id"] = strconv.Itoa(idx + 1)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// FormatRows renders the itinerary as the pipe-delimited text block the
// agent prompt uses.
func FormatRows(rows []Row) string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, strings.Join([]string{
			"Day " + row["day"],
			row["date"],
			row["start_time"] + "-" + row["end_time"],
			row["city"],
			row["location_area"],
			row["activity_type"],
			row["activity_description"],
			row["notes"],
		}, " | "))
	}
	return strings.Join(lines, "\n")
}

func normalizeColumns(header []string) []string {
	columns := make([]string, 0, len(header))
	for _, col := range header {
		value := strings.ToLower(strings.TrimSpace(col))
		value = strings.ReplaceAll(value, " / ", "_")
		value = strings.ReplaceAll(value, " ", "_")
		value = strings.ReplaceAll(value, "-", "_")
		value = strings.ReplaceAll(value, "#", "")
		if alias, ok := columnAliases[value]; ok {
			value = alias
		}
		columns = append(columns, value)
	}
	return columns
}

func validateColumns(columns []string) error {
	present := make(map[string]bool, len(columns))
	for _, col := range columns {
		present[col] = true
	}
	var missing []string
	for _, col := range requiredColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("itinerary is missing required columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

func isBlank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
