package itinerary

import (
	"sort"
	"strings"
	"time"

	"tripradarbackend/internal/radar"
)

var dateLayouts = []string{"2006-01-02", "2006/01/02", "01/02/2006", "02/01/2006"}

// ExtractContext derives the trip window, cities, and areas from itinerary
// rows.
func ExtractContext(rows []Row) radar.TripContext {
	var dates []time.Time
	citySet := make(map[string]struct{})
	locationSet := make(map[string]struct{})

	for _, row := range rows {
		if parsed, ok := parseDate(row["date"]); ok {
			dates = append(dates, parsed)
		}
		if city := strings.TrimSpace(row["city"]); city != "" {
			citySet[city] = struct{}{}
		}
		if location := strings.TrimSpace(row["location_area"]); location != "" {
			locationSet[location] = struct{}{}
		}
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	ctx := radar.TripContext{
		Cities:    sortedKeys(citySet),
		Locations: sortedKeys(locationSet),
	}
	for _, date := range dates {
		ctx.Dates = append(ctx.Dates, date.Format("2006-01-02"))
	}
	if len(dates) > 0 {
		ctx.DateMin = dates[0].Format("2006-01-02")
		ctx.DateMax = dates[len(dates)-1].Format("2006-01-02")
	}
	return ctx
}

func parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for key := range set {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
