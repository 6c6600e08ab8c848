package radar

import (
	"fmt"
	"strings"
)

// BuildQueries produces priority web queries for the agent from the trip
// context and the traveler's preference text.
func BuildQueries(ctx TripContext, preferences string) []string {
	var queries []string

	for _, city := range ctx.Cities {
		queries = append(queries,
			fmt.Sprintf("weather forecast %s %s %s", city, ctx.DateMin, ctx.DateMax),
			fmt.Sprintf("travel advisory %s %s %s", city, ctx.DateMin, ctx.DateMax),
			fmt.Sprintf("public transport strike %s %s %s", city, ctx.DateMin, ctx.DateMax),
			fmt.Sprintf("festival events %s %s %s", city, ctx.DateMin, ctx.DateMax),
			fmt.Sprintf("museum deals %s %s %s", city, ctx.DateMin, ctx.DateMax),
			fmt.Sprintf("family-friendly events near %s %s %s", city, ctx.DateMin, ctx.DateMax),
		)
		for _, date := range ctx.Dates {
			queries = append(queries, fmt.Sprintf("events %s %s", city, date))
		}
	}

	for _, location := range ctx.Locations {
		lower := strings.ToLower(location)
		if strings.Contains(lower, "airport") {
			queries = append(queries, fmt.Sprintf("airport closure %s %s %s", location, ctx.DateMin, ctx.DateMax))
		}
		if strings.Contains(lower, "station") {
			queries = append(queries, fmt.Sprintf("train station disruption %s %s %s", location, ctx.DateMin, ctx.DateMax))
		}
	}

	if preferences != "" {
		lowered := strings.ToLower(preferences)
		for _, keyword := range []string{"language", "phrase", "word", "japanese"} {
			if strings.Contains(lowered, keyword) {
				language := inferLanguage(lowered)
				for _, city := range ctx.Cities {
					queries = append(queries,
						fmt.Sprintf("useful local phrase %s %s %s", city, ctx.DateMin, ctx.DateMax),
						fmt.Sprintf("common %s phrase to use at restaurant %s", language, city),
					)
				}
				break
			}
		}
	}

	return queries
}

func inferLanguage(lowered string) string {
	switch {
	case strings.Contains(lowered, "japanese"):
		return "Japanese"
	case strings.Contains(lowered, "portuguese"):
		return "Portuguese"
	case strings.Contains(lowered, "spanish"):
		return "Spanish"
	case strings.Contains(lowered, "french"):
		return "French"
	default:
		return "local"
	}
}
