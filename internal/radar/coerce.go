package radar

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"
)

var isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// IsISODate reports whether value is a parseable YYYY-MM-DD date.
func IsISODate(value string) bool {
	if !isoDatePattern.MatchString(value) {
		return false
	}
	_, err := time.Parse("2006-01-02", value)
	return err == nil
}

type rawSource struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

type rawEvent struct {
	Category       *string     `json:"category"`
	Title          *string     `json:"title"`
	Location       *string     `json:"location"`
	Date           *string     `json:"date"`
	TimeWindow     *string     `json:"time_window"`
	Description    *string     `json:"description"`
	Rationale      *string     `json:"rationale"`
	Recommendation *string     `json:"recommendation"`
	ProposedChange *string     `json:"proposed_change"`
	ItineraryDay   *string     `json:"itinerary_day"`
	ItineraryRowID *string     `json:"itinerary_row_id"`
	ChangeType     *string     `json:"change_type"`
	NewTime        *string     `json:"new_time"`
	NewLocation    *string     `json:"new_location"`
	Sources        []rawSource `json:"sources"`
	Confidence     *float64    `json:"confidence"`
}

type rawEventList struct {
	Events []rawEvent `json:"events"`
}

// Coerce parses raw model output into typed events, recording one FieldError
// per schema violation. Events that fail validation are dropped; the valid
// remainder is returned alongside the errors.
func Coerce(raw string) ([]Event, []FieldError) {
	payload := extractJSON(raw)
	if payload == "" {
		return nil, []FieldError{{EventIndex: -1, Field: "events", Reason: ReasonMissing}}
	}

	var decoded rawEventList
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		return nil, []FieldError{{EventIndex: -1, Field: "events", Reason: ReasonMissing}}
	}

	var events []Event
	var errors []FieldError

	for idx, re := range decoded.Events {
		errs := validate(idx, re)
		if len(errs) > 0 {
			errors = append(errors, errs...)
			continue
		}

		event := Event{
			Category:       strings.TrimSpace(*re.Category),
			Title:          strings.TrimSpace(*re.Title),
			Location:       strings.TrimSpace(*re.Location),
			Date:           strings.TrimSpace(*re.Date),
			Description:    strings.TrimSpace(*re.Description),
			Rationale:      strings.TrimSpace(*re.Rationale),
			Recommendation: strings.TrimSpace(*re.Recommendation),
			ProposedChange: strings.TrimSpace(*re.ProposedChange),
		}
		if re.TimeWindow != nil {
			event.TimeWindow = strings.TrimSpace(*re.TimeWindow)
		}
		if re.ItineraryDay != nil {
			event.ItineraryDay = strings.TrimSpace(*re.ItineraryDay)
		}
		if re.ItineraryRowID != nil {
			event.ItineraryRowID = strings.TrimSpace(*re.ItineraryRowID)
		}
		if re.ChangeType != nil {
			event.ChangeType = strings.TrimSpace(*re.ChangeType)
		}
		if re.NewTime != nil {
			event.NewTime = strings.TrimSpace(*re.NewTime)
		}
		if re.NewLocation != nil {
			event.NewLocation = strings.TrimSpace(*re.NewLocation)
		}
		if re.Confidence != nil {
			event.Confidence = *re.Confidence
		}
		for _, rs := range re.Sources {
			event.Sources = append(event.Sources, Source{
				Title:   strings.TrimSpace(rs.Title),
				URL:     strings.TrimSpace(rs.URL),
				Snippet: strings.TrimSpace(rs.Snippet),
			})
		}

		events = append(events, event)
	}

	return events, errors
}

func validate(idx int, re rawEvent) []FieldError {
	var errs []FieldError

	missing := func(field string) {
		errs = append(errs, FieldError{EventIndex: idx, Field: field, Reason: ReasonMissing})
	}

	switch {
	case re.Category == nil || strings.TrimSpace(*re.Category) == "":
		missing("category")
	case *re.Category != CategoryHazard && *re.Category != CategoryOpportunity:
		missing("category")
	}
	if re.Title == nil || strings.TrimSpace(*re.Title) == "" {
		missing("title")
	}
	if re.Location == nil || strings.TrimSpace(*re.Location) == "" {
		missing("location")
	}
	if re.Description == nil || strings.TrimSpace(*re.Description) == "" {
		missing("description")
	}
	if re.Rationale == nil || strings.TrimSpace(*re.Rationale) == "" {
		missing("rationale")
	}
	if re.Recommendation == nil || strings.TrimSpace(*re.Recommendation) == "" {
		missing("recommendation")
	}
	if re.ProposedChange == nil || strings.TrimSpace(*re.ProposedChange) == "" {
		missing("proposed_change")
	}

	if re.Date == nil || strings.TrimSpace(*re.Date) == "" {
		missing("date")
	} else if !IsISODate(strings.TrimSpace(*re.Date)) {
		errs = append(errs, FieldError{EventIndex: idx, Field: "date", Reason: ReasonBadDate})
	}

	hasSource := false
	for _, rs := range re.Sources {
		if strings.TrimSpace(rs.URL) != "" {
			hasSource = true
			break
		}
	}
	if !hasSource {
		errs = append(errs, FieldError{EventIndex: idx, Field: "sources", Reason: ReasonNoEvidence})
	}

	return errs
}

// extractJSON returns the outermost JSON object embedded in model output,
// stripping markdown fences when present.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return content[start : end+1]
}
