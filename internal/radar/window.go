package radar

import "time"

// FilterWindow drops events whose date falls strictly outside
// [tripStart, tripEnd]. An out-of-window date is a silent exclusion, not an
// error. Zero bounds disable the filter.
func FilterWindow(events []Event, tripStart, tripEnd time.Time) []Event {
	if tripStart.IsZero() || tripEnd.IsZero() {
		return events
	}

	var kept []Event
	for _, event := range events {
		date, err := time.Parse("2006-01-02", event.Date)
		if err != nil {
			continue
		}
		if date.Before(tripStart) || date.After(tripEnd) {
			continue
		}
		kept = append(kept, event)
	}
	return kept
}

// ParseWindow converts the context's date bounds into times. Either zero
// value means the bound could not be determined.
func ParseWindow(ctx TripContext) (time.Time, time.Time) {
	start, err := time.Parse("2006-01-02", ctx.DateMin)
	if err != nil {
		return time.Time{}, time.Time{}
	}
	end, err := time.Parse("2006-01-02", ctx.DateMax)
	if err != nil {
		return time.Time{}, time.Time{}
	}
	return start, end
}
