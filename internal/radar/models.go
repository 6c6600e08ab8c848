package radar

import (
	"context"
	"time"
)

// Event categories.
const (
	CategoryHazard      = "hazard"
	CategoryOpportunity = "opportunity"
)

// Source is a piece of evidence supporting an event.
type Source struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Event represents a proposed hazard or opportunity relevant to the trip.
type Event struct {
	ID             string   `json:"id"`
	Category       string   `json:"category"`
	Title          string   `json:"title"`
	Location       string   `json:"location"`
	Date           string   `json:"date"`
	TimeWindow     string   `json:"time_window,omitempty"`
	Description    string   `json:"description"`
	Rationale      string   `json:"rationale"`
	Recommendation string   `json:"recommendation"`
	ProposedChange string   `json:"proposed_change"`
	ItineraryDay   string   `json:"itinerary_day,omitempty"`
	ItineraryRowID string   `json:"itinerary_row_id,omitempty"`
	ChangeType     string   `json:"change_type,omitempty"`
	NewTime        string   `json:"new_time,omitempty"`
	NewLocation    string   `json:"new_location,omitempty"`
	Sources        []Source `json:"sources"`
	Confidence     float64  `json:"confidence"`
}

// FieldError records one schema violation found while coercing model output.
type FieldError struct {
	EventIndex int    `json:"event_index"`
	Field      string `json:"field"`
	Reason     string `json:"reason"`
}

// FieldError reasons.
const (
	ReasonMissing    = "missing"
	ReasonBadDate    = "bad_date"
	ReasonNoEvidence = "no_evidence"
)

// TripContext summarizes the itinerary for prompting and filtering.
type TripContext struct {
	DateMin   string   `json:"date_min"`
	DateMax   string   `json:"date_max"`
	Dates     []string `json:"dates"`
	Cities    []string `json:"cities"`
	Locations []string `json:"locations"`
}

// ToolCall is one entry of the agent's tool trace, in call order.
type ToolCall struct {
	Tool  string `json:"tool"`
	Input string `json:"input"`
}

// AgentRequest carries everything the agent needs for one attempt.
type AgentRequest struct {
	Preferences   string
	Itinerary     string
	Context       TripContext
	Queries       []string
	MemorySummary string
	MemoryEvents  []Event
	Blocked       []string
	Corrections   []string
}

// AgentResult is the agent's raw output plus its ordered tool trace.
type AgentResult struct {
	Output string
	Trace  []ToolCall
}

// Invoker runs the language-model agent once.
type Invoker interface {
	Run(ctx context.Context, req AgentRequest) (AgentResult, error)
}

// RunSummary is the history entry recorded after each detection run.
type RunSummary struct {
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"timestamp"`
	Itinerary string    `json:"itinerary"`
	EventIDs  []string  `json:"event_ids"`
	Note      string    `json:"note"`
}

// Memory is the narrow view of the memory store the orchestrator needs.
type Memory interface {
	Register(events []Event, now time.Time) error
	IsSuppressed(id string, now time.Time) bool
	SuppressedIDs(now time.Time) []string
	MemoryEvents() []Event
	Summary() string
	RecordRun(summary RunSummary) error
}

// Result is the outcome of one detection run. An empty or partial event list
// with a failure annotation is a valid, reportable outcome.
type Result struct {
	Events     []Event `json:"events"`
	Discarded  int     `json:"discarded"`
	Suppressed int     `json:"suppressed"`
	Attempts   int     `json:"attempts"`
	Failure    string  `json:"failure,omitempty"`
}
