package radar

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// defaultMaxAttempts bounds the validate/re-prompt loop per run.
const defaultMaxAttempts = 3

// Detector composes agent invocation, grounding validation, output coercion,
// window filtering, and memory-backed dedup/suppression into one run.
type Detector struct {
	Invoker         Invoker
	Memory          Memory
	OfficialDomains []string
	MaxAttempts     int
	MaxEvents       int
	Now             func() time.Time
}

// NewDetector constructs a detector with defaults applied.
func NewDetector(invoker Invoker, memory Memory, officialDomains []string) (*Detector, error) {
	if invoker == nil {
		return nil, fmt.Errorf("detector requires an invoker")
	}
	if memory == nil {
		return nil, fmt.Errorf("detector requires a memory store")
	}
	return &Detector{
		Invoker:         invoker,
		Memory:          memory,
		OfficialDomains: officialDomains,
		MaxAttempts:     defaultMaxAttempts,
		MaxEvents:       8,
		Now:             time.Now,
	}, nil
}

// DetectParams configures one detection run.
type DetectParams struct {
	Preferences  string
	Itinerary    string
	ItineraryRef string
	Context      TripContext
	MaxEvents    int
}

// Detect executes the full run. It always returns a (possibly empty) ordered
// event list; recoverable per-event issues reduce the list and increment the
// discarded count instead of failing the run.
func (d *Detector) Detect(ctx context.Context, params DetectParams) (Result, error) {
	now := d.now()
	maxAttempts := d.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	maxEvents := params.MaxEvents
	if maxEvents <= 0 {
		maxEvents = d.MaxEvents
	}

	allowedTerms := append(append([]string{}, params.Context.Cities...), params.Context.Locations...)

	req := AgentRequest{
		Preferences:   params.Preferences,
		Itinerary:     params.Itinerary,
		Context:       params.Context,
		Queries:       BuildQueries(params.Context, params.Preferences),
		MemorySummary: d.Memory.Summary(),
		MemoryEvents:  d.Memory.MemoryEvents(),
		Blocked:       d.Memory.SuppressedIDs(now),
	}

	var (
		events    []Event
		ledger    *Ledger
		discarded int
		failure   string
		attempts  int
	)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attempts = attempt
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		res, err := d.Invoker.Run(ctx, req)
		if err != nil {
			log.Printf("detector: attempt %d agent invocation failed: %v", attempt, err)
			failure = fmt.Sprintf("agent invocation failed: %v", err)
			continue
		}

		ledger = NewLedger(res.Trace)

		var fieldErrs []FieldError
		events, fieldErrs = Coerce(res.Output)
		AssignIDs(events)

		var droppedHazards, droppedOpportunities, droppedSolutions int
		events, droppedHazards = FilterHazards(events, d.OfficialDomains)
		events, droppedOpportunities = FilterOpportunities(events, allowedTerms)
		events, droppedSolutions = FilterSolutionQuality(events)
		solutionsRemoved := droppedSolutions > 0

		discarded = len(fieldErrs) + droppedHazards + droppedOpportunities + droppedSolutions

		missing := ledger.MissingSources(events)
		grounded := ledger.HasSearch() && ledger.HasScrape() && ledger.FirstCallIsSearch()
		if hasCategory(events, CategoryHazard) && len(d.OfficialDomains) > 0 {
			grounded = grounded && ledger.HasOfficialSearch() && ledger.HasOfficialScrape()
		}
		hasRequired := hasCategory(events, CategoryHazard) && hasCategory(events, CategoryOpportunity)

		if grounded && len(missing) == 0 && len(fieldErrs) == 0 && !solutionsRemoved && hasRequired {
			failure = ""
			break
		}

		failure = describeFailure(grounded, missing, fieldErrs, solutionsRemoved, hasRequired)
		log.Printf("detector: attempt %d rejected: %s", attempt, failure)
		req.Corrections = appendCorrections(req.Corrections, missing, fieldErrs, solutionsRemoved, hasRequired)
	}

	// The grounding law holds even for degraded results: drop any event whose
	// evidence was never scraped.
	if ledger != nil {
		var kept []Event
		for _, event := range events {
			if ledger.AllCitedSourcesScraped([]Event{event}) {
				kept = append(kept, event)
				continue
			}
			discarded++
		}
		events = kept
	}

	tripStart, tripEnd := ParseWindow(params.Context)
	beforeWindow := len(events)
	events = FilterWindow(events, tripStart, tripEnd)
	discarded += beforeWindow - len(events)

	sort.Slice(events, func(i, j int) bool {
		if events[i].Date != events[j].Date {
			return events[i].Date < events[j].Date
		}
		return events[i].ID < events[j].ID
	})

	if err := d.Memory.Register(events, now); err != nil {
		return Result{}, fmt.Errorf("register events: %w", err)
	}

	suppressed := 0
	candidates := make([]Event, 0, len(events))
	for _, event := range events {
		if d.Memory.IsSuppressed(event.ID, now) {
			suppressed++
			continue
		}
		candidates = append(candidates, event)
	}

	if len(candidates) > maxEvents {
		discarded += len(candidates) - maxEvents
		candidates = candidates[:maxEvents]
	}

	ids := make([]string, 0, len(candidates))
	for _, event := range candidates {
		ids = append(ids, event.ID)
	}
	note := fmt.Sprintf("run completed with %d events", len(candidates))
	if failure != "" {
		note += " (degraded: " + failure + ")"
	}
	summary := RunSummary{
		RunID:     uuid.NewString(),
		Timestamp: now,
		Itinerary: params.ItineraryRef,
		EventIDs:  ids,
		Note:      note,
	}
	if err := d.Memory.RecordRun(summary); err != nil {
		return Result{}, fmt.Errorf("record run: %w", err)
	}

	return Result{
		Events:     candidates,
		Discarded:  discarded,
		Suppressed: suppressed,
		Attempts:   attempts,
		Failure:    failure,
	}, nil
}

func (d *Detector) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func hasCategory(events []Event, category string) bool {
	for _, event := range events {
		if event.Category == category {
			return true
		}
	}
	return false
}

func describeFailure(grounded bool, missing []string, fieldErrs []FieldError, solutionsRemoved, hasRequired bool) string {
	var parts []string
	if !grounded {
		parts = append(parts, "ungrounded tool usage")
	}
	if len(missing) > 0 {
		parts = append(parts, fmt.Sprintf("%d cited sources not scraped", len(missing)))
	}
	if len(fieldErrs) > 0 {
		parts = append(parts, fmt.Sprintf("%d schema errors", len(fieldErrs)))
	}
	if solutionsRemoved {
		parts = append(parts, "weak proposed solutions")
	}
	if !hasRequired {
		parts = append(parts, "missing required categories")
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "; ")
}

func appendCorrections(corrections, missing []string, fieldErrs []FieldError, solutionsRemoved, hasRequired bool) []string {
	corrections = append(corrections,
		"IMPORTANT: You must use web_search first, then web_scrape each source URL.")
	if len(missing) > 0 {
		corrections = append(corrections, "Scrape these URLs: "+strings.Join(missing, ", "))
	}
	for _, fe := range fieldErrs {
		switch fe.Reason {
		case ReasonBadDate:
			corrections = append(corrections,
				fmt.Sprintf("Event %d: use ISO dates only (YYYY-MM-DD) for %s.", fe.EventIndex, fe.Field))
		case ReasonNoEvidence:
			corrections = append(corrections,
				fmt.Sprintf("Event %d: include at least one source with a scraped URL.", fe.EventIndex))
		default:
			corrections = append(corrections,
				fmt.Sprintf("Event %d: field %s is missing or invalid.", fe.EventIndex, fe.Field))
		}
	}
	if solutionsRemoved {
		corrections = append(corrections,
			"Provide concrete recommendation and proposed_change with at least 20 characters.")
	}
	if !hasRequired {
		corrections = append(corrections,
			"Return at least one hazard and one opportunity if evidence is available.")
	}
	return corrections
}
