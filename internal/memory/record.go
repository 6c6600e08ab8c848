package memory

import (
	"time"

	"tripradarbackend/internal/radar"
)

// StoredEvent is an event snapshot annotated with its first sighting. The id
// and FirstSeen are immutable once set; other fields follow the latest run.
type StoredEvent struct {
	radar.Event
	FirstSeen time.Time `json:"first_seen"`
}

// Approval records a human decision about an event.
type Approval struct {
	Approved  bool      `json:"approved"`
	DecidedAt time.Time `json:"decided_at"`
}

// Record is the durable memory of the detector across runs.
type Record struct {
	Events        map[string]StoredEvent `json:"events"`
	Approvals     map[string]Approval    `json:"approvals"`
	Rejections    map[string]time.Time   `json:"rejections"`
	History       []radar.RunSummary     `json:"history"`
	Pending       []string               `json:"pending_event_ids"`
	RunCount      int                    `json:"run_count"`
	LastItinerary string                 `json:"last_itinerary,omitempty"`
}

// NewRecord returns an empty, fully initialized record.
func NewRecord() Record {
	return Record{
		Events:     make(map[string]StoredEvent),
		Approvals:  make(map[string]Approval),
		Rejections: make(map[string]time.Time),
	}
}

// normalize repairs nil maps after decoding an older or hand-edited record.
func (r *Record) normalize() {
	if r.Events == nil {
		r.Events = make(map[string]StoredEvent)
	}
	if r.Approvals == nil {
		r.Approvals = make(map[string]Approval)
	}
	if r.Rejections == nil {
		r.Rejections = make(map[string]time.Time)
	}
}

// clone returns a deep copy so mutations can be staged and committed only
// after a successful flush.
func (r Record) clone() Record {
	out := Record{
		Events:        make(map[string]StoredEvent, len(r.Events)),
		Approvals:     make(map[string]Approval, len(r.Approvals)),
		Rejections:    make(map[string]time.Time, len(r.Rejections)),
		History:       append([]radar.RunSummary(nil), r.History...),
		Pending:       append([]string(nil), r.Pending...),
		RunCount:      r.RunCount,
		LastItinerary: r.LastItinerary,
	}
	for id, event := range r.Events {
		out.Events[id] = event
	}
	for id, approval := range r.Approvals {
		out.Approvals[id] = approval
	}
	for id, ts := range r.Rejections {
		out.Rejections[id] = ts
	}
	return out
}
