package memory

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"tripradarbackend/internal/radar"
)

// ErrUnknownEvent is returned for decisions about ids the store has never
// seen.
var ErrUnknownEvent = errors.New("memory: unknown event id")

// Backend is the durable whole-record persistence boundary.
type Backend interface {
	// Load reads the record; ok is false when no record exists yet.
	Load() (record Record, ok bool, err error)
	// Save rewrites the whole record atomically.
	Save(record Record) error
}

// Store owns the memory record. All reads and read-modify-write sequences are
// serialized behind one mutex, and every mutation is staged on a copy and
// committed only after the backend flush succeeds, so a failed persist leaves
// no partial update behind.
type Store struct {
	mu      sync.Mutex
	backend Backend
	record  Record
	ttl     time.Duration
}

// NewStore loads the record once and returns a store bound to the backend.
func NewStore(backend Backend, rejectionTTL time.Duration) (*Store, error) {
	if backend == nil {
		return nil, fmt.Errorf("memory: backend is required")
	}
	if rejectionTTL <= 0 {
		rejectionTTL = 48 * time.Hour
	}

	record, ok, err := backend.Load()
	if err != nil {
		return nil, fmt.Errorf("memory: load record: %w", err)
	}
	if !ok {
		record = NewRecord()
	}
	record.normalize()

	return &Store{backend: backend, record: record, ttl: rejectionTTL}, nil
}

// Register stores new events and refreshes mutable fields of known ones.
// FirstSeen is stamped only on first sight; registering the same event again
// is a no-op for id and FirstSeen.
func (s *Store) Register(events []radar.Event, now time.Time) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	staged := s.record.clone()
	for _, event := range events {
		if event.ID == "" {
			continue
		}
		if existing, ok := staged.Events[event.ID]; ok {
			existing.Event = event
			existing.Event.ID = event.ID
			staged.Events[event.ID] = existing
			continue
		}
		staged.Events[event.ID] = StoredEvent{Event: event, FirstSeen: now}
	}

	return s.commit(staged)
}

// IsSuppressed reports whether the event was rejected within the TTL window.
func (s *Store) IsSuppressed(id string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rejectedAt, ok := s.record.Rejections[id]
	if !ok {
		return false
	}
	return now.Sub(rejectedAt) < s.ttl
}

// SuppressedIDs returns the ids currently blocked by the TTL policy, sorted
// for deterministic prompting.
func (s *Store) SuppressedIDs(now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for id, rejectedAt := range s.record.Rejections {
		if now.Sub(rejectedAt) < s.ttl {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// RecordDecision writes an approval or rejection. A rejection resets the TTL
// clock; an approval clears any prior rejection.
func (s *Store) RecordDecision(id string, approved bool, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.record.Events[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEvent, id)
	}

	staged := s.record.clone()
	staged.Approvals[id] = Approval{Approved: approved, DecidedAt: now}
	if approved {
		delete(staged.Rejections, id)
	} else {
		staged.Rejections[id] = now
	}
	staged.Pending = removeID(staged.Pending, id)
	staged.History = append(staged.History, radar.RunSummary{
		Timestamp: now,
		Note:      fmt.Sprintf("approval updated: %s -> %t", id, approved),
	})

	return s.commit(staged)
}

// RecordRun appends a run summary, bumps the run counter, and recomputes the
// pending approval queue from the run's event ids.
func (s *Store) RecordRun(summary radar.RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := s.record.clone()
	staged.History = append(staged.History, summary)
	staged.RunCount++

	var pending []string
	for _, id := range summary.EventIDs {
		if _, decided := staged.Approvals[id]; !decided {
			pending = append(pending, id)
		}
	}
	staged.Pending = pending

	return s.commit(staged)
}

// SetLastItinerary remembers the itinerary file used by the latest run so
// approval handlers can re-patch it.
func (s *Store) SetLastItinerary(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := s.record.clone()
	staged.LastItinerary = path
	return s.commit(staged)
}

// Event returns the stored snapshot for an id.
func (s *Store) Event(id string) (StoredEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.record.Events[id]
	return event, ok
}

// NextPending returns the first event awaiting a decision.
func (s *Store) NextPending() (StoredEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.record.Pending {
		if event, ok := s.record.Events[id]; ok {
			return event, true
		}
	}
	return StoredEvent{}, false
}

// MemoryEvents returns all stored events ordered by id.
func (s *Store) MemoryEvents() []radar.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.record.Events))
	for id := range s.record.Events {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	events := make([]radar.Event, 0, len(ids))
	for _, id := range ids {
		events = append(events, s.record.Events[id].Event)
	}
	return events
}

// Snapshot returns a copy of the record for read-only consumers.
func (s *Store) Snapshot() Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.record.clone()
}

// Summary renders recent approvals and history for the agent prompt.
func (s *Store) Summary() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	const maxEntries = 5

	var sb strings.Builder
	sb.WriteString("Approvals:\n")
	ids := make([]string, 0, len(s.record.Approvals))
	for id := range s.record.Approvals {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if len(ids) > maxEntries {
		ids = ids[len(ids)-maxEntries:]
	}
	for _, id := range ids {
		sb.WriteString(fmt.Sprintf("%s: %t\n", id, s.record.Approvals[id].Approved))
	}

	sb.WriteString("History:\n")
	history := s.record.History
	if len(history) > maxEntries {
		history = history[len(history)-maxEntries:]
	}
	for _, entry := range history {
		sb.WriteString(entry.Note)
		sb.WriteString("\n")
	}

	return strings.TrimSpace(sb.String())
}

// commit persists the staged record and adopts it only on success.
func (s *Store) commit(staged Record) error {
	if err := s.backend.Save(staged); err != nil {
		return fmt.Errorf("memory: persist record: %w", err)
	}
	s.record = staged
	return nil
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, candidate := range ids {
		if candidate != id {
			out = append(out, candidate)
		}
	}
	return out
}
