package transporthttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tripradarbackend/internal/memory"
	"tripradarbackend/internal/radar"
)

type fakeInvoker struct {
	output string
	trace  []radar.ToolCall
}

func (f *fakeInvoker) Run(ctx context.Context, req radar.AgentRequest) (radar.AgentResult, error) {
	return radar.AgentResult{Output: f.output, Trace: f.trace}, nil
}

const agentOutput = `{
  "events": [
    {
      "category": "hazard",
      "title": "Snowfall warning",
      "location": "Montreal",
      "date": "2026-02-04",
      "description": "Snowfall warning with heavy accumulation expected",
      "rationale": "The walking tour is scheduled during the storm",
      "recommendation": "Move the walking tour to the next clear morning",
      "proposed_change": "Shift day 2 outdoor activities to day 3 morning",
      "sources": [{"title": "Advisory", "url": "https://weather.gc.ca/warnings/mtl", "snippet": "Snowfall warning in effect, 25 cm"}]
    },
    {
      "category": "opportunity",
      "title": "Winter festival",
      "location": "Quebec City",
      "date": "2026-02-05",
      "description": "Annual winter festival with night events",
      "rationale": "Free evening on day 3 overlaps the festival",
      "recommendation": "Reserve festival tickets for the evening slot",
      "proposed_change": "Add the festival to day 3 evening schedule",
      "sources": [{"title": "Festival", "url": "https://festival.example/program", "snippet": "Festival runs February 3-8"}]
    }
  ]
}`

var agentTrace = []radar.ToolCall{
	{Tool: "web_search", Input: "montreal weather february 2026"},
	{Tool: "web_scrape", Input: "https://festival.example/program"},
	{Tool: "official_hazard_search", Input: "montreal snowfall warning"},
	{Tool: "official_hazard_scrape", Input: "https://weather.gc.ca/warnings/mtl"},
}

type fixture struct {
	server          *Server
	store           *memory.Store
	preferencesPath string
	itineraryPath   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	preferencesPath := filepath.Join(dir, "preferences.txt")
	if err := os.WriteFile(preferencesPath, []byte("family trip, museums, food"), 0o644); err != nil {
		t.Fatalf("write preferences: %v", err)
	}

	itineraryPath := filepath.Join(dir, "itinerary.csv")
	itineraryCSV := "day,date,start_time,end_time,city,location_area\n" +
		"1,2026-02-03,09:00,12:00,Montreal,Old Port\n" +
		"2,2026-02-04,10:00,16:00,Montreal,Downtown\n" +
		"3,2026-02-05,09:00,18:00,Quebec City,Old Quebec\n"
	if err := os.WriteFile(itineraryPath, []byte(itineraryCSV), 0o644); err != nil {
		t.Fatalf("write itinerary: %v", err)
	}

	store, err := memory.NewStore(memory.NewJSONFileBackend(filepath.Join(dir, "state.json")), 48*time.Hour)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	invoker := &fakeInvoker{output: agentOutput, trace: agentTrace}
	detector, err := radar.NewDetector(invoker, store, []string{"weather.gc.ca"})
	if err != nil {
		t.Fatalf("new detector: %v", err)
	}
	detector.Now = func() time.Time {
		return time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	}

	return &fixture{
		server:          NewServer(detector, store, filepath.Join(dir, "out")),
		store:           store,
		preferencesPath: preferencesPath,
		itineraryPath:   itineraryPath,
	}
}

func (f *fixture) detect(t *testing.T) []radar.Event {
	t.Helper()
	body := fmt.Sprintf(`{"preferences_path": %q, "itinerary_path": %q}`, f.preferencesPath, f.itineraryPath)
	req := httptest.NewRequest(http.MethodPost, "/detect-events", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	f.server.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("detect status = %d, body %s", rec.Code, rec.Body.String())
	}

	var payload struct {
		Events []radar.Event `json:"events"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return payload.Events
}

func TestDetectEndpoint(t *testing.T) {
	f := newFixture(t)

	events := f.detect(t)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Date != "2026-02-04" {
		t.Fatalf("events not ordered by date: %s", events[0].Date)
	}

	record := f.store.Snapshot()
	if record.RunCount != 1 {
		t.Fatalf("run count = %d, want 1", record.RunCount)
	}
	if record.LastItinerary != f.itineraryPath {
		t.Fatalf("last itinerary = %q", record.LastItinerary)
	}
	if len(record.Pending) != 2 {
		t.Fatalf("pending = %v", record.Pending)
	}
}

func TestDetectWithApprovalsEndpoint(t *testing.T) {
	f := newFixture(t)

	hazardID := radar.EventID(radar.Event{
		Category: radar.CategoryHazard,
		Title:    "Snowfall warning",
		Location: "Montreal",
		Date:     "2026-02-04",
	})

	body := fmt.Sprintf(`{"preferences_path": %q, "itinerary_path": %q, "approvals": {%q: false}}`,
		f.preferencesPath, f.itineraryPath, hazardID)
	req := httptest.NewRequest(http.MethodPost, "/detect-events-with-approvals", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	f.server.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var payload struct {
		Events           []radar.Event   `json:"events"`
		ApprovalsApplied map[string]bool `json:"approvals_applied"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(payload.Events))
	}
	approved, ok := payload.ApprovalsApplied[hazardID]
	if !ok || approved {
		t.Fatalf("applied approvals not echoed: %v", payload.ApprovalsApplied)
	}

	if !f.store.IsSuppressed(hazardID, time.Now().Add(time.Hour)) {
		t.Fatal("rejection from the approvals map not recorded")
	}
}

func TestDetectWithApprovalsEmptyMap(t *testing.T) {
	f := newFixture(t)

	body := fmt.Sprintf(`{"preferences_path": %q, "itinerary_path": %q}`, f.preferencesPath, f.itineraryPath)
	req := httptest.NewRequest(http.MethodPost, "/detect-events-with-approvals", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	f.server.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	raw, ok := payload["approvals_applied"]
	if !ok {
		t.Fatal("approvals_applied missing from response")
	}
	if string(raw) != "{}" {
		t.Fatalf("approvals_applied = %s, want {}", raw)
	}
}

func TestDetectEndpointRejectsBadRequests(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/detect-events", nil)
	rec := httptest.NewRecorder()
	f.server.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET status = %d, want 405", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/detect-events", bytes.NewBufferString(`{"unknown": true}`))
	rec = httptest.NewRecorder()
	f.server.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown field status = %d, want 400", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/detect-events", bytes.NewBufferString(`{}`))
	rec = httptest.NewRecorder()
	f.server.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty payload status = %d, want 400", rec.Code)
	}
}

func TestApprovalEndpoint(t *testing.T) {
	f := newFixture(t)
	events := f.detect(t)

	body := fmt.Sprintf(`{"event_id": %q, "approved": false}`, events[0].ID)
	req := httptest.NewRequest(http.MethodPost, "/submit-approval", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	f.server.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("approval status = %d, body %s", rec.Code, rec.Body.String())
	}

	if !f.store.IsSuppressed(events[0].ID, time.Now().Add(time.Hour)) {
		t.Fatal("rejection not recorded")
	}
}

func TestApprovalEndpointUnknownEvent(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/submit-approval",
		bytes.NewBufferString(`{"event_id": "evt_missing0000", "approved": true}`))
	rec := httptest.NewRecorder()
	f.server.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown event status = %d, want 404", rec.Code)
	}
}

func TestNextApprovalEndpoint(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/next-approval", nil)
	rec := httptest.NewRecorder()
	f.server.Routes().ServeHTTP(rec, req)
	var empty struct {
		Pending bool `json:"pending"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &empty); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if empty.Pending {
		t.Fatal("fresh store must have no pending approvals")
	}

	events := f.detect(t)

	rec = httptest.NewRecorder()
	f.server.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/next-approval", nil))
	var next struct {
		Pending bool        `json:"pending"`
		Event   radar.Event `json:"event"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &next); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !next.Pending {
		t.Fatal("expected a pending approval after detection")
	}
	if next.Event.ID != events[0].ID {
		t.Fatalf("next approval = %s, want %s", next.Event.ID, events[0].ID)
	}
}

func TestStateEndpoint(t *testing.T) {
	f := newFixture(t)
	f.detect(t)

	req := httptest.NewRequest(http.MethodGet, "/state", nil)
	rec := httptest.NewRecorder()
	f.server.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("state status = %d", rec.Code)
	}

	var state struct {
		RunCount int                `json:"run_count"`
		Events   map[string]any     `json:"events"`
		History  []radar.RunSummary `json:"history"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.RunCount != 1 || len(state.Events) != 2 || len(state.History) != 1 {
		t.Fatalf("unexpected state: %+v", state)
	}
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	f.server.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}
}
