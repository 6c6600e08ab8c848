package transporthttp

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"tripradarbackend/internal/itinerary"
	"tripradarbackend/internal/memory"
	"tripradarbackend/internal/output"
	"tripradarbackend/internal/radar"
)

type Server struct {
	detector  *radar.Detector
	store     *memory.Store
	outputDir string
	now       func() time.Time
}

func NewServer(detector *radar.Detector, store *memory.Store, outputDir string) *Server {
	if outputDir == "" {
		outputDir = "out"
	}
	return &Server{
		detector:  detector,
		store:     store,
		outputDir: outputDir,
		now:       time.Now,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.health)
	mux.HandleFunc("/detect-events", s.handleDetect)
	mux.HandleFunc("/detect-events-with-approvals", s.handleDetectWithApprovals)
	mux.HandleFunc("/approve", s.handleApproval)
	mux.HandleFunc("/submit-approval", s.handleApproval)
	mux.HandleFunc("/next-approval", s.handleNextApproval)
	mux.HandleFunc("/state", s.handleState)
	return mux
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type detectPayload struct {
	PreferencesPath string          `json:"preferences_path"`
	ItineraryPath   string          `json:"itinerary_path"`
	MaxEvents       int             `json:"max_events"`
	Approvals       map[string]bool `json:"approvals"`
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	s.detect(w, r, false)
}

func (s *Server) handleDetectWithApprovals(w http.ResponseWriter, r *http.Request) {
	s.detect(w, r, true)
}

func (s *Server) detect(w http.ResponseWriter, r *http.Request, withApprovals bool) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var payload detectPayload
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if payload.PreferencesPath == "" || payload.ItineraryPath == "" {
		s.writeError(w, http.StatusBadRequest, "preferences_path and itinerary_path are required")
		return
	}

	preferences, err := itinerary.LoadPreferences(payload.PreferencesPath)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := itinerary.Load(payload.ItineraryPath)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	result, err := s.detector.Detect(ctx, radar.DetectParams{
		Preferences:  preferences,
		Itinerary:    itinerary.FormatRows(rows),
		ItineraryRef: payload.ItineraryPath,
		Context:      itinerary.ExtractContext(rows),
		MaxEvents:    payload.MaxEvents,
	})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := s.store.SetLastItinerary(payload.ItineraryPath); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if withApprovals {
		now := s.now()
		for id, approved := range payload.Approvals {
			if err := s.store.RecordDecision(id, approved, now); err != nil {
				if errors.Is(err, memory.ErrUnknownEvent) {
					s.writeError(w, http.StatusNotFound, err.Error())
					return
				}
				s.writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
		}
		if err := s.writeArtifacts(); err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	response := map[string]any{
		"as_of":      s.now().UTC(),
		"events":     result.Events,
		"discarded":  result.Discarded,
		"suppressed": result.Suppressed,
		"attempts":   result.Attempts,
	}
	if withApprovals {
		applied := payload.Approvals
		if applied == nil {
			applied = map[string]bool{}
		}
		response["approvals_applied"] = applied
	}
	if result.Failure != "" {
		response["degraded"] = result.Failure
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		// nothing we can do; connection likely closed
	}
}

func (s *Server) handleApproval(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var payload struct {
		EventID  string `json:"event_id"`
		Approved *bool  `json:"approved"`
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if payload.EventID == "" || payload.Approved == nil {
		s.writeError(w, http.StatusBadRequest, "event_id and approved are required")
		return
	}

	if err := s.store.RecordDecision(payload.EventID, *payload.Approved, s.now()); err != nil {
		if errors.Is(err, memory.ErrUnknownEvent) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := s.writeArtifacts(); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"event_id": payload.EventID,
		"approved": *payload.Approved,
	})
}

func (s *Server) handleNextApproval(w http.ResponseWriter, r *http.Request) {
	event, ok := s.store.NextPending()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if !ok {
		_ = json.NewEncoder(w).Encode(map[string]any{"pending": false})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"pending": true, "event": event})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	record := s.store.Snapshot()

	response := map[string]any{
		"run_count":      record.RunCount,
		"events":         record.Events,
		"approvals":      record.Approvals,
		"rejections":     record.Rejections,
		"pending":        record.Pending,
		"history":        record.History,
		"last_itinerary": record.LastItinerary,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// writeArtifacts rewrites the decision report, the JSON patch, and the patched
// itinerary after any decision changes.
func (s *Server) writeArtifacts() error {
	record := s.store.Snapshot()
	set := output.BuildChangeSet(record)

	if err := output.WriteText(set, filepath.Join(s.outputDir, "itinerary_changes.txt")); err != nil {
		return err
	}
	if err := output.WriteJSON(set, filepath.Join(s.outputDir, "itinerary_changes.json")); err != nil {
		return err
	}

	if record.LastItinerary == "" {
		return nil
	}
	rows, err := itinerary.Load(record.LastItinerary)
	if err != nil {
		log.Printf("server: skip itinerary patch: %v", err)
		return nil
	}
	rows = itinerary.ApplyChanges(rows, set.Approved)
	return itinerary.Write(rows, filepath.Join(s.outputDir, "updated_itinerary.csv"))
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
