package radar

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// EventID derives the deterministic identifier for an event from its
// category, normalized title, location, and date. Identical detections
// across runs collapse to the same id.
func EventID(event Event) string {
	key := strings.Join([]string{
		event.Category,
		strings.ToLower(strings.TrimSpace(event.Title)),
		strings.TrimSpace(event.Location),
		event.Date,
	}, "|")
	digest := sha256.Sum256([]byte(key))
	return "evt_" + hex.EncodeToString(digest[:])[:12]
}

// AssignIDs stamps deterministic ids onto every event in place.
func AssignIDs(events []Event) {
	for i := range events {
		events[i].ID = EventID(events[i])
	}
}
