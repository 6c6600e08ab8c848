package memory

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"tripradarbackend/internal/radar"
)

//go:embed schema.sql
var schema string

// SQLiteBackend persists the record in a sqlite database. Save rewrites the
// whole record inside one transaction, so a crash mid-write leaves the
// previous record intact.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens (and initializes) the database at path.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteBackend{db: db}, nil
}

// Close closes the database connection.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

// Load reads the whole record.
func (b *SQLiteBackend) Load() (Record, bool, error) {
	record := NewRecord()
	populated := false

	rows, err := b.db.Query("SELECT id, payload, first_seen FROM events")
	if err != nil {
		return Record{}, false, fmt.Errorf("load events: %w", err)
	}
	for rows.Next() {
		var id, payload string
		var firstSeen time.Time
		if err := rows.Scan(&id, &payload, &firstSeen); err != nil {
			rows.Close()
			return Record{}, false, fmt.Errorf("scan event: %w", err)
		}
		var event radar.Event
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			rows.Close()
			return Record{}, false, fmt.Errorf("decode event %s: %w", id, err)
		}
		record.Events[id] = StoredEvent{Event: event, FirstSeen: firstSeen}
		populated = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Record{}, false, fmt.Errorf("load events: %w", err)
	}

	rows, err = b.db.Query("SELECT event_id, approved, decided_at FROM approvals")
	if err != nil {
		return Record{}, false, fmt.Errorf("load approvals: %w", err)
	}
	for rows.Next() {
		var id string
		var approved bool
		var decidedAt time.Time
		if err := rows.Scan(&id, &approved, &decidedAt); err != nil {
			rows.Close()
			return Record{}, false, fmt.Errorf("scan approval: %w", err)
		}
		record.Approvals[id] = Approval{Approved: approved, DecidedAt: decidedAt}
		populated = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Record{}, false, fmt.Errorf("load approvals: %w", err)
	}

	rows, err = b.db.Query("SELECT event_id, rejected_at FROM rejections")
	if err != nil {
		return Record{}, false, fmt.Errorf("load rejections: %w", err)
	}
	for rows.Next() {
		var id string
		var rejectedAt time.Time
		if err := rows.Scan(&id, &rejectedAt); err != nil {
			rows.Close()
			return Record{}, false, fmt.Errorf("scan rejection: %w", err)
		}
		record.Rejections[id] = rejectedAt
		populated = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Record{}, false, fmt.Errorf("load rejections: %w", err)
	}

	rows, err = b.db.Query("SELECT payload FROM history ORDER BY seq")
	if err != nil {
		return Record{}, false, fmt.Errorf("load history: %w", err)
	}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			rows.Close()
			return Record{}, false, fmt.Errorf("scan history: %w", err)
		}
		var summary radar.RunSummary
		if err := json.Unmarshal([]byte(payload), &summary); err != nil {
			rows.Close()
			return Record{}, false, fmt.Errorf("decode history entry: %w", err)
		}
		record.History = append(record.History, summary)
		populated = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Record{}, false, fmt.Errorf("load history: %w", err)
	}

	rows, err = b.db.Query("SELECT event_id FROM pending ORDER BY position")
	if err != nil {
		return Record{}, false, fmt.Errorf("load pending: %w", err)
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return Record{}, false, fmt.Errorf("scan pending: %w", err)
		}
		record.Pending = append(record.Pending, id)
		populated = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Record{}, false, fmt.Errorf("load pending: %w", err)
	}

	metaRows, err := b.db.Query("SELECT key, value FROM meta")
	if err != nil {
		return Record{}, false, fmt.Errorf("load meta: %w", err)
	}
	for metaRows.Next() {
		var key, value string
		if err := metaRows.Scan(&key, &value); err != nil {
			metaRows.Close()
			return Record{}, false, fmt.Errorf("scan meta: %w", err)
		}
		switch key {
		case "run_count":
			record.RunCount, _ = strconv.Atoi(value)
		case "last_itinerary":
			record.LastItinerary = value
		}
		populated = true
	}
	metaRows.Close()
	if err := metaRows.Err(); err != nil {
		return Record{}, false, fmt.Errorf("load meta: %w", err)
	}

	return record, populated, nil
}

// Save rewrites the whole record in one transaction.
func (b *SQLiteBackend) Save(record Record) error {
	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"events", "approvals", "rejections", "history", "pending", "meta"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for id, event := range record.Events {
		payload, err := json.Marshal(event.Event)
		if err != nil {
			return fmt.Errorf("encode event %s: %w", id, err)
		}
		if _, err := tx.Exec(
			"INSERT INTO events (id, payload, first_seen) VALUES (?, ?, ?)",
			id, string(payload), event.FirstSeen,
		); err != nil {
			return fmt.Errorf("insert event %s: %w", id, err)
		}
	}

	for id, approval := range record.Approvals {
		if _, err := tx.Exec(
			"INSERT INTO approvals (event_id, approved, decided_at) VALUES (?, ?, ?)",
			id, approval.Approved, approval.DecidedAt,
		); err != nil {
			return fmt.Errorf("insert approval %s: %w", id, err)
		}
	}

	for id, rejectedAt := range record.Rejections {
		if _, err := tx.Exec(
			"INSERT INTO rejections (event_id, rejected_at) VALUES (?, ?)",
			id, rejectedAt,
		); err != nil {
			return fmt.Errorf("insert rejection %s: %w", id, err)
		}
	}

	for _, summary := range record.History {
		payload, err := json.Marshal(summary)
		if err != nil {
			return fmt.Errorf("encode history entry: %w", err)
		}
		if _, err := tx.Exec(
			"INSERT INTO history (payload) VALUES (?)", string(payload),
		); err != nil {
			return fmt.Errorf("insert history entry: %w", err)
		}
	}

	for position, id := range record.Pending {
		if _, err := tx.Exec(
			"INSERT INTO pending (position, event_id) VALUES (?, ?)", position, id,
		); err != nil {
			return fmt.Errorf("insert pending %s: %w", id, err)
		}
	}

	if _, err := tx.Exec(
		"INSERT INTO meta (key, value) VALUES ('run_count', ?)",
		strconv.Itoa(record.RunCount),
	); err != nil {
		return fmt.Errorf("insert run_count: %w", err)
	}
	if record.LastItinerary != "" {
		if _, err := tx.Exec(
			"INSERT INTO meta (key, value) VALUES ('last_itinerary', ?)",
			record.LastItinerary,
		); err != nil {
			return fmt.Errorf("insert last_itinerary: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}
