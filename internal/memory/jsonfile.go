package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// JSONFileBackend persists the record as one indented JSON document. Writes
// go to a temp file followed by a rename so readers never observe a partial
// record.
type JSONFileBackend struct {
	path string
}

// NewJSONFileBackend binds the backend to a file path.
func NewJSONFileBackend(path string) *JSONFileBackend {
	return &JSONFileBackend{path: path}
}

// Load reads the record from disk.
func (b *JSONFileBackend) Load() (Record, bool, error) {
	raw, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, false, nil
		}
		return Record{}, false, fmt.Errorf("read state %s: %w", b.path, err)
	}

	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return Record{}, false, fmt.Errorf("decode state %s: %w", b.path, err)
	}
	record.normalize()
	return record, true, nil
}

// Save rewrites the whole record.
func (b *JSONFileBackend) Save(record Record) error {
	raw, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	if dir := filepath.Dir(b.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}

	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write state %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, b.path); err != nil {
		return fmt.Errorf("replace state %s: %w", b.path, err)
	}
	return nil
}
