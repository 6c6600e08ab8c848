package itinerary

import (
	"fmt"
	"os"
	"strings"
)

// LoadPreferences reads the traveler's preference text file.
func LoadPreferences(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read preferences: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}
