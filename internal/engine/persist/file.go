package persist

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dshills/cutlist/internal/engine/timeline"
)

// SaveFile writes the timeline to a project file atomically: the data
// goes to a temp file first and replaces the target with a rename, so
// a crash mid-save never corrupts an existing project.
func SaveFile(m *timeline.Model, path string) error {
	var buf bytes.Buffer
	if err := Save(m, &buf); err != nil {
		return fmt.Errorf("failed to encode project: %w", err)
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Write atomically using temp file + rename
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		// Clean up temp file on failure
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// LoadFile reads a project file and returns the rebuilt timeline.
func LoadFile(path string) (*timeline.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Load(f)
}
