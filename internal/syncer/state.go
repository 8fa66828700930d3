package syncer

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"
)

const (
	// StateVersion is the current state file schema version
	StateVersion = 1

	// StateFilename is the default state filename
	StateFilename = "sync-state.json"

	// MaxFailedIDs caps the failed ids kept in the state file
	MaxFailedIDs = 100
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// State records the outcome of the last sync run.
type State struct {
	Version    int       `json:"version"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Cleared    bool      `json:"cleared"`
	Listing    string    `json:"listing"`
	RowsSeen   int       `json:"rows_seen"`
	Indexed    int       `json:"indexed"`
	Failed     int       `json:"failed"`
	FailedIDs  []string  `json:"failed_ids,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Duration returns the wall time of the run.
func (s *State) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// LoadState reads the state file. A missing file yields nil and no error.
func LoadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read sync state: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse sync state: %w", err)
	}
	return &state, nil
}

// Save writes the state through a temp file and a rename, so readers never see a partial file.
func (s *State) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sync state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write sync state temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename sync state file: %w", err)
	}
	return nil
}
