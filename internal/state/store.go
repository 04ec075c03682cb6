// Package state persists the last provisioning run and guards against concurrent runs.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"aibootstrap/internal/fsutil"
	"aibootstrap/internal/logging"
	"aibootstrap/internal/provision"
)

const (
	// LastRunFileName is the name of the last run record
	LastRunFileName = "last_run.json"
)

// ErrNoRun is returned when no run has been recorded yet
var ErrNoRun = errors.New("no provisioning run recorded")

// LastRun is the persisted record of the most recent run
type LastRun struct {
	Version string           `json:"version"`
	SavedAt time.Time        `json:"saved_at"`
	Report  provision.Report `json:"report"`
}

// Store reads and writes run records in the state directory
type Store struct {
	stateDir string
	logger   *logging.Logger
}

// NewStore creates a store rooted at stateDir
func NewStore(stateDir string, logger *logging.Logger) *Store {
	return &Store{
		stateDir: stateDir,
		logger:   logger,
	}
}

// Path returns the full path of the last run record
func (s *Store) Path() string {
	return filepath.Join(s.stateDir, LastRunFileName)
}

// Save records a finished run
func (s *Store) Save(version string, report provision.Report) error {
	if err := fsutil.EnsureStateDirectory(s.stateDir); err != nil {
		return err
	}

	record := LastRun{
		Version: version,
		SavedAt: time.Now().UTC(),
		Report:  report,
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run record: %w", err)
	}

	if err := fsutil.AtomicWriteFile(s.Path(), data, fsutil.DefaultFilePermissions, s.logger); err != nil {
		return err
	}

	s.logger.Debug("state.run.saved", "Run record saved", map[string]interface{}{
		"path":    s.Path(),
		"success": report.Success,
	})
	return nil
}

// Load returns the last recorded run
func (s *Store) Load() (LastRun, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return LastRun{}, ErrNoRun
		}
		return LastRun{}, fmt.Errorf("failed to read run record: %w", err)
	}

	var record LastRun
	if err := json.Unmarshal(data, &record); err != nil {
		return LastRun{}, fmt.Errorf("failed to unmarshal run record: %w", err)
	}
	return record, nil
}
