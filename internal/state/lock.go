package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"aibootstrap/internal/fsutil"
	"aibootstrap/internal/logging"
)

const (
	// LockFileName is the name of the run lock file
	LockFileName = "run.lock"

	// DefaultLeaseTimeout bounds how long a lock stays valid without its holder
	DefaultLeaseTimeout = 6 * time.Hour
)

// ErrLocked is returned when another run holds the lock
var ErrLocked = errors.New("another aibootstrap run is in progress")

// LockInfo is the content of the lock file
type LockInfo struct {
	PID     int       `json:"pid"`
	SinceTS time.Time `json:"since_ts"`
}

// Lock is a lease file keeping two runs from provisioning at once
type Lock struct {
	stateDir     string
	logger       *logging.Logger
	leaseTimeout time.Duration
	pid          int
	alive        func(pid int) bool
}

// NewLock creates a run lock in stateDir for this process
func NewLock(stateDir string, logger *logging.Logger) *Lock {
	return &Lock{
		stateDir:     stateDir,
		logger:       logger,
		leaseTimeout: DefaultLeaseTimeout,
		pid:          os.Getpid(),
		alive:        processAlive,
	}
}

// Path returns the lock file path
func (l *Lock) Path() string {
	return filepath.Join(l.stateDir, LockFileName)
}

// Acquire takes the lock, replacing a stale one
func (l *Lock) Acquire() error {
	if err := fsutil.EnsureStateDirectory(l.stateDir); err != nil {
		return err
	}

	for attempt := 0; attempt < 2; attempt++ {
		err := l.create()
		if err == nil {
			l.logger.Debug("state.lock.acquired", "Run lock acquired", map[string]interface{}{
				"pid": l.pid,
			})
			return nil
		}
		if !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("failed to create lock file: %w", err)
		}

		existing, readErr := l.load()
		if readErr != nil && !os.IsNotExist(readErr) {
			l.logger.Warn("state.lock.unreadable", "Replacing unreadable run lock", map[string]interface{}{
				"error": readErr.Error(),
			})
		}
		if readErr == nil {
			if existing.PID == l.pid {
				return nil
			}
			age := time.Since(existing.SinceTS)
			if age <= l.leaseTimeout && l.alive(existing.PID) {
				return fmt.Errorf("%w (pid %d, started %s ago)", ErrLocked, existing.PID, age.Round(time.Second))
			}
			l.logger.Warn("state.lock.stale_detected", "Stale run lock detected", map[string]interface{}{
				"pid":         existing.PID,
				"age_seconds": age.Seconds(),
			})
		}

		if err := os.Remove(l.Path()); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to clear stale lock: %w", err)
		}
	}
	return ErrLocked
}

// Release removes the lock when this process holds it
func (l *Lock) Release() error {
	existing, err := l.load()
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read lock: %w", err)
	}
	if existing.PID != l.pid {
		return fmt.Errorf("cannot release lock held by pid %d", existing.PID)
	}
	if err := os.Remove(l.Path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}

	l.logger.Debug("state.lock.released", "Run lock released", map[string]interface{}{
		"pid": l.pid,
	})
	return nil
}

// create writes the lock file, failing with os.ErrExist when one is present
func (l *Lock) create() error {
	data, err := json.Marshal(LockInfo{PID: l.pid, SinceTS: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal lock: %w", err)
	}

	f, err := os.OpenFile(l.Path(), os.O_CREATE|os.O_EXCL|os.O_WRONLY, fsutil.DefaultFilePermissions)
	if err != nil {
		return err
	}
	_, writeErr := f.Write(data)
	closeErr := f.Close()
	if writeErr != nil || closeErr != nil {
		_ = os.Remove(l.Path())
		return errors.Join(writeErr, closeErr)
	}
	return nil
}

func (l *Lock) load() (LockInfo, error) {
	data, err := os.ReadFile(l.Path())
	if err != nil {
		return LockInfo{}, err
	}

	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return LockInfo{}, fmt.Errorf("failed to unmarshal lock: %w", err)
	}
	return info, nil
}

func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, os.ErrPermission)
}
