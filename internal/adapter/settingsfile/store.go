package settingsfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gitlab.com/fbworkers.net/internal/core/ports/secondary"
	"gitlab.com/fbworkers.net/internal/domain"
	"gitlab.com/fbworkers.net/internal/static/errs"
)

var _ secondary.SettingsFileStore = (*Store)(nil)

const (
	defaultRetryCount = 3
	defaultRetryDelay = 200 * time.Millisecond
)

// SettingsPath is where a worker executable keeps its settings.
func SettingsPath(workerExePath string) string {
	return workerExePath + ".settings"
}

// Store holds one worker's settings and mirrors them to its settings file.
//
// Load and Save never overlap on the same Store: an operation that finds
// another one in progress is skipped and reports errs.ErrSettingsBusy.
// Nothing coordinates separate processes writing the same file.
type Store struct {
	path       string
	retryCount int
	retryDelay time.Duration

	io sync.Mutex

	mu       sync.RWMutex
	settings domain.WorkerSettings
	version  byte
	dirty    bool
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithRetry sets how often Load looks for a missing file and how long it
// waits between attempts
func WithRetry(count int, delay time.Duration) StoreOption {
	return func(s *Store) {
		if count > 0 {
			s.retryCount = count
		}
		if delay >= 0 {
			s.retryDelay = delay
		}
	}
}

// NewStore creates a store for the worker at workerExePath, starting from
// default settings. Call Load to read the file.
func NewStore(workerExePath string, options ...StoreOption) *Store {
	s := &Store{
		path:       SettingsPath(workerExePath),
		retryCount: defaultRetryCount,
		retryDelay: defaultRetryDelay,
		settings:   domain.DefaultWorkerSettings(),
		version:    CurrentVersion,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *Store) Path() string {
	return s.path
}

// Settings returns a copy of the current in-memory settings.
func (s *Store) Settings() domain.WorkerSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Dirty reports whether there are changes that have not been written yet.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// Version is the format version of the last file loaded or saved.
func (s *Store) Version() byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Load reads the settings file. A missing file is polled for a few times in
// case the worker is writing it. On any error the in-memory settings are
// left untouched.
func (s *Store) Load() error {
	if !s.io.TryLock() {
		return errs.ErrSettingsBusy
	}
	defer s.io.Unlock()

	data, err := s.readWithRetry()
	if err != nil {
		return err
	}

	settings, version, err := Decode(data)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.settings = settings
	s.version = version
	s.dirty = false
	s.mu.Unlock()

	return nil
}

func (s *Store) readWithRetry() ([]byte, error) {
	for attempt := 1; ; attempt++ {
		data, err := os.ReadFile(s.path)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
		}
		if attempt >= s.retryCount {
			return nil, fmt.Errorf("%w: %s", errs.ErrSettingsNotFound, s.path)
		}
		time.Sleep(s.retryDelay)
	}
}

// Save rewrites the whole settings file with the current version stamped.
func (s *Store) Save() error {
	if !s.io.TryLock() {
		return errs.ErrSettingsBusy
	}
	defer s.io.Unlock()

	return s.write()
}

// write expects s.io to be held.
func (s *Store) write() error {
	s.mu.RLock()
	data := Encode(s.settings)
	s.mu.RUnlock()

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(s.path), err)
	}

	s.mu.Lock()
	s.version = CurrentVersion
	s.dirty = false
	s.mu.Unlock()

	return nil
}

// Update applies fn to the settings and flushes them once. While another
// load or save is running the update is rejected with errs.ErrSettingsBusy
// and the settings stay unchanged. If the write itself fails the change is
// kept in memory and Dirty reports it.
func (s *Store) Update(fn func(*domain.WorkerSettings)) error {
	if !s.io.TryLock() {
		return errs.ErrSettingsBusy
	}
	defer s.io.Unlock()

	s.mu.Lock()
	next := s.settings
	fn(&next)
	if err := validate(next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.settings = next
	s.dirty = true
	s.mu.Unlock()

	return s.write()
}

func (s *Store) SetWorkerMode(mode domain.WorkerMode) error {
	return s.Update(func(ws *domain.WorkerSettings) { ws.Mode = mode })
}

func (s *Store) SetIdleThresholdPercent(percent uint32) error {
	return s.Update(func(ws *domain.WorkerSettings) { ws.IdleThresholdPercent = percent })
}

func (s *Store) SetNumCPUsToUse(n uint32) error {
	return s.Update(func(ws *domain.WorkerSettings) { ws.NumCPUsToUse = n })
}

func (s *Store) SetLimitCPUMemoryBased(limit bool) error {
	return s.Update(func(ws *domain.WorkerSettings) { ws.LimitCPUMemoryBased = limit })
}

func validate(ws domain.WorkerSettings) error {
	if !ws.Mode.Valid() {
		return fmt.Errorf("%w: mode %d", errs.ErrInvalidSettings, ws.Mode)
	}
	if ws.IdleThresholdPercent > 100 {
		return fmt.Errorf("%w: idle threshold %d%%", errs.ErrInvalidSettings, ws.IdleThresholdPercent)
	}
	return nil
}
