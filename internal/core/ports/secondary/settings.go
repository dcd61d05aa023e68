package secondary

import (
	"context"

	"gitlab.com/fbworkers.net/internal/domain"
)

// MemoryThresholdStore keeps the minimum free memory setting, which lives
// outside the worker settings file.
type MemoryThresholdStore interface {
	GetMinFreeMemoryMiB(ctx context.Context) (uint32, error)
	SetMinFreeMemoryMiB(ctx context.Context, value uint32) error
}

// SettingsFileStore is the local worker's settings file
type SettingsFileStore interface {
	Load() error
	Settings() domain.WorkerSettings
	Version() byte
	Dirty() bool
	// Update applies fn, validates the result and writes the file once
	Update(fn func(*domain.WorkerSettings)) error
}
