package settings

import (
	"context"

	"gitlab.com/fbworkers.net/internal/domain"
)

// ISettingsService reads and changes the local worker's participation policy
type ISettingsService interface {
	// Reload reads the settings file again
	Reload(ctx context.Context) error

	// GetSettings returns the current settings including the memory threshold
	GetSettings(ctx context.Context) (*domain.SettingsView, error)

	// UpdateSettings applies the non-nil fields of update and persists them
	UpdateSettings(ctx context.Context, update domain.SettingsUpdate) (*domain.SettingsView, error)
}
