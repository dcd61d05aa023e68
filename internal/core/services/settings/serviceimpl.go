package settings

import (
	"context"
	"errors"
	"fmt"

	"gitlab.com/fbworkers.net/internal/core/ports/primary"
	"gitlab.com/fbworkers.net/internal/core/ports/secondary"
	"gitlab.com/fbworkers.net/internal/domain"
	"gitlab.com/fbworkers.net/internal/static/errs"
)

var _ ISettingsService = &SettingsService{}

type SettingsService struct {
	store     secondary.SettingsFileStore
	threshold secondary.MemoryThresholdStore
	logger    primary.Logger
}

func NewSettingsService(store secondary.SettingsFileStore, threshold secondary.MemoryThresholdStore, logger primary.Logger) *SettingsService {
	return &SettingsService{
		store:     store,
		threshold: threshold,
		logger:    logger,
	}
}

// Reload reads the settings file. A load skipped because another file
// operation is running is not an error.
func (s *SettingsService) Reload(ctx context.Context) error {
	err := s.store.Load()
	switch {
	case err == nil:
		s.logger.Debug("Worker settings loaded", "version", s.store.Version())
		return nil
	case errors.Is(err, errs.ErrSettingsBusy):
		s.logger.Debug("Worker settings busy, load skipped")
		return nil
	case errors.Is(err, errs.ErrSettingsNotFound):
		s.logger.Warn("Worker settings file not found, using defaults", "error", err)
		return err
	default:
		s.logger.Error("Failed to load worker settings", "error", err)
		return err
	}
}

func (s *SettingsService) GetSettings(ctx context.Context) (*domain.SettingsView, error) {
	minFree, err := s.threshold.GetMinFreeMemoryMiB(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get minimum free memory: %w", err)
	}

	ws := s.store.Settings()
	return &domain.SettingsView{
		WorkerSettings:       ws,
		ModeName:             ws.Mode.String(),
		StartMinimized:       ws.StartMinimized(),
		MinimumFreeMemoryMiB: minFree,
		FileVersion:          s.store.Version(),
		Dirty:                s.store.Dirty(),
	}, nil
}

func (s *SettingsService) UpdateSettings(ctx context.Context, update domain.SettingsUpdate) (*domain.SettingsView, error) {
	if update.Empty() {
		return nil, fmt.Errorf("%w: nothing to update", errs.ErrInvalidSettings)
	}

	if update.FileFieldsChanged() {
		if err := s.store.Update(update.Apply); err != nil {
			s.logger.Error("Failed to update worker settings", "error", err)
			return nil, fmt.Errorf("failed to update worker settings: %w", err)
		}
	}

	if update.MinimumFreeMemoryMiB != nil {
		if err := s.threshold.SetMinFreeMemoryMiB(ctx, *update.MinimumFreeMemoryMiB); err != nil {
			return nil, fmt.Errorf("failed to update minimum free memory: %w", err)
		}
	}

	view, err := s.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Worker settings updated", "mode", view.ModeName, "idleThreshold", view.IdleThresholdPercent, "cpus", view.NumCPUsToUse)
	return view, nil
}
