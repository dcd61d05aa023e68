package worker

import (
	"context"
	"fmt"
	"sync"

	"gitlab.com/fbworkers.net/internal/core/ports/primary"
	"gitlab.com/fbworkers.net/internal/core/ports/secondary"
	"gitlab.com/fbworkers.net/internal/domain"
)

var _ ILocalWorkerService = &LocalWorkerService{}

// LocalWorkerService implements ILocalWorkerService
type LocalWorkerService struct {
	snapshots secondary.WorkerSnapshotRepository
	logger    primary.Logger

	mu    sync.RWMutex
	local *domain.WorkerRecord
}

// NewLocalWorkerService creates a new local worker service. snapshots may be
// nil when nothing is published.
func NewLocalWorkerService(snapshots secondary.WorkerSnapshotRepository, logger primary.Logger) *LocalWorkerService {
	return &LocalWorkerService{
		snapshots: snapshots,
		logger:    logger,
	}
}

func (s *LocalWorkerService) SetLocalWorker(ctx context.Context, w *domain.WorkerRecord) {
	s.mu.Lock()
	previous := s.local
	s.local = w
	s.mu.Unlock()

	if previous == nil || previous.Mode != w.Mode || previous.CPUs != w.CPUs {
		s.logger.Info("Local worker updated", "host", w.HostName, "mode", w.Mode, "cpus", w.CPUs, "path", w.SourcePath)
	}
}

func (s *LocalWorkerService) LocalWorker() (*domain.WorkerRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.local, s.local != nil
}

func (s *LocalWorkerService) PublishedWorkers(ctx context.Context) ([]*domain.WorkerRecord, error) {
	if s.snapshots == nil {
		return []*domain.WorkerRecord{}, nil
	}

	workers, err := s.snapshots.GetAllWorkers(ctx)
	if err != nil {
		s.logger.Error("Failed to get published workers", "error", err)
		return nil, fmt.Errorf("failed to get published workers: %w", err)
	}
	return workers, nil
}
