package secondary

import (
	"context"

	"github.com/google/uuid"

	"gitlab.com/fbworkers.net/internal/domain"
)

type WorkerSnapshotRepository interface {
	// SaveWorkers replaces the published snapshot with the workers of one cycle
	SaveWorkers(ctx context.Context, cycleID uuid.UUID, workers []*domain.WorkerRecord) error

	// GetAllWorkers retrieves the last published snapshot
	GetAllWorkers(ctx context.Context) ([]*domain.WorkerRecord, error)
}

// LocalWorkerRegistry is told which discovered worker is this machine.
type LocalWorkerRegistry interface {
	SetLocalWorker(ctx context.Context, worker *domain.WorkerRecord)
}
