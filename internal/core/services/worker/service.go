package worker

import (
	"context"

	"gitlab.com/fbworkers.net/internal/core/ports/secondary"
	"gitlab.com/fbworkers.net/internal/domain"
)

// ILocalWorkerService tracks which discovered worker runs on this machine
type ILocalWorkerService interface {
	secondary.LocalWorkerRegistry

	// LocalWorker returns the last record reported for this machine
	LocalWorker() (*domain.WorkerRecord, bool)

	// PublishedWorkers reads the snapshot other processes see
	PublishedWorkers(ctx context.Context) ([]*domain.WorkerRecord, error)
}
