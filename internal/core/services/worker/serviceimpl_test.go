package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/fbworkers.net/internal/adapter/logging"
	"gitlab.com/fbworkers.net/internal/domain"
)

type stubSnapshots struct {
	workers []*domain.WorkerRecord
	err     error
}

func (s *stubSnapshots) SaveWorkers(context.Context, uuid.UUID, []*domain.WorkerRecord) error {
	return nil
}

func (s *stubSnapshots) GetAllWorkers(context.Context) ([]*domain.WorkerRecord, error) {
	return s.workers, s.err
}

func TestLocalWorker(t *testing.T) {
	svc := NewLocalWorkerService(nil, logging.NewNopLogger())

	_, ok := svc.LocalWorker()
	assert.False(t, ok)

	svc.SetLocalWorker(context.Background(), &domain.WorkerRecord{HostName: "me", IsLocal: true, Mode: "idle"})
	svc.SetLocalWorker(context.Background(), &domain.WorkerRecord{HostName: "me", IsLocal: true, Mode: "dedicated"})

	local, ok := svc.LocalWorker()
	require.True(t, ok)
	assert.Equal(t, "dedicated", local.Mode)
}

func TestPublishedWorkers(t *testing.T) {
	workers, err := NewLocalWorkerService(nil, logging.NewNopLogger()).PublishedWorkers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, workers)

	snapshots := &stubSnapshots{workers: []*domain.WorkerRecord{{HostName: "a"}}}
	workers, err = NewLocalWorkerService(snapshots, logging.NewNopLogger()).PublishedWorkers(context.Background())
	require.NoError(t, err)
	assert.Len(t, workers, 1)

	snapshots.err = errors.New("redis down")
	_, err = NewLocalWorkerService(snapshots, logging.NewNopLogger()).PublishedWorkers(context.Background())
	assert.ErrorIs(t, err, snapshots.err)
}
