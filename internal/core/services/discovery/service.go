package discovery

import (
	"context"

	"gitlab.com/fbworkers.net/internal/domain"
)

// IDiscoveryService exposes the published result of worker discovery
type IDiscoveryService interface {
	// CurrentWorkers returns the workers published by the last cycle
	CurrentWorkers() []*domain.WorkerRecord

	// WorkerCount returns the number of workers published by the last cycle
	WorkerCount() int

	// WorkerNames returns descriptor paths or host names of the current workers
	WorkerNames() []string

	// LastCycle returns the last completed cycle, or nil before the first one
	LastCycle() *domain.DiscoveryCycle

	// Refresh runs a cycle now and returns it; nil when one was already running
	Refresh(ctx context.Context) *domain.DiscoveryCycle

	SetBrokeragePath(path string)
	SetCoordinatorAddress(address string)
}
