package secondary

import (
	"context"

	"gitlab.com/fbworkers.net/internal/domain"
)

type DiscoveryHistoryRepository interface {
	// RecordCycle stores one observation row per worker seen in the cycle
	RecordCycle(ctx context.Context, cycle *domain.DiscoveryCycle) error

	// GetRecentCycles returns the latest cycles matching filter, newest first
	GetRecentCycles(ctx context.Context, filter domain.CycleFilter, limit int) ([]*domain.CycleSummary, error)
}
