package secondary

import "gitlab.com/fbworkers.net/internal/domain"

type DiscoveryMetrics interface {
	ObserveCycle(cycle *domain.DiscoveryCycle)
	ObserveSkippedCycle()
}
