package discoveryengine

import (
	"context"

	"gitlab.com/fbworkers.net/internal/domain"
	"gitlab.com/fbworkers.net/internal/static/errs"
)

// CoordinatorFetcher asks a coordinator for its worker list.
type CoordinatorFetcher interface {
	FetchWorkers(ctx context.Context, address string) ([]*domain.WorkerRecord, error)
}

// BrokerageScanner reads worker descriptors below a brokerage root.
type BrokerageScanner interface {
	Scan(root string) ([]*domain.WorkerRecord, error)
}

// Source produces the workers for one discovery cycle.
type Source interface {
	Kind() domain.DiscoverySource
	Discover(ctx context.Context) ([]*domain.WorkerRecord, error)
}

type coordinatorSource struct {
	address string
	fetcher CoordinatorFetcher
}

func (s coordinatorSource) Kind() domain.DiscoverySource { return domain.SourceCoordinator }

func (s coordinatorSource) Discover(ctx context.Context) ([]*domain.WorkerRecord, error) {
	return s.fetcher.FetchWorkers(ctx, s.address)
}

type brokerageSource struct {
	root    string
	scanner BrokerageScanner
}

func (s brokerageSource) Kind() domain.DiscoverySource { return domain.SourceBrokerage }

func (s brokerageSource) Discover(context.Context) ([]*domain.WorkerRecord, error) {
	return s.scanner.Scan(s.root)
}

type noneSource struct{}

func (noneSource) Kind() domain.DiscoverySource { return domain.SourceNone }

func (noneSource) Discover(context.Context) ([]*domain.WorkerRecord, error) {
	return nil, errs.ErrNoDiscoverySource
}

// selectSource picks exactly one source per cycle. A configured coordinator
// always wins; its failures do not fall back to the brokerage directory.
func selectSource(coordinatorAddress, brokeragePath string, fetcher CoordinatorFetcher, scanner BrokerageScanner) Source {
	switch {
	case coordinatorAddress != "" && fetcher != nil:
		return coordinatorSource{address: coordinatorAddress, fetcher: fetcher}
	case brokeragePath != "" && scanner != nil:
		return brokerageSource{root: brokeragePath, scanner: scanner}
	default:
		return noneSource{}
	}
}
