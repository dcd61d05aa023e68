// Package discoveryengine periodically rediscovers the available build
// workers and publishes the result to subscribers.
package discoveryengine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"gitlab.com/fbworkers.net/internal/config"
	"gitlab.com/fbworkers.net/internal/core/ports/primary"
	"gitlab.com/fbworkers.net/internal/core/ports/secondary"
	"gitlab.com/fbworkers.net/internal/core/services/discovery"
	"gitlab.com/fbworkers.net/internal/domain"
	"gitlab.com/fbworkers.net/internal/static/errs"
)

var _ discovery.IDiscoveryService = (*Engine)(nil)

var ErrAlreadyStarted = errors.New("discovery engine already started")

type Engine struct {
	interval time.Duration
	clock    clock.Clock
	logger   primary.Logger

	fetcher      CoordinatorFetcher
	scanner      BrokerageScanner
	localWorkers secondary.LocalWorkerRegistry
	snapshots    secondary.WorkerSnapshotRepository
	history      secondary.DiscoveryHistoryRepository
	metrics      secondary.DiscoveryMetrics

	cfgMu              sync.RWMutex
	brokeragePath      string
	coordinatorAddress string

	// updating is set while a cycle runs; overlapping ticks are skipped.
	updating atomic.Bool
	started  atomic.Bool

	stateMu   sync.RWMutex
	workers   *domain.WorkerSet
	lastCycle *domain.DiscoveryCycle

	subsMu sync.Mutex
	subs   []*Subscription

	stopMu sync.Mutex
	cancel context.CancelFunc
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithClock replaces the wall clock, mainly for tests
func WithClock(c clock.Clock) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithLocalWorkerRegistry reports the local worker to registry on each cycle
func WithLocalWorkerRegistry(registry secondary.LocalWorkerRegistry) EngineOption {
	return func(e *Engine) {
		e.localWorkers = registry
	}
}

// WithSnapshotRepository publishes every cycle's workers to repo
func WithSnapshotRepository(repo secondary.WorkerSnapshotRepository) EngineOption {
	return func(e *Engine) {
		e.snapshots = repo
	}
}

// WithHistoryRepository records every cycle in repo
func WithHistoryRepository(repo secondary.DiscoveryHistoryRepository) EngineOption {
	return func(e *Engine) {
		e.history = repo
	}
}

// WithMetrics reports cycle outcomes to m
func WithMetrics(m secondary.DiscoveryMetrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine creates a discovery engine. fetcher and scanner may be nil when
// the corresponding source is never used.
func NewEngine(
	cfg *config.DiscoveryConfig,
	fetcher CoordinatorFetcher,
	scanner BrokerageScanner,
	logger primary.Logger,
	options ...EngineOption,
) *Engine {
	e := &Engine{
		interval:           cfg.RefreshInterval,
		clock:              clock.New(),
		logger:             logger,
		fetcher:            fetcher,
		scanner:            scanner,
		brokeragePath:      cfg.BrokeragePath,
		coordinatorAddress: cfg.CoordinatorAddress,
		workers:            domain.NewWorkerSet(),
	}
	if e.interval <= 0 {
		e.interval = 5 * time.Second
	}

	for _, option := range options {
		option(e)
	}

	return e
}

// Start runs a cycle immediately and then one per interval until ctx is done
// or Stop is called. Every tick runs in its own goroutine so that a slow
// cycle makes the following ticks skip instead of queueing.
func (e *Engine) Start(ctx context.Context) error {
	if e.started.Swap(true) {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	e.stopMu.Lock()
	e.cancel = cancel
	e.stopMu.Unlock()

	ticker := e.clock.Ticker(e.interval)
	e.logger.Info("Worker discovery started", "interval", e.interval.String())

	go e.Refresh(ctx)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				e.logger.Info("Worker discovery stopped")
				return
			case <-ticker.C:
				if ctx.Err() != nil {
					continue
				}
				go e.Refresh(ctx)
			}
		}
	}()

	return nil
}

// Stop prevents further ticks. It does not wait for a cycle in flight.
func (e *Engine) Stop() {
	e.stopMu.Lock()
	defer e.stopMu.Unlock()

	if e.cancel != nil {
		e.cancel()
	}
}

// Refresh runs one discovery cycle and returns it, or nil when a cycle is
// already running. Once started, a cycle runs to completion even if ctx is
// cancelled; the coordinator client's own timeouts bound it.
func (e *Engine) Refresh(ctx context.Context) *domain.DiscoveryCycle {
	if !e.updating.CompareAndSwap(false, true) {
		e.logger.Debug("Discovery cycle already running, skipping")
		if e.metrics != nil {
			e.metrics.ObserveSkippedCycle()
		}
		return nil
	}
	defer e.updating.Store(false)

	ctx = context.WithoutCancel(ctx)
	cycle := e.runCycle(ctx)
	e.publish(ctx, cycle)
	return cycle
}

func (e *Engine) runCycle(ctx context.Context) *domain.DiscoveryCycle {
	e.cfgMu.RLock()
	source := selectSource(e.coordinatorAddress, e.brokeragePath, e.fetcher, e.scanner)
	e.cfgMu.RUnlock()

	cycle := &domain.DiscoveryCycle{
		ID:        uuid.New(),
		Source:    source.Kind(),
		StartedAt: e.clock.Now(),
		Workers:   domain.NewWorkerSet(),
	}

	records, err := source.Discover(ctx)
	switch {
	case errors.Is(err, errs.ErrNoDiscoverySource):
		e.logger.Debug("No brokerage path or coordinator configured", "cycleId", cycle.ID)
	case err != nil:
		cycle.Err = err
		e.logger.Warn("Worker discovery failed", "cycleId", cycle.ID, "source", string(cycle.Source), "error", err)
	default:
		for _, w := range records {
			cycle.Workers.Add(w)
		}
		for _, w := range cycle.Workers.Local() {
			if e.localWorkers != nil {
				e.localWorkers.SetLocalWorker(ctx, w)
			}
		}
	}

	cycle.Duration = e.clock.Since(cycle.StartedAt)
	return cycle
}

func (e *Engine) publish(ctx context.Context, cycle *domain.DiscoveryCycle) {
	e.stateMu.Lock()
	previous := e.workers.Len()
	e.workers = cycle.Workers
	e.lastCycle = cycle
	e.stateMu.Unlock()

	count := cycle.Workers.Len()
	records := cycle.Workers.Records()

	if previous != count {
		e.logger.Info("Worker count changed", "cycleId", cycle.ID, "from", previous, "to", count)
		e.emit(Event{Type: EventCountChanged, CycleID: cycle.ID, Count: count})
	}
	e.emit(Event{Type: EventListChanged, CycleID: cycle.ID, Count: count, Workers: records})

	if e.metrics != nil {
		e.metrics.ObserveCycle(cycle)
	}
	if e.snapshots != nil {
		if err := e.snapshots.SaveWorkers(ctx, cycle.ID, records); err != nil {
			e.logger.Error("Failed to publish worker snapshot", "cycleId", cycle.ID, "error", err)
		}
	}
	if e.history != nil {
		if err := e.history.RecordCycle(ctx, cycle); err != nil {
			e.logger.Error("Failed to record discovery cycle", "cycleId", cycle.ID, "error", err)
		}
	}

	e.logger.Debug("Discovery cycle finished",
		"cycleId", cycle.ID,
		"source", string(cycle.Source),
		"workers", count,
		"duration", cycle.Duration.String(),
	)
}

func (e *Engine) CurrentWorkers() []*domain.WorkerRecord {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.workers.Records()
}

func (e *Engine) WorkerCount() int {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.workers.Len()
}

func (e *Engine) WorkerNames() []string {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.workers.Names()
}

func (e *Engine) LastCycle() *domain.DiscoveryCycle {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.lastCycle
}

// SetBrokeragePath changes the brokerage root used from the next cycle on.
func (e *Engine) SetBrokeragePath(path string) {
	e.cfgMu.Lock()
	e.brokeragePath = path
	e.cfgMu.Unlock()
}

// SetCoordinatorAddress changes the coordinator used from the next cycle on.
func (e *Engine) SetCoordinatorAddress(address string) {
	e.cfgMu.Lock()
	e.coordinatorAddress = address
	e.cfgMu.Unlock()
}
