package discoveryengine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/fbworkers.net/internal/adapter/logging"
	"gitlab.com/fbworkers.net/internal/config"
	"gitlab.com/fbworkers.net/internal/domain"
)

// ============================================================================
//                              fakes
// ============================================================================

type fakeScanner struct {
	mu      sync.Mutex
	results [][]*domain.WorkerRecord
	err     error
	calls   int
}

func (f *fakeScanner) Scan(root string) ([]*domain.WorkerRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) == 0 {
		return nil, nil
	}
	next := f.results[0]
	f.results = f.results[1:]
	return next, nil
}

type fakeFetcher struct {
	workers []*domain.WorkerRecord
	err     error
	block   chan struct{}
	calls   atomic.Int32
}

// FetchWorkers gives up on a cancelled ctx the way a dial would.
func (f *fakeFetcher) FetchWorkers(ctx context.Context, address string) ([]*domain.WorkerRecord, error) {
	f.calls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, fmt.Errorf("dial tcp %s: %w", address, ctx.Err())
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("dial tcp %s: %w", address, err)
	}
	return f.workers, f.err
}

type fakeRegistry struct {
	mu    sync.Mutex
	local []*domain.WorkerRecord
}

func (r *fakeRegistry) SetLocalWorker(ctx context.Context, w *domain.WorkerRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.local = append(r.local, w)
}

type fakeSnapshots struct {
	saved [][]*domain.WorkerRecord
	err   error
}

func (f *fakeSnapshots) SaveWorkers(ctx context.Context, cycleID uuid.UUID, workers []*domain.WorkerRecord) error {
	f.saved = append(f.saved, workers)
	return f.err
}

func (f *fakeSnapshots) GetAllWorkers(ctx context.Context) ([]*domain.WorkerRecord, error) {
	if len(f.saved) == 0 {
		return nil, nil
	}
	return f.saved[len(f.saved)-1], nil
}

type fakeHistory struct {
	mu     sync.Mutex
	cycles []*domain.DiscoveryCycle
}

func (f *fakeHistory) RecordCycle(ctx context.Context, cycle *domain.DiscoveryCycle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cycles = append(f.cycles, cycle)
	return ctx.Err()
}

func (f *fakeHistory) GetRecentCycles(ctx context.Context, filter domain.CycleFilter, limit int) ([]*domain.CycleSummary, error) {
	return nil, nil
}

func workers(n int) []*domain.WorkerRecord {
	out := make([]*domain.WorkerRecord, n)
	for i := range out {
		out[i] = &domain.WorkerRecord{HostName: fmt.Sprintf("worker-%02d", i), SourcePath: fmt.Sprintf("/b/worker-%02d", i)}
	}
	return out
}

func drain(sub *Subscription) []Event {
	var events []Event
	for {
		select {
		case ev := <-sub.Events():
			events = append(events, ev)
		default:
			return events
		}
	}
}

func newEngine(cfg *config.DiscoveryConfig, fetcher CoordinatorFetcher, scanner BrokerageScanner, options ...EngineOption) *Engine {
	return NewEngine(cfg, fetcher, scanner, logging.NewNopLogger(), options...)
}

// ============================================================================
//                              tests
// ============================================================================

func TestCountChangedOnlyOnTransitions(t *testing.T) {
	scanner := &fakeScanner{results: [][]*domain.WorkerRecord{workers(0), workers(3), workers(3), workers(5)}}
	e := newEngine(&config.DiscoveryConfig{BrokeragePath: "/brokerage"}, nil, scanner)
	sub := e.Subscribe(32)
	defer sub.Close()

	var counts []int
	var lists int
	for i := 0; i < 4; i++ {
		require.NotNil(t, e.Refresh(context.Background()))
		for _, ev := range drain(sub) {
			switch ev.Type {
			case EventCountChanged:
				counts = append(counts, ev.Count)
			case EventListChanged:
				lists++
			}
		}
	}

	assert.Equal(t, []int{3, 5}, counts)
	assert.Equal(t, 4, lists)
	assert.Equal(t, 5, e.WorkerCount())
}

func TestListChangedCarriesFullSet(t *testing.T) {
	scanner := &fakeScanner{results: [][]*domain.WorkerRecord{workers(2), workers(2)}}
	e := newEngine(&config.DiscoveryConfig{BrokeragePath: "/brokerage"}, nil, scanner)
	sub := e.Subscribe(8)
	defer sub.Close()

	e.Refresh(context.Background())
	drain(sub)
	e.Refresh(context.Background())

	events := drain(sub)
	require.Len(t, events, 1)
	assert.Equal(t, EventListChanged, events[0].Type)
	assert.Len(t, events[0].Workers, 2)
	assert.Equal(t, []string{"/b/worker-00", "/b/worker-01"}, e.WorkerNames())
}

func TestDuplicateHostsCollapse(t *testing.T) {
	dup := []*domain.WorkerRecord{
		{HostName: "same", IPv4Address: "10.0.0.1", Version: "v1"},
		{HostName: "same", IPv4Address: "10.0.0.2", Version: "v2"},
	}
	e := newEngine(&config.DiscoveryConfig{CoordinatorAddress: "coord"}, &fakeFetcher{workers: dup}, nil)

	e.Refresh(context.Background())
	assert.Equal(t, 1, e.WorkerCount())
	assert.Equal(t, "10.0.0.1", e.CurrentWorkers()[0].IPv4Address)
}

func TestNothingConfiguredPublishesEmpty(t *testing.T) {
	scanner := &fakeScanner{}
	fetcher := &fakeFetcher{}
	e := newEngine(&config.DiscoveryConfig{}, fetcher, scanner)
	sub := e.Subscribe(4)
	defer sub.Close()

	require.NotNil(t, e.Refresh(context.Background()))

	assert.Equal(t, 0, scanner.calls)
	assert.Equal(t, int32(0), fetcher.calls.Load())
	assert.Equal(t, 0, e.WorkerCount())
	events := drain(sub)
	require.Len(t, events, 1)
	assert.Equal(t, EventListChanged, events[0].Type)
	assert.Equal(t, domain.SourceNone, e.LastCycle().Source)
	assert.False(t, e.LastCycle().Failed())
}

func TestCoordinatorFailureDoesNotFallBack(t *testing.T) {
	scanner := &fakeScanner{results: [][]*domain.WorkerRecord{workers(4)}}
	fetcher := &fakeFetcher{workers: workers(2)}
	e := newEngine(&config.DiscoveryConfig{CoordinatorAddress: "coord", BrokeragePath: "/brokerage"}, fetcher, scanner)

	e.Refresh(context.Background())
	assert.Equal(t, 2, e.WorkerCount())

	fetcher.err = errors.New("connection refused")
	e.Refresh(context.Background())

	assert.Equal(t, 0, e.WorkerCount())
	assert.Equal(t, 0, scanner.calls)
	assert.True(t, e.LastCycle().Failed())
	assert.Equal(t, domain.SourceCoordinator, e.LastCycle().Source)
}

func TestBrokerageFailurePublishesEmpty(t *testing.T) {
	scanner := &fakeScanner{results: [][]*domain.WorkerRecord{workers(3)}}
	e := newEngine(&config.DiscoveryConfig{BrokeragePath: "/brokerage"}, nil, scanner)
	sub := e.Subscribe(8)
	defer sub.Close()

	e.Refresh(context.Background())
	scanner.err = errors.New("access denied")
	e.Refresh(context.Background())

	assert.Equal(t, 0, e.WorkerCount())
	var counts []int
	for _, ev := range drain(sub) {
		if ev.Type == EventCountChanged {
			counts = append(counts, ev.Count)
		}
	}
	assert.Equal(t, []int{3, 0}, counts)
}

func TestLocalWorkerReported(t *testing.T) {
	records := workers(3)
	records[1].IsLocal = true
	registry := &fakeRegistry{}
	snapshots := &fakeSnapshots{}
	e := newEngine(&config.DiscoveryConfig{BrokeragePath: "/b"}, nil,
		&fakeScanner{results: [][]*domain.WorkerRecord{records}},
		WithLocalWorkerRegistry(registry),
		WithSnapshotRepository(snapshots),
	)

	e.Refresh(context.Background())

	require.Len(t, registry.local, 1)
	assert.Equal(t, "worker-01", registry.local[0].HostName)
	require.Len(t, snapshots.saved, 1)
	assert.Len(t, snapshots.saved[0], 3)
}

func TestOverlappingRefreshIsSkipped(t *testing.T) {
	fetcher := &fakeFetcher{workers: workers(1), block: make(chan struct{})}
	e := newEngine(&config.DiscoveryConfig{CoordinatorAddress: "coord"}, fetcher, nil)

	done := make(chan *domain.DiscoveryCycle)
	go func() { done <- e.Refresh(context.Background()) }()

	require.Eventually(t, func() bool { return fetcher.calls.Load() == 1 }, time.Second, time.Millisecond)
	assert.Nil(t, e.Refresh(context.Background()))

	close(fetcher.block)
	assert.NotNil(t, <-done)
	assert.Equal(t, int32(1), fetcher.calls.Load())
	assert.NotNil(t, e.Refresh(context.Background()))
}

func TestSetConfigurationAppliesNextCycle(t *testing.T) {
	scanner := &fakeScanner{results: [][]*domain.WorkerRecord{workers(2)}}
	fetcher := &fakeFetcher{workers: workers(4)}
	e := newEngine(&config.DiscoveryConfig{}, fetcher, scanner)

	e.SetBrokeragePath("/brokerage")
	e.Refresh(context.Background())
	assert.Equal(t, 2, e.WorkerCount())

	e.SetCoordinatorAddress("coord")
	e.Refresh(context.Background())
	assert.Equal(t, 4, e.WorkerCount())
}

func TestStartTicksAndStop(t *testing.T) {
	mock := clock.NewMock()
	fetcher := &fakeFetcher{workers: workers(1)}
	e := newEngine(&config.DiscoveryConfig{CoordinatorAddress: "coord", RefreshInterval: 5 * time.Second}, fetcher, nil, WithClock(mock))

	require.NoError(t, e.Start(context.Background()))
	assert.ErrorIs(t, e.Start(context.Background()), ErrAlreadyStarted)

	idleAfter := func(calls int32) func() bool {
		return func() bool { return fetcher.calls.Load() == calls && !e.updating.Load() }
	}
	require.Eventually(t, idleAfter(1), time.Second, time.Millisecond)

	mock.Add(5 * time.Second)
	require.Eventually(t, idleAfter(2), time.Second, time.Millisecond)

	e.Stop()
	// give the loop a moment to observe the cancellation
	time.Sleep(20 * time.Millisecond)
	mock.Add(15 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(2), fetcher.calls.Load())
}

func TestStopDoesNotWaitForCycle(t *testing.T) {
	fetcher := &fakeFetcher{workers: workers(2), block: make(chan struct{})}
	e := newEngine(&config.DiscoveryConfig{CoordinatorAddress: "coord"}, fetcher, nil, WithClock(clock.NewMock()))
	require.NoError(t, e.Start(context.Background()))
	require.Eventually(t, func() bool { return fetcher.calls.Load() == 1 }, time.Second, time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		e.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked on the running cycle")
	}
	close(fetcher.block)

	// the cycle in flight still completes and publishes
	require.Eventually(t, func() bool { return !e.updating.Load() && e.LastCycle() != nil }, time.Second, time.Millisecond)
	assert.Equal(t, 2, e.WorkerCount())
	assert.False(t, e.LastCycle().Failed())
}

func TestCancelledCallerKeepsPublishedWorkers(t *testing.T) {
	fetcher := &fakeFetcher{workers: workers(2)}
	history := &fakeHistory{}
	e := newEngine(&config.DiscoveryConfig{CoordinatorAddress: "coord"}, fetcher, nil, WithHistoryRepository(history))
	sub := e.Subscribe(8)
	defer sub.Close()

	require.NotNil(t, e.Refresh(context.Background()))
	drain(sub)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cycle := e.Refresh(ctx)

	require.NotNil(t, cycle)
	assert.NoError(t, cycle.Err)
	assert.Equal(t, 2, e.WorkerCount())
	for _, ev := range drain(sub) {
		assert.NotEqual(t, EventCountChanged, ev.Type)
	}
	require.Len(t, history.cycles, 2)
	assert.False(t, history.cycles[1].Failed())
}

func TestRefreshReturnsItsCycle(t *testing.T) {
	scanner := &fakeScanner{results: [][]*domain.WorkerRecord{workers(3)}}
	e := newEngine(&config.DiscoveryConfig{BrokeragePath: "/brokerage"}, nil, scanner)

	cycle := e.Refresh(context.Background())

	require.NotNil(t, cycle)
	assert.Equal(t, domain.SourceBrokerage, cycle.Source)
	assert.Equal(t, 3, cycle.Workers.Len())
	assert.Same(t, e.LastCycle(), cycle)
}

func TestSlowSubscriberStillGetsLatestCount(t *testing.T) {
	scanner := &fakeScanner{results: [][]*domain.WorkerRecord{workers(3), workers(5)}}
	e := newEngine(&config.DiscoveryConfig{BrokeragePath: "/brokerage"}, nil, scanner)
	sub := e.Subscribe(1)
	defer sub.Close()

	e.Refresh(context.Background())
	e.Refresh(context.Background())

	events := drain(sub)
	require.Len(t, events, 1)
	assert.Equal(t, EventCountChanged, events[0].Type)
	assert.Equal(t, 5, events[0].Count)
}

func TestSubscriptionClose(t *testing.T) {
	e := newEngine(&config.DiscoveryConfig{}, nil, nil)
	sub := e.Subscribe(1)
	sub.Close()
	sub.Close()

	_, open := <-sub.Events()
	assert.False(t, open)
	assert.NotPanics(t, func() { e.Refresh(context.Background()) })
}
