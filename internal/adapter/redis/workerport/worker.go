package workerport

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"gitlab.com/fbworkers.net/internal/core/ports/primary"
	"gitlab.com/fbworkers.net/internal/core/ports/secondary"
	"gitlab.com/fbworkers.net/internal/domain"
)

const (
	workerKeyPrefix  = "discovery:worker:"
	workerSetKey     = "discovery:workers"
	lastCycleKey     = "discovery:cycle"
	workerExpiration = 5 * time.Minute
)

var _ secondary.WorkerSnapshotRepository = (*WorkerRepository)(nil)

// WorkerRepository publishes discovery snapshots to Redis so that other
// processes can read the current worker list.
type WorkerRepository struct {
	redisClient *redis.Client
	logger      primary.Logger
	expiration  time.Duration
}

type WorkerRepositoryOption func(*WorkerRepository)

// WithExpiration sets the TTL of published worker keys
func WithExpiration(d time.Duration) WorkerRepositoryOption {
	return func(r *WorkerRepository) {
		r.expiration = d
	}
}

// NewWorkerRepository creates a new Redis worker repository
func NewWorkerRepository(redisClient *redis.Client, logger primary.Logger, options ...WorkerRepositoryOption) *WorkerRepository {
	r := &WorkerRepository{
		redisClient: redisClient,
		logger:      logger,
		expiration:  workerExpiration,
	}
	for _, option := range options {
		option(r)
	}
	return r
}

func workerKey(host string) string {
	return workerKeyPrefix + host
}

// SaveWorkers replaces the published snapshot. Hosts missing from workers
// are removed.
func (r *WorkerRepository) SaveWorkers(ctx context.Context, cycleID uuid.UUID, workers []*domain.WorkerRecord) error {
	previous, err := r.redisClient.SMembers(ctx, workerSetKey).Result()
	if err != nil {
		r.logger.Error("Failed to read published workers", "error", err)
		return fmt.Errorf("failed to read published workers: %w", err)
	}

	current := make(map[string]struct{}, len(workers))
	values := make(map[string][]byte, len(workers))
	for _, w := range workers {
		workerJSON, err := json.Marshal(w)
		if err != nil {
			r.logger.Error("Failed to marshal worker", "host", w.HostName, "error", err)
			return fmt.Errorf("failed to marshal worker %s: %w", w.HostName, err)
		}
		current[w.HostName] = struct{}{}
		values[w.HostName] = workerJSON
	}

	_, err = r.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, host := range previous {
			if _, ok := current[host]; !ok {
				pipe.Del(ctx, workerKey(host))
				pipe.SRem(ctx, workerSetKey, host)
			}
		}
		for host, value := range values {
			pipe.Set(ctx, workerKey(host), value, r.expiration)
			pipe.SAdd(ctx, workerSetKey, host)
		}
		pipe.Set(ctx, lastCycleKey, cycleID.String(), 0)
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to publish worker snapshot", "cycleId", cycleID, "error", err)
		return fmt.Errorf("failed to publish worker snapshot: %w", err)
	}

	return nil
}

// GetAllWorkers retrieves the published workers ordered by host name.
// Expired entries are skipped.
func (r *WorkerRepository) GetAllWorkers(ctx context.Context) ([]*domain.WorkerRecord, error) {
	hosts, err := r.redisClient.SMembers(ctx, workerSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read published workers: %w", err)
	}

	workers := make([]*domain.WorkerRecord, 0, len(hosts))
	if len(hosts) == 0 {
		return workers, nil
	}

	keys := make([]string, len(hosts))
	for i, host := range hosts {
		keys[i] = workerKey(host)
	}

	workerData, err := r.redisClient.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve worker data: %w", err)
	}

	for _, data := range workerData {
		if data == nil {
			continue
		}
		var worker domain.WorkerRecord
		if err := json.Unmarshal([]byte(data.(string)), &worker); err != nil {
			return nil, fmt.Errorf("failed to unmarshal worker data: %w", err)
		}
		workers = append(workers, &worker)
	}

	sort.Slice(workers, func(i, j int) bool {
		return workers[i].HostName < workers[j].HostName
	})
	return workers, nil
}

// LastCycleID returns the cycle that produced the published snapshot.
func (r *WorkerRepository) LastCycleID(ctx context.Context) (uuid.UUID, error) {
	value, err := r.redisClient.Get(ctx, lastCycleKey).Result()
	if err == redis.Nil {
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to get last cycle: %w", err)
	}
	return uuid.Parse(value)
}
