package settingsport

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"

	"gitlab.com/fbworkers.net/internal/core/ports/primary"
	"gitlab.com/fbworkers.net/internal/core/ports/secondary"
)

const minFreeMemoryKey = "discovery:settings:min_free_memory_mib"

var _ secondary.MemoryThresholdStore = (*ThresholdRepository)(nil)

// ThresholdRepository keeps the minimum free memory setting in Redis.
type ThresholdRepository struct {
	redisClient *redis.Client
	logger      primary.Logger
}

func NewThresholdRepository(redisClient *redis.Client, logger primary.Logger) *ThresholdRepository {
	return &ThresholdRepository{
		redisClient: redisClient,
		logger:      logger,
	}
}

// GetMinFreeMemoryMiB returns 0 when the value was never set.
func (r *ThresholdRepository) GetMinFreeMemoryMiB(ctx context.Context) (uint32, error) {
	value, err := r.redisClient.Get(ctx, minFreeMemoryKey).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		r.logger.Error("Failed to get minimum free memory", "error", err)
		return 0, fmt.Errorf("failed to get minimum free memory: %w", err)
	}

	parsed, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid minimum free memory %q: %w", value, err)
	}
	return uint32(parsed), nil
}

func (r *ThresholdRepository) SetMinFreeMemoryMiB(ctx context.Context, value uint32) error {
	if err := r.redisClient.Set(ctx, minFreeMemoryKey, strconv.FormatUint(uint64(value), 10), 0).Err(); err != nil {
		r.logger.Error("Failed to save minimum free memory", "error", err)
		return fmt.Errorf("failed to save minimum free memory: %w", err)
	}
	return nil
}
