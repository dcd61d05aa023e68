package settingsport

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/fbworkers.net/internal/adapter/logging"
	"gitlab.com/fbworkers.net/internal/core/ports/secondary"
)

func TestThresholdRepository(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	repo := NewThresholdRepository(client, logging.NewNopLogger())
	ctx := context.Background()

	value, err := repo.GetMinFreeMemoryMiB(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), value)

	require.NoError(t, repo.SetMinFreeMemoryMiB(ctx, 4096))
	value, err = repo.GetMinFreeMemoryMiB(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(4096), value)

	stored, err := server.Get(minFreeMemoryKey)
	require.NoError(t, err)
	assert.Equal(t, "4096", stored)
}

func TestThresholdRepositoryRejectsGarbage(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()
	require.NoError(t, server.Set(minFreeMemoryKey, "lots"))

	_, err := NewThresholdRepository(client, logging.NewNopLogger()).GetMinFreeMemoryMiB(context.Background())
	assert.Error(t, err)
}

func TestInMemoryThreshold(t *testing.T) {
	var store secondary.MemoryThresholdStore = NewInMemoryThreshold()
	ctx := context.Background()

	require.NoError(t, store.SetMinFreeMemoryMiB(ctx, 512))
	value, err := store.GetMinFreeMemoryMiB(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(512), value)
}
