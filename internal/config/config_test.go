package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewSystemConfigFromEnv(t *testing.T) {
	t.Setenv(BrokeragePathEnv, `\\fileserver\brokerage`)
	t.Setenv(CoordinatorAddressEnv, "coordinator.local")
	t.Setenv("DISCOVERY_INTERVAL_SEC", "10")
	t.Setenv("COORDINATOR_TIMEOUT_SEC", "not-a-number")
	t.Setenv("WORKER_EXE_PATH", `C:\FASTBuild\FBuildWorker.exe`)
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("DEBUG_MODE", "true")

	cfg := NewSystemConfig()

	assert.True(t, cfg.DebugMode)
	assert.Equal(t, `\\fileserver\brokerage`, cfg.DiscoveryConfig.BrokeragePath)
	assert.Equal(t, "coordinator.local", cfg.DiscoveryConfig.CoordinatorAddress)
	assert.Equal(t, 10*time.Second, cfg.DiscoveryConfig.RefreshInterval)
	assert.Equal(t, 3*time.Second, cfg.DiscoveryConfig.CoordinatorTimeout)
	assert.Equal(t, uint32(22), cfg.DiscoveryConfig.ProtocolVersion)
	assert.Equal(t, "windows", cfg.DiscoveryConfig.Platform)
	assert.Equal(t, `C:\FASTBuild\FBuildWorker.exe`, cfg.SettingsConfig.WorkerExePath)
	assert.Equal(t, 200*time.Millisecond, cfg.SettingsConfig.RetryDelay)
	assert.True(t, cfg.RedisConfig.Enabled())
	assert.False(t, cfg.PostgresConfig.Enabled())
	assert.Equal(t, "public", cfg.PostgresConfig.Schema)
	assert.Equal(t, 8082, cfg.HttpConfig.Port)
}

func TestNewDiscoveryConfigDefaults(t *testing.T) {
	t.Setenv(BrokeragePathEnv, "")
	t.Setenv(CoordinatorAddressEnv, "")

	cfg := NewDiscoveryConfig()
	assert.Empty(t, cfg.BrokeragePath)
	assert.Empty(t, cfg.CoordinatorAddress)
	assert.Equal(t, 5*time.Second, cfg.RefreshInterval)
}
