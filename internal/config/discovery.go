package config

import (
	"os"
	"time"
)

const (
	BrokeragePathEnv      = "FASTBUILD_BROKERAGE_PATH"
	CoordinatorAddressEnv = "FASTBUILD_COORDINATOR"
)

type DiscoveryConfig struct {
	// BrokeragePath is the root of the shared brokerage directory.
	BrokeragePath string
	// CoordinatorAddress is the coordinator host, optionally host:port.
	CoordinatorAddress string

	RefreshInterval    time.Duration
	CoordinatorTimeout time.Duration
	ProtocolVersion    uint32
	Platform           string
}

func NewDiscoveryConfig() *DiscoveryConfig {
	return &DiscoveryConfig{
		BrokeragePath:      os.Getenv(BrokeragePathEnv),
		CoordinatorAddress: os.Getenv(CoordinatorAddressEnv),
		RefreshInterval:    time.Duration(intEnv("DISCOVERY_INTERVAL_SEC", 5)) * time.Second,
		CoordinatorTimeout: time.Duration(intEnv("COORDINATOR_TIMEOUT_SEC", 3)) * time.Second,
		ProtocolVersion:    uint32(intEnv("PROTOCOL_VERSION", 22)),
		Platform:           getEnv("BROKERAGE_PLATFORM", "windows"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
