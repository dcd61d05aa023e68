package config

import (
	"os"
	"strconv"
)

type AppConfig struct {
	DebugMode       bool
	DiscoveryConfig *DiscoveryConfig
	SettingsConfig  *SettingsConfig
	RedisConfig     *RedisConfig
	PostgresConfig  *PostgresConfig
	JwtConfig       *JwtConfig
	HttpConfig      *HttpConfig
}

func NewSystemConfig() *AppConfig {
	return &AppConfig{
		DebugMode:       os.Getenv("DEBUG_MODE") == "true",
		DiscoveryConfig: NewDiscoveryConfig(),
		SettingsConfig:  NewSettingsConfig(),
		RedisConfig:     NewRedisConfig(),
		PostgresConfig:  NewPostgresConfig(),
		JwtConfig:       NewJwtConfig(),
		HttpConfig:      NewHttpConfig(),
	}
}

func intEnv(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
