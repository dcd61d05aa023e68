package config

import (
	"os"
	"time"
)

type SettingsConfig struct {
	WorkerExePath string
	RetryCount    int
	RetryDelay    time.Duration
}

func NewSettingsConfig() *SettingsConfig {
	return &SettingsConfig{
		WorkerExePath: os.Getenv("WORKER_EXE_PATH"),
		RetryCount:    intEnv("SETTINGS_RETRY_COUNT", 3),
		RetryDelay:    time.Duration(intEnv("SETTINGS_RETRY_DELAY_MS", 200)) * time.Millisecond,
	}
}
