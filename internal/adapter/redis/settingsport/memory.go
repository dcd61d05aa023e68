package settingsport

import (
	"context"
	"sync/atomic"

	"gitlab.com/fbworkers.net/internal/core/ports/secondary"
)

var _ secondary.MemoryThresholdStore = (*InMemoryThreshold)(nil)

// InMemoryThreshold is used when no Redis is configured. The value does not
// survive a restart.
type InMemoryThreshold struct {
	value atomic.Uint32
}

func NewInMemoryThreshold() *InMemoryThreshold {
	return &InMemoryThreshold{}
}

func (m *InMemoryThreshold) GetMinFreeMemoryMiB(context.Context) (uint32, error) {
	return m.value.Load(), nil
}

func (m *InMemoryThreshold) SetMinFreeMemoryMiB(_ context.Context, value uint32) error {
	m.value.Store(value)
	return nil
}
