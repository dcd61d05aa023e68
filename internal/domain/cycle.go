package domain

import (
	"time"

	"github.com/google/uuid"
)

// DiscoverySource names where a cycle's workers came from.
type DiscoverySource string

const (
	SourceNone        DiscoverySource = "none"
	SourceCoordinator DiscoverySource = "coordinator"
	SourceBrokerage   DiscoverySource = "brokerage"
)

// DiscoveryCycle is the outcome of one refresh.
type DiscoveryCycle struct {
	ID        uuid.UUID
	Source    DiscoverySource
	StartedAt time.Time
	Duration  time.Duration
	Workers   *WorkerSet
	// Err is the failure that emptied the set, if any.
	Err error
}

func (c *DiscoveryCycle) Failed() bool {
	return c.Err != nil
}

// CycleSummary is a stored cycle as read back from history.
type CycleSummary struct {
	ID          uuid.UUID `db:"cycle_id" json:"cycle_id"`
	Source      string    `db:"source" json:"source"`
	WorkerCount int       `db:"worker_count" json:"worker_count"`
	Failed      bool      `db:"failed" json:"failed"`
	ObservedAt  time.Time `db:"observed_at" json:"observed_at"`
}

// CycleFilter narrows a history query. Zero values match every cycle.
type CycleFilter struct {
	Source     DiscoverySource
	FailedOnly bool
}

type CycleTable struct {
	ID          string
	Source      string
	WorkerCount string
	Failed      string
	Error       string
	DurationMs  string
	ObservedAt  string
}

func GetCycleTable() CycleTable {
	return CycleTable{
		ID:          "cycle_id",
		Source:      "source",
		WorkerCount: "worker_count",
		Failed:      "failed",
		Error:       "error",
		DurationMs:  "duration_ms",
		ObservedAt:  "observed_at",
	}
}

func (CycleTable) TableName() string {
	return "discovery_cycles"
}

// ObservationTable holds one row per worker seen in a cycle.
type ObservationTable struct {
	CycleID    string
	HostName   string
	Source     string
	IPAddress  string
	SourcePath string
	CPUs       string
	MemoryMiB  string
	Mode       string
	IsLocal    string
	ObservedAt string
}

func GetObservationTable() ObservationTable {
	return ObservationTable{
		CycleID:    "cycle_id",
		HostName:   "host_name",
		Source:     "source",
		IPAddress:  "ip_address",
		SourcePath: "source_path",
		CPUs:       "cpus",
		MemoryMiB:  "memory_mib",
		Mode:       "mode",
		IsLocal:    "is_local",
		ObservedAt: "observed_at",
	}
}

func (ObservationTable) TableName() string {
	return "discovery_observations"
}
