package domain

// WorkerMode is the participation policy a worker applies to remote jobs.
type WorkerMode uint32

const (
	WorkerModeDisabled         WorkerMode = 0 // Don't work for anyone
	WorkerModeWorkWhenIdle     WorkerMode = 1 // Work for others when idle
	WorkerModeWorkAlways       WorkerMode = 2 // Work for others always
	WorkerModeWorkProportional WorkerMode = 3 // Work for others proportional to free CPU
)

func (m WorkerMode) String() string {
	switch m {
	case WorkerModeDisabled:
		return "disabled"
	case WorkerModeWorkWhenIdle:
		return "idle"
	case WorkerModeWorkAlways:
		return "dedicated"
	case WorkerModeWorkProportional:
		return "proportional"
	default:
		return "unknown"
	}
}

func (m WorkerMode) Valid() bool {
	return m <= WorkerModeWorkProportional
}

// WorkerSettings is the local participation policy persisted in the worker's
// settings file. StartMinimized is not stored here: it is always true.
type WorkerSettings struct {
	Mode                 WorkerMode `json:"mode"`
	IdleThresholdPercent uint32     `json:"idle_threshold_percent"`
	NumCPUsToUse         uint32     `json:"num_cpus_to_use"`
	LimitCPUMemoryBased  bool       `json:"limit_cpu_memory_based"`
}

// StartMinimized is fixed by policy and cannot be changed.
func (WorkerSettings) StartMinimized() bool {
	return true
}

// DefaultWorkerSettings mirrors the worker's own defaults when no settings
// file has been written yet.
func DefaultWorkerSettings() WorkerSettings {
	return WorkerSettings{
		Mode:                 WorkerModeWorkWhenIdle,
		IdleThresholdPercent: 20,
		NumCPUsToUse:         1,
		LimitCPUMemoryBased:  false,
	}
}

// SettingsView is what the API reports about the local worker's settings.
type SettingsView struct {
	WorkerSettings
	ModeName             string `json:"mode_name"`
	StartMinimized       bool   `json:"start_minimized"`
	MinimumFreeMemoryMiB uint32 `json:"minimum_free_memory_mib"`
	FileVersion          byte   `json:"file_version"`
	Dirty                bool   `json:"dirty"`
}

// SettingsUpdate carries the fields a caller wants to change; nil fields are
// left alone.
type SettingsUpdate struct {
	Mode                 *WorkerMode `json:"mode,omitempty"`
	IdleThresholdPercent *uint32     `json:"idle_threshold_percent,omitempty"`
	NumCPUsToUse         *uint32     `json:"num_cpus_to_use,omitempty"`
	LimitCPUMemoryBased  *bool       `json:"limit_cpu_memory_based,omitempty"`
	MinimumFreeMemoryMiB *uint32     `json:"minimum_free_memory_mib,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u SettingsUpdate) Empty() bool {
	return u.Mode == nil && u.IdleThresholdPercent == nil && u.NumCPUsToUse == nil &&
		u.LimitCPUMemoryBased == nil && u.MinimumFreeMemoryMiB == nil
}

// FileFieldsChanged reports whether the update touches the settings file.
func (u SettingsUpdate) FileFieldsChanged() bool {
	return u.Mode != nil || u.IdleThresholdPercent != nil || u.NumCPUsToUse != nil || u.LimitCPUMemoryBased != nil
}

// Apply copies the set file fields onto ws.
func (u SettingsUpdate) Apply(ws *WorkerSettings) {
	if u.Mode != nil {
		ws.Mode = *u.Mode
	}
	if u.IdleThresholdPercent != nil {
		ws.IdleThresholdPercent = *u.IdleThresholdPercent
	}
	if u.NumCPUsToUse != nil {
		ws.NumCPUsToUse = *u.NumCPUsToUse
	}
	if u.LimitCPUMemoryBased != nil {
		ws.LimitCPUMemoryBased = *u.LimitCPUMemoryBased
	}
}
