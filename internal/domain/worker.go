package domain

import "sort"

// WorkerRecord describes one discovered worker agent. Records are built fresh
// on every discovery cycle and are not modified afterwards.
type WorkerRecord struct {
	SourcePath  string `json:"source_path,omitempty" db:"source_path"`
	IsLocal     bool   `json:"is_local" db:"is_local"`
	Version     string `json:"version" db:"version"`
	User        string `json:"user" db:"user_name"`
	HostName    string `json:"host_name" db:"host_name"`
	IPv4Address string `json:"ipv4_address,omitempty" db:"ip_address"`
	DomainName  string `json:"domain_name,omitempty" db:"domain_name"`
	FQDN        string `json:"fqdn,omitempty" db:"fqdn"`
	CPUs        string `json:"cpus" db:"cpus"`
	Memory      string `json:"memory_mib" db:"memory_mib"`
	Mode        string `json:"mode" db:"mode"`
}

// FromFile reports whether the record was read from a brokerage descriptor file.
func (w *WorkerRecord) FromFile() bool {
	return w.SourcePath != ""
}

// Name is the label used in published worker name lists: the descriptor path
// for file records, the host name otherwise.
func (w *WorkerRecord) Name() string {
	if w.FromFile() {
		return w.SourcePath
	}
	return w.HostName
}

// SameWorker reports whether a and b describe the same worker. Identity is the
// host name so that network and file records deduplicate against each other.
func SameWorker(a, b *WorkerRecord) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.HostName == b.HostName
}

// WorkerSet is a set of worker records keyed by SameWorker identity.
// The first record added for a host wins.
type WorkerSet struct {
	records []*WorkerRecord
}

func NewWorkerSet(records ...*WorkerRecord) *WorkerSet {
	s := &WorkerSet{}
	for _, r := range records {
		s.Add(r)
	}
	return s
}

// Add inserts r unless a record for the same worker is already present.
// It returns false when r was a duplicate.
func (s *WorkerSet) Add(r *WorkerRecord) bool {
	if r == nil {
		return false
	}
	for _, existing := range s.records {
		if SameWorker(existing, r) {
			return false
		}
	}
	s.records = append(s.records, r)
	return true
}

func (s *WorkerSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}

// Records returns a copy of the set ordered by host name.
func (s *WorkerSet) Records() []*WorkerRecord {
	if s == nil {
		return []*WorkerRecord{}
	}
	out := make([]*WorkerRecord, len(s.records))
	copy(out, s.records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].HostName < out[j].HostName
	})
	return out
}

func (s *WorkerSet) Names() []string {
	records := s.Records()
	names := make([]string, 0, len(records))
	for _, r := range records {
		names = append(names, r.Name())
	}
	return names
}

// Local returns the records flagged as the local machine.
func (s *WorkerSet) Local() []*WorkerRecord {
	var out []*WorkerRecord
	for _, r := range s.Records() {
		if r.IsLocal {
			out = append(out, r)
		}
	}
	return out
}
