// Package brokerage reads the worker descriptor files that workers publish in
// a shared brokerage directory.
package brokerage

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gitlab.com/fbworkers.net/internal/domain"
	"gitlab.com/fbworkers.net/internal/static/errs"
)

type fieldSetter func(w *domain.WorkerRecord, value string) error

func set(field func(w *domain.WorkerRecord) *string) fieldSetter {
	return func(w *domain.WorkerRecord, value string) error {
		*field(w) = value
		return nil
	}
}

// descriptorFields maps a descriptor key, with whitespace removed, to the
// record field it fills.
var descriptorFields = map[string]fieldSetter{
	"Version":    set(func(w *domain.WorkerRecord) *string { return &w.Version }),
	"User":       set(func(w *domain.WorkerRecord) *string { return &w.User }),
	"HostName":   set(func(w *domain.WorkerRecord) *string { return &w.HostName }),
	"DomainName": set(func(w *domain.WorkerRecord) *string { return &w.DomainName }),
	"FQDN":       set(func(w *domain.WorkerRecord) *string { return &w.FQDN }),
	"CPUs":       set(func(w *domain.WorkerRecord) *string { return &w.CPUs }),
	"Memory":     set(func(w *domain.WorkerRecord) *string { return &w.Memory }),
	"Mode":       set(func(w *domain.WorkerRecord) *string { return &w.Mode }),

	// Workers write their address too, but file records never carry one.
	"IPv4Address": func(*domain.WorkerRecord, string) error { return nil },
}

// ParseDescriptor reads "Key: Value" lines into a record. Any line that is not
// a known key/value pair rejects the whole descriptor.
func ParseDescriptor(r io.Reader, sourcePath, localHost string) (*domain.WorkerRecord, error) {
	w := &domain.WorkerRecord{SourcePath: sourcePath}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\uFEFF")
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("%w: line %d has no key", errs.ErrMalformedDescriptor, lineNo)
		}
		key = strings.Join(strings.Fields(key), "")
		setter, known := descriptorFields[key]
		if !known {
			return nil, fmt.Errorf("%w: %q on line %d", errs.ErrUnknownDescriptorKey, key, lineNo)
		}
		if err := setter(w, strings.TrimSpace(value)); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", errs.ErrMalformedDescriptor, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrMalformedDescriptor, err)
	}

	w.IsLocal = localHost != "" && w.HostName == localHost
	return w, nil
}

// ParseDescriptorFile parses the descriptor at path. The record's source path
// is the absolute file path.
func ParseDescriptorFile(path, localHost string) (*domain.WorkerRecord, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve descriptor path: %w", err)
	}

	f, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to open descriptor: %w", err)
	}
	defer f.Close()

	return ParseDescriptor(f, abs, localHost)
}
