package brokerage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gitlab.com/fbworkers.net/internal/core/ports/primary"
	"gitlab.com/fbworkers.net/internal/domain"
	"gitlab.com/fbworkers.net/internal/static/errs"
)

// PoolPath is the directory, relative to the brokerage root, where workers of
// one protocol version and platform publish descriptors, e.g. broker/22.windows.
func PoolPath(protocolVersion uint32, platform string) string {
	return filepath.Join("broker", fmt.Sprintf("%d.%s", protocolVersion, platform))
}

// Scanner lists a brokerage pool directory and parses every descriptor in it.
type Scanner struct {
	poolPath  string
	localHost string
	logger    primary.Logger
}

func NewScanner(poolPath, localHost string, logger primary.Logger) *Scanner {
	return &Scanner{
		poolPath:  poolPath,
		localHost: localHost,
		logger:    logger,
	}
}

// Scan returns the workers advertised under root. Descriptors that fail to
// parse are skipped; a missing or unreadable directory is an error.
func (s *Scanner) Scan(root string) ([]*domain.WorkerRecord, error) {
	dir := filepath.Join(root, s.poolPath)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", errs.ErrBrokerageNotFound, dir)
		}
		return nil, fmt.Errorf("failed to list brokerage directory %s: %w", dir, err)
	}

	workers := make([]*domain.WorkerRecord, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		w, err := ParseDescriptorFile(path, s.localHost)
		if err != nil {
			s.logger.Debug("Skipping worker descriptor", "path", path, "error", err)
			continue
		}
		workers = append(workers, w)
	}

	return workers, nil
}
