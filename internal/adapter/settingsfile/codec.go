// Package settingsfile reads and writes the worker's binary settings file.
//
// Layout, little-endian:
//
//	[0:3]   magic "FWS"
//	[3]     format version
//	[4:8]   worker mode (uint32)
//	[8:12]  idle threshold percent (uint32)
//	[12:16] CPUs to use (uint32)
//	[16]    start minimized (bool, always written true, ignored on read)
//	[17]    limit CPUs by memory (bool)
package settingsfile

import (
	"encoding/binary"
	"fmt"

	"gitlab.com/fbworkers.net/internal/domain"
	"gitlab.com/fbworkers.net/internal/static/errs"
)

const (
	MinVersion     byte = 1 // Oldest compatible version
	CurrentVersion byte = 5 // Current version

	encodedSize = 18
)

var magic = [3]byte{'F', 'W', 'S'}

// Encode serializes s stamped with CurrentVersion.
func Encode(s domain.WorkerSettings) []byte {
	b := make([]byte, 0, encodedSize)
	b = append(b, magic[:]...)
	b = append(b, CurrentVersion)
	b = binary.LittleEndian.AppendUint32(b, uint32(s.Mode))
	b = binary.LittleEndian.AppendUint32(b, s.IdleThresholdPercent)
	b = binary.LittleEndian.AppendUint32(b, s.NumCPUsToUse)
	b = append(b, boolByte(s.StartMinimized()))
	b = append(b, boolByte(s.LimitCPUMemoryBased))
	return b
}

// Decode parses a settings file. It returns the version found on disk; on any
// error the returned settings are the zero value and must not be applied.
func Decode(b []byte) (domain.WorkerSettings, byte, error) {
	if len(b) < 4 {
		return domain.WorkerSettings{}, 0, fmt.Errorf("%w: %d bytes", errs.ErrSettingsTruncated, len(b))
	}
	if b[0] != magic[0] || b[1] != magic[1] || b[2] != magic[2] {
		return domain.WorkerSettings{}, 0, fmt.Errorf("%w: % x", errs.ErrBadSettingsMagic, b[:3])
	}

	version := b[3]
	if version < MinVersion || version > CurrentVersion {
		return domain.WorkerSettings{}, version, fmt.Errorf("%w: %d", errs.ErrUnsupportedSettingsVersion, version)
	}
	if len(b) < encodedSize {
		return domain.WorkerSettings{}, version, fmt.Errorf("%w: %d bytes", errs.ErrSettingsTruncated, len(b))
	}

	// b[16] is start minimized, which is always on
	s := domain.WorkerSettings{
		Mode:                 domain.WorkerMode(binary.LittleEndian.Uint32(b[4:8])),
		IdleThresholdPercent: binary.LittleEndian.Uint32(b[8:12]),
		NumCPUsToUse:         binary.LittleEndian.Uint32(b[12:16]),
		LimitCPUMemoryBased:  b[17] != 0,
	}
	return s, version, nil
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
