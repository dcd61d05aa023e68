package brokerage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/fbworkers.net/internal/adapter/logging"
	"gitlab.com/fbworkers.net/internal/static/errs"
)

const fullDescriptor = `Version: v1.11
User: alice
Host Name: build-07
Domain Name: corp.example
FQDN: build-07.corp.example
IPv4 Address: 10.0.0.7
CPUs: 6/12
Memory: 32768
Mode: idle
`

func TestParseDescriptorAllKeys(t *testing.T) {
	w, err := ParseDescriptor(strings.NewReader(fullDescriptor), "/b/build-07", "other-host")
	require.NoError(t, err)

	assert.Equal(t, "/b/build-07", w.SourcePath)
	assert.Equal(t, "v1.11", w.Version)
	assert.Equal(t, "alice", w.User)
	assert.Equal(t, "build-07", w.HostName)
	assert.Equal(t, "corp.example", w.DomainName)
	assert.Equal(t, "build-07.corp.example", w.FQDN)
	assert.Equal(t, "6/12", w.CPUs)
	assert.Equal(t, "32768", w.Memory)
	assert.Equal(t, "idle", w.Mode)
	assert.Empty(t, w.IPv4Address)
	assert.False(t, w.IsLocal)
}

func TestParseDescriptorLocal(t *testing.T) {
	w, err := ParseDescriptor(strings.NewReader("Host Name: me\r\nMode: dedicated\r\n"), "/b/me", "me")
	require.NoError(t, err)
	assert.True(t, w.IsLocal)
	assert.Equal(t, "dedicated", w.Mode)
}

func TestParseDescriptorRejectsWholeFile(t *testing.T) {
	tests := []struct {
		name  string
		input string
		err   error
	}{
		{"unknown key", fullDescriptor + "Favourite Colour: blue\n", errs.ErrUnknownDescriptorKey},
		{"no colon", "Version: v1.11\nnonsense\nUser: bob\n", errs.ErrMalformedDescriptor},
		{"blank line", "Version: v1.11\n\nUser: bob\n", errs.ErrMalformedDescriptor},
		{"read-only field", "Is Local: true\n", errs.ErrUnknownDescriptorKey},
		{"source path", "File Path: /tmp/x\n", errs.ErrUnknownDescriptorKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := ParseDescriptor(strings.NewReader(tt.input), "/b/x", "")
			assert.Nil(t, w)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestParseDescriptorKeepsColonsInValue(t *testing.T) {
	w, err := ParseDescriptor(strings.NewReader("Version: v1.11 (build 12:30)\n"), "/b/x", "")
	require.NoError(t, err)
	assert.Equal(t, "v1.11 (build 12:30)", w.Version)
}

func TestParseDescriptorByteOrderMark(t *testing.T) {
	w, err := ParseDescriptor(strings.NewReader("\uFEFFHost Name: bom\n"), "/b/bom", "")
	require.NoError(t, err)
	assert.Equal(t, "bom", w.HostName)
}

func writeDescriptor(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestScannerScan(t *testing.T) {
	root := t.TempDir()
	pool := filepath.Join(root, PoolPath(22, "windows"))
	require.NoError(t, os.MkdirAll(pool, 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(pool, "subdir"), 0o755))

	writeDescriptor(t, pool, "build-01", "Host Name: build-01\nCPUs: 2/4\n")
	writeDescriptor(t, pool, "build-02", "Host Name: build-02\nCPUs: 8/8\n")
	writeDescriptor(t, pool, "broken", "Host Name: broken\ngarbage\n")

	workers, err := NewScanner(PoolPath(22, "windows"), "build-02", logging.NewNopLogger()).Scan(root)
	require.NoError(t, err)
	require.Len(t, workers, 2)

	byHost := map[string]bool{}
	for _, w := range workers {
		byHost[w.HostName] = w.IsLocal
		assert.True(t, filepath.IsAbs(w.SourcePath))
		assert.Empty(t, w.IPv4Address)
	}
	assert.Equal(t, map[string]bool{"build-01": false, "build-02": true}, byHost)
}

func TestScannerMissingDirectory(t *testing.T) {
	_, err := NewScanner(PoolPath(22, "windows"), "", logging.NewNopLogger()).Scan(t.TempDir())
	assert.ErrorIs(t, err, errs.ErrBrokerageNotFound)
}

func TestPoolPath(t *testing.T) {
	assert.Equal(t, filepath.Join("broker", "22.windows"), PoolPath(22, "windows"))
}
