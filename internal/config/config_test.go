package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadFillsDefaultsForOmittedKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "coldb.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: /var/lib/coldb\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/var/lib/coldb", cfg.DataDir)
	require.Equal(t, Default().Listen, cfg.Listen)
}

func TestLoadParsesScanTunables(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "coldb.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scan:\n  workers: 8\n  chunk_size: 1024\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	opts := cfg.ScanOptions()
	require.Equal(t, 8, opts.Workers)
	require.Equal(t, 1024, opts.ChunkSize)
	require.Equal(t, 0, opts.QueriesPerThread)
}

func TestLoadParsesPageSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "coldb.yaml")
	require.NoError(t, os.WriteFile(path, []byte("page_size: 256\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 256, cfg.PageSize)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
