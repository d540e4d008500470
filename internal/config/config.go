// Package config loads the server/CLI's YAML configuration file: the
// listen address, the snapshot data directory, and the shared-scan
// engine's tunables (§4.6).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"coldb/internal/scan"
)

// Config is coldbd's on-disk configuration.
type Config struct {
	Listen  string `yaml:"listen"`
	DataDir string `yaml:"data_dir"`

	// PageSize is the byte size new B+tree index nodes are sized for
	// (§4.2's PAGESIZE). Zero keeps index.NewBTree's compiled-in default.
	PageSize int `yaml:"page_size"`

	Scan ScanTunables `yaml:"scan"`
}

// ScanTunables mirrors scan.Options' fields so a config file can override
// W (workers), Q (queries per thread), and D (chunk size) independently
// of §4.6's compiled-in defaults.
type ScanTunables struct {
	Workers          int `yaml:"workers"`
	QueriesPerThread int `yaml:"queries_per_thread"`
	ChunkSize        int `yaml:"chunk_size"`
}

// Default returns the configuration a bare `coldbd` invocation runs with
// when no file is given.
func Default() Config {
	return Config{
		Listen:  ":5433",
		DataDir: ".",
	}
}

// Load reads and parses the YAML file at path, filling in Default()'s
// values for any key the file omits.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ScanOptions converts the file's tunables into a scan.Options, leaving
// unset (zero) fields to scan's own defaults.
func (c Config) ScanOptions() scan.Options {
	return scan.Options{
		Workers:          c.Scan.Workers,
		QueriesPerThread: c.Scan.QueriesPerThread,
		ChunkSize:        c.Scan.ChunkSize,
	}
}
