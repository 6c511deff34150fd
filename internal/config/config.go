// Package config loads the YAML configuration files for the indexer and
// the search daemon, following internal/patterns.LoadPatterns's shape
// exactly: os.ReadFile + yaml.Unmarshal + wrapped errors.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// IndexConfig configures the offline indexer (cmd/indexer).
type IndexConfig struct {
	IndexDir          string `yaml:"index_dir"`
	SkipSpan          int    `yaml:"skip_span"`
	TolerateParseErrs bool   `yaml:"tolerate_parse_errors"`
	MaxLeavesPerExpr  int    `yaml:"max_leaves_per_expr"`
}

// ServerConfig configures the search daemon (cmd/searchd).
type ServerConfig struct {
	Addr             string         `yaml:"addr"`
	IndexDir         string         `yaml:"index_dir"`
	CacheBudgetBytes int64          `yaml:"cache_budget_bytes"`
	DefaultTopK      int            `yaml:"default_top_k"`
	MaxTopK          int            `yaml:"max_top_k"`
	DeadlineMS       int            `yaml:"deadline_ms"`
	ClickHouse       ClickHouseConfig `yaml:"clickhouse"`
}

// ClickHouseConfig configures the optional query-analytics sink
// (internal/analytics), mirroring the teacher's ClickHouse connection
// settings.
type ClickHouseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// DefaultServerConfig returns the fallback used when no config file is
// found, mirroring patterns.DefaultPatterns's role as a built-in default.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:             "0.0.0.0:8088",
		IndexDir:         "./data/index",
		CacheBudgetBytes: 64 << 20,
		DefaultTopK:      10,
		MaxTopK:          200,
		DeadlineMS:       2000,
	}
}

// DefaultIndexConfig returns the offline indexer's fallback defaults.
func DefaultIndexConfig() IndexConfig {
	return IndexConfig{
		IndexDir:          "./data/index",
		SkipSpan:          128,
		TolerateParseErrs: true,
		MaxLeavesPerExpr:  64,
	}
}

// LoadServerConfig loads searchd.yaml from path.
func LoadServerConfig(path string) (ServerConfig, error) {
	cfg := DefaultServerConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return ServerConfig{}, fmt.Errorf("reading server config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ServerConfig{}, fmt.Errorf("parsing server config YAML: %w", err)
	}
	return cfg, nil
}

// LoadIndexConfig loads indexer.yaml from path.
func LoadIndexConfig(path string) (IndexConfig, error) {
	cfg := DefaultIndexConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return IndexConfig{}, fmt.Errorf("reading index config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return IndexConfig{}, fmt.Errorf("parsing index config YAML: %w", err)
	}
	return cfg, nil
}
