package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

const (
	defaultMaxOpenConns = 10
	defaultMaxIdleConns = 5
	defaultDialTimeout  = 10 * time.Second
	defaultMaxRetries   = 3
	defaultRetryDelay   = 1 * time.Second
)

// ConnectionConfig holds ClickHouse connection parameters.
type ConnectionConfig struct {
	Addr         string
	Database     string
	Username     string
	Password     string
	MaxOpenConns int
	MaxIdleConns int
	DialTimeout  time.Duration
	MaxRetries   int
}

// DefaultConnectionConfig returns sensible local-dev defaults.
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		Addr:         "localhost:9000",
		Database:     "default",
		Username:     "default",
		MaxOpenConns: defaultMaxOpenConns,
		MaxIdleConns: defaultMaxIdleConns,
		DialTimeout:  defaultDialTimeout,
		MaxRetries:   defaultMaxRetries,
	}
}

// Connect establishes a connection to ClickHouse with retry logic and
// ensures the query_stats table exists.
func Connect(ctx context.Context, config *ConnectionConfig) (driver.Conn, error) {
	if config == nil {
		config = DefaultConnectionConfig()
	}

	opts := &clickhouse.Options{
		Addr: []string{config.Addr},
		Auth: clickhouse.Auth{
			Database: config.Database,
			Username: config.Username,
			Password: config.Password,
		},
		Settings:         clickhouse.Settings{"max_execution_time": 60},
		DialTimeout:      config.DialTimeout,
		MaxOpenConns:     config.MaxOpenConns,
		MaxIdleConns:     config.MaxIdleConns,
		ConnMaxLifetime:  time.Hour,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
	}

	var conn driver.Conn
	var err error
	retryDelay := defaultRetryDelay

	for attempt := 1; attempt <= config.MaxRetries; attempt++ {
		conn, err = clickhouse.Open(opts)
		if err == nil {
			if err = conn.Ping(ctx); err == nil {
				if err = conn.Exec(ctx, schemaSQL); err != nil {
					return nil, fmt.Errorf("creating query_stats table: %w", err)
				}
				return conn, nil
			}
		}
		if attempt < config.MaxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
				retryDelay *= 2
			}
		}
	}

	return nil, fmt.Errorf("failed to connect to ClickHouse after %d attempts: %w", config.MaxRetries, err)
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS query_stats (
	at            DateTime,
	tex_source    String,
	n_candidates  UInt64,
	n_pruned      UInt64,
	top_k         UInt32,
	timed_out     UInt8,
	distinct_path UInt64
) ENGINE = MergeTree() ORDER BY at`
