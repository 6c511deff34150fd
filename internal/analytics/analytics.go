// Package analytics is the optional asynchronous query-stats sink
// (SPEC_FULL.md DOMAIN STACK): one row per query appended to ClickHouse
// for offline dashboards. Adapted from the teacher's
// internal/storage/clickhouse.BatchBuffer: a mutex-guarded row slice
// flushed on a size threshold or a timer, with retried batch inserts.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/texmath/mathsearch/pkg/hyperloglog"
)

const (
	defaultBatchSize     = 200
	defaultFlushInterval = 5 * time.Second
	defaultShutdownWait  = 10 * time.Second
	maxRetries           = 3
)

// QueryStatRow is one row of the query_stats table: a single search's
// shape and outcome.
type QueryStatRow struct {
	At           time.Time
	TexSource    string
	NCandidates  uint64
	NPruned      uint64
	TopK         uint32
	TimedOut     uint8
	DistinctPath uint64 // HLL estimate of distinct path fingerprints touched
}

// Sink buffers QueryStatRow writes and flushes them to ClickHouse in
// batches, mirroring the teacher's BatchBuffer shape generalized from four
// OTLP signal tables down to the one query-stats table this domain needs.
type Sink struct {
	conn driver.Conn

	mu   sync.Mutex
	rows []QueryStatRow

	batchSize     int
	flushInterval time.Duration
	shutdownWait  time.Duration

	flushTimer *time.Timer
	stopCh     chan struct{}
	closeOnce  sync.Once
	wg         sync.WaitGroup
	logger     *slog.Logger
}

// NewSink starts a Sink's background flush loop over an already-connected
// ClickHouse driver.Conn.
func NewSink(conn driver.Conn, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sink{
		conn:          conn,
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
		shutdownWait:  defaultShutdownWait,
		stopCh:        make(chan struct{}),
		logger:        logger,
	}
	s.flushTimer = time.NewTimer(s.flushInterval)
	s.wg.Add(1)
	go s.flushLoop()
	return s
}

// Record queues one query's stats for write.
func (s *Sink) Record(row QueryStatRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, row)
	if len(s.rows) >= s.batchSize {
		s.flushLocked()
	}
}

// DistinctPathEstimate returns a HyperLogLog-based estimate of how many
// distinct path fingerprints a query's elements touched, cheap enough to
// compute per query without retaining the full fingerprint set.
func DistinctPathEstimate(fingerprints []uint64) uint64 {
	hll := hyperloglog.New(12)
	for _, fp := range fingerprints {
		hll.AddHash(fp)
	}
	return hll.Count()
}

func (s *Sink) flushLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.flushTimer.C:
			s.mu.Lock()
			s.flushLocked()
			s.mu.Unlock()
			s.flushTimer.Reset(s.flushInterval)
		case <-s.stopCh:
			return
		}
	}
}

// flushLocked flushes buffered rows. Caller must hold s.mu.
func (s *Sink) flushLocked() {
	if len(s.rows) == 0 {
		return
	}
	rows := s.rows
	s.rows = nil

	s.mu.Unlock()
	err := s.insertRows(rows)
	s.mu.Lock()

	if err != nil {
		s.logger.Error("failed to flush query stats", "error", err, "row_count", len(rows))
		return
	}
	s.logger.Debug("flushed query stats", "row_count", len(rows))
}

func (s *Sink) insertRows(rows []QueryStatRow) error {
	return s.retryInsert(func(ctx context.Context) error {
		batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO query_stats")
		if err != nil {
			return err
		}
		for _, row := range rows {
			if err := batch.Append(
				row.At, row.TexSource, row.NCandidates, row.NPruned,
				row.TopK, row.TimedOut, row.DistinctPath,
			); err != nil {
				return err
			}
		}
		return batch.Send()
	})
}

func (s *Sink) retryInsert(fn func(context.Context) error) error {
	var err error
	delay := 100 * time.Millisecond
	for attempt := 1; attempt <= maxRetries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = fn(ctx)
		cancel()
		if err == nil {
			return nil
		}
		if attempt < maxRetries {
			time.Sleep(delay)
			delay *= 2
		}
	}
	return fmt.Errorf("insert query_stats failed after %d attempts: %w", maxRetries, err)
}

// Close flushes remaining rows and stops the background loop.
func (s *Sink) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stopCh)
		shutdownCtx, cancel := context.WithTimeout(ctx, s.shutdownWait)
		defer cancel()

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-shutdownCtx.Done():
			s.logger.Warn("flush loop did not stop within timeout")
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		s.flushLocked()
	})
	return err
}
