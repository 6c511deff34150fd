// Package blobstore backs the two flat blob stores named in spec.md sec
// 6: "<idx>/url" (docID -> URL bytes, uncompressed) and "<idx>/doc" (docID
// -> body bytes, gzip). Adapted from the teacher's
// internal/storage/sqlite.Store: an embedded SQLite database opened with
// the same performance pragmas, writes batched through a channel and
// flushed on a ticker or on demand.
package blobstore

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	_ "embed"
	"fmt"
	"io"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/texmath/mathsearch/internal/errkind"
)

//go:embed schema.sql
var schemaSQL string

// Config holds Store configuration.
type Config struct {
	DBPath        string
	BatchSize     int
	FlushInterval time.Duration
}

// DefaultConfig returns the teacher's batching defaults, unchanged.
func DefaultConfig(dbPath string) Config {
	return Config{DBPath: dbPath, BatchSize: 500, FlushInterval: 10 * time.Millisecond}
}

type writeOp struct {
	docID uint32
	url   []byte
	body  []byte // pre-gzipped
	done  chan error
}

// Store is the embedded-SQLite-backed document blob store.
type Store struct {
	db *sql.DB

	writeCh   chan writeOp
	flushCh   chan chan struct{}
	closeCh   chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Open creates or opens the blob store at cfg.DBPath.
func Open(cfg Config) (*Store, error) {
	const op = "blobstore.Open"
	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, errkind.New(errkind.Io, op, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-64000",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA busy_timeout=30000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, errkind.New(errkind.Io, op, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, errkind.New(errkind.Io, op, err)
	}

	s := &Store{
		db:      db,
		writeCh: make(chan writeOp, 2000),
		flushCh: make(chan chan struct{}),
		closeCh: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.batchWriter(cfg.BatchSize, cfg.FlushInterval)
	return s, nil
}

// Put queues a document's URL and gzip-compressed body for write. The
// write completes asynchronously; callers that need durability before
// continuing should wait on the returned error channel.
func (s *Store) Put(docID uint32, url string, body []byte) <-chan error {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	gz.Write(body)
	gz.Close()

	done := make(chan error, 1)
	select {
	case s.writeCh <- writeOp{docID: docID, url: []byte(url), body: buf.Bytes(), done: done}:
	case <-s.closeCh:
		done <- errkind.New(errkind.Io, "blobstore.Put", errStoreClosed)
	}
	return done
}

// URL returns docID's URL bytes.
func (s *Store) URL(docID uint32) ([]byte, error) {
	const op = "blobstore.URL"
	var url []byte
	err := s.db.QueryRow("SELECT url FROM urls WHERE doc_id = ?", docID).Scan(&url)
	if err == sql.ErrNoRows {
		return nil, errkind.New(errkind.NotFound, op, err)
	}
	if err != nil {
		return nil, errkind.New(errkind.Io, op, err)
	}
	return url, nil
}

// Doc returns docID's decompressed body.
func (s *Store) Doc(docID uint32) ([]byte, error) {
	const op = "blobstore.Doc"
	var gzBody []byte
	err := s.db.QueryRow("SELECT body FROM docs WHERE doc_id = ?", docID).Scan(&gzBody)
	if err == sql.ErrNoRows {
		return nil, errkind.New(errkind.NotFound, op, err)
	}
	if err != nil {
		return nil, errkind.New(errkind.Io, op, err)
	}

	gz, err := gzip.NewReader(bytes.NewReader(gzBody))
	if err != nil {
		return nil, errkind.New(errkind.Corrupt, op, err)
	}
	defer gz.Close()
	out, err := io.ReadAll(gz)
	if err != nil {
		return nil, errkind.New(errkind.Corrupt, op, err)
	}
	return out, nil
}

// Flush forces an immediate flush of pending writes.
func (s *Store) Flush() {
	doneCh := make(chan struct{})
	select {
	case s.flushCh <- doneCh:
		<-doneCh
	case <-s.closeCh:
	}
}

// Close stops the batch writer, draining any pending writes, and closes
// the database.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closeCh)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *Store) batchWriter(batchSize int, flushInterval time.Duration) {
	defer s.wg.Done()

	batch := make([]writeOp, 0, batchSize)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		err := s.executeBatch(batch)
		for i := range batch {
			if batch[i].done != nil {
				batch[i].done <- err
				close(batch[i].done)
			}
		}
		batch = batch[:0]
	}

	for {
		select {
		case op := <-s.writeCh:
			batch = append(batch, op)
			if batchSize > 0 && len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case doneCh := <-s.flushCh:
			flush()
			close(doneCh)
		case <-s.closeCh:
			close(s.writeCh)
			for op := range s.writeCh {
				batch = append(batch, op)
			}
			flush()
			return
		}
	}
}

func (s *Store) executeBatch(batch []writeOp) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, op := range batch {
		if _, err := tx.Exec("INSERT OR REPLACE INTO urls (doc_id, url) VALUES (?, ?)", op.docID, op.url); err != nil {
			return fmt.Errorf("insert url: %w", err)
		}
		if _, err := tx.Exec("INSERT OR REPLACE INTO docs (doc_id, body) VALUES (?, ?)", op.docID, op.body); err != nil {
			return fmt.Errorf("insert doc: %w", err)
		}
	}
	return tx.Commit()
}
