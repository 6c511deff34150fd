// Package main is the entry point for the offline math indexer. It walks
// a directory of documents, feeds each through internal/ingest, and
// leaves behind a read-ready math/text/blob index triple.
package main

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/texmath/mathsearch/internal/blobstore"
	"github.com/texmath/mathsearch/internal/config"
	"github.com/texmath/mathsearch/internal/errkind"
	"github.com/texmath/mathsearch/internal/ingest"
	"github.com/texmath/mathsearch/internal/textindex"
	"github.com/texmath/mathsearch/pkg/mathindex"
)

// Exit codes per spec.md sec 6: 0 success, 1 open/create failure, 2
// parser error that was not tolerated, 3 I/O failure.
const (
	exitOK          = 0
	exitOpenFailure = 1
	exitParseError  = 2
	exitIOFailure   = 3
)

var colorOn = isatty.IsTerminal(os.Stdout.Fd())

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg := config.DefaultIndexConfig()
	if path := getEnv("INDEXER_CONFIG", ""); path != "" {
		loaded, err := config.LoadIndexConfig(path)
		if err != nil {
			logger.Error("failed to load index config", "error", err)
			os.Exit(exitOpenFailure)
		}
		cfg = loaded
	}
	if dir := getEnv("INDEXER_INDEX_DIR", ""); dir != "" {
		cfg.IndexDir = dir
	}
	inputDir := getEnv("INDEXER_INPUT_DIR", "./data/corpus")

	idx, err := mathindex.OpenWrite(cfg.IndexDir)
	if err != nil {
		logger.Error("failed to open math index for writing", "dir", cfg.IndexDir, "error", err)
		os.Exit(exitOpenFailure)
	}

	text := textindex.New()

	blobDBPath := filepath.Join(cfg.IndexDir, "blobs.db")
	blobs, err := blobstore.Open(blobstore.DefaultConfig(blobDBPath))
	if err != nil {
		logger.Error("failed to open blob store", "error", err)
		os.Exit(exitOpenFailure)
	}

	var ioErrors int
	ing := ingest.New(idx, text, blobs, ingest.Config{
		TolerateParse: cfg.TolerateParseErrs,
		OnSkippedExpr: func(docID uint32, err error) {
			logger.Warn("skipped expression", "doc_id", docID, "error", err)
		},
	})

	var nDocs int
	exitCode := exitOK

	walkErr := filepath.WalkDir(inputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		body, err := os.ReadFile(path)
		if err != nil {
			ioErrors++
			logger.Error("failed to read document", "path", path, "error", err)
			return nil
		}

		url := "file://" + path
		if _, err := ing.IngestDocument(url, string(body)); err != nil {
			switch errkind.Of(err) {
			case errkind.Parse, errkind.Overflow:
				if !cfg.TolerateParseErrs {
					return err
				}
			default:
				ioErrors++
				return err
			}
			return nil
		}
		nDocs++
		if colorOn {
			fmt.Fprintf(os.Stdout, "\033[32mindexed\033[0m %s\n", path)
		} else {
			fmt.Fprintf(os.Stdout, "indexed %s\n", path)
		}
		return nil
	})

	if walkErr != nil {
		switch errkind.Of(walkErr) {
		case errkind.Parse, errkind.Overflow:
			exitCode = exitParseError
		default:
			exitCode = exitIOFailure
		}
		logger.Error("ingestion aborted", "error", walkErr)
	}

	if err := blobs.Close(); err != nil {
		logger.Error("failed to close blob store", "error", err)
		if exitCode == exitOK {
			exitCode = exitIOFailure
		}
	}
	if err := idx.Close(); err != nil {
		logger.Error("failed to close math index", "error", err)
		if exitCode == exitOK {
			exitCode = exitIOFailure
		}
	}

	fmt.Fprintf(os.Stdout, "indexed %s documents (%s expressions), %s parse errors, %s overflow errors, %s io errors\n",
		humanize.Comma(int64(nDocs)),
		humanize.Comma(int64(idx.Stats.NTex)),
		humanize.Comma(int64(ing.ParseErrors)),
		humanize.Comma(int64(ing.OverflowErrors)),
		humanize.Comma(int64(ioErrors)),
	)

	os.Exit(exitCode)
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
