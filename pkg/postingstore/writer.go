package postingstore

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/texmath/mathsearch/internal/errkind"
	"github.com/texmath/mathsearch/pkg/postingcodec"
)

// Magic identifies a sealed posting store (spec.md sec 6): "MI3\0POST".
var Magic = [8]byte{'M', 'I', '3', 0, 'P', 'O', 'S', 'T'}

// Descriptor locates one fingerprint's posting list within the store's
// path.post and path.skip files.
type Descriptor struct {
	Offset      int64 // byte offset into path.post
	Length      int64 // byte length of the encoded record stream
	SkipOffset  int64 // byte offset into path.skip
	SkipCount   int   // number of skip entries
	RecordCount int   // number of records in the list
}

// Writer appends posting lists to a pair of files (path.post, path.skip).
// It is append-only and single-writer, matching spec.md sec 5's "writers
// require exclusive access" -- callers serialize calls to AppendList
// themselves (internal/mathindex holds the directory lock for the whole
// session).
type Writer struct {
	post         *os.File
	skip         *os.File
	postOff      int64
	skipOff      int64
	span         int
	totalRecords uint64
}

// NewWriter opens (creating if necessary) the post and skip files for
// appending.
func NewWriter(postPath, skipPath string, span int) (*Writer, error) {
	const op = "postingstore.NewWriter"
	if span <= 0 {
		span = DefaultSkipSpan
	}

	post, err := os.OpenFile(postPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errkind.New(errkind.Io, op, err)
	}
	skip, err := os.OpenFile(skipPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		post.Close()
		return nil, errkind.New(errkind.Io, op, err)
	}

	postInfo, err := post.Stat()
	if err != nil {
		post.Close()
		skip.Close()
		return nil, errkind.New(errkind.Io, op, err)
	}
	skipInfo, err := skip.Stat()
	if err != nil {
		post.Close()
		skip.Close()
		return nil, errkind.New(errkind.Io, op, err)
	}

	return &Writer{
		post:    post,
		skip:    skip,
		postOff: postInfo.Size(),
		skipOff: skipInfo.Size(),
		span:    span,
	}, nil
}

// AppendList writes one fingerprint's posting records, which must already
// be in strictly increasing (docID, exp_id) order (spec.md sec 5), and
// returns the descriptor mathindex needs to find them again.
func (w *Writer) AppendList(records []postingcodec.Record) (Descriptor, error) {
	const op = "postingstore.AppendList"

	var buf []byte
	var entries []SkipEntry
	var lastKey uint64
	haveLast := false

	for i, rec := range records {
		key := rec.Key()
		if haveLast && key <= lastKey {
			return Descriptor{}, errkind.New(errkind.Arg, op,
				fmt.Errorf("record key %d not strictly greater than previous %d", key, lastKey))
		}
		lastKey, haveLast = key, true

		if i%w.span == 0 {
			entries = append(entries, SkipEntry{FirstKey: key, ByteOffset: int64(len(buf))})
		}

		var err error
		buf, err = rec.Encode(buf)
		if err != nil {
			return Descriptor{}, errkind.New(errkind.Arg, op, err)
		}
	}

	desc := Descriptor{
		Offset:      w.postOff,
		Length:      int64(len(buf)),
		SkipOffset:  w.skipOff,
		SkipCount:   len(entries),
		RecordCount: len(records),
	}

	if len(buf) > 0 {
		if _, err := w.post.Write(buf); err != nil {
			return Descriptor{}, errkind.New(errkind.Io, op, err)
		}
	}
	w.postOff += int64(len(buf))
	w.totalRecords += uint64(len(records))

	skipBuf := encodeSkipTable(entries)
	if len(skipBuf) > 0 {
		if _, err := w.skip.Write(skipBuf); err != nil {
			return Descriptor{}, errkind.New(errkind.Io, op, err)
		}
	}
	w.skipOff += int64(len(skipBuf))

	return desc, nil
}

// Seal writes the footer (magic + total record count) that marks a clean
// close, then closes both files. A store without a valid footer is treated
// as corrupt on the next open in read mode (spec.md sec 4.4: "clean close
// or rebuild").
func (w *Writer) Seal() error {
	const op = "postingstore.Seal"
	var footer [16]byte
	copy(footer[0:8], Magic[:])
	binary.LittleEndian.PutUint64(footer[8:16], w.totalRecords)
	if _, err := w.post.Write(footer[:]); err != nil {
		return errkind.New(errkind.Io, op, err)
	}
	if err := w.post.Sync(); err != nil {
		return errkind.New(errkind.Io, op, err)
	}
	if err := w.skip.Sync(); err != nil {
		return errkind.New(errkind.Io, op, err)
	}
	if err := w.post.Close(); err != nil {
		return errkind.New(errkind.Io, op, err)
	}
	return w.skip.Close()
}

// Abandon closes the files without writing the sealing footer, leaving the
// store in its crash-consistent "requires reindex" state.
func (w *Writer) Abandon() {
	w.post.Close()
	w.skip.Close()
}
