package postingstore

import (
	"bytes"
	"encoding/binary"
	"io"
	"sort"

	"github.com/texmath/mathsearch/internal/errkind"
	"github.com/texmath/mathsearch/pkg/postingcodec"
)

// Source is the minimal random-access read surface a Reader needs. Both
// *os.File (disk-backed lists) and *bytes.Reader (lists promoted into the
// in-memory cache) satisfy it.
type Source interface {
	ReadAt(p []byte, off int64) (int, error)
}

// Reader advances through one fingerprint's posting list. It is created
// fresh per query and released at query end (spec.md sec 5); it holds no
// locks and performs blocking reads only when the backing Source is a disk
// file rather than a cached buffer.
type Reader struct {
	src    Source
	base   int64
	length int64
	skip   []SkipEntry

	pos       int64 // next unread byte offset, relative to base
	exhausted bool
}

// NewReader builds a reader over one posting list. skipBuf is the raw bytes
// of that list's skip table (as stored in path.skip).
func NewReader(src Source, desc Descriptor, skipBuf []byte) *Reader {
	return &Reader{
		src:    src,
		base:   desc.Offset,
		length: desc.Length,
		skip:   decodeSkipTable(skipBuf),
	}
}

// OpenCached returns a Reader over an already-loaded-to-memory copy of a
// posting list, used when the caching policy (spec.md sec 4.3) has promoted
// this fingerprint into the memory budget.
func OpenCached(data []byte, skipBuf []byte) *Reader {
	return &Reader{
		src:    bytes.NewReader(data),
		base:   0,
		length: int64(len(data)),
		skip:   decodeSkipTable(skipBuf),
	}
}

// segmentFor returns [start, end) relative byte bounds of the skip segment
// that could contain target, given the iterator is already past floor.
func (r *Reader) segmentFor(target uint64, floor int64) (start, end int64) {
	// Largest skip index whose FirstKey <= target.
	idx := sort.Search(len(r.skip), func(i int) bool { return r.skip[i].FirstKey > target }) - 1
	if idx < 0 {
		start = 0
	} else {
		start = r.skip[idx].ByteOffset
	}
	if start < floor {
		start = floor
	}
	end = r.length
	if idx+1 < len(r.skip) {
		end = r.skip[idx+1].ByteOffset
	}
	return start, end
}

// AdvanceTo returns the first record with key >= target, advancing past any
// records skipped over. ok is false once the list is exhausted.
func (r *Reader) AdvanceTo(target uint64) (rec postingcodec.Record, ok bool, err error) {
	const op = "postingstore.Reader.AdvanceTo"
	if r.exhausted {
		return postingcodec.Record{}, false, nil
	}

	pos := r.pos
	for pos < r.length {
		start, end := r.segmentFor(target, pos)
		if start < pos {
			start = pos
		}
		if end <= start {
			// target precedes everything remaining in this segment's
			// skip bounds but we're already past start; just scan from
			// pos to the full list end as a fallback.
			end = r.length
		}

		buf := make([]byte, end-start)
		n, rerr := r.src.ReadAt(buf, r.base+start)
		if rerr != nil && rerr != io.EOF {
			return postingcodec.Record{}, false, errkind.New(errkind.Io, op, rerr)
		}
		buf = buf[:n]

		off := 0
		for off < len(buf) {
			decoded, used, derr := postingcodec.Decode(buf[off:])
			if derr != nil {
				return postingcodec.Record{}, false, errkind.New(errkind.Corrupt, op, derr)
			}
			if decoded.Key() >= target {
				r.pos = start + int64(off) + int64(used)
				return decoded, true, nil
			}
			off += used
		}

		pos = end
	}

	r.pos = r.length
	r.exhausted = true
	return postingcodec.Record{}, false, nil
}

// Next returns the record immediately after the one last returned by
// AdvanceTo/Next, or ok=false once exhausted.
func (r *Reader) Next() (rec postingcodec.Record, ok bool, err error) {
	if r.exhausted || r.pos >= r.length {
		r.exhausted = true
		return postingcodec.Record{}, false, nil
	}
	return r.AdvanceTo(0)
}

// Cur peeks the key of the next unread record without consuming it, or
// ^uint64(0) (the merger's sentinel for "exhausted") if none remains.
func (r *Reader) Cur() (uint64, error) {
	if r.exhausted {
		return ^uint64(0), nil
	}
	save := r.pos
	rec, ok, err := r.AdvanceTo(0)
	if err != nil {
		return 0, err
	}
	if !ok {
		return ^uint64(0), nil
	}
	key := rec.Key()
	r.pos = save // peeking must not consume
	r.exhausted = false
	return key, nil
}

// VerifyFooter checks path.post's trailing magic and record count against
// wantRecords, the total of the record counts in path.dict's entries. A
// mismatch means the store was not closed cleanly (spec.md sec 4.4).
func VerifyFooter(postPath string, wantRecords uint64) error {
	const op = "postingstore.VerifyFooter"
	f, err := openFile(postPath)
	if err != nil {
		return errkind.New(errkind.Io, op, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return errkind.New(errkind.Io, op, err)
	}
	if info.Size() < 16 {
		return errkind.New(errkind.Corrupt, op, errShortFile)
	}

	var footer [16]byte
	if _, err := f.ReadAt(footer[:], info.Size()-16); err != nil {
		return errkind.New(errkind.Io, op, err)
	}
	if !bytes.Equal(footer[0:8], Magic[:]) {
		return errkind.New(errkind.Corrupt, op, errBadMagic)
	}
	gotRecords := binary.LittleEndian.Uint64(footer[8:16])
	if gotRecords != wantRecords {
		return errkind.New(errkind.Corrupt, op, errRecordCountMismatch)
	}
	return nil
}
