package mathindex

import (
	"errors"
	"os"
	"path/filepath"
	"sort"

	"github.com/texmath/mathsearch/internal/errkind"
	"github.com/texmath/mathsearch/pkg/fingerprint"
	"github.com/texmath/mathsearch/pkg/postingcodec"
	"github.com/texmath/mathsearch/pkg/postingstore"
	"github.com/texmath/mathsearch/pkg/subpath"
)

const (
	dirName   = "math"
	dictFile  = "path.dict"
	postFile  = "path.post"
	skipFile  = "path.skip"
	symFile   = "path.sym"
	statsFile = "stats"
	lockFile  = ".lock"

	skipEntrySize = 16
)

var errAlreadyLocked = errors.New("math index directory already locked for writing")

// Index is the math inverted index: the fingerprint dictionary, the
// posting store, and the aggregate stats of spec.md sec 4.4, opened either
// for a single indexing run (write mode) or for serving queries (read
// mode, any number of concurrent readers).
type Index struct {
	dir     string
	writing bool

	lock *os.File

	// write-mode state
	writer  *postingstore.Writer
	pending map[fingerprint.Fingerprint][]postingcodec.Record
	umax    map[fingerprint.Fingerprint]float32
	Stats   Stats

	// read-mode state
	post      *os.File
	skip      *os.File
	entries   map[fingerprint.Fingerprint]DictEntry
	skipBytes map[fingerprint.Fingerprint][]byte
	cache     map[fingerprint.Fingerprint][]byte
}

// OpenWrite starts a fresh build under dir/math, acquiring the directory's
// exclusive write lock (spec.md sec 5: "one writer at a time"). Online
// re-indexing of an existing store is a declared Non-goal, so OpenWrite
// always starts from empty post/skip files; a prior store's files are
// truncated.
func OpenWrite(dir string) (*Index, error) {
	const op = "mathindex.OpenWrite"
	mdir := filepath.Join(dir, dirName)
	if err := os.MkdirAll(mdir, 0o755); err != nil {
		return nil, errkind.New(errkind.Io, op, err)
	}

	lock, err := acquireLock(filepath.Join(mdir, lockFile))
	if err != nil {
		return nil, err
	}

	w, err := postingstore.NewWriter(filepath.Join(mdir, postFile), filepath.Join(mdir, skipFile), postingstore.DefaultSkipSpan)
	if err != nil {
		lock.Close()
		os.Remove(filepath.Join(mdir, lockFile))
		return nil, err
	}

	return &Index{
		dir:     dir,
		writing: true,
		lock:    lock,
		writer:  w,
		pending: make(map[fingerprint.Fingerprint][]postingcodec.Record),
		umax:    make(map[fingerprint.Fingerprint]float32),
	}, nil
}

func acquireLock(path string) (*os.File, error) {
	const op = "mathindex.acquireLock"
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, errkind.New(errkind.Arg, op, errAlreadyLocked)
		}
		return nil, errkind.New(errkind.Io, op, err)
	}
	return f, nil
}

// AppendElement records one element occurrence (one sector-tree bundle of
// an indexed expression) under its fingerprint. weight is the element's
// reference-scorer weight, which becomes (or raises) that fingerprint's
// u_max upper bound. Callers must present elements for a given docID in
// non-decreasing (docID, exp_id) order across the whole build, matching
// the posting store's append-only ordering invariant (spec.md sec 5).
func (ix *Index) AppendElement(docID, expID uint32, el *subpath.Element, weight float32) {
	fp := el.Fingerprint()
	ix.pending[fp] = append(ix.pending[fp], recordFromElement(docID, expID, el))
	if weight > ix.umax[fp] {
		ix.umax[fp] = weight
	}
	ix.Stats.N += uint64(len(el.SectorTrees))
}

// Close flushes every pending fingerprint's posting list, writes the
// dictionary and stats files, and seals the posting store. It is only
// valid in write mode; the lock is released whether or not it returns an
// error, since a failed build must not wedge the index for future runs.
func (ix *Index) Close() error {
	if !ix.writing {
		return ix.closeRead()
	}
	defer func() {
		ix.lock.Close()
		os.Remove(filepath.Join(ix.dir, dirName, lockFile))
	}()

	fps := make([]fingerprint.Fingerprint, 0, len(ix.pending))
	for fp := range ix.pending {
		fps = append(fps, fp)
	}
	sort.Slice(fps, func(i, j int) bool { return fps[i] < fps[j] })

	entries := make([]DictEntry, 0, len(fps))
	for _, fp := range fps {
		desc, err := ix.writer.AppendList(ix.pending[fp])
		if err != nil {
			ix.writer.Abandon()
			return err
		}
		entries = append(entries, DictEntry{Fingerprint: fp, Desc: desc, UMax: ix.umax[fp]})
	}

	if err := ix.writer.Seal(); err != nil {
		return err
	}

	mdir := filepath.Join(ix.dir, dirName)
	if err := writeDict(filepath.Join(mdir, dictFile), entries); err != nil {
		return err
	}
	if ix.Stats.NTex > 0 {
		ix.Stats.AvgDocLen = uint32(ix.Stats.N / ix.Stats.NTex)
	}
	return writeStats(filepath.Join(mdir, statsFile), ix.Stats)
}

// OpenRead opens an existing, sealed index for querying. cacheBudget bytes
// of posting-list record data are greedily preloaded, highest record-count
// lists first (spec.md sec 4.3); every list's (small) skip table is always
// preloaded regardless of budget.
func OpenRead(dir string, cacheBudget int64) (*Index, error) {
	const op = "mathindex.OpenRead"
	mdir := filepath.Join(dir, dirName)

	entries, err := readDict(filepath.Join(mdir, dictFile))
	if err != nil {
		return nil, err
	}
	stats, err := readStats(filepath.Join(mdir, statsFile))
	if err != nil {
		return nil, err
	}

	var total uint64
	for _, e := range entries {
		total += uint64(e.Desc.RecordCount)
	}
	if err := postingstore.VerifyFooter(filepath.Join(mdir, postFile), total); err != nil {
		return nil, err
	}

	post, err := os.Open(filepath.Join(mdir, postFile))
	if err != nil {
		return nil, errkind.New(errkind.Io, op, err)
	}
	skip, err := os.Open(filepath.Join(mdir, skipFile))
	if err != nil {
		post.Close()
		return nil, errkind.New(errkind.Io, op, err)
	}

	ix := &Index{
		dir:       dir,
		post:      post,
		skip:      skip,
		entries:   make(map[fingerprint.Fingerprint]DictEntry, len(entries)),
		skipBytes: make(map[fingerprint.Fingerprint][]byte, len(entries)),
		cache:     make(map[fingerprint.Fingerprint][]byte),
		Stats:     stats,
	}
	for _, e := range entries {
		ix.entries[e.Fingerprint] = e
		buf := make([]byte, e.Desc.SkipCount*skipEntrySize)
		if len(buf) > 0 {
			if _, err := skip.ReadAt(buf, e.Desc.SkipOffset); err != nil {
				post.Close()
				skip.Close()
				return nil, errkind.New(errkind.Io, op, err)
			}
		}
		ix.skipBytes[e.Fingerprint] = buf
	}

	byFreq := make([]DictEntry, len(entries))
	copy(byFreq, entries)
	sort.Slice(byFreq, func(i, j int) bool { return byFreq[i].Desc.RecordCount > byFreq[j].Desc.RecordCount })

	var spent int64
	for _, e := range byFreq {
		if spent+e.Desc.Length > cacheBudget {
			continue
		}
		buf := make([]byte, e.Desc.Length)
		if len(buf) > 0 {
			if _, err := post.ReadAt(buf, e.Desc.Offset); err != nil {
				post.Close()
				skip.Close()
				return nil, errkind.New(errkind.Io, op, err)
			}
		}
		ix.cache[e.Fingerprint] = buf
		spent += e.Desc.Length
	}

	return ix, nil
}

func (ix *Index) closeRead() error {
	const op = "mathindex.Index.Close"
	err1 := ix.post.Close()
	err2 := ix.skip.Close()
	if err1 != nil {
		return errkind.New(errkind.Io, op, err1)
	}
	if err2 != nil {
		return errkind.New(errkind.Io, op, err2)
	}
	return nil
}

// Lookup returns a Reader over fp's posting list. found is false when fp is
// absent from the dictionary, which the caller treats as an empty iterator
// rather than an error (spec.md sec 4.4: KeyNotFound is not a query
// failure).
func (ix *Index) Lookup(fp fingerprint.Fingerprint) (reader *postingstore.Reader, found bool) {
	e, ok := ix.entries[fp]
	if !ok {
		return nil, false
	}
	if cached, ok := ix.cache[fp]; ok {
		return postingstore.OpenCached(cached, ix.skipBytes[fp]), true
	}
	return postingstore.NewReader(ix.post, e.Desc, ix.skipBytes[fp]), true
}

// UMax returns fp's precomputed per-element upper bound, used by the
// merger's MaxScore partitioning (spec.md sec 4.5).
func (ix *Index) UMax(fp fingerprint.Fingerprint) (float32, bool) {
	e, ok := ix.entries[fp]
	return e.UMax, ok
}
