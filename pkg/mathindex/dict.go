// Package mathindex implements the math inverted index (C4, spec.md sec
// 4.4): the fingerprint -> posting-descriptor dictionary, aggregate
// statistics, the on-disk directory layout of spec.md sec 6, and the
// budget-bound posting-list cache of spec.md sec 4.3.
package mathindex

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/texmath/mathsearch/internal/errkind"
	"github.com/texmath/mathsearch/pkg/fingerprint"
	"github.com/texmath/mathsearch/pkg/postingstore"
)

// DictEntry is one dictionary row: a fingerprint and where its posting list
// lives, plus the precomputed per-query-element upper bound the merger
// needs (spec.md sec 6: "path.dict: fingerprint -> (offset, length,
// u_max)"). u_max is written once by the indexer from the reference
// element-weight function (pkg/scorer.ElementWeight) evaluated against the
// element that produced this fingerprint; ties from hash collisions keep
// the largest weight seen.
type DictEntry struct {
	Fingerprint fingerprint.Fingerprint
	Desc        postingstore.Descriptor
	UMax        float32
}

const dictEntrySize = 8 + 8 + 8 + 8 + 4 + 4 + 4 // fp, off, len, skipOff, skipCount, recCount, uMax

func encodeDictEntry(e DictEntry) []byte {
	buf := make([]byte, dictEntrySize)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(e.Fingerprint))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(e.Desc.Offset))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(e.Desc.Length))
	binary.LittleEndian.PutUint64(buf[24:32], uint64(e.Desc.SkipOffset))
	binary.LittleEndian.PutUint32(buf[32:36], uint32(e.Desc.SkipCount))
	binary.LittleEndian.PutUint32(buf[36:40], uint32(e.Desc.RecordCount))
	binary.LittleEndian.PutUint32(buf[40:44], uint32FromFloat32(e.UMax))
	return buf
}

func decodeDictEntry(buf []byte) DictEntry {
	return DictEntry{
		Fingerprint: fingerprint.Fingerprint(binary.LittleEndian.Uint64(buf[0:8])),
		Desc: postingstore.Descriptor{
			Offset:      int64(binary.LittleEndian.Uint64(buf[8:16])),
			Length:      int64(binary.LittleEndian.Uint64(buf[16:24])),
			SkipOffset:  int64(binary.LittleEndian.Uint64(buf[24:32])),
			SkipCount:   int(binary.LittleEndian.Uint32(buf[32:36])),
			RecordCount: int(binary.LittleEndian.Uint32(buf[36:40])),
		},
		UMax: float32FromUint32(binary.LittleEndian.Uint32(buf[40:44])),
	}
}

func writeDict(path string, entries []DictEntry) error {
	const op = "mathindex.writeDict"
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return errkind.New(errkind.Io, op, err)
	}
	defer f.Close()

	buf := make([]byte, 0, len(entries)*dictEntrySize)
	for _, e := range entries {
		buf = append(buf, encodeDictEntry(e)...)
	}
	if _, err := f.Write(buf); err != nil {
		return errkind.New(errkind.Io, op, err)
	}
	return nil
}

func readDict(path string) ([]DictEntry, error) {
	const op = "mathindex.readDict"
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errkind.New(errkind.Io, op, err)
	}
	if len(data)%dictEntrySize != 0 {
		return nil, errkind.New(errkind.Corrupt, op, fmt.Errorf("dict size %d not a multiple of entry size %d", len(data), dictEntrySize))
	}
	n := len(data) / dictEntrySize
	out := make([]DictEntry, n)
	for i := 0; i < n; i++ {
		out[i] = decodeDictEntry(data[i*dictEntrySize : (i+1)*dictEntrySize])
	}
	return out, nil
}

// Stats are the aggregate counters of spec.md sec 4.4 / sec 6.
type Stats struct {
	NTex      uint64 // total expressions indexed
	N         uint64 // total sector-tree occurrences
	AvgDocLen uint32
}

func writeStats(path string, s Stats) error {
	const op = "mathindex.writeStats"
	var buf [20]byte
	binary.LittleEndian.PutUint64(buf[0:8], s.NTex)
	binary.LittleEndian.PutUint64(buf[8:16], s.N)
	binary.LittleEndian.PutUint32(buf[16:20], s.AvgDocLen)
	if err := os.WriteFile(path, buf[:], 0o644); err != nil {
		return errkind.New(errkind.Io, op, err)
	}
	return nil
}

func readStats(path string) (Stats, error) {
	const op = "mathindex.readStats"
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Stats{}, nil
		}
		return Stats{}, errkind.New(errkind.Io, op, err)
	}
	if len(data) != 20 {
		return Stats{}, errkind.New(errkind.Corrupt, op, io.ErrUnexpectedEOF)
	}
	return Stats{
		NTex:      binary.LittleEndian.Uint64(data[0:8]),
		N:         binary.LittleEndian.Uint64(data[8:16]),
		AvgDocLen: binary.LittleEndian.Uint32(data[16:20]),
	}, nil
}
