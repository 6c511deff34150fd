package postingstore

import "encoding/binary"

// SkipEntry names, at the start of one skip span, the first record's key
// and its byte offset relative to the start of the posting list (spec.md
// sec 4.3).
type SkipEntry struct {
	FirstKey   uint64
	ByteOffset int64
}

// DefaultSkipSpan is the default number of records between skip entries, a
// power of two as required by spec.md sec 4.3.
const DefaultSkipSpan = 128

func encodeSkipTable(entries []SkipEntry) []byte {
	buf := make([]byte, 0, len(entries)*16)
	var b [16]byte
	for _, e := range entries {
		binary.LittleEndian.PutUint64(b[0:8], e.FirstKey)
		binary.LittleEndian.PutUint64(b[8:16], uint64(e.ByteOffset))
		buf = append(buf, b[:]...)
	}
	return buf
}

func decodeSkipTable(buf []byte) []SkipEntry {
	n := len(buf) / 16
	out := make([]SkipEntry, n)
	for i := 0; i < n; i++ {
		off := i * 16
		out[i] = SkipEntry{
			FirstKey:   binary.LittleEndian.Uint64(buf[off : off+8]),
			ByteOffset: int64(binary.LittleEndian.Uint64(buf[off+8 : off+16])),
		}
	}
	return out
}
