// Package postingcodec implements the exact on-disk byte layout of a
// posting record (spec.md sec 4.3, sec 6): fixed header, a variable number
// of sector-tree descriptors, and a variable number of symbol-split
// descriptors per sector. All multi-byte integers are little-endian,
// written explicitly with encoding/binary rather than relying on native
// struct packing (spec.md sec 9: "packed, endian-specific on-disk structs
// are contractual").
package postingcodec

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/texmath/mathsearch/internal/errkind"
)

// FlagHasSymbolInfo marks that this record has an associated blob in the
// symbol-info side stream (path.sym), consulted only for debug/highlight.
const FlagHasSymbolInfo uint8 = 1 << 0

// Split is one symbol-split descriptor within a sector tree.
type Split struct {
	SymbolID      uint16
	SplitWeight   uint16
	LeavesBitmask uint64
}

// Sector is one sector-tree descriptor within a posting record.
type Sector struct {
	RootID uint16
	Width  uint16
	OpHash uint16
	Splits []Split
}

// Record is one posting entry: for a (fingerprint, docID, exp_id), the
// element's sector-tree and symbol-split descriptors.
type Record struct {
	DocID   uint32
	ExpID   uint32
	Flags   uint8
	Sectors []Sector
}

// Key packs (docID, exp_id) into the 64-bit total order the posting store
// and merger operate on: high 32 bits docID, low 32 bits exp_id.
func (r Record) Key() uint64 {
	return PackKey(r.DocID, r.ExpID)
}

// PackKey packs a (docID, exp_id) pair into the posting store's sort key.
func PackKey(docID, expID uint32) uint64 {
	return uint64(docID)<<32 | uint64(expID)
}

// UnpackKey splits a posting-store sort key back into (docID, exp_id).
func UnpackKey(key uint64) (docID, expID uint32) {
	return uint32(key >> 32), uint32(key)
}

// maxSectorsOrSplits bounds n_sectors and each sector's split count, both
// encoded as a single byte.
const maxSectorsOrSplits = 255

// Encode appends r's wire encoding to buf and returns the result.
func (r Record) Encode(buf []byte) ([]byte, error) {
	if len(r.Sectors) > maxSectorsOrSplits {
		return nil, errkind.New(errkind.Arg, "postingcodec.Encode",
			fmt.Errorf("%d sectors exceeds byte-length limit %d", len(r.Sectors), maxSectorsOrSplits))
	}
	for _, s := range r.Sectors {
		if len(s.Splits) > maxSectorsOrSplits {
			return nil, errkind.New(errkind.Arg, "postingcodec.Encode",
				fmt.Errorf("%d splits exceeds byte-length limit %d", len(s.Splits), maxSectorsOrSplits))
		}
	}

	var hdr [10]byte
	binary.LittleEndian.PutUint32(hdr[0:4], r.DocID)
	binary.LittleEndian.PutUint32(hdr[4:8], r.ExpID)
	hdr[8] = r.Flags
	hdr[9] = byte(len(r.Sectors))
	buf = append(buf, hdr[:]...)

	for _, s := range r.Sectors {
		var sh [6]byte
		binary.LittleEndian.PutUint16(sh[0:2], s.RootID)
		binary.LittleEndian.PutUint16(sh[2:4], s.Width)
		binary.LittleEndian.PutUint16(sh[4:6], s.OpHash)
		buf = append(buf, sh[:]...)
	}

	for _, s := range r.Sectors {
		buf = append(buf, byte(len(s.Splits)))
	}

	for _, s := range r.Sectors {
		for _, sp := range s.Splits {
			var b [12]byte
			binary.LittleEndian.PutUint16(b[0:2], sp.SymbolID)
			binary.LittleEndian.PutUint16(b[2:4], sp.SplitWeight)
			binary.LittleEndian.PutUint64(b[4:12], sp.LeavesBitmask)
			buf = append(buf, b[:]...)
		}
	}

	return buf, nil
}

// Decode reads one record from the front of buf and returns the record, the
// number of bytes consumed, and any error.
func Decode(buf []byte) (Record, int, error) {
	const op = "postingcodec.Decode"
	if len(buf) < 10 {
		return Record{}, 0, errkind.New(errkind.Corrupt, op, io.ErrUnexpectedEOF)
	}

	r := Record{
		DocID: binary.LittleEndian.Uint32(buf[0:4]),
		ExpID: binary.LittleEndian.Uint32(buf[4:8]),
		Flags: buf[8],
	}
	nSectors := int(buf[9])
	off := 10

	type partial struct{ rootID, width, opHash uint16 }
	partials := make([]partial, nSectors)
	for i := 0; i < nSectors; i++ {
		if off+6 > len(buf) {
			return Record{}, 0, errkind.New(errkind.Corrupt, op, io.ErrUnexpectedEOF)
		}
		partials[i] = partial{
			rootID: binary.LittleEndian.Uint16(buf[off : off+2]),
			width:  binary.LittleEndian.Uint16(buf[off+2 : off+4]),
			opHash: binary.LittleEndian.Uint16(buf[off+4 : off+6]),
		}
		off += 6
	}

	if off+nSectors > len(buf) {
		return Record{}, 0, errkind.New(errkind.Corrupt, op, io.ErrUnexpectedEOF)
	}
	nSplits := make([]int, nSectors)
	for i := 0; i < nSectors; i++ {
		nSplits[i] = int(buf[off])
		off++
	}

	r.Sectors = make([]Sector, nSectors)
	for i := 0; i < nSectors; i++ {
		sector := Sector{RootID: partials[i].rootID, Width: partials[i].width, OpHash: partials[i].opHash}
		sector.Splits = make([]Split, nSplits[i])
		for j := 0; j < nSplits[i]; j++ {
			if off+12 > len(buf) {
				return Record{}, 0, errkind.New(errkind.Corrupt, op, io.ErrUnexpectedEOF)
			}
			sector.Splits[j] = Split{
				SymbolID:      binary.LittleEndian.Uint16(buf[off : off+2]),
				SplitWeight:   binary.LittleEndian.Uint16(buf[off+2 : off+4]),
				LeavesBitmask: binary.LittleEndian.Uint64(buf[off+4 : off+12]),
			}
			off += 12
		}
		r.Sectors[i] = sector
	}

	return r, off, nil
}
