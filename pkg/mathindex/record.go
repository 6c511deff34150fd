package mathindex

import (
	"github.com/texmath/mathsearch/pkg/postingcodec"
	"github.com/texmath/mathsearch/pkg/subpath"
)

// recordFromElement converts one indexed element into its posting-record
// wire form (spec.md sec 3 "Posting entry", sec 4.3). root_id and
// symbol_id are narrowed to 16 bits, matching the exact byte layout of
// spec.md sec 4.3 -- expressions with more than 65535 distinct node ids
// would collide here, which in practice never happens for a parsed
// mathematical expression.
func recordFromElement(docID, expID uint32, el *subpath.Element) postingcodec.Record {
	sectors := make([]postingcodec.Sector, len(el.SectorTrees))
	for i, st := range el.SectorTrees {
		splits := make([]postingcodec.Split, len(st.Splits))
		for j, sp := range st.Splits {
			splits[j] = postingcodec.Split{
				SymbolID:      uint16(sp.LeafSymbol),
				SplitWeight:   sp.SplitWeight,
				LeavesBitmask: sp.LeavesBitmask,
			}
		}
		sectors[i] = postingcodec.Sector{
			RootID: uint16(st.RootID),
			Width:  st.Width,
			OpHash: uint16(st.OpHash),
			Splits: splits,
		}
	}
	return postingcodec.Record{DocID: docID, ExpID: expID, Sectors: sectors}
}
