package artifact

// Method/first-segment index entry layout:
//
// .     | method | rsvd | segOff | segLen | nodeOff | rsvd  |
// bytes | 0      | 1:4  | 4:12   | 12:16  | 16:24   | 24:32 |
//
// Entries are sorted by (method, segment bytes) so the lookup engine can
// binary search. The index is an optional accelerator: a miss only means
// traversal starts at the root node.

// IndexEntry is the decoded form of an index entry.
type IndexEntry struct {
	Method  Method
	SegOff  uint64
	SegLen  uint32
	NodeOff uint64
}

// DecodeIndexEntry parses one entry slice.
func DecodeIndexEntry(rec []byte) IndexEntry {
	return IndexEntry{
		Method:  Method(rec[0]),
		SegOff:  readU64BE(rec[4:12]),
		SegLen:  readU32BE(rec[12:16]),
		NodeOff: readU64BE(rec[16:24]),
	}
}

// EncodeIndexEntry writes e into rec.
func EncodeIndexEntry(rec []byte, e IndexEntry) {
	rec[0] = byte(e.Method)
	rec[1], rec[2], rec[3] = 0, 0, 0
	writeU64BE(rec[4:12], e.SegOff)
	writeU32BE(rec[12:16], e.SegLen)
	writeU64BE(rec[16:24], e.NodeOff)
	writeU64BE(rec[24:32], 0)
}

// IndexEntryAt returns the i'th entry slice of the resolved index region.
func IndexEntryAt(region []byte, i uint32) []byte {
	off := uint64(i) * IndexEntryBytes
	return region[off : off+IndexEntryBytes]
}
