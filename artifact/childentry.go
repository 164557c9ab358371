package artifact

// Child list layout: a ChildListHeaderBytes prefix holding the entry count
// (cross-checked against the owning node record) followed by fixed width
// entries:
//
// .     | kind | rsvd | labelOff | labelLen | nodeOff | rsvd  |
// bytes | 0    | 1:4  | 4:12     | 12:16    | 16:24   | 24:32 |
//
// Literal entries come first, strictly ordered by label bytes; at most one
// parameter entry, always last. The label of a literal entry is the first
// segment of the child's prefix; the label of a parameter entry is the
// parameter name.

// ChildEntry is the decoded form of a child list entry.
type ChildEntry struct {
	Kind     ChildKind
	LabelOff uint64
	LabelLen uint32
	NodeOff  uint64
}

// DecodeChildEntry parses one entry slice.
func DecodeChildEntry(rec []byte) ChildEntry {
	return ChildEntry{
		Kind:     ChildKind(rec[0]),
		LabelOff: readU64BE(rec[4:12]),
		LabelLen: readU32BE(rec[12:16]),
		NodeOff:  readU64BE(rec[16:24]),
	}
}

// EncodeChildEntry writes e into rec.
func EncodeChildEntry(rec []byte, e ChildEntry) {
	rec[0] = byte(e.Kind)
	rec[1], rec[2], rec[3] = 0, 0, 0
	writeU64BE(rec[4:12], e.LabelOff)
	writeU32BE(rec[12:16], e.LabelLen)
	writeU64BE(rec[16:24], e.NodeOff)
	writeU64BE(rec[24:32], 0)
}

// EncodeChildListHeader writes the count prefix of a child list.
func EncodeChildListHeader(dst []byte, count uint32) {
	writeU32BE(dst[0:4], count)
	writeU32BE(dst[4:8], 0)
}

// ChildListCount reads the count prefix of a child list slice.
func ChildListCount(list []byte) uint32 { return readU32BE(list[0:4]) }

// ChildListBytes returns the total byte width of a child list with count
// entries, including the count prefix.
func ChildListBytes(count uint64) uint64 {
	return ChildListHeaderBytes + count*ChildEntryBytes
}

// ChildEntryAt returns the i'th entry slice of a resolved child list. The
// caller has already bounds checked the list against its count prefix.
func ChildEntryAt(list []byte, i uint32) []byte {
	off := ChildListHeaderBytes + uint64(i)*ChildEntryBytes
	return list[off : off+ChildEntryBytes]
}
