package artifact

// Node record layout (NodeRecordBytes wide, fixed):
//
// .     | prefixOff | prefixLen | flags | rsvd  | childListOff | metaOff | metaLen | childCount |
// bytes | 0:8       | 8:12      | 12:14 | 14:16 | 16:24        | 24:32   | 32:36   | 36:40      |
//
// childCount is 32 bits wide: a single node can fan out to every literal
// route of a method, so a 16 bit count would cap table shape, not size.
//
// The accessors take the record slice, not the whole buffer: callers resolve
// the record through Slice first, so field reads themselves cannot fault.

// NodeRecord is the decoded form of a node record, for writers and the
// loader's validation walk. Traversal reads fields directly.
type NodeRecord struct {
	PrefixOff    uint64
	PrefixLen    uint32
	Flags        uint16
	ChildCount   uint32
	ChildListOff uint64
	MetaOff      uint64
	MetaLen      uint32
}

// HasHandler reports whether a handler is bound to this exact node. A zero
// metadata offset is the "no handler" sentinel; offset zero addresses the
// header and can never be valid metadata.
func (n NodeRecord) HasHandler() bool { return n.MetaOff != 0 }

// IsParam reports whether this is a parameter node. A parameter node's
// prefix is the parameter name.
func (n NodeRecord) IsParam() bool { return n.Flags&NodeFlagParam != 0 }

// DecodeNode parses a node record slice.
func DecodeNode(rec []byte) NodeRecord {
	return NodeRecord{
		PrefixOff:    readU64BE(rec[0:8]),
		PrefixLen:    readU32BE(rec[8:12]),
		Flags:        readU16BE(rec[12:14]),
		ChildListOff: readU64BE(rec[16:24]),
		MetaOff:      readU64BE(rec[24:32]),
		MetaLen:      readU32BE(rec[32:36]),
		ChildCount:   readU32BE(rec[36:40]),
	}
}

// EncodeNode writes n into rec.
func EncodeNode(rec []byte, n NodeRecord) {
	writeU64BE(rec[0:8], n.PrefixOff)
	writeU32BE(rec[8:12], n.PrefixLen)
	writeU16BE(rec[12:14], n.Flags)
	writeU16BE(rec[14:16], 0)
	writeU64BE(rec[16:24], n.ChildListOff)
	writeU64BE(rec[24:32], n.MetaOff)
	writeU32BE(rec[32:36], n.MetaLen)
	writeU32BE(rec[36:40], n.ChildCount)
}

// Field accessors used on the traversal hot path; rec must be a
// NodeRecordBytes slice obtained through Slice.

func NodePrefixOff(rec []byte) uint64    { return readU64BE(rec[0:8]) }
func NodePrefixLen(rec []byte) uint32    { return readU32BE(rec[8:12]) }
func NodeFlags(rec []byte) uint16        { return readU16BE(rec[12:14]) }
func NodeChildCount(rec []byte) uint32   { return readU32BE(rec[36:40]) }
func NodeChildListOff(rec []byte) uint64 { return readU64BE(rec[16:24]) }
func NodeMetaOff(rec []byte) uint64      { return readU64BE(rec[24:32]) }
func NodeMetaLen(rec []byte) uint32      { return readU32BE(rec[32:36]) }
