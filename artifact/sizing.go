package artifact

// IndexRegionBytes returns the byte width of the index region for count
// entries.
func IndexRegionBytes(count uint32) uint64 {
	return uint64(count) * IndexEntryBytes
}

// NodeRegionBytes returns the byte width of the node region for count nodes.
func NodeRegionBytes(count uint64) uint64 {
	return count * NodeRecordBytes
}

// NodeOffset returns the absolute offset of the i'th node record given the
// node region offset.
func NodeOffset(nodesOff uint64, i uint64) uint64 {
	return nodesOff + i*NodeRecordBytes
}

// NodeOrdinal returns the record ordinal for an absolute node offset. The
// caller has already established alignment via Header.CheckNodeOffset.
func NodeOrdinal(nodesOff uint64, off uint64) uint64 {
	return (off - nodesOff) / NodeRecordBytes
}
