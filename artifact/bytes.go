package artifact

import "encoding/binary"

func readU16BE(b []byte) uint16 { return binary.BigEndian.Uint16(b) }
func readU32BE(b []byte) uint32 { return binary.BigEndian.Uint32(b) }
func readU64BE(b []byte) uint64 { return binary.BigEndian.Uint64(b) }

func writeU16BE(dst []byte, v uint16) { binary.BigEndian.PutUint16(dst, v) }
func writeU32BE(dst []byte, v uint32) { binary.BigEndian.PutUint32(dst, v) }
func writeU64BE(dst []byte, v uint64) { binary.BigEndian.PutUint64(dst, v) }

// Slice is the audited accessor: it resolves an (offset, length) pair read
// from inside the buffer to a byte range, or fails with ErrCorruptOffset.
// All traversal-time reads route through here so a corrupted cross-reference
// can never index outside data.
func Slice(data []byte, off uint64, length uint64) ([]byte, error) {
	end := off + length
	if end < off || end > uint64(len(data)) {
		return nil, ErrCorruptOffset
	}
	return data[off:end], nil
}
