package artifact

import "fmt"

// Header field layout. Every region is declared as an absolute offset plus a
// length or count; all pairs must resolve strictly inside the buffer.
//
// .     | magic | version | flags | staticMethods | rsvd |
// bytes | 0:4   | 4:6     | 6:8   | 8:12          | 12:16|
//
// .     | indexOff | indexCount | rsvd  | nodesOff | nodeCount |
// bytes | 16:24    | 24:28      | 28:32 | 32:40    | 40:48     |
//
// .     | childListsOff | childListsLen | stringsOff | stringsLen |
// bytes | 48:56         | 56:64         | 64:72      | 72:80      |
//
// .     | metaOff | metaLen | prefilterOff | prefilterLen | rootOff |
// bytes | 80:88   | 88:96   | 96:104       | 104:112      | 112:120 |
const (
	headerMagicFirstByte         = 0
	headerVersionFirstByte       = 4
	headerFlagsFirstByte         = 6
	headerStaticMethodsFirstByte = 8
	headerIndexOffFirstByte      = 16
	headerIndexCountFirstByte    = 24
	headerNodesOffFirstByte      = 32
	headerNodeCountFirstByte     = 40
	headerChildListsOffFirstByte = 48
	headerChildListsLenFirstByte = 56
	headerStringsOffFirstByte    = 64
	headerStringsLenFirstByte    = 72
	headerMetaOffFirstByte       = 80
	headerMetaLenFirstByte       = 88
	headerPrefilterOffFirstByte  = 96
	headerPrefilterLenFirstByte  = 104
	headerRootOffFirstByte       = 112
)

// Header is the decoded form of the artifact's fixed header record.
type Header struct {
	Version       uint16
	Flags         uint16
	StaticMethods uint32

	IndexOff   uint64
	IndexCount uint32

	NodesOff  uint64
	NodeCount uint64

	ChildListsOff uint64
	ChildListsLen uint64

	StringsOff uint64
	StringsLen uint64

	MetaOff uint64
	MetaLen uint64

	PrefilterOff uint64
	PrefilterLen uint64

	RootOff uint64
}

// HasPrefilter reports whether the artifact declares a prefilter region.
func (h Header) HasPrefilter() bool {
	return h.Flags&FlagPrefilter != 0
}

// EncodeHeader writes h into the first HeaderBytes of dst.
func EncodeHeader(dst []byte, h Header) error {
	if len(dst) < HeaderBytes {
		return ErrTruncatedBuffer
	}
	copy(dst[headerMagicFirstByte:], Magic)
	writeU16BE(dst[headerVersionFirstByte:], h.Version)
	writeU16BE(dst[headerFlagsFirstByte:], h.Flags)
	writeU32BE(dst[headerStaticMethodsFirstByte:], h.StaticMethods)
	writeU32BE(dst[12:], 0)
	writeU64BE(dst[headerIndexOffFirstByte:], h.IndexOff)
	writeU32BE(dst[headerIndexCountFirstByte:], h.IndexCount)
	writeU32BE(dst[28:], 0)
	writeU64BE(dst[headerNodesOffFirstByte:], h.NodesOff)
	writeU64BE(dst[headerNodeCountFirstByte:], h.NodeCount)
	writeU64BE(dst[headerChildListsOffFirstByte:], h.ChildListsOff)
	writeU64BE(dst[headerChildListsLenFirstByte:], h.ChildListsLen)
	writeU64BE(dst[headerStringsOffFirstByte:], h.StringsOff)
	writeU64BE(dst[headerStringsLenFirstByte:], h.StringsLen)
	writeU64BE(dst[headerMetaOffFirstByte:], h.MetaOff)
	writeU64BE(dst[headerMetaLenFirstByte:], h.MetaLen)
	writeU64BE(dst[headerPrefilterOffFirstByte:], h.PrefilterOff)
	writeU64BE(dst[headerPrefilterLenFirstByte:], h.PrefilterLen)
	writeU64BE(dst[headerRootOffFirstByte:], h.RootOff)
	return nil
}

// DecodeHeader parses and structurally checks the artifact header. It
// verifies the magic and version and that every declared region resolves
// inside data. It does not walk records; see the loader for that.
func DecodeHeader(data []byte) (Header, error) {
	if len(data) < HeaderBytes {
		return Header{}, fmt.Errorf("%w: %d bytes, need %d for the header",
			ErrTruncatedBuffer, len(data), HeaderBytes)
	}
	if string(data[headerMagicFirstByte:headerMagicFirstByte+4]) != Magic {
		return Header{}, ErrBadMagic
	}

	h := Header{
		Version:       readU16BE(data[headerVersionFirstByte:]),
		Flags:         readU16BE(data[headerFlagsFirstByte:]),
		StaticMethods: readU32BE(data[headerStaticMethodsFirstByte:]),
		IndexOff:      readU64BE(data[headerIndexOffFirstByte:]),
		IndexCount:    readU32BE(data[headerIndexCountFirstByte:]),
		NodesOff:      readU64BE(data[headerNodesOffFirstByte:]),
		NodeCount:     readU64BE(data[headerNodeCountFirstByte:]),
		ChildListsOff: readU64BE(data[headerChildListsOffFirstByte:]),
		ChildListsLen: readU64BE(data[headerChildListsLenFirstByte:]),
		StringsOff:    readU64BE(data[headerStringsOffFirstByte:]),
		StringsLen:    readU64BE(data[headerStringsLenFirstByte:]),
		MetaOff:       readU64BE(data[headerMetaOffFirstByte:]),
		MetaLen:       readU64BE(data[headerMetaLenFirstByte:]),
		PrefilterOff:  readU64BE(data[headerPrefilterOffFirstByte:]),
		PrefilterLen:  readU64BE(data[headerPrefilterLenFirstByte:]),
		RootOff:       readU64BE(data[headerRootOffFirstByte:]),
	}
	if h.Version != CurrentVersion {
		return Header{}, fmt.Errorf("%w: artifact version %d, reader supports %d",
			ErrVersionMismatch, h.Version, CurrentVersion)
	}

	if _, err := Slice(data, h.IndexOff, uint64(h.IndexCount)*IndexEntryBytes); err != nil {
		return Header{}, fmt.Errorf("%w: index region", err)
	}
	if _, err := Slice(data, h.NodesOff, h.NodeCount*NodeRecordBytes); err != nil {
		return Header{}, fmt.Errorf("%w: node region", err)
	}
	if _, err := Slice(data, h.ChildListsOff, h.ChildListsLen); err != nil {
		return Header{}, fmt.Errorf("%w: child list region", err)
	}
	if _, err := Slice(data, h.StringsOff, h.StringsLen); err != nil {
		return Header{}, fmt.Errorf("%w: string pool", err)
	}
	if _, err := Slice(data, h.MetaOff, h.MetaLen); err != nil {
		return Header{}, fmt.Errorf("%w: handler metadata pool", err)
	}
	if h.HasPrefilter() {
		if _, err := Slice(data, h.PrefilterOff, h.PrefilterLen); err != nil {
			return Header{}, fmt.Errorf("%w: prefilter region", err)
		}
	}
	if err := h.CheckNodeOffset(h.RootOff); err != nil {
		return Header{}, fmt.Errorf("%w: root node", err)
	}
	return h, nil
}

// CheckNodeOffset verifies off addresses a record inside the node region and
// is record aligned.
func (h Header) CheckNodeOffset(off uint64) error {
	if off < h.NodesOff || off >= h.NodesOff+h.NodeCount*NodeRecordBytes {
		return ErrCorruptOffset
	}
	if (off-h.NodesOff)%NodeRecordBytes != 0 {
		return ErrNodeUnaligned
	}
	return nil
}
