package artifact

import "errors"

const (
	// Magic identifies a route table artifact. It occupies the first four
	// bytes of the header.
	Magic = "RTB1"

	// CurrentVersion is the only format version this reader supports. The
	// loader requires an exact match.
	CurrentVersion = uint16(1)

	// HeaderBytes is the fixed header size.
	HeaderBytes = 120

	// NodeRecordBytes is the fixed byte width of a node record.
	// See `noderecord.go` for the field layout.
	NodeRecordBytes = 40

	// ChildEntryBytes is the fixed byte width of a child list entry.
	ChildEntryBytes = 32

	// ChildListHeaderBytes prefixes every child list: a uint32 entry count
	// (cross-checked against the owning node's childCount) and 4 reserved
	// bytes keeping entries 8-aligned.
	ChildListHeaderBytes = 8

	// IndexEntryBytes is the fixed byte width of a method/first-segment
	// index entry.
	IndexEntryBytes = 32
)

// Header flag bits.
const (
	// FlagPrefilter indicates the artifact carries a prefilter region.
	FlagPrefilter = uint16(1 << 0)
)

// Node flag bits.
const (
	// NodeFlagHandler is set iff the node's metaOff is non-zero.
	NodeFlagHandler = uint16(1 << 0)
	// NodeFlagParam marks a parameter node; its prefix is the parameter name.
	NodeFlagParam = uint16(1 << 1)
)

type ChildKind uint8

const (
	KindLiteral ChildKind = 1
	KindParam   ChildKind = 2
)

var (
	ErrBadMagic        = errors.New("artifact: header magic invalid")
	ErrVersionMismatch = errors.New("artifact: unsupported format version")
	ErrTruncatedBuffer = errors.New("artifact: buffer too short for declared contents")
	ErrCorruptOffset   = errors.New("artifact: offset or length resolves outside the buffer")

	ErrDeadNode           = errors.New("artifact: node has no children and no handler")
	ErrHandlerFlag        = errors.New("artifact: handler flag inconsistent with metadata offset")
	ErrChildCountMismatch = errors.New("artifact: child list count does not match node record")
	ErrChildOrder         = errors.New("artifact: literal child labels not strictly ordered")
	ErrDuplicateParam     = errors.New("artifact: more than one parameter child at a node")
	ErrParamNotLast       = errors.New("artifact: parameter child not last in child list")
	ErrBadChildKind       = errors.New("artifact: invalid child entry kind")
	ErrBadNodeFlags       = errors.New("artifact: undefined node flag bits set")
	ErrIndexOrder         = errors.New("artifact: index entries not strictly ordered")
	ErrNodeUnaligned      = errors.New("artifact: node offset not record aligned")
	ErrUnknownMethod      = errors.New("artifact: unknown method code")
)
