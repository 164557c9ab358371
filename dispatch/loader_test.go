package dispatch

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/routewire/go-routetable/artifact"
	"github.com/routewire/go-routetable/compiler"
)

// corruptible compiles a small fixed manifest without a prefilter so the
// handler metadata pool is the final region and single-byte truncation is
// detectable from the header alone.
func corruptible(t *testing.T) []byte {
	t.Helper()
	data, err := compiler.Compile(compiler.Manifest{
		{Method: artifact.MethodGET, Pattern: "/alpha", Meta: []byte("a")},
		{Method: artifact.MethodGET, Pattern: "/beta", Meta: []byte("b")},
		{Method: artifact.MethodGET, Pattern: "/users/admin", Meta: []byte("adm")},
		{Method: artifact.MethodGET, Pattern: "/users/{id}", Meta: []byte("usr")},
	}, compiler.WithoutPrefilter())
	require.NoError(t, err)

	// The fixture must be loadable before any corruption.
	_, err = Load(data)
	require.NoError(t, err)
	return data
}

// nodeByPrefix scans the node region for the record whose compressed prefix
// equals prefix.
func nodeByPrefix(t *testing.T, data []byte, prefix string) (uint64, artifact.NodeRecord) {
	t.Helper()
	hdr, err := artifact.DecodeHeader(data)
	require.NoError(t, err)
	for i := uint64(0); i < hdr.NodeCount; i++ {
		off := artifact.NodeOffset(hdr.NodesOff, i)
		rec := artifact.DecodeNode(data[off : off+artifact.NodeRecordBytes])
		if string(data[rec.PrefixOff:rec.PrefixOff+uint64(rec.PrefixLen)]) == prefix {
			return off, rec
		}
	}
	t.Fatalf("no node with prefix %q", prefix)
	return 0, artifact.NodeRecord{}
}

func rewriteNode(data []byte, off uint64, rec artifact.NodeRecord) {
	artifact.EncodeNode(data[off:off+artifact.NodeRecordBytes], rec)
}

func swapChildEntries(data []byte, rec artifact.NodeRecord, i, j uint32) {
	a := rec.ChildListOff + artifact.ChildListHeaderBytes + uint64(i)*artifact.ChildEntryBytes
	b := rec.ChildListOff + artifact.ChildListHeaderBytes + uint64(j)*artifact.ChildEntryBytes
	var tmp [artifact.ChildEntryBytes]byte
	copy(tmp[:], data[a:a+artifact.ChildEntryBytes])
	copy(data[a:a+artifact.ChildEntryBytes], data[b:b+artifact.ChildEntryBytes])
	copy(data[b:b+artifact.ChildEntryBytes], tmp[:])
}

func TestLoadRejectsBadMagic(t *testing.T) {
	data := corruptible(t)
	data[0] ^= 0xff
	_, err := Load(data)
	require.ErrorIs(t, err, artifact.ErrBadMagic)
}

func TestLoadRejectsVersionMismatch(t *testing.T) {
	data := corruptible(t)
	binary.BigEndian.PutUint16(data[4:6], artifact.CurrentVersion+1)
	_, err := Load(data)
	require.ErrorIs(t, err, artifact.ErrVersionMismatch)
}

func TestLoadRejectsTruncation(t *testing.T) {
	data := corruptible(t)

	_, err := Load(data[:artifact.HeaderBytes-1])
	require.ErrorIs(t, err, artifact.ErrTruncatedBuffer)

	// One byte short of the declared contents.
	_, err = Load(data[:len(data)-1])
	require.ErrorIs(t, err, artifact.ErrCorruptOffset)
}

func TestLoadRejectsRegionPastEnd(t *testing.T) {
	data := corruptible(t)
	// nodesOff header field.
	binary.BigEndian.PutUint64(data[32:40], uint64(len(data))+1)
	_, err := Load(data)
	require.ErrorIs(t, err, artifact.ErrCorruptOffset)
}

func TestLoadRejectsDeadNode(t *testing.T) {
	data := corruptible(t)
	off, rec := nodeByPrefix(t, data, "alpha")
	require.Zero(t, rec.ChildCount)
	rec.Flags &^= artifact.NodeFlagHandler
	rec.MetaOff, rec.MetaLen = 0, 0
	rewriteNode(data, off, rec)
	_, err := Load(data)
	require.ErrorIs(t, err, artifact.ErrDeadNode)
}

func TestLoadRejectsHandlerFlagMismatch(t *testing.T) {
	data := corruptible(t)
	off, rec := nodeByPrefix(t, data, "alpha")
	rec.Flags &^= artifact.NodeFlagHandler
	rewriteNode(data, off, rec)
	_, err := Load(data)
	require.ErrorIs(t, err, artifact.ErrHandlerFlag)
}

func TestLoadRejectsUndefinedNodeFlags(t *testing.T) {
	data := corruptible(t)
	off, rec := nodeByPrefix(t, data, "alpha")
	rec.Flags |= 0x8000
	rewriteNode(data, off, rec)
	_, err := Load(data)
	require.ErrorIs(t, err, artifact.ErrBadNodeFlags)
}

func TestLoadRejectsCorruptPrefixOffset(t *testing.T) {
	data := corruptible(t)
	off, rec := nodeByPrefix(t, data, "alpha")
	rec.PrefixOff = uint64(len(data)) + 1000
	rewriteNode(data, off, rec)
	_, err := Load(data)
	require.ErrorIs(t, err, artifact.ErrCorruptOffset)
}

func TestLoadRejectsChildOrder(t *testing.T) {
	data := corruptible(t)
	// The GET method node has literal children alpha, beta, users.
	_, rec := nodeByPrefix(t, data, "GET")
	require.Equal(t, uint32(3), rec.ChildCount)
	swapChildEntries(data, rec, 0, 1)
	_, err := Load(data)
	require.ErrorIs(t, err, artifact.ErrChildOrder)
}

func TestLoadRejectsChildCountMismatch(t *testing.T) {
	data := corruptible(t)
	_, rec := nodeByPrefix(t, data, "GET")
	binary.BigEndian.PutUint32(data[rec.ChildListOff:], rec.ChildCount+1)
	_, err := Load(data)
	require.ErrorIs(t, err, artifact.ErrChildCountMismatch)
}

func TestLoadRejectsBadChildKind(t *testing.T) {
	data := corruptible(t)
	_, rec := nodeByPrefix(t, data, "GET")
	data[rec.ChildListOff+artifact.ChildListHeaderBytes] = 9
	_, err := Load(data)
	require.ErrorIs(t, err, artifact.ErrBadChildKind)
}

func TestLoadRejectsParamNotLast(t *testing.T) {
	data := corruptible(t)
	// users has a literal child (admin) and a parameter child ({id}).
	_, rec := nodeByPrefix(t, data, "users")
	require.Equal(t, uint32(2), rec.ChildCount)
	swapChildEntries(data, rec, 0, 1)
	_, err := Load(data)
	require.ErrorIs(t, err, artifact.ErrParamNotLast)
}

func TestLoadRejectsUnalignedChildTarget(t *testing.T) {
	data := corruptible(t)
	_, rec := nodeByPrefix(t, data, "users")
	entryOff := rec.ChildListOff + artifact.ChildListHeaderBytes
	nodeOffField := data[entryOff+16 : entryOff+24]
	binary.BigEndian.PutUint64(nodeOffField, binary.BigEndian.Uint64(nodeOffField)+1)
	_, err := Load(data)
	require.ErrorIs(t, err, artifact.ErrNodeUnaligned)
}

func TestLoadRejectsEdgeToRoot(t *testing.T) {
	data := corruptible(t)
	hdr, err := artifact.DecodeHeader(data)
	require.NoError(t, err)
	_, rec := nodeByPrefix(t, data, "users")
	entryOff := rec.ChildListOff + artifact.ChildListHeaderBytes
	binary.BigEndian.PutUint64(data[entryOff+16:entryOff+24], hdr.RootOff)
	_, err = Load(data)
	require.ErrorIs(t, err, artifact.ErrCorruptOffset)
}

func TestLoadRejectsIndexOrder(t *testing.T) {
	data := corruptible(t)
	hdr, err := artifact.DecodeHeader(data)
	require.NoError(t, err)
	require.GreaterOrEqual(t, hdr.IndexCount, uint32(2))
	a := hdr.IndexOff
	b := hdr.IndexOff + artifact.IndexEntryBytes
	var tmp [artifact.IndexEntryBytes]byte
	copy(tmp[:], data[a:a+artifact.IndexEntryBytes])
	copy(data[a:a+artifact.IndexEntryBytes], data[b:b+artifact.IndexEntryBytes])
	copy(data[b:b+artifact.IndexEntryBytes], tmp[:])
	_, err = Load(data)
	require.ErrorIs(t, err, artifact.ErrIndexOrder)
}

func TestLoadRejectsIndexUnknownMethod(t *testing.T) {
	data := corruptible(t)
	hdr, err := artifact.DecodeHeader(data)
	require.NoError(t, err)
	data[hdr.IndexOff] = 0
	_, err = Load(data)
	require.ErrorIs(t, err, artifact.ErrUnknownMethod)
}

func TestTraversalFaultAfterLoad(t *testing.T) {
	data := corruptible(t)
	table, err := Load(data)
	require.NoError(t, err)

	// Corrupt the buffer underneath the loaded table, as a truncated or
	// rewritten backing file would.
	off, rec := nodeByPrefix(t, data, "alpha")
	rec.MetaOff = uint64(len(data)) + 1000
	rewriteNode(data, off, rec)

	_, err = table.Resolve(artifact.MethodGET, "/alpha")
	require.ErrorIs(t, err, ErrTraversalFault)
	require.ErrorIs(t, err, artifact.ErrCorruptOffset)

	// Other routes are unaffected.
	res, err := table.Resolve(artifact.MethodGET, "/beta")
	require.NoError(t, err)
	require.Equal(t, []byte("b"), res.Meta)
}
