package dispatch

import (
	"fmt"

	"github.com/routewire/go-routetable/artifact"
	"github.com/routewire/go-routetable/prefilter"
)

// Table is a read-only, validated view over a route table artifact. The
// backing buffer must remain valid and unchanged for the lifetime of the
// handle; the Table never copies or mutates it.
type Table struct {
	data []byte
	hdr  artifact.Header
}

// Header returns the decoded artifact header.
func (t *Table) Header() artifact.Header { return t.hdr }

// Size returns the artifact length in bytes.
func (t *Table) Size() int { return len(t.data) }

// Load validates data as a route table artifact and returns a read-only
// handle. It walks every node, child list and index record once so that
// later lookups can trust record-level invariants; any failure means the
// artifact must not be served (no usable handle is returned).
func Load(data []byte) (*Table, error) {
	hdr, err := artifact.DecodeHeader(data)
	if err != nil {
		return nil, err
	}
	t := &Table{data: data, hdr: hdr}
	if err := t.validateNodes(); err != nil {
		return nil, err
	}
	if err := t.validateIndex(); err != nil {
		return nil, err
	}
	if hdr.HasPrefilter() {
		region, err := artifact.Slice(data, hdr.PrefilterOff, hdr.PrefilterLen)
		if err != nil {
			return nil, fmt.Errorf("prefilter region: %w", err)
		}
		if _, err := prefilter.DecodeHeader(region); err != nil {
			return nil, fmt.Errorf("prefilter region: %w", err)
		}
	}
	return t, nil
}

// checkRange verifies [off, off+length) lies within the region
// [regionOff, regionOff+regionLen).
func checkRange(off, length, regionOff, regionLen uint64) error {
	if off < regionOff {
		return artifact.ErrCorruptOffset
	}
	end := off + length
	if end < off || end > regionOff+regionLen {
		return artifact.ErrCorruptOffset
	}
	return nil
}

func (t *Table) validateNodes() error {
	h := t.hdr
	for i := uint64(0); i < h.NodeCount; i++ {
		off := artifact.NodeOffset(h.NodesOff, i)
		rec, err := artifact.Slice(t.data, off, artifact.NodeRecordBytes)
		if err != nil {
			return fmt.Errorf("node %d: %w", i, err)
		}
		n := artifact.DecodeNode(rec)

		if n.Flags&^(artifact.NodeFlagHandler|artifact.NodeFlagParam) != 0 {
			return fmt.Errorf("node %d: %w", i, artifact.ErrBadNodeFlags)
		}
		if (n.Flags&artifact.NodeFlagHandler != 0) != n.HasHandler() {
			return fmt.Errorf("node %d: %w", i, artifact.ErrHandlerFlag)
		}
		if err := checkRange(n.PrefixOff, uint64(n.PrefixLen), h.StringsOff, h.StringsLen); err != nil {
			return fmt.Errorf("node %d prefix: %w", i, err)
		}
		if n.PrefixLen == 0 && off != h.RootOff {
			return fmt.Errorf("node %d: empty prefix outside the root: %w", i, artifact.ErrCorruptOffset)
		}
		if n.IsParam() {
			prefix := t.data[n.PrefixOff : n.PrefixOff+uint64(n.PrefixLen)]
			for _, c := range prefix {
				if c == '/' {
					return fmt.Errorf("node %d: parameter name contains '/': %w", i, artifact.ErrCorruptOffset)
				}
			}
		}
		if n.HasHandler() {
			if err := checkRange(n.MetaOff, uint64(n.MetaLen), h.MetaOff, h.MetaLen); err != nil {
				return fmt.Errorf("node %d metadata: %w", i, err)
			}
		}

		if n.ChildCount == 0 {
			if n.ChildListOff != 0 {
				return fmt.Errorf("node %d: child list offset without children: %w", i, artifact.ErrCorruptOffset)
			}
			if !n.HasHandler() {
				return fmt.Errorf("node %d: %w", i, artifact.ErrDeadNode)
			}
			continue
		}
		if err := t.validateChildList(i, n); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) validateChildList(i uint64, n artifact.NodeRecord) error {
	h := t.hdr
	listBytes := artifact.ChildListBytes(uint64(n.ChildCount))
	if err := checkRange(n.ChildListOff, listBytes, h.ChildListsOff, h.ChildListsLen); err != nil {
		return fmt.Errorf("node %d child list: %w", i, err)
	}
	list := t.data[n.ChildListOff : n.ChildListOff+listBytes]
	if artifact.ChildListCount(list) != n.ChildCount {
		return fmt.Errorf("node %d: %w", i, artifact.ErrChildCountMismatch)
	}

	var prevLabel []byte
	paramSeen := false
	for ci := uint32(0); ci < n.ChildCount; ci++ {
		e := artifact.DecodeChildEntry(artifact.ChildEntryAt(list, ci))
		switch e.Kind {
		case artifact.KindLiteral, artifact.KindParam:
		default:
			return fmt.Errorf("node %d child %d: %w", i, ci, artifact.ErrBadChildKind)
		}
		if err := checkRange(e.LabelOff, uint64(e.LabelLen), h.StringsOff, h.StringsLen); err != nil {
			return fmt.Errorf("node %d child %d label: %w", i, ci, err)
		}
		if e.LabelLen == 0 {
			return fmt.Errorf("node %d child %d: empty label: %w", i, ci, artifact.ErrCorruptOffset)
		}
		if err := h.CheckNodeOffset(e.NodeOff); err != nil {
			return fmt.Errorf("node %d child %d: %w", i, ci, err)
		}
		if e.NodeOff == h.RootOff {
			return fmt.Errorf("node %d child %d: edge to root: %w", i, ci, artifact.ErrCorruptOffset)
		}

		if e.Kind == artifact.KindParam {
			if paramSeen {
				return fmt.Errorf("node %d: %w", i, artifact.ErrDuplicateParam)
			}
			paramSeen = true
			if ci != n.ChildCount-1 {
				return fmt.Errorf("node %d: %w", i, artifact.ErrParamNotLast)
			}
			continue
		}
		if paramSeen {
			return fmt.Errorf("node %d: %w", i, artifact.ErrParamNotLast)
		}
		label := t.data[e.LabelOff : e.LabelOff+uint64(e.LabelLen)]
		if prevLabel != nil && string(prevLabel) >= string(label) {
			return fmt.Errorf("node %d: %w", i, artifact.ErrChildOrder)
		}
		prevLabel = label
	}
	return nil
}

func (t *Table) validateIndex() error {
	h := t.hdr
	if h.IndexCount == 0 {
		return nil
	}
	region, err := artifact.Slice(t.data, h.IndexOff, artifact.IndexRegionBytes(h.IndexCount))
	if err != nil {
		return fmt.Errorf("index region: %w", err)
	}
	var prevMethod artifact.Method
	var prevSeg []byte
	for i := uint32(0); i < h.IndexCount; i++ {
		e := artifact.DecodeIndexEntry(artifact.IndexEntryAt(region, i))
		if !e.Method.Valid() {
			return fmt.Errorf("index entry %d: %w", i, artifact.ErrUnknownMethod)
		}
		if err := checkRange(e.SegOff, uint64(e.SegLen), h.StringsOff, h.StringsLen); err != nil {
			return fmt.Errorf("index entry %d segment: %w", i, err)
		}
		if e.SegLen == 0 {
			return fmt.Errorf("index entry %d: empty segment: %w", i, artifact.ErrCorruptOffset)
		}
		if err := h.CheckNodeOffset(e.NodeOff); err != nil {
			return fmt.Errorf("index entry %d: %w", i, err)
		}
		seg := t.data[e.SegOff : e.SegOff+uint64(e.SegLen)]
		if i > 0 {
			if e.Method < prevMethod ||
				(e.Method == prevMethod && string(seg) <= string(prevSeg)) {
				return fmt.Errorf("index entry %d: %w", i, artifact.ErrIndexOrder)
			}
		}
		prevMethod, prevSeg = e.Method, seg
	}
	return nil
}
