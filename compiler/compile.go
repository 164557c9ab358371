package compiler

import (
	"sort"

	"github.com/routewire/go-routetable/artifact"
	"github.com/routewire/go-routetable/prefilter"
)

// Options configures a compilation. The zero value is not useful; Compile
// seeds defaults before applying options.
type Options struct {
	prefilter        bool
	prefilterBitsPer uint64
	prefilterK       uint8
}

type Option func(*Options)

// WithoutPrefilter omits the prefilter region even when the manifest has
// literal-only methods.
func WithoutPrefilter() Option {
	return func(o *Options) { o.prefilter = false }
}

// WithPrefilterSizing overrides the filter density. bitsPerKey trades
// artifact size against the false positive rate; k is the probe count.
func WithPrefilterSizing(bitsPerKey uint64, k uint8) Option {
	return func(o *Options) {
		o.prefilterBitsPer = bitsPerKey
		o.prefilterK = k
	}
}

// Compile builds a route table artifact from a manifest.
//
// Compile is a pure function: it holds no state across invocations and
// identical manifests produce byte-identical artifacts.
func Compile(m Manifest, opts ...Option) ([]byte, error) {
	o := Options{
		prefilter:        true,
		prefilterBitsPer: prefilter.DefaultBitsPerKey,
		prefilterK:       prefilter.DefaultK,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if len(m) == 0 {
		return nil, ErrEmptyManifest
	}

	tr := newTrie()
	for _, r := range m {
		if err := tr.insert(r); err != nil {
			return nil, err
		}
	}
	tr.compress()

	return emit(tr, o)
}

// layout carries the offset assignment produced by the single deterministic
// layout pass. Everything is decided before the first byte is written, so
// emission never patches forward references.
type layout struct {
	nodes   []*buildNode
	ordinal map[*buildNode]uint64

	childListRel map[*buildNode]uint64
	childListLen uint64

	strings stringPool

	metaRel map[*buildNode]uint64
	metaLen uint64

	hdr artifact.Header
}

type stringPool struct {
	rel map[string]uint64
	buf []byte
}

func (p *stringPool) intern(s string) uint64 {
	if off, ok := p.rel[s]; ok {
		return off
	}
	if p.rel == nil {
		p.rel = map[string]uint64{}
	}
	off := uint64(len(p.buf))
	p.rel[s] = off
	p.buf = append(p.buf, s...)
	return off
}

// sortedLabels returns n's literal child labels in the fixed match order.
func sortedLabels(n *buildNode) []string {
	labels := make([]string, 0, len(n.literals))
	for l := range n.literals {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

// orderedChildren returns n's children in the fixed match order: literals in
// label order, then the parameter child.
func orderedChildren(n *buildNode) []*buildNode {
	children := make([]*buildNode, 0, n.childCount())
	for _, l := range sortedLabels(n) {
		children = append(children, n.literals[l])
	}
	if n.paramChild != nil {
		children = append(children, n.paramChild)
	}
	return children
}

func emit(tr *trie, o Options) ([]byte, error) {
	l := layout{
		ordinal:      map[*buildNode]uint64{},
		childListRel: map[*buildNode]uint64{},
		metaRel:      map[*buildNode]uint64{},
	}

	// Preorder node assignment: root first, children in match order. The
	// same walk assigns child list offsets, interns strings and lays out the
	// metadata pool, so every cross-reference is known before emission.
	var walk func(n *buildNode)
	walk = func(n *buildNode) {
		l.ordinal[n] = uint64(len(l.nodes))
		l.nodes = append(l.nodes, n)

		if n != tr.root {
			l.strings.intern(n.prefix)
		}
		children := orderedChildren(n)
		if len(children) > 0 {
			l.childListRel[n] = l.childListLen
			l.childListLen += artifact.ChildListBytes(uint64(len(children)))
		}
		for _, c := range children {
			l.strings.intern(c.firstSegment())
		}
		if n.hasHandler {
			l.metaRel[n] = l.metaLen
			l.metaLen += uint64(len(n.meta))
		}
		for _, c := range children {
			walk(c)
		}
	}
	walk(tr.root)

	// One index entry per literal child edge of each method node.
	var indexCount uint32
	for m := artifact.MethodGET; m <= artifact.MethodTRACE; m++ {
		if mn := tr.methodNodes[m]; mn != nil {
			indexCount += uint32(len(mn.literals))
		}
	}

	// Prefilter sizing.
	keys := tr.prefilterKeys()
	var mBits uint32
	if o.prefilter && len(keys) > 0 {
		mBits = prefilter.SizeForKeys(uint64(len(keys)), o.prefilterBitsPer)
	}

	h := artifact.Header{
		Version:       artifact.CurrentVersion,
		StaticMethods: tr.staticMethods(),
		IndexOff:      artifact.HeaderBytes,
		IndexCount:    indexCount,
		NodeCount:     uint64(len(l.nodes)),
		ChildListsLen: l.childListLen,
		StringsLen:    uint64(len(l.strings.buf)),
		MetaLen:       l.metaLen,
	}
	h.NodesOff = h.IndexOff + artifact.IndexRegionBytes(indexCount)
	h.ChildListsOff = h.NodesOff + artifact.NodeRegionBytes(h.NodeCount)
	h.StringsOff = h.ChildListsOff + h.ChildListsLen
	h.MetaOff = h.StringsOff + h.StringsLen
	h.RootOff = h.NodesOff

	total := h.MetaOff + h.MetaLen
	if mBits != 0 {
		h.Flags |= artifact.FlagPrefilter
		h.PrefilterOff = total
		h.PrefilterLen = prefilter.RegionBytes(mBits)
		total += h.PrefilterLen
	}
	l.hdr = h

	buf := make([]byte, total)
	if err := artifact.EncodeHeader(buf, h); err != nil {
		return nil, err
	}
	if err := l.emitIndex(buf, tr); err != nil {
		return nil, err
	}
	l.emitNodes(buf)
	copy(buf[h.StringsOff:], l.strings.buf)

	if mBits != 0 {
		region := buf[h.PrefilterOff : h.PrefilterOff+h.PrefilterLen]
		if err := prefilter.Init(region, mBits, o.prefilterK); err != nil {
			return nil, err
		}
		for _, k := range keys {
			if err := prefilter.Insert(region, []byte(k)); err != nil {
				return nil, err
			}
		}
	}
	return buf, nil
}

func (l *layout) stringRef(s string) (uint64, uint32) {
	if len(s) == 0 {
		return l.hdr.StringsOff, 0
	}
	return l.hdr.StringsOff + l.strings.rel[s], uint32(len(s))
}

func (l *layout) nodeOff(n *buildNode) uint64 {
	return artifact.NodeOffset(l.hdr.NodesOff, l.ordinal[n])
}

func (l *layout) emitIndex(buf []byte, tr *trie) error {
	region := buf[l.hdr.IndexOff : l.hdr.IndexOff+artifact.IndexRegionBytes(l.hdr.IndexCount)]
	i := uint32(0)
	// Method-code order with sorted labels inside each method yields the
	// (method, segment) sort the lookup engine binary searches on.
	for m := artifact.MethodGET; m <= artifact.MethodTRACE; m++ {
		mn := tr.methodNodes[m]
		if mn == nil {
			continue
		}
		for _, label := range sortedLabels(mn) {
			segOff, segLen := l.stringRef(label)
			artifact.EncodeIndexEntry(artifact.IndexEntryAt(region, i), artifact.IndexEntry{
				Method:  m,
				SegOff:  segOff,
				SegLen:  segLen,
				NodeOff: l.nodeOff(mn.literals[label]),
			})
			i++
		}
	}
	return nil
}

func (l *layout) emitNodes(buf []byte) {
	h := l.hdr
	for _, n := range l.nodes {
		children := orderedChildren(n)

		var rec artifact.NodeRecord
		rec.PrefixOff, rec.PrefixLen = l.stringRef(n.prefix)
		if n.param {
			rec.Flags |= artifact.NodeFlagParam
		}
		rec.ChildCount = uint32(len(children))
		if len(children) > 0 {
			rec.ChildListOff = h.ChildListsOff + l.childListRel[n]
		}
		if n.hasHandler {
			rec.Flags |= artifact.NodeFlagHandler
			rec.MetaOff = h.MetaOff + l.metaRel[n]
			rec.MetaLen = uint32(len(n.meta))
			copy(buf[rec.MetaOff:], n.meta)
		}

		off := l.nodeOff(n)
		artifact.EncodeNode(buf[off:off+artifact.NodeRecordBytes], rec)

		if len(children) == 0 {
			continue
		}
		list := buf[rec.ChildListOff : rec.ChildListOff+artifact.ChildListBytes(uint64(len(children)))]
		artifact.EncodeChildListHeader(list, uint32(len(children)))
		for ci, c := range children {
			kind := artifact.KindLiteral
			if c.param {
				kind = artifact.KindParam
			}
			labelOff, labelLen := l.stringRef(c.firstSegment())
			artifact.EncodeChildEntry(artifact.ChildEntryAt(list, uint32(ci)), artifact.ChildEntry{
				Kind:     kind,
				LabelOff: labelOff,
				LabelLen: labelLen,
				NodeOff:  l.nodeOff(c),
			})
		}
	}
}
