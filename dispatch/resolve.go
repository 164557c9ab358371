package dispatch

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/routewire/go-routetable/artifact"
	"github.com/routewire/go-routetable/prefilter"
)

var (
	// ErrNoRoute is the ordinary miss outcome: no registered route matches
	// the (method, path) pair. Callers map it to their 404 equivalent.
	ErrNoRoute = errors.New("dispatch: no route matches")

	// ErrTraversalFault reports structural corruption discovered during a
	// lookup against a buffer that passed load validation, for example a
	// truncated backing file. It is isolated to the failing request.
	ErrTraversalFault = errors.New("dispatch: route table corrupt during traversal")
)

// Resolution is a successful lookup: the route's opaque handler metadata
// and the parameter bindings accumulated on the way down. Params is nil
// when the matched pattern has no parameters.
type Resolution struct {
	Meta   []byte
	Params map[string]string
}

// Resolve matches (method, path) against the table.
//
// Path normalization: segments are split on '/' and empty segments are
// dropped, so /users, /users/ and //users resolve identically. "/" is the
// zero-segment path.
func (t *Table) Resolve(method artifact.Method, path string) (Resolution, error) {
	res, _, err := t.resolve(method, path)
	return res, err
}

// segCursor yields path segments without allocating. When pre is set it is
// yielded first: the method token is a pseudo-segment ahead of the path
// when traversal starts at the root.
type segCursor struct {
	pre  string
	path string
	i    int
}

func (c *segCursor) next() (string, bool) {
	if c.pre != "" {
		s := c.pre
		c.pre = ""
		return s, true
	}
	for c.i < len(c.path) && c.path[c.i] == '/' {
		c.i++
	}
	if c.i >= len(c.path) {
		return "", false
	}
	start := c.i
	for c.i < len(c.path) && c.path[c.i] != '/' {
		c.i++
	}
	return c.path[start:c.i], true
}

// firstPathSegment returns the first non-empty segment of path.
func firstPathSegment(path string) (string, bool) {
	c := segCursor{path: path}
	return c.next()
}

func fault(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrTraversalFault, what, err)
}

// resolve returns the resolution and the number of node records visited;
// the visit count backs the scale-independence tests and benchmarks.
func (t *Table) resolve(method artifact.Method, path string) (Resolution, int, error) {
	if !method.Valid() {
		return Resolution{}, 0, ErrNoRoute
	}

	// Methods with only literal routes are covered by the prefilter: a
	// definite miss answers without touching the trie.
	if t.hdr.HasPrefilter() && t.hdr.StaticMethods&artifact.MethodBit(method) != 0 {
		region, err := artifact.Slice(t.data, t.hdr.PrefilterOff, t.hdr.PrefilterLen)
		if err != nil {
			return Resolution{}, 0, fault("prefilter region", err)
		}
		maybe, err := prefilter.MaybeContains(region, prefilterKey(method, path))
		if err != nil {
			return Resolution{}, 0, fault("prefilter probe", err)
		}
		if !maybe {
			return Resolution{}, 0, ErrNoRoute
		}
	}

	cur := segCursor{path: path}
	nodeOff := t.hdr.RootOff
	seeded := false
	if fs, ok := firstPathSegment(path); ok {
		off, hit, err := t.indexSeek(method, fs)
		if err != nil {
			return Resolution{}, 0, err
		}
		if hit {
			// The target's prefix begins with fs; consume it as the edge
			// segment, exactly as if we had descended to it from the method
			// node.
			nodeOff = off
			cur.next()
			seeded = true
		}
	}
	if !seeded {
		cur.pre = method.Token()
	}

	visits := 0
	var params map[string]string
	for {
		visits++
		rec, err := artifact.Slice(t.data, nodeOff, artifact.NodeRecordBytes)
		if err != nil {
			return Resolution{}, visits, fault("node record", err)
		}

		// Match the compressed prefix segments after the first; the first
		// was consumed selecting the edge into this node (the root's prefix
		// is empty).
		prefix, err := artifact.Slice(t.data, artifact.NodePrefixOff(rec), uint64(artifact.NodePrefixLen(rec)))
		if err != nil {
			return Resolution{}, visits, fault("node prefix", err)
		}
		if i := bytes.IndexByte(prefix, '/'); i >= 0 {
			rest := prefix[i+1:]
			for {
				j := bytes.IndexByte(rest, '/')
				want := rest
				if j >= 0 {
					want = rest[:j]
				}
				seg, ok := cur.next()
				if !ok || seg != string(want) {
					return Resolution{}, visits, ErrNoRoute
				}
				if j < 0 {
					break
				}
				rest = rest[j+1:]
			}
		}

		seg, ok := cur.next()
		if !ok {
			metaOff := artifact.NodeMetaOff(rec)
			if metaOff == 0 {
				// A valid intermediate node with no handler bound here.
				return Resolution{}, visits, ErrNoRoute
			}
			meta, err := artifact.Slice(t.data, metaOff, uint64(artifact.NodeMetaLen(rec)))
			if err != nil {
				return Resolution{}, visits, fault("handler metadata", err)
			}
			return Resolution{Meta: meta, Params: params}, visits, nil
		}

		count := artifact.NodeChildCount(rec)
		if count == 0 {
			return Resolution{}, visits, ErrNoRoute
		}
		list, err := artifact.Slice(t.data, artifact.NodeChildListOff(rec), artifact.ChildListBytes(uint64(count)))
		if err != nil {
			return Resolution{}, visits, fault("child list", err)
		}
		if artifact.ChildListCount(list) != count {
			return Resolution{}, visits, fault("child list", artifact.ErrChildCountMismatch)
		}

		// Literals first (binary search over the sorted labels), then the
		// parameter child if present.
		entries := count
		last := artifact.DecodeChildEntry(artifact.ChildEntryAt(list, entries-1))
		litCount := entries
		var paramEntry *artifact.ChildEntry
		switch last.Kind {
		case artifact.KindParam:
			litCount--
			paramEntry = &last
		case artifact.KindLiteral:
		default:
			return Resolution{}, visits, fault("child entry", artifact.ErrBadChildKind)
		}

		matched := false
		lo, hi := uint32(0), litCount
		for lo < hi {
			mid := (lo + hi) / 2
			e := artifact.DecodeChildEntry(artifact.ChildEntryAt(list, mid))
			label, err := artifact.Slice(t.data, e.LabelOff, uint64(e.LabelLen))
			if err != nil {
				return Resolution{}, visits, fault("child label", err)
			}
			switch cmp := compareBytesString(label, seg); {
			case cmp == 0:
				nodeOff = e.NodeOff
				matched = true
				lo = hi
			case cmp < 0:
				lo = mid + 1
			default:
				hi = mid
			}
		}
		if matched {
			continue
		}
		if paramEntry != nil {
			name, err := artifact.Slice(t.data, paramEntry.LabelOff, uint64(paramEntry.LabelLen))
			if err != nil {
				return Resolution{}, visits, fault("parameter name", err)
			}
			if params == nil {
				params = make(map[string]string, 4)
			}
			params[string(name)] = seg
			nodeOff = paramEntry.NodeOff
			continue
		}
		return Resolution{}, visits, ErrNoRoute
	}
}

// indexSeek binary searches the method/first-segment index. A miss is not
// an error: traversal falls back to the root.
func (t *Table) indexSeek(method artifact.Method, seg string) (uint64, bool, error) {
	count := t.hdr.IndexCount
	if count == 0 {
		return 0, false, nil
	}
	region, err := artifact.Slice(t.data, t.hdr.IndexOff, artifact.IndexRegionBytes(count))
	if err != nil {
		return 0, false, fault("index region", err)
	}
	lo, hi := uint32(0), count
	for lo < hi {
		mid := (lo + hi) / 2
		e := artifact.DecodeIndexEntry(artifact.IndexEntryAt(region, mid))
		cmp := int(e.Method) - int(method)
		if cmp == 0 {
			label, err := artifact.Slice(t.data, e.SegOff, uint64(e.SegLen))
			if err != nil {
				return 0, false, fault("index segment", err)
			}
			cmp = compareBytesString(label, seg)
		}
		switch {
		case cmp == 0:
			return e.NodeOff, true, nil
		case cmp < 0:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return 0, false, nil
}

// prefilterKey renders the canonical "METHOD /a/b" key the compiler inserts
// for literal-only methods.
func prefilterKey(method artifact.Method, path string) []byte {
	var b strings.Builder
	b.WriteString(method.Token())
	b.WriteByte(' ')
	cur := segCursor{path: path}
	wrote := false
	for {
		seg, ok := cur.next()
		if !ok {
			break
		}
		b.WriteByte('/')
		b.WriteString(seg)
		wrote = true
	}
	if !wrote {
		b.WriteByte('/')
	}
	return []byte(b.String())
}

func compareBytesString(b []byte, s string) int {
	n := len(b)
	if len(s) < n {
		n = len(s)
	}
	for i := 0; i < n; i++ {
		if b[i] != s[i] {
			if b[i] < s[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(b) < len(s):
		return -1
	case len(b) > len(s):
		return 1
	}
	return 0
}
