package compiler

import (
	"fmt"
	"strings"

	"github.com/routewire/go-routetable/artifact"
)

// buildNode is the in-memory trie node used during compilation. The final
// artifact stores the same shape as offset-linked fixed-width records.
type buildNode struct {
	// prefix is the compressed path prefix: one or more literal segments
	// joined by '/', the parameter name for a param node, a method token for
	// a method node, and empty for the root.
	prefix     string
	param      bool
	hasHandler bool
	meta       []byte

	// literals is keyed by the child's first prefix segment.
	literals   map[string]*buildNode
	paramChild *buildNode
}

func (n *buildNode) childCount() int {
	c := len(n.literals)
	if n.paramChild != nil {
		c++
	}
	return c
}

// firstSegment returns the edge label for n: the first segment of its
// compressed prefix, or the parameter name.
func (n *buildNode) firstSegment() string {
	if i := strings.IndexByte(n.prefix, '/'); i >= 0 {
		return n.prefix[:i]
	}
	return n.prefix
}

type trie struct {
	root *buildNode

	// methodNodes maps a method code to its depth-1 node, kept so the
	// layout pass can emit index entries and the static-method mask.
	methodNodes map[artifact.Method]*buildNode

	// methodHasParam records methods with at least one parameterized route;
	// the prefilter is only authoritative for the rest.
	methodHasParam map[artifact.Method]bool

	// staticKeys are the prefilter keys of literal-only routes, in manifest
	// order, tagged with their method so keys of methods that turn out to
	// carry parameter routes can be dropped at layout time.
	staticKeys []staticKey
}

type staticKey struct {
	method artifact.Method
	key    string
}

func newTrie() *trie {
	return &trie{
		root:           &buildNode{literals: map[string]*buildNode{}},
		methodNodes:    map[artifact.Method]*buildNode{},
		methodHasParam: map[artifact.Method]bool{},
	}
}

func (tr *trie) insert(r Route) error {
	if !r.Method.Valid() {
		return fmt.Errorf("%w: code %d for pattern %q", artifact.ErrUnknownMethod, uint8(r.Method), r.Pattern)
	}
	segs, err := ParsePattern(r.Pattern)
	if err != nil {
		return err
	}

	n := tr.methodNodes[r.Method]
	if n == nil {
		n = &buildNode{prefix: r.Method.Token()}
		tr.root.addLiteral(n)
		tr.methodNodes[r.Method] = n
	}

	hasParam := false
	for _, s := range segs {
		if s.Param {
			hasParam = true
			if pc := n.paramChild; pc != nil {
				if pc.prefix != s.Value {
					return fmt.Errorf("%w: {%s} and {%s} at the same position in %s %s",
						ErrAmbiguousRoute, pc.prefix, s.Value, r.Method, canonicalPattern(segs))
				}
				n = pc
				continue
			}
			pc := &buildNode{prefix: s.Value, param: true}
			n.paramChild = pc
			n = pc
			continue
		}

		child := n.literals[s.Value]
		if child == nil {
			child = &buildNode{prefix: s.Value}
			n.addLiteral(child)
		}
		n = child
	}

	if n.hasHandler {
		return fmt.Errorf("%w: %s %s", ErrDuplicateRoute, r.Method, canonicalPattern(segs))
	}
	n.hasHandler = true
	n.meta = r.Meta

	if hasParam {
		tr.methodHasParam[r.Method] = true
	} else {
		tr.staticKeys = append(tr.staticKeys, staticKey{
			method: r.Method,
			key:    r.Method.Token() + " " + canonicalPattern(segs),
		})
	}
	return nil
}

func (n *buildNode) addLiteral(child *buildNode) {
	if n.literals == nil {
		n.literals = map[string]*buildNode{}
	}
	n.literals[child.firstSegment()] = child
}

// compress merges single-child literal chains bottom up. Method nodes are
// never merged into their children: index entries seed traversal at the
// node below the method level, so that node's prefix must begin with the
// first real path segment.
func (tr *trie) compress() {
	for _, mn := range tr.methodNodes {
		for _, c := range mn.literals {
			compressChains(c)
		}
		if mn.paramChild != nil {
			compressChains(mn.paramChild)
		}
	}
}

func compressChains(n *buildNode) {
	for _, c := range n.literals {
		compressChains(c)
	}
	if n.paramChild != nil {
		compressChains(n.paramChild)
	}

	// A handler-free literal node with exactly one literal child absorbs it.
	// The child is already maximally merged, so one concatenation suffices.
	if n.param || n.hasHandler || n.paramChild != nil || len(n.literals) != 1 {
		return
	}
	var only *buildNode
	for _, c := range n.literals {
		only = c
	}
	if only.param {
		return
	}
	n.prefix = n.prefix + "/" + only.prefix
	n.hasHandler = only.hasHandler
	n.meta = only.meta
	n.literals = only.literals
	n.paramChild = only.paramChild
}

// staticMethods returns the header bitmask of methods whose registered
// routes are all literal.
func (tr *trie) staticMethods() uint32 {
	var mask uint32
	for m := range tr.methodNodes {
		if !tr.methodHasParam[m] {
			mask |= artifact.MethodBit(m)
		}
	}
	return mask
}

// prefilterKeys returns the keys to insert, dropping keys of methods that
// also carry parameter routes.
func (tr *trie) prefilterKeys() []string {
	keys := make([]string, 0, len(tr.staticKeys))
	for _, sk := range tr.staticKeys {
		if tr.methodHasParam[sk.method] {
			continue
		}
		keys = append(keys, sk.key)
	}
	return keys
}
