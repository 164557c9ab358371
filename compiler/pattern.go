package compiler

import (
	"fmt"
	"strings"
)

// Segment is one parsed pattern segment: either a literal string or a named
// parameter written {name}.
type Segment struct {
	Param bool
	// Value is the literal text, or the parameter name for a param segment.
	Value string
}

// ParsePattern splits a route pattern into segments.
//
// A pattern must begin with '/'. A single trailing slash is tolerated and
// normalized away, so /users/ registers the same route as /users. Interior
// empty segments (a//b) are rejected rather than normalized: in a manifest
// they are almost certainly typos. "/" parses to zero segments and binds a
// handler to the method node itself.
func ParsePattern(pattern string) ([]Segment, error) {
	if pattern == "" || pattern[0] != '/' {
		return nil, fmt.Errorf("%w: %q must begin with '/'", ErrInvalidPattern, pattern)
	}

	trimmed := pattern[1:]
	if strings.HasSuffix(trimmed, "/") {
		trimmed = trimmed[:len(trimmed)-1]
	}
	if trimmed == "" {
		return nil, nil
	}

	parts := strings.Split(trimmed, "/")
	segs := make([]Segment, 0, len(parts))
	for _, p := range parts {
		seg, err := parseSegment(pattern, p)
		if err != nil {
			return nil, err
		}
		segs = append(segs, seg)
	}
	return segs, nil
}

func parseSegment(pattern, p string) (Segment, error) {
	if p == "" {
		return Segment{}, fmt.Errorf("%w: %q has an empty segment", ErrInvalidPattern, pattern)
	}
	if p[0] == '{' {
		if !strings.HasSuffix(p, "}") {
			return Segment{}, fmt.Errorf("%w: %q has an unterminated parameter brace", ErrInvalidPattern, pattern)
		}
		name := p[1 : len(p)-1]
		if name == "" {
			return Segment{}, fmt.Errorf("%w: %q has an empty parameter name", ErrInvalidPattern, pattern)
		}
		if strings.ContainsAny(name, "{}/") {
			return Segment{}, fmt.Errorf("%w: %q has an invalid parameter name", ErrInvalidPattern, pattern)
		}
		return Segment{Param: true, Value: name}, nil
	}
	if strings.ContainsAny(p, "{}") {
		return Segment{}, fmt.Errorf("%w: %q mixes literal text and braces in one segment", ErrInvalidPattern, pattern)
	}
	return Segment{Value: p}, nil
}

// canonicalPattern renders parsed segments back to the normalized pattern
// text used for duplicate detection and prefilter keys.
func canonicalPattern(segs []Segment) string {
	if len(segs) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, s := range segs {
		b.WriteByte('/')
		if s.Param {
			b.WriteByte('{')
			b.WriteString(s.Value)
			b.WriteByte('}')
		} else {
			b.WriteString(s.Value)
		}
	}
	return b.String()
}
