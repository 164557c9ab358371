package compiler

import (
	"errors"

	"github.com/routewire/go-routetable/artifact"
)

var (
	ErrInvalidPattern = errors.New("compiler: invalid route pattern")
	ErrDuplicateRoute = errors.New("compiler: duplicate route")
	ErrAmbiguousRoute = errors.New("compiler: ambiguous parameter routes")
	ErrEmptyManifest  = errors.New("compiler: manifest has no routes")
)

// Route is one entry of a route manifest. Meta is the opaque handler
// metadata blob bound to the route's terminal node; its internal schema is
// owned by the embedding system (see the routemeta package for the codec
// our tooling uses).
type Route struct {
	Method  artifact.Method
	Pattern string
	Meta    []byte
}

// Manifest is an ordered collection of routes, supplied by a configuration
// or build pipeline external to this engine.
type Manifest []Route
