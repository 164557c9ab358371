package dispatch

import (
	"errors"
	"sync/atomic"

	"github.com/routewire/go-routetable/artifact"
)

// ErrNoTable reports a lookup against a swapper that has not published an
// artifact yet.
var ErrNoTable = errors.New("dispatch: no route table published")

// Swapper shares one immutable Table between an unbounded number of
// concurrent lookups and supports whole-artifact replacement. Publish is an
// atomic pointer swap: lookups in flight finish against the table they
// started with, new lookups observe only the new table. A table is never
// mutated after it is published.
type Swapper struct {
	current atomic.Pointer[Table]
}

// NewSwapper returns a swapper, optionally seeded with an initial table.
func NewSwapper(initial *Table) *Swapper {
	s := &Swapper{}
	if initial != nil {
		s.current.Store(initial)
	}
	return s
}

// Current returns the published table, or nil if none has been published.
func (s *Swapper) Current() *Table {
	return s.current.Load()
}

// Publish replaces the served table. The previous table remains valid for
// lookups that already hold it.
func (s *Swapper) Publish(t *Table) {
	s.current.Store(t)
}

// Resolve looks up (method, path) against the currently published table.
func (s *Swapper) Resolve(method artifact.Method, path string) (Resolution, error) {
	t := s.Current()
	if t == nil {
		return Resolution{}, ErrNoTable
	}
	return t.Resolve(method, path)
}
