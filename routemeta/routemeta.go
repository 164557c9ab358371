// Package routemeta is a convenience codec for the handler metadata pool.
//
// The route table format treats per-route metadata as opaque bytes; nothing
// in the compiler or the lookup engine interprets them. This package is the
// encoding the routec tool and the reference embedding use: a small CBOR
// record naming the handler plus its permission and middleware lists.
// Deterministic encoding keeps compiled artifacts byte-identical for
// identical manifests.
package routemeta

import (
	"github.com/fxamacker/cbor/v2"
)

// Meta is the decoded handler metadata record.
type Meta struct {
	Handler     string   `cbor:"1,keyasint"`
	Permissions []string `cbor:"2,keyasint,omitempty"`
	Middleware  []string `cbor:"3,keyasint,omitempty"`
}

// Codec pairs the deterministic encode mode with a strict decode mode.
type Codec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// NewCodec returns a codec using core deterministic encoding.
func NewCodec() (Codec, error) {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return Codec{}, err
	}
	dec, err := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthForbidden,
	}.DecMode()
	if err != nil {
		return Codec{}, err
	}
	return Codec{enc: enc, dec: dec}, nil
}

// Marshal encodes m for use as a route's Meta bytes.
func (c Codec) Marshal(m Meta) ([]byte, error) {
	return c.enc.Marshal(m)
}

// Unmarshal decodes the Meta bytes returned by a resolution.
func (c Codec) Unmarshal(data []byte) (Meta, error) {
	var m Meta
	if err := c.dec.Unmarshal(data, &m); err != nil {
		return Meta{}, err
	}
	return m, nil
}
