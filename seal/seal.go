// Package seal produces and checks signed deployment checkpoints for route
// table artifacts.
//
// A checkpoint commits to the exact artifact bytes (by digest), the format
// version and node count from its header, a unique build id and the issue
// time. It travels as a COSE Sign1 envelope next to the artifact, so a
// serving process can refuse to load an artifact its control plane did not
// sign.
package seal

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/veraison/go-cose"

	"github.com/routewire/go-routetable/artifact"
)

var (
	ErrSealMismatch = errors.New("seal: checkpoint does not match artifact")
	ErrNoPayload    = errors.New("seal: envelope carries no payload")
)

// Checkpoint is the signed payload.
type Checkpoint struct {
	Issuer         string `cbor:"1,keyasint"`
	ArtifactSHA256 []byte `cbor:"2,keyasint"`
	FormatVersion  uint16 `cbor:"3,keyasint"`
	NodeCount      uint64 `cbor:"4,keyasint"`
	BuildID        string `cbor:"5,keyasint"`
	IssuedUnixMS   int64  `cbor:"6,keyasint"`
}

// NewCheckpoint reads the artifact header and returns a checkpoint over data
// with a fresh build id.
func NewCheckpoint(issuer string, data []byte) (Checkpoint, error) {
	hdr, err := artifact.DecodeHeader(data)
	if err != nil {
		return Checkpoint{}, err
	}
	digest := sha256.Sum256(data)
	return Checkpoint{
		Issuer:         issuer,
		ArtifactSHA256: digest[:],
		FormatVersion:  hdr.Version,
		NodeCount:      hdr.NodeCount,
		BuildID:        uuid.NewString(),
		IssuedUnixMS:   time.Now().UnixMilli(),
	}, nil
}

// Matches verifies that cp commits to exactly data.
func (cp Checkpoint) Matches(data []byte) error {
	digest := sha256.Sum256(data)
	if !bytes.Equal(cp.ArtifactSHA256, digest[:]) {
		return fmt.Errorf("%w: artifact digest differs", ErrSealMismatch)
	}
	hdr, err := artifact.DecodeHeader(data)
	if err != nil {
		return err
	}
	if cp.FormatVersion != hdr.Version || cp.NodeCount != hdr.NodeCount {
		return fmt.Errorf("%w: header fields differ", ErrSealMismatch)
	}
	return nil
}

// Sealer signs and verifies checkpoint envelopes. The CBOR codec is
// deterministic so re-signing the same checkpoint yields the same payload
// bytes.
type Sealer struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

func NewSealer() (Sealer, error) {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return Sealer{}, err
	}
	dec, err := cbor.DecOptions{DupMapKey: cbor.DupMapKeyEnforcedAPF}.DecMode()
	if err != nil {
		return Sealer{}, err
	}
	return Sealer{enc: enc, dec: dec}, nil
}

// Sign wraps cp in a COSE Sign1 envelope. keyID names the signing key for
// verifiers that hold more than one.
func (s Sealer) Sign(signer cose.Signer, keyID string, cp Checkpoint) ([]byte, error) {
	payload, err := s.enc.Marshal(cp)
	if err != nil {
		return nil, err
	}
	msg := cose.Sign1Message{
		Headers: cose.Headers{
			Protected: cose.ProtectedHeader{
				cose.HeaderLabelKeyID: []byte(keyID),
			},
		},
		Payload: payload,
	}
	if err := msg.Sign(rand.Reader, nil, signer); err != nil {
		return nil, err
	}
	return msg.MarshalCBOR()
}

// Verify checks the envelope signature and returns the decoded checkpoint.
// The caller still has to call Matches against the artifact it fetched.
func (s Sealer) Verify(envelope []byte, verifier cose.Verifier) (Checkpoint, error) {
	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(envelope); err != nil {
		return Checkpoint{}, err
	}
	if err := msg.Verify(nil, verifier); err != nil {
		return Checkpoint{}, err
	}
	if msg.Payload == nil {
		return Checkpoint{}, ErrNoPayload
	}
	var cp Checkpoint
	if err := s.dec.Unmarshal(msg.Payload, &cp); err != nil {
		return Checkpoint{}, err
	}
	return cp, nil
}
