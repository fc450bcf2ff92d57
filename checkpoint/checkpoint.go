// Package checkpoint produces and verifies signed commitments to a published
// tree root.
//
// A checkpoint binds a root hash to the store that produced it, the commit
// sequence number and a signing time, and wraps the claim in a COSE Sign1
// envelope (RFC 8152). Anyone holding the signer's public key can verify a
// checkpoint offline and then use the attested root with urkel.Verify,
// without trusting the party that served the proof.
package checkpoint

import (
	"crypto/ecdsa"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/veraison/go-cose"

	"github.com/forestrie/go-urkel/urkel"
)

var (
	ErrMalformedCheckpoint = errors.New("checkpoint: malformed message")
	ErrVerifyFailed        = errors.New("checkpoint: signature verification failed")
)

// State is the signed payload. Fields use compact integer keys so the
// encoding stays small and deterministic.
type State struct {
	// StoreID is the 16 byte identity of the store, from the log header.
	StoreID []byte `cbor:"1,keyasint"`
	// Root is the 32 byte published root hash being attested.
	Root []byte `cbor:"2,keyasint"`
	// Version is the commit sequence number that published Root.
	Version uint64 `cbor:"3,keyasint"`
	// Timestamp is the unix time (milliseconds) read at signing. Including
	// it allows the same root to be re-signed.
	Timestamp int64 `cbor:"4,keyasint"`
}

// StateOf captures the currently published root of an open tree.
func StateOf(t *urkel.Tree) State {
	id := t.ID()
	root := t.Root()
	return State{
		StoreID:   id[:],
		Root:      root[:],
		Version:   t.Version(),
		Timestamp: time.Now().UnixMilli(),
	}
}

// RootHash returns the attested root in the form urkel.Verify expects.
func (s State) RootHash() (urkel.Hash, error) {
	var h urkel.Hash
	if len(s.Root) != urkel.HashBytes {
		return h, fmt.Errorf("%w: root is %d bytes", ErrMalformedCheckpoint, len(s.Root))
	}
	copy(h[:], s.Root)
	return h, nil
}

// ID returns the attested store identity.
func (s State) ID() (uuid.UUID, error) {
	return uuid.FromBytes(s.StoreID)
}

func encMode() (cbor.EncMode, error) {
	return cbor.CoreDetEncOptions().EncMode()
}

// Signer signs checkpoints with an ECDSA P-256 key under COSE ES256.
type Signer struct {
	issuer string
	signer cose.Signer
	enc    cbor.EncMode
}

// NewSigner wraps key for checkpoint signing. The issuer string is carried in
// the protected headers so verifiers can attribute the attestation.
func NewSigner(issuer string, key *ecdsa.PrivateKey) (*Signer, error) {
	cs, err := cose.NewSigner(cose.AlgorithmES256, key)
	if err != nil {
		return nil, err
	}
	enc, err := encMode()
	if err != nil {
		return nil, err
	}
	return &Signer{issuer: issuer, signer: cs, enc: enc}, nil
}

// Sign encodes state deterministically and returns the CBOR encoded COSE
// Sign1 message.
func (s *Signer) Sign(state State) ([]byte, error) {
	payload, err := s.enc.Marshal(state)
	if err != nil {
		return nil, err
	}
	headers := cose.Headers{
		Protected: cose.ProtectedHeader{
			cose.HeaderLabelAlgorithm:   cose.AlgorithmES256,
			cose.HeaderLabelContentType: "application/urkel-checkpoint+cbor",
		},
		Unprotected: cose.UnprotectedHeader{},
	}
	if s.issuer != "" {
		headers.Protected[cose.HeaderLabelKeyID] = []byte(s.issuer)
	}
	return cose.Sign1(rand.Reader, s.signer, headers, payload, nil)
}

// Verify checks the COSE envelope against pub and returns the attested state.
// Only a State returned with a nil error is a trustworthy attestation.
func Verify(signed []byte, pub *ecdsa.PublicKey) (State, error) {
	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(signed); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrMalformedCheckpoint, err)
	}
	verifier, err := cose.NewVerifier(cose.AlgorithmES256, pub)
	if err != nil {
		return State{}, err
	}
	if err := msg.Verify(nil, verifier); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrVerifyFailed, err)
	}

	var st State
	if err := cbor.Unmarshal(msg.Payload, &st); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrMalformedCheckpoint, err)
	}
	if _, err := st.RootHash(); err != nil {
		return State{}, err
	}
	if _, err := st.ID(); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrMalformedCheckpoint, err)
	}
	return st, nil
}
