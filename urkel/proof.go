package urkel

import (
	"encoding/binary"
	"fmt"
)

// ProofType names the terminal a proof's path reached.
type ProofType uint8

const (
	// ProofDeadEnd terminates at an empty tree: nothing is at the key's
	// position.
	ProofDeadEnd ProofType = 0
	// ProofShort terminates at an internal node whose skip prefix diverges
	// from the key: no leaf below it can hold the key.
	ProofShort ProofType = 1
	// ProofCollision terminates at a leaf holding a different key.
	ProofCollision ProofType = 2
	// ProofExists terminates at the key's own leaf and carries its value.
	ProofExists ProofType = 3
)

// proofStep records one internal node on the path from the root: its skip
// prefix and the hash of the branch not taken.
type proofStep struct {
	prefix  prefix
	sibling Hash
}

// Proof is compact evidence that a key maps (ProofExists) or does not map
// (any other type) to a value under a stated root. It is self-contained and
// immutable; verification needs no open store.
//
// Wire format, big-endian:
//
//	field    u16   type<<14 | depth
//	count    u16   number of path steps, root first
//	bitmap         one bit per step, set when the step carries a prefix
//	steps          [size u16, prefixBytes] sibling[32]
//	terminal       deadend:   -
//	               short:     size u16, prefixBytes, left[32], right[32]
//	               collision: key[32], valueHash[32]
//	               exists:    vsize u16, value
type Proof struct {
	typ   ProofType
	depth int
	steps []proofStep

	// short terminal
	shortPrefix prefix
	left, right Hash

	// collision terminal
	key       Key
	valueHash Hash

	// exists terminal
	value []byte
}

// Type reports which terminal the proof's path reached.
func (p *Proof) Type() ProofType { return p.typ }

// Value returns the proven value for a ProofExists proof, nil otherwise.
func (p *Proof) Value() []byte { return p.value }

// proveNode walks from root toward key, recording the sibling of every
// branch taken, and captures the terminal it stops at.
func proveNode(s *store, n node, key Key) (*Proof, error) {
	p := &Proof{}
	depth := 0
	for {
		var err error
		n, err = s.resolve(n)
		if err != nil {
			return nil, err
		}
		switch cur := n.(type) {
		case *nullNode:
			p.typ = ProofDeadEnd
			p.depth = 0
			return p, nil

		case *leafNode:
			p.depth = depth
			if cur.key == key {
				p.typ = ProofExists
				p.value, err = s.readValue(cur)
				if err != nil {
					return nil, err
				}
			} else {
				p.typ = ProofCollision
				p.key = cur.key
				p.valueHash = cur.valueHash
			}
			return p, nil

		case *internalNode:
			if !cur.prefix.matchesKey(key, depth) {
				p.typ = ProofShort
				p.depth = depth
				p.shortPrefix = cur.prefix
				p.left = cur.left.hash()
				p.right = cur.right.hash()
				return p, nil
			}
			depth += cur.prefix.size
			bit := keyBit(key, depth)
			p.steps = append(p.steps, proofStep{
				prefix:  cur.prefix,
				sibling: cur.child(1 - bit).hash(),
			})
			n = cur.child(bit)
			depth++

		default:
			return nil, fmt.Errorf("%w: unknown node variant", ErrCorrupt)
		}
	}
}

// MarshalBinary encodes the proof into its canonical wire format.
func (p *Proof) MarshalBinary() ([]byte, error) {
	if p.depth > KeyBits || len(p.steps) > KeyBits {
		return nil, ErrInvalidProof
	}
	size := 4 + (len(p.steps)+7)/8
	for _, st := range p.steps {
		if st.prefix.size > 0 {
			size += 2 + st.prefix.byteLen()
		}
		size += HashBytes
	}
	switch p.typ {
	case ProofShort:
		size += 2 + p.shortPrefix.byteLen() + 2*HashBytes
	case ProofCollision:
		size += KeyBytes + HashBytes
	case ProofExists:
		size += 2 + len(p.value)
	}

	out := make([]byte, 0, size)
	var u16 [2]byte
	binary.BigEndian.PutUint16(u16[:], uint16(p.typ)<<14|uint16(p.depth))
	out = append(out, u16[:]...)
	binary.BigEndian.PutUint16(u16[:], uint16(len(p.steps)))
	out = append(out, u16[:]...)

	bitmap := make([]byte, (len(p.steps)+7)/8)
	for i, st := range p.steps {
		if st.prefix.size > 0 {
			bitmap[i>>3] |= 0x80 >> (i & 7)
		}
	}
	out = append(out, bitmap...)

	for _, st := range p.steps {
		if st.prefix.size > 0 {
			binary.BigEndian.PutUint16(u16[:], uint16(st.prefix.size))
			out = append(out, u16[:]...)
			out = append(out, st.prefix.data[:st.prefix.byteLen()]...)
		}
		out = append(out, st.sibling[:]...)
	}

	switch p.typ {
	case ProofShort:
		binary.BigEndian.PutUint16(u16[:], uint16(p.shortPrefix.size))
		out = append(out, u16[:]...)
		out = append(out, p.shortPrefix.data[:p.shortPrefix.byteLen()]...)
		out = append(out, p.left[:]...)
		out = append(out, p.right[:]...)
	case ProofCollision:
		out = append(out, p.key[:]...)
		out = append(out, p.valueHash[:]...)
	case ProofExists:
		binary.BigEndian.PutUint16(u16[:], uint16(len(p.value)))
		out = append(out, u16[:]...)
		out = append(out, p.value...)
	}
	return out, nil
}

// proofReader decodes the canonical wire format with strict bounds; any
// structural fault is ErrInvalidProof.
type proofReader struct {
	buf []byte
	pos int
}

func (r *proofReader) remaining() int {
	return len(r.buf) - r.pos
}

func (r *proofReader) u16() (int, error) {
	if r.remaining() < 2 {
		return 0, ErrInvalidProof
	}
	v := int(binary.BigEndian.Uint16(r.buf[r.pos:]))
	r.pos += 2
	return v, nil
}

func (r *proofReader) bytes(n int) ([]byte, error) {
	if r.remaining() < n {
		return nil, ErrInvalidProof
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *proofReader) hash() (Hash, error) {
	var h Hash
	b, err := r.bytes(HashBytes)
	if err != nil {
		return h, err
	}
	copy(h[:], b)
	return h, nil
}

// prefixField reads a size-prefixed bit string. Trailing bits of the last
// byte must be zero so every prefix has a unique encoding.
func (r *proofReader) prefixField() (prefix, error) {
	size, err := r.u16()
	if err != nil {
		return prefix{}, err
	}
	if size == 0 || size > KeyBits {
		return prefix{}, ErrInvalidProof
	}
	b, err := r.bytes((size + 7) / 8)
	if err != nil {
		return prefix{}, err
	}
	if size&7 != 0 && b[len(b)-1]&(0xff>>(size&7)) != 0 {
		return prefix{}, ErrInvalidProof
	}
	return prefix{size: size, data: append([]byte(nil), b...)}, nil
}

// UnmarshalBinary decodes a proof, rejecting trailing garbage.
func (p *Proof) UnmarshalBinary(data []byte) error {
	r := &proofReader{buf: data}

	field, err := r.u16()
	if err != nil {
		return err
	}
	typ := ProofType(field >> 14)
	depth := field & 0x3fff
	if depth > KeyBits {
		return ErrInvalidProof
	}
	count, err := r.u16()
	if err != nil {
		return err
	}
	if count > KeyBits {
		return ErrInvalidProof
	}

	bitmap, err := r.bytes((count + 7) / 8)
	if err != nil {
		return err
	}

	steps := make([]proofStep, 0, count)
	for i := 0; i < count; i++ {
		var st proofStep
		if bitmap[i>>3]&(0x80>>(i&7)) != 0 {
			if st.prefix, err = r.prefixField(); err != nil {
				return err
			}
		}
		if st.sibling, err = r.hash(); err != nil {
			return err
		}
		steps = append(steps, st)
	}

	out := Proof{typ: typ, depth: depth, steps: steps}
	switch typ {
	case ProofDeadEnd:

	case ProofShort:
		if out.shortPrefix, err = r.prefixField(); err != nil {
			return err
		}
		if depth+out.shortPrefix.size > KeyBits {
			return ErrInvalidProof
		}
		if out.left, err = r.hash(); err != nil {
			return err
		}
		if out.right, err = r.hash(); err != nil {
			return err
		}

	case ProofCollision:
		b, err := r.bytes(KeyBytes)
		if err != nil {
			return err
		}
		copy(out.key[:], b)
		if out.valueHash, err = r.hash(); err != nil {
			return err
		}

	case ProofExists:
		vsize, err := r.u16()
		if err != nil {
			return err
		}
		if vsize > MaxValueSize {
			return ErrInvalidProof
		}
		b, err := r.bytes(vsize)
		if err != nil {
			return err
		}
		out.value = append([]byte(nil), b...)
	}

	if r.remaining() != 0 {
		return ErrInvalidProof
	}
	*p = out
	return nil
}
