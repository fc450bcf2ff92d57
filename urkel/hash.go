package urkel

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// Node hash domain separation prefixes.
const (
	leafHashPrefix     = 0x00
	internalHashPrefix = 0x01
	skipHashPrefix     = 0x02
)

// HashValue returns the BLAKE2b-256 digest of value. This is the value
// commitment a leaf carries; proofs of inclusion recompute it.
func HashValue(value []byte) Hash {
	return blake2b.Sum256(value)
}

// hashLeaf computes:
//
//	H( 0x00 || key[32] || valueHash[32] )
func hashLeaf(key Key, valueHash Hash) Hash {
	h, _ := blake2b.New256(nil)
	h.Write([]byte{leafHashPrefix})
	h.Write(key[:])
	h.Write(valueHash[:])
	var out Hash
	h.Sum(out[:0])
	return out
}

// hashInternal computes:
//
//	H( 0x01 || left[32] || right[32] )                           empty prefix
//	H( 0x02 || size_be16 || prefixBytes || left[32] || right[32] )
func hashInternal(p prefix, left, right Hash) Hash {
	h, _ := blake2b.New256(nil)
	if p.size == 0 {
		h.Write([]byte{internalHashPrefix})
	} else {
		var size [2]byte
		binary.BigEndian.PutUint16(size[:], uint16(p.size))
		h.Write([]byte{skipHashPrefix})
		h.Write(size[:])
		h.Write(p.data[:p.byteLen()])
	}
	h.Write(left[:])
	h.Write(right[:])
	var out Hash
	h.Sum(out[:0])
	return out
}
