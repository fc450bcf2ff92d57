package urkel

// keyBit returns the bit of k at index i, where i=0 is the MSB of k[0].
func keyBit(k Key, i int) int {
	return int(k[i>>3]>>(7-i&7)) & 1
}

// prefix is a bit string of up to KeyBits bits, packed MSB-first with unused
// trailing bits zero. The zero value is the empty prefix.
type prefix struct {
	size int
	data []byte
}

func (p prefix) byteLen() int {
	return (p.size + 7) / 8
}

func (p prefix) bit(i int) int {
	return int(p.data[i>>3]>>(7-i&7)) & 1
}

func setBit(data []byte, i int, bit int) {
	if bit != 0 {
		data[i>>3] |= 0x80 >> (i & 7)
	}
}

// prefixFromKey copies key bits [from, to) into a packed prefix.
func prefixFromKey(k Key, from, to int) prefix {
	p := prefix{size: to - from, data: make([]byte, (to-from+7)/8)}
	for i := 0; i < p.size; i++ {
		setBit(p.data, i, keyBit(k, from+i))
	}
	return p
}

// commonWithKey counts the leading bits of p that agree with the key bits
// starting at depth.
func (p prefix) commonWithKey(k Key, depth int) int {
	n := 0
	for n < p.size && p.bit(n) == keyBit(k, depth+n) {
		n++
	}
	return n
}

// matchesKey reports whether every bit of p agrees with the key bits
// starting at depth.
func (p prefix) matchesKey(k Key, depth int) bool {
	return p.commonWithKey(k, depth) == p.size
}

// slice copies bits [from, to) of p into a new prefix.
func (p prefix) slice(from, to int) prefix {
	out := prefix{size: to - from, data: make([]byte, (to-from+7)/8)}
	for i := 0; i < out.size; i++ {
		setBit(out.data, i, p.bit(from+i))
	}
	return out
}

// join concatenates p, a single branch bit and q. Used when a removal
// collapses an internal node into its surviving child.
func (p prefix) join(bit int, q prefix) prefix {
	out := prefix{size: p.size + 1 + q.size, data: make([]byte, (p.size+1+q.size+7)/8)}
	for i := 0; i < p.size; i++ {
		setBit(out.data, i, p.bit(i))
	}
	setBit(out.data, p.size, bit)
	for i := 0; i < q.size; i++ {
		setBit(out.data, p.size+1+i, q.bit(i))
	}
	return out
}
