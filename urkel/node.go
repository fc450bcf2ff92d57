package urkel

// node is one vertex of the in-memory trie overlay. Nodes read back from the
// store are immutable once resolved; mutation always allocates fresh nodes
// along the changed path (copy-on-write), so published roots keep hashing to
// the same value forever.
type node interface {
	hash() Hash
}

// nullNode marks an unoccupied tree. Only the root of an empty tree is null;
// internal nodes always have two real children.
type nullNode struct{}

var sharedNull = &nullNode{}

func (*nullNode) hash() Hash { return ZeroHash }

// leafNode holds a key and the commitment to its value. For a persisted
// leaf, value may be nil; vpos/vsize locate the bytes in the log.
type leafNode struct {
	key       Key
	valueHash Hash
	value     []byte
	vpos      int64
	vsize     uint16

	pos    int64 // log offset of the persisted record, 0 while dirty
	h      Hash
	hashed bool
}

func newLeafNode(key Key, value []byte) *leafNode {
	v := make([]byte, len(value))
	copy(v, value)
	return &leafNode{
		key:       key,
		valueHash: HashValue(v),
		value:     v,
		vsize:     uint16(len(v)),
	}
}

func (n *leafNode) hash() Hash {
	if !n.hashed {
		n.h = hashLeaf(n.key, n.valueHash)
		n.hashed = true
	}
	return n.h
}

// internalNode combines two subtrees below a compressed skip prefix.
type internalNode struct {
	prefix prefix
	left   node
	right  node

	pos    int64
	h      Hash
	hashed bool
}

func (n *internalNode) hash() Hash {
	if !n.hashed {
		n.h = hashInternal(n.prefix, n.left.hash(), n.right.hash())
		n.hashed = true
	}
	return n.h
}

// child returns the branch selected by bit.
func (n *internalNode) child(bit int) node {
	if bit != 0 {
		return n.right
	}
	return n.left
}

// replaceChild returns a copy of n with the selected branch swapped.
func (n *internalNode) replaceChild(bit int, c node) *internalNode {
	out := &internalNode{prefix: n.prefix, left: n.left, right: n.right}
	if bit != 0 {
		out.right = c
	} else {
		out.left = c
	}
	return out
}

// hashedNode is an unresolved reference to a persisted node. It knows its
// hash and log position; the store resolves it on demand.
type hashedNode struct {
	h    Hash
	pos  int64
	leaf bool
}

func (n *hashedNode) hash() Hash { return n.h }
