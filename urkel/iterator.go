package urkel

// Iterator scans the key/value pairs reachable from a root in trie-bit
// order, left before right at every internal node. It is forward-only and
// lazy; create a new one to restart. Copy-on-write makes the sequence
// stable even while other transactions commit new roots.
//
//	it := tree.Iterate(root)
//	for it.Next() {
//		use(it.Key(), it.Value())
//	}
//	if err := it.Err(); err != nil { ... }
type Iterator struct {
	store *store
	stack []node
	key   Key
	value []byte
	err   error
	done  bool
}

func newIterator(s *store, root node) *Iterator {
	return &Iterator{store: s, stack: []node{root}}
}

// Next advances to the next pair. It returns false at the end of the
// sequence or on the first error.
func (it *Iterator) Next() bool {
	if it.done {
		return false
	}
	for len(it.stack) > 0 {
		n := it.stack[len(it.stack)-1]
		it.stack = it.stack[:len(it.stack)-1]

		n, err := it.store.resolve(n)
		if err != nil {
			it.err = err
			it.done = true
			return false
		}
		switch cur := n.(type) {
		case *nullNode:

		case *internalNode:
			it.stack = append(it.stack, cur.right, cur.left)

		case *leafNode:
			v, err := it.store.readValue(cur)
			if err != nil {
				it.err = err
				it.done = true
				return false
			}
			it.key = cur.key
			it.value = v
			return true
		}
	}
	it.done = true
	return false
}

// Key returns the key of the current pair. Valid after Next reports true.
func (it *Iterator) Key() Key { return it.key }

// Value returns the value of the current pair. Valid after Next reports
// true.
func (it *Iterator) Value() []byte { return it.value }

// Err reports the error that stopped iteration, if any.
func (it *Iterator) Err() error { return it.err }
