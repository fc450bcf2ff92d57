package urkel

import (
	"fmt"
	"sync"
)

type txState uint8

const (
	txOpen txState = iota
	txCommitted
	txDiscarded
)

// Tx is an isolated, mutable overlay anchored at a base root. Mutations are
// invisible to every other transaction until Commit publishes a new root.
// A Tx moves Open -> Committed or Open -> Discarded and never back; after
// either, mutations fail with ErrTxDone while reads stay valid on the state
// the transaction last observed.
type Tx struct {
	tree *Tree

	mu    sync.Mutex
	root  node
	state txState
}

func (t *Tx) store() *store {
	return t.tree.store
}

// Root computes the root the overlay would publish, without publishing it.
// On an untouched transaction this is the base root.
func (t *Tx) Root() Hash {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.root.hash()
}

// Insert records key -> value in the overlay. Values longer than
// MaxValueSize are rejected with no effect.
func (t *Tx) Insert(key Key, value []byte) error {
	if len(value) > MaxValueSize {
		return fmt.Errorf("%w: %d bytes", ErrValueTooLarge, len(value))
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != txOpen {
		return ErrTxDone
	}
	root, err := t.insert(t.root, key, value, 0)
	if err != nil {
		return err
	}
	t.root = root
	return nil
}

func (t *Tx) insert(n node, key Key, value []byte, depth int) (node, error) {
	n, err := t.store().resolve(n)
	if err != nil {
		return nil, err
	}

	switch cur := n.(type) {
	case *nullNode:
		return newLeafNode(key, value), nil

	case *leafNode:
		if cur.key == key {
			return newLeafNode(key, value), nil
		}
		// Plant an internal node at the first bit where the keys diverge.
		// The keys agree on all bits consumed so far.
		d := depth
		for keyBit(cur.key, d) == keyBit(key, d) {
			d++
		}
		branch := &internalNode{prefix: prefixFromKey(key, depth, d)}
		leaf := newLeafNode(key, value)
		if keyBit(key, d) != 0 {
			branch.left, branch.right = cur, leaf
		} else {
			branch.left, branch.right = leaf, cur
		}
		return branch, nil

	case *internalNode:
		c := cur.prefix.commonWithKey(key, depth)
		if c < cur.prefix.size {
			// Split the skip prefix: the existing subtree keeps the tail,
			// the new leaf takes the branch selected by the diverging bit.
			tail := &internalNode{
				prefix: cur.prefix.slice(c+1, cur.prefix.size),
				left:   cur.left,
				right:  cur.right,
			}
			branch := &internalNode{prefix: cur.prefix.slice(0, c)}
			leaf := newLeafNode(key, value)
			if keyBit(key, depth+c) != 0 {
				branch.left, branch.right = tail, leaf
			} else {
				branch.left, branch.right = leaf, tail
			}
			return branch, nil
		}
		d := depth + cur.prefix.size
		bit := keyBit(key, d)
		child, err := t.insert(cur.child(bit), key, value, d+1)
		if err != nil {
			return nil, err
		}
		return cur.replaceChild(bit, child), nil
	}
	return nil, fmt.Errorf("%w: unknown node variant", ErrCorrupt)
}

// Remove records the deletion of key. A key absent from the transaction's
// effective view fails with ErrNotFound and leaves the overlay unchanged.
func (t *Tx) Remove(key Key) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != txOpen {
		return ErrTxDone
	}
	root, found, err := t.remove(t.root, key, 0)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: key %x", ErrNotFound, key)
	}
	t.root = root
	return nil
}

func (t *Tx) remove(n node, key Key, depth int) (node, bool, error) {
	n, err := t.store().resolve(n)
	if err != nil {
		return nil, false, err
	}

	switch cur := n.(type) {
	case *nullNode:
		return n, false, nil

	case *leafNode:
		if cur.key != key {
			return n, false, nil
		}
		return sharedNull, true, nil

	case *internalNode:
		if !cur.prefix.matchesKey(key, depth) {
			return n, false, nil
		}
		d := depth + cur.prefix.size
		bit := keyBit(key, d)
		child, found, err := t.remove(cur.child(bit), key, d+1)
		if err != nil || !found {
			return n, found, err
		}
		if _, gone := child.(*nullNode); !gone {
			return cur.replaceChild(bit, child), true, nil
		}
		// The removed leaf's sibling absorbs this node. A surviving internal
		// concatenates prefixes; a leaf carries no depth and moves up as is.
		sib, err := t.store().resolve(cur.child(1 - bit))
		if err != nil {
			return nil, false, err
		}
		if si, ok := sib.(*internalNode); ok {
			return &internalNode{
				prefix: cur.prefix.join(1-bit, si.prefix),
				left:   si.left,
				right:  si.right,
			}, true, nil
		}
		return sib, true, nil
	}
	return nil, false, fmt.Errorf("%w: unknown node variant", ErrCorrupt)
}

// Get returns the value for key, or nil when the key is absent. Absence is
// not an error.
func (t *Tx) Get(key Key) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	leaf, err := t.seek(key)
	if err != nil || leaf == nil {
		return nil, err
	}
	return t.store().readValue(leaf)
}

// Has reports whether key is present, without retrieving the value.
func (t *Tx) Has(key Key) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	leaf, err := t.seek(key)
	return leaf != nil, err
}

// seek walks the overlay to the leaf that holds key, or nil when the path
// dead-ends or terminates at a different key.
func (t *Tx) seek(key Key) (*leafNode, error) {
	n := t.root
	depth := 0
	for {
		var err error
		n, err = t.store().resolve(n)
		if err != nil {
			return nil, err
		}
		switch cur := n.(type) {
		case *nullNode:
			return nil, nil
		case *leafNode:
			if cur.key == key {
				return cur, nil
			}
			return nil, nil
		case *internalNode:
			if !cur.prefix.matchesKey(key, depth) {
				return nil, nil
			}
			depth += cur.prefix.size
			n = cur.child(keyBit(key, depth))
			depth++
		default:
			return nil, fmt.Errorf("%w: unknown node variant", ErrCorrupt)
		}
	}
}

// Commit publishes the overlay: new nodes are appended to the log and the
// store's root pointer advances atomically. On failure the previous root
// stays published and the overlay survives for a retry or an explicit
// Revert. After a successful commit the transaction is terminal; reads keep
// working against the committed root.
func (t *Tx) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != txOpen {
		return ErrTxDone
	}

	s := t.store()
	s.commitMu.Lock()
	ref, err := s.commit(t.root)
	s.commitMu.Unlock()
	if err != nil {
		return err
	}

	t.root = nodeFromRoot(ref)
	t.state = txCommitted
	return nil
}

// Revert discards the overlay and rebinds the transaction to target, which
// must be a root the store retains. This is a full reset, not an undo.
func (t *Tx) Revert(target Hash) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != txOpen {
		return ErrTxDone
	}
	ref, err := t.store().lookupRoot(target)
	if err != nil {
		return err
	}
	t.root = nodeFromRoot(ref)
	return nil
}

// Discard drops the overlay. The transaction is terminal afterwards.
func (t *Tx) Discard() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == txOpen {
		t.state = txDiscarded
		t.root = sharedNull
	}
}

// Prove builds a proof for key against the transaction's current overlay
// root, including uncommitted mutations.
func (t *Tx) Prove(key Key) (*Proof, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return proveNode(t.store(), t.root, key)
}

// Iterate scans the transaction's effective view in trie-bit order.
func (t *Tx) Iterate() *Iterator {
	t.mu.Lock()
	defer t.mu.Unlock()
	return newIterator(t.store(), t.root)
}
