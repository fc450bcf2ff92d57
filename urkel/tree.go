package urkel

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options configure an open tree. The zero value is usable; core trie
// operations never log.
type Options struct {
	// Logger receives store lifecycle and commit events. Defaults to a nop
	// logger.
	Logger *zap.Logger
}

type Option func(*Options)

func WithLogger(l *zap.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// Tree is an open authenticated key-value store. It is safe for concurrent
// use: reads and proofs never block, and commits are serialized internally.
type Tree struct {
	store *store
}

// Open opens the store under prefix, creating it when nothing exists there
// yet. It fails when prefix exists but is not a valid store directory.
func Open(prefix string, opts ...Option) (*Tree, error) {
	o := Options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	s, err := openStore(prefix, o.Logger)
	if err != nil {
		return nil, err
	}
	return &Tree{store: s}, nil
}

// Destroy removes the store persisted under prefix. Destroying a prefix with
// nothing persisted is a success.
func Destroy(prefix string) error {
	return destroyStore(prefix)
}

// Close releases the store. The tree must not be used afterwards.
func (t *Tree) Close() error {
	return t.store.close()
}

// ID is the store's stable identity, assigned at creation and persisted in
// the log header.
func (t *Tree) ID() uuid.UUID {
	return t.store.id
}

// Root returns the currently published root. A freshly created store
// publishes the zero root.
func (t *Tree) Root() Hash {
	return t.store.publishedRoot().h
}

// Version counts the commits published since the store was created.
func (t *Tree) Version() uint64 {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	return t.store.version
}

// Transaction opens an isolated overlay anchored at the published root.
func (t *Tree) Transaction() (*Tx, error) {
	t.store.mu.RLock()
	if t.store.closed {
		t.store.mu.RUnlock()
		return nil, ErrClosed
	}
	ref := t.store.root
	t.store.mu.RUnlock()
	return &Tx{tree: t, root: nodeFromRoot(ref)}, nil
}

// TransactionAt opens an isolated overlay anchored at a historical root.
// Unknown roots fail with ErrNotFound.
func (t *Tree) TransactionAt(root Hash) (*Tx, error) {
	ref, err := t.store.lookupRoot(root)
	if err != nil {
		return nil, err
	}
	return &Tx{tree: t, root: nodeFromRoot(ref)}, nil
}

// Prove builds a proof for key under a historical root the store retains.
func (t *Tree) Prove(key Key, root Hash) (*Proof, error) {
	ref, err := t.store.lookupRoot(root)
	if err != nil {
		return nil, err
	}
	return proveNode(t.store, nodeFromRoot(ref), key)
}

// Iterate scans the key/value pairs reachable from a historical root in
// trie-bit order.
func (t *Tree) Iterate(root Hash) (*Iterator, error) {
	ref, err := t.store.lookupRoot(root)
	if err != nil {
		return nil, err
	}
	return newIterator(t.store, nodeFromRoot(ref)), nil
}
