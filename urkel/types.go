package urkel

const (
	// KeyBytes is the fixed width of tree keys.
	KeyBytes = 32

	// KeyBits is the number of path bits in a key, and the maximum depth of
	// the trie.
	KeyBits = KeyBytes * 8

	// HashBytes is the width of node hashes and roots.
	HashBytes = 32

	// MaxValueSize bounds the byte length of stored values. Inserts of
	// larger values are rejected before any mutation takes place.
	MaxValueSize = 1024
)

// Key addresses a leaf by its 256 bit path, walked MSB-first. Keys are
// opaque; the trie imposes no ordering beyond bitwise position.
type Key [KeyBytes]byte

// Hash is a BLAKE2b-256 digest. A Hash returned by Root identifies a
// complete key/value snapshot of the tree.
type Hash [HashBytes]byte

// ZeroHash is the root of the empty tree.
var ZeroHash Hash
