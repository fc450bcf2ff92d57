package urkel

import "errors"

var (
	// ErrNotFound reports an absent key on Remove, or an unknown root on
	// TransactionAt, Revert, Prove and Iterate. It is distinct from I/O
	// failures so callers can treat absence as a normal outcome.
	ErrNotFound = errors.New("urkel: not found")

	ErrValueTooLarge = errors.New("urkel: value exceeds maximum size")
	ErrTxDone        = errors.New("urkel: transaction is no longer open")
	ErrClosed        = errors.New("urkel: tree is closed")
	ErrNotDirectory  = errors.New("urkel: store prefix is not a directory")

	// ErrCorrupt wraps any persisted-state fault: bad magic, failed
	// checksums, references past the durable log length. Open fails closed
	// on corruption rather than reinitialising the store.
	ErrCorrupt = errors.New("urkel: store data is corrupt")
)

// Proof verification failures. Verify returns exactly one of these for a
// proof it cannot accept; only a nil error is a trustworthy result.
var (
	ErrHashMismatch  = errors.New("urkel: computed root does not match expected root")
	ErrSameKey       = errors.New("urkel: exclusion proof terminates at the queried key")
	ErrSamePath      = errors.New("urkel: short node prefix does not diverge from the key")
	ErrNegativeDepth = errors.New("urkel: proof depth underflow")
	ErrPathMismatch  = errors.New("urkel: proof prefix bits do not match the key")
	ErrTooDeep       = errors.New("urkel: proof depth is not satisfied by the proof nodes")
	ErrInvalidProof  = errors.New("urkel: proof is malformed")
)
