package urkel

/*

# Urkel: an authenticated key-value store

This package implements a persistent, root-addressed merkle radix trie over
256-bit keys. Every committed state is identified by a 32 byte root hash that
commits to the entire key/value set, and any party holding only that root can
verify inclusion or exclusion of a key with a compact proof.

It follows the "functional primitives" style used across go-merklelog:

- small, composable functions
- explicit byte layouts, big-endian integers
- package-level sentinel errors, wrapped with context

## Structure

The trie is walked by key bits, most significant bit first. Shared key
prefixes are compressed into internal-node skip prefixes, so a leaf is
planted at the first bit where its key diverges from every other key in the
tree. Node hashing is domain separated:

	leaf:      H(0x00 || key || H(value))
	internal:  H(0x01 || left || right)                      (empty prefix)
	           H(0x02 || size_be16 || prefix || left || right)

with H = BLAKE2b-256. The empty tree hashes to 32 zero bytes.

## Core invariants

1. the root is a pure function of the key/value mapping; insertion order
   never affects it
2. nodes reachable from a published root are immutable; mutation creates
   new nodes along the changed path and shares every untouched subtree
3. a transaction's overlay is invisible to every other transaction until
   its commit publishes a new root

## Persistence

A store lives under a filesystem prefix holding an append-only node log and
a small meta record with the published root pointer. Commit appends the
changed nodes and a back-chained commit record, then replaces the meta
record atomically; a crash mid-commit leaves the previous root the only
visible one. Historical roots stay provable because the log is append-only.

Proof verification (Verify) is pure and needs no open store.

*/
