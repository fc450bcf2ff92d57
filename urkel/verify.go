package urkel

// Verify checks proofBytes against a trusted root with no store access.
//
// It returns (value, nil) for a verified inclusion, (nil, nil) for a
// verified exclusion, and otherwise exactly one of the verification errors:
// ErrInvalidProof when the encoding does not parse, ErrSameKey, ErrSamePath,
// ErrNegativeDepth, ErrPathMismatch or ErrTooDeep for an internally
// inconsistent proof, and ErrHashMismatch when the replayed root differs
// from the expected one. Only the nil-error outcomes are trustworthy
// statements about the key.
func Verify(proofBytes []byte, key Key, expectedRoot Hash) ([]byte, error) {
	var p Proof
	if err := p.UnmarshalBinary(proofBytes); err != nil {
		return nil, err
	}
	return p.Verify(key, expectedRoot)
}

// Verify replays the proof for key from the terminal back to the root and
// compares against expectedRoot. See the package-level Verify for the error
// contract.
func (p *Proof) Verify(key Key, expectedRoot Hash) ([]byte, error) {
	depth := p.depth

	var h Hash
	switch p.typ {
	case ProofDeadEnd:
		h = ZeroHash

	case ProofShort:
		// The short node can only prove exclusion if its prefix diverges
		// from the key; a matching prefix means the walk should have
		// continued below it.
		if p.shortPrefix.matchesKey(key, depth) {
			return nil, ErrSamePath
		}
		h = hashInternal(p.shortPrefix, p.left, p.right)

	case ProofCollision:
		if p.key == key {
			return nil, ErrSameKey
		}
		h = hashLeaf(p.key, p.valueHash)

	case ProofExists:
		h = hashLeaf(key, HashValue(p.value))
	}

	// Replay the recorded path bottom-up. Each step consumes one branch bit
	// plus the step's skip prefix, and the prefix must match the key bits it
	// claims to have skipped.
	for i := len(p.steps) - 1; i >= 0; i-- {
		st := p.steps[i]
		if depth < st.prefix.size+1 {
			return nil, ErrNegativeDepth
		}
		depth--
		if keyBit(key, depth) != 0 {
			h = hashInternal(st.prefix, st.sibling, h)
		} else {
			h = hashInternal(st.prefix, h, st.sibling)
		}
		depth -= st.prefix.size
		if !st.prefix.matchesKey(key, depth) {
			return nil, ErrPathMismatch
		}
	}

	if depth != 0 {
		return nil, ErrTooDeep
	}
	if h != expectedRoot {
		return nil, ErrHashMismatch
	}

	if p.typ == ProofExists {
		v := make([]byte, len(p.value))
		copy(v, p.value)
		return v, nil
	}
	return nil, nil
}
