package urkel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProofRoundTripAllTypes(t *testing.T) {
	tree := k1k2Tree(t)
	root := tree.Root()

	for _, key := range []Key{testKey(1), testKey(2), testKey(3), testKey(4)} {
		p, err := tree.Prove(key, root)
		require.NoError(t, err)

		raw, err := p.MarshalBinary()
		require.NoError(t, err)

		var back Proof
		require.NoError(t, back.UnmarshalBinary(raw))
		require.Equal(t, p.Type(), back.Type())

		again, err := back.MarshalBinary()
		require.NoError(t, err)
		require.Equal(t, raw, again)
	}
}

func TestProveFromTxSeesUncommittedState(t *testing.T) {
	tree, _ := newTestTree(t)
	tx, err := tree.Transaction()
	require.NoError(t, err)
	require.NoError(t, tx.Insert(testKey(1), []byte("hello")))

	p, err := tx.Prove(testKey(1))
	require.NoError(t, err)
	require.Equal(t, ProofExists, p.Type())
	require.Equal(t, []byte("hello"), p.Value())

	raw, err := p.MarshalBinary()
	require.NoError(t, err)
	v, err := Verify(raw, testKey(1), tx.Root())
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), v)
}

func TestProveFromTxAndStoreAgree(t *testing.T) {
	tree := k1k2Tree(t)
	tx, err := tree.Transaction()
	require.NoError(t, err)

	for _, key := range []Key{testKey(1), testKey(3), testKey(4)} {
		fromStore, err := tree.Prove(key, tree.Root())
		require.NoError(t, err)
		fromTx, err := tx.Prove(key)
		require.NoError(t, err)

		a, err := fromStore.MarshalBinary()
		require.NoError(t, err)
		b, err := fromTx.MarshalBinary()
		require.NoError(t, err)
		require.Equal(t, a, b)
	}
}

func TestProveUnknownRootFails(t *testing.T) {
	tree := k1k2Tree(t)
	_, err := tree.Prove(testKey(1), hashFromHex(t,
		"00000000000000000000000000000000000000000000000000000000000000ff"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestProofValueIsNilForNonInclusion(t *testing.T) {
	tree := k1k2Tree(t)

	p, err := tree.Prove(testKey(3), tree.Root())
	require.NoError(t, err)
	require.Equal(t, ProofCollision, p.Type())
	require.Nil(t, p.Value())
}

func TestProofSurvivesStoreLifetime(t *testing.T) {
	// A marshalled proof verifies after the store that produced it is gone.
	tree := k1k2Tree(t)
	root := tree.Root()
	p, err := tree.Prove(testKey(1), root)
	require.NoError(t, err)
	raw, err := p.MarshalBinary()
	require.NoError(t, err)
	require.NoError(t, tree.Close())

	v, err := Verify(raw, testKey(1), root)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), v)
}

func TestProofsAcrossDeepTree(t *testing.T) {
	// Adjacent integer keys force long shared prefixes, exercising skip
	// encoding in both the path steps and the terminals.
	tree, _ := newTestTree(t)
	tx, err := tree.Transaction()
	require.NoError(t, err)

	var keys []Key
	for i := 0; i < 32; i++ {
		var k Key
		k[31] = byte(i)
		keys = append(keys, k)
		require.NoError(t, tx.Insert(k, []byte{byte(i)}))
	}
	require.NoError(t, tx.Commit())
	root := tree.Root()

	for i, k := range keys {
		p, err := tree.Prove(k, root)
		require.NoError(t, err)
		require.Equal(t, ProofExists, p.Type())

		raw, err := p.MarshalBinary()
		require.NoError(t, err)
		v, err := Verify(raw, k, root)
		require.NoError(t, err)
		require.Equal(t, []byte{byte(i)}, v)
	}

	var absent Key
	absent[31] = 200
	p, err := tree.Prove(absent, root)
	require.NoError(t, err)
	raw, err := p.MarshalBinary()
	require.NoError(t, err)
	v, err := Verify(raw, absent, root)
	require.NoError(t, err)
	require.Nil(t, v)
}
