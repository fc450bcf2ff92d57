package urkel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, it *Iterator) ([]Key, [][]byte) {
	t.Helper()
	var keys []Key
	var values [][]byte
	for it.Next() {
		keys = append(keys, it.Key())
		values = append(values, it.Value())
	}
	require.NoError(t, it.Err())
	return keys, values
}

func TestIterateEmptyTree(t *testing.T) {
	tree, _ := newTestTree(t)
	it, err := tree.Iterate(ZeroHash)
	require.NoError(t, err)
	require.False(t, it.Next())
	require.NoError(t, it.Err())
}

func TestIterateYieldsTrieBitOrder(t *testing.T) {
	tree, _ := newTestTree(t)
	tx, err := tree.Transaction()
	require.NoError(t, err)

	// Insertion order must not matter.
	require.NoError(t, tx.Insert(testKey(2), []byte("world")))
	require.NoError(t, tx.Insert(testKey(1), []byte("hello")))
	require.NoError(t, tx.Commit())

	it, err := tree.Iterate(tree.Root())
	require.NoError(t, err)
	keys, values := collect(t, it)

	require.Equal(t, []Key{testKey(1), testKey(2)}, keys)
	require.Equal(t, [][]byte{[]byte("hello"), []byte("world")}, values)
}

func TestIterateUncommittedTransaction(t *testing.T) {
	tree, _ := newTestTree(t)
	tx, err := tree.Transaction()
	require.NoError(t, err)
	require.NoError(t, tx.Insert(testKey(3), []byte("abc")))
	require.NoError(t, tx.Insert(testKey(1), []byte("hello")))

	keys, values := collect(t, tx.Iterate())
	require.Equal(t, []Key{testKey(1), testKey(3)}, keys)
	require.Equal(t, [][]byte{[]byte("hello"), []byte("abc")}, values)
}

func TestIterateHistoricalRootIsStable(t *testing.T) {
	tree, _ := newTestTree(t)
	tx, err := tree.Transaction()
	require.NoError(t, err)
	require.NoError(t, tx.Insert(testKey(1), []byte("hello")))
	require.NoError(t, tx.Commit())
	old := tree.Root()

	tx, err = tree.Transaction()
	require.NoError(t, err)
	require.NoError(t, tx.Insert(testKey(2), []byte("world")))
	require.NoError(t, tx.Commit())

	it, err := tree.Iterate(old)
	require.NoError(t, err)
	keys, _ := collect(t, it)
	require.Equal(t, []Key{testKey(1)}, keys)
}

func TestIterateUnknownRootFails(t *testing.T) {
	tree, _ := newTestTree(t)
	_, err := tree.Iterate(hashFromHex(t,
		"00000000000000000000000000000000000000000000000000000000000000ff"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestIterateCoversDeepTree(t *testing.T) {
	tree, _ := newTestTree(t)
	tx, err := tree.Transaction()
	require.NoError(t, err)

	// Reverse insertion order over keys that differ only in the last byte.
	const n = 64
	for i := n - 1; i >= 0; i-- {
		var k Key
		k[31] = byte(i)
		require.NoError(t, tx.Insert(k, []byte{byte(i)}))
	}
	require.NoError(t, tx.Commit())

	it, err := tree.Iterate(tree.Root())
	require.NoError(t, err)
	keys, values := collect(t, it)
	require.Len(t, keys, n)
	for i := 0; i < n; i++ {
		require.Equal(t, byte(i), keys[i][31])
		require.Equal(t, []byte{byte(i)}, values[i])
	}
}
