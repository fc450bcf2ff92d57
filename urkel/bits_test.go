package urkel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyBitIsMSBFirst(t *testing.T) {
	var k Key
	k[0] = 0x80
	k[31] = 0x01

	require.Equal(t, 1, keyBit(k, 0))
	require.Equal(t, 0, keyBit(k, 1))
	require.Equal(t, 0, keyBit(k, 254))
	require.Equal(t, 1, keyBit(k, 255))
}

func TestPrefixFromKeyRoundTrip(t *testing.T) {
	k := testKey(0xa5)
	p := prefixFromKey(k, 3, 19)

	require.Equal(t, 16, p.size)
	require.True(t, p.matchesKey(k, 3))
	for i := 0; i < p.size; i++ {
		require.Equal(t, keyBit(k, 3+i), p.bit(i))
	}
}

func TestPrefixCommonWithKey(t *testing.T) {
	k1 := testKey(1)
	k2 := testKey(2)
	// 0x01 and 0x02 share six leading zero bits per byte.
	p := prefixFromKey(k1, 0, 8)

	require.Equal(t, 6, p.commonWithKey(k2, 0))
	require.Equal(t, 8, p.commonWithKey(k1, 0))
	require.False(t, p.matchesKey(k2, 0))
}

func TestPrefixSlice(t *testing.T) {
	k := testKey(0xc3)
	p := prefixFromKey(k, 0, 16)
	s := p.slice(5, 13)

	require.Equal(t, 8, s.size)
	for i := 0; i < s.size; i++ {
		require.Equal(t, p.bit(5+i), s.bit(i))
	}
}

func TestPrefixJoinConcatenatesThroughBranchBit(t *testing.T) {
	k := testKey(0x3c)
	p := prefixFromKey(k, 0, 5)
	q := prefixFromKey(k, 6, 14)
	j := p.join(keyBit(k, 5), q)

	require.Equal(t, 14, j.size)
	require.True(t, j.matchesKey(k, 0))
}

func TestEmptyPrefixMatchesEverything(t *testing.T) {
	var p prefix
	require.Equal(t, 0, p.byteLen())
	require.True(t, p.matchesKey(testKey(0xff), 0))
	require.True(t, p.matchesKey(testKey(0), 200))
}
