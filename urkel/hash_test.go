package urkel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashValueMatchesBlake2bReference(t *testing.T) {
	vectors := []struct {
		data []byte
		want string
	}{
		{nil, "0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8"},
		{[]byte("abc"), "bddd813c634239723171ef3fee98579b94964e3bb1cb3e427262c8c068d52319"},
		{[]byte("hello"), "324dcf027dd4a30a932c441f365a25e86b173defa4b8e58948253471b81b72cf"},
		{[]byte("world"), "9a3440c9d1529b122faceef33739b6e814616658d53faaf6e4f129fb20edfb13"},
		{[]byte("hello_world"), "2be4771c69ec7be46c9c91dd036ad051a55031545c84f5668fe288bda1bdb6b3"},
		{[]byte{1, 2, 3}, "11c0e79b71c3976ccd0c02d1310e2516c08edc9d8b6f57ccd680d63a4d8e72da"},
	}
	for _, v := range vectors {
		require.Equal(t, hashFromHex(t, v.want), HashValue(v.data), "data %q", v.data)
	}
}

func TestLeafHashMatchesSingleKeyRoot(t *testing.T) {
	// A single-leaf tree's root is the leaf hash itself.
	want := hashFromHex(t, "58f8fd75fe4ebe990b2e84e497932ae7c4e29c841035a6fa9b6879d44902d73a")
	require.Equal(t, want, hashLeaf(testKey(1), HashValue([]byte("hello"))))
}

func TestInternalHashDependsOnPrefix(t *testing.T) {
	l := hashLeaf(testKey(1), HashValue([]byte("a")))
	r := hashLeaf(testKey(2), HashValue([]byte("b")))

	bare := hashInternal(prefix{}, l, r)
	skipped := hashInternal(prefixFromKey(testKey(1), 0, 6), l, r)
	require.NotEqual(t, bare, skipped)

	swapped := hashInternal(prefix{}, r, l)
	require.NotEqual(t, bare, swapped)
}
