package urkel

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

// The pinned vectors below all derive from the same small tree:
//
//	k1 = 32 x 0x01 -> "hello"
//	k2 = 32 x 0x02 -> "world"
//
// whose root is rootK1K2. They guard the canonical hashing and proof wire
// format against accidental drift; a failure here is a compatibility break,
// not a bug in the test.
const (
	rootK1Hex   = "58f8fd75fe4ebe990b2e84e497932ae7c4e29c841035a6fa9b6879d44902d73a"
	rootK1K2Hex = "e43a842d1bfb65f7cdf990a5c4347b84bf1ae07743ecbc751bb397eb58296c51"

	proofExistsK1Hex = "c0070001800006007566d94e4af3962f1c9bb8a0589185f9e7efce85f0207899e6fcb9163a5bc8fb000568656c6c6f"
	proofShortK4Hex  = "4000000000060058f8fd75fe4ebe990b2e84e497932ae7c4e29c841035a6fa9b6879d44902d73a7566d94e4af3962f1c9bb8a0589185f9e7efce85f0207899e6fcb9163a5bc8fb"
	proofCollK3Hex   = "800700018000060058f8fd75fe4ebe990b2e84e497932ae7c4e29c841035a6fa9b6879d44902d73a02020202020202020202020202020202020202020202020202020202020202029a3440c9d1529b122faceef33739b6e814616658d53faaf6e4f129fb20edfb13"
	proofDeadEndHex  = "00000000"

	// proofExistsK1 with the depth field rewritten, everything else intact.
	proofDepthTooShallowHex = "c0030001800006007566d94e4af3962f1c9bb8a0589185f9e7efce85f0207899e6fcb9163a5bc8fb000568656c6c6f"
	proofDepthTooDeepHex    = "c00f0001800006007566d94e4af3962f1c9bb8a0589185f9e7efce85f0207899e6fcb9163a5bc8fb000568656c6c6f"
)

func bytesFromHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

// k1k2Tree builds the two-key fixture and returns the committed tree.
func k1k2Tree(t *testing.T) *Tree {
	t.Helper()
	tree, _ := newTestTree(t)
	tx, err := tree.Transaction()
	require.NoError(t, err)
	require.NoError(t, tx.Insert(testKey(1), []byte("hello")))
	require.NoError(t, tx.Insert(testKey(2), []byte("world")))
	require.NoError(t, tx.Commit())
	require.Equal(t, hashFromHex(t, rootK1K2Hex), tree.Root())
	return tree
}

func TestGoldenProofEncodings(t *testing.T) {
	tree := k1k2Tree(t)
	root := tree.Root()

	cases := []struct {
		name string
		key  Key
		typ  ProofType
		want string
	}{
		{"exists", testKey(1), ProofExists, proofExistsK1Hex},
		{"short", testKey(4), ProofShort, proofShortK4Hex},
		{"collision", testKey(3), ProofCollision, proofCollK3Hex},
	}
	for _, tc := range cases {
		p, err := tree.Prove(tc.key, root)
		require.NoError(t, err, tc.name)
		require.Equal(t, tc.typ, p.Type(), tc.name)

		raw, err := p.MarshalBinary()
		require.NoError(t, err, tc.name)
		require.Equal(t, tc.want, hex.EncodeToString(raw), tc.name)
	}
}

func TestGoldenDeadEndProof(t *testing.T) {
	tree, _ := newTestTree(t)
	p, err := tree.Prove(testKey(1), ZeroHash)
	require.NoError(t, err)
	require.Equal(t, ProofDeadEnd, p.Type())

	raw, err := p.MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, proofDeadEndHex, hex.EncodeToString(raw))

	v, err := Verify(raw, testKey(1), ZeroHash)
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestVerifyGoldenInclusion(t *testing.T) {
	root := hashFromHex(t, rootK1K2Hex)
	v, err := Verify(bytesFromHex(t, proofExistsK1Hex), testKey(1), root)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), v)
}

func TestVerifyGoldenExclusions(t *testing.T) {
	root := hashFromHex(t, rootK1K2Hex)

	// Short: the root node's skip prefix diverges from k4.
	v, err := Verify(bytesFromHex(t, proofShortK4Hex), testKey(4), root)
	require.NoError(t, err)
	require.Nil(t, v)

	// Collision: k3's path lands on the leaf holding k2.
	v, err = Verify(bytesFromHex(t, proofCollK3Hex), testKey(3), root)
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestVerifyErrorTaxonomy(t *testing.T) {
	root := hashFromHex(t, rootK1K2Hex)
	otherRoot := hashFromHex(t, rootK1Hex)

	cases := []struct {
		name  string
		proof []byte
		key   Key
		root  Hash
		want  error
	}{
		{"wrong root", bytesFromHex(t, proofExistsK1Hex), testKey(1), otherRoot, ErrHashMismatch},
		{"wrong key replays to wrong root", bytesFromHex(t, proofExistsK1Hex), testKey(2), root, ErrHashMismatch},
		{"collision proof for its own key", bytesFromHex(t, proofCollK3Hex), testKey(2), root, ErrSameKey},
		{"collision path diverges from key", bytesFromHex(t, proofCollK3Hex), testKey(4), root, ErrPathMismatch},
		{"short prefix matches key", bytesFromHex(t, proofShortK4Hex), testKey(1), root, ErrSamePath},
		{"depth underflows the path", bytesFromHex(t, proofDepthTooShallowHex), testKey(1), root, ErrNegativeDepth},
		{"depth left over after the path", bytesFromHex(t, proofDepthTooDeepHex), testKey(1), root, ErrTooDeep},
		{"dead end against nonzero root", bytesFromHex(t, proofDeadEndHex), testKey(1), root, ErrHashMismatch},
	}
	for _, tc := range cases {
		_, err := Verify(tc.proof, tc.key, tc.root)
		require.ErrorIs(t, err, tc.want, tc.name)
	}
}

func TestVerifyRejectsMalformedEncodings(t *testing.T) {
	root := hashFromHex(t, rootK1K2Hex)
	valid := bytesFromHex(t, proofExistsK1Hex)

	cases := []struct {
		name  string
		proof []byte
	}{
		{"not a proof at all", []byte("bogus")},
		{"empty", nil},
		{"truncated header", valid[:3]},
		{"truncated mid step", valid[:10]},
		{"truncated value", valid[:len(valid)-2]},
		{"trailing garbage", append(append([]byte(nil), valid...), 0x00)},
		{"depth out of range", bytesFromHex(t, "ffff0000")},
		{"step count out of range", bytesFromHex(t, "0000ffff")},
	}
	for _, tc := range cases {
		_, err := Verify(tc.proof, testKey(1), root)
		require.ErrorIs(t, err, ErrInvalidProof, tc.name)
	}
}
