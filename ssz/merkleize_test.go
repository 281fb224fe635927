package ssz_test

import (
	"testing"

	"github.com/lucidchain/beacon/container/trie"
	"github.com/lucidchain/beacon/ssz"
	"github.com/stretchr/testify/require"
)

func TestMerkleizeVector_EmptyIsZeroHashAtDepth(t *testing.T) {
	root := ssz.MerkleizeVector(nil, 4)
	require.NotZero(t, root)
	// Depth(4) == 2, so an empty 4-leaf vector is the depth-2 zero hash.
	require.Equal(t, trie.ZeroHashes[2], root)
}

func TestMerkleizeVector_Deterministic(t *testing.T) {
	a := [32]byte{1}
	b := [32]byte{2}
	r1 := ssz.MerkleizeVector([][32]byte{a, b}, 2)
	r2 := ssz.MerkleizeVector([][32]byte{a, b}, 2)
	require.Equal(t, r1, r2)

	r3 := ssz.MerkleizeVector([][32]byte{b, a}, 2)
	require.NotEqual(t, r1, r3)
}

func TestMerkleizeByteSliceSSZ_RejectsEmpty(t *testing.T) {
	_, err := ssz.MerkleizeByteSliceSSZ(nil)
	require.Error(t, err)
}

func TestMerkleizeByteSliceSSZ_PadsFinalChunk(t *testing.T) {
	root, err := ssz.MerkleizeByteSliceSSZ([]byte{1, 2, 3})
	require.NoError(t, err)
	require.NotZero(t, root)
}
