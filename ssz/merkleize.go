package ssz

import (
	"github.com/lucidchain/beacon/container/trie"
	"github.com/pkg/errors"
	"github.com/prysmaticlabs/gohashtree"
)

// Adapted from the teacher's encoding/ssz/merkleize.go log(N)-space
// merkleization routine (Depth/Merkleize/MerkleizeVector), wired against
// gohashtree for the pairwise SHA-256 compression step and this module's
// own container/trie.ZeroHashes table instead of the teacher's
// crypto/hash/htr package, which the retrieval pack did not include.

var errInvalidNilSlice = errors.New("invalid empty slice")

const (
	mask0 = ^uint64((1 << (1 << iota)) - 1)
	mask1
	mask2
	mask3
	mask4
	mask5
)

const (
	bit0 = uint8(1 << iota)
	bit1
	bit2
	bit3
	bit4
	bit5
)

// Depth returns the depth of the perfect binary tree needed to hold v
// leaves (0 for v<=1).
func Depth(v uint64) (out uint8) {
	if v <= 1 {
		return 0
	}
	v--
	if v&mask5 != 0 {
		v >>= bit5
		out |= bit5
	}
	if v&mask4 != 0 {
		v >>= bit4
		out |= bit4
	}
	if v&mask3 != 0 {
		v >>= bit3
		out |= bit3
	}
	if v&mask2 != 0 {
		v >>= bit2
		out |= bit2
	}
	if v&mask1 != 0 {
		v >>= bit1
		out |= bit1
	}
	if v&mask0 != 0 {
		out |= bit0
	}
	out++
	return
}

// combi hashes two 32-byte nodes into their parent, via gohashtree's
// vectorized SHA-256 (the same primitive the teacher wires in for bulk
// merkleization rather than calling sha256.Sum256 node-by-node).
func combi(a, b [32]byte) [32]byte {
	in := [][32]byte{a, b}
	out := [][32]byte{{}}
	if err := gohashtree.Hash(out, in); err != nil {
		// gohashtree.Hash only errors on malformed slice lengths, which
		// cannot happen with a fixed 2-element input.
		panic(err)
	}
	return out[0]
}

// MerkleizeVector hashes a list of already-rooted 32-byte elements into the
// root of the virtual tree of the given length, padding with precomputed
// zero hashes past len(elements) and past the next power of two up to
// length.
func MerkleizeVector(elements [][32]byte, length uint64) [32]byte {
	depth := Depth(length)
	if len(elements) == 0 {
		return trie.ZeroHashes[depth]
	}
	for i := uint8(0); i < depth; i++ {
		layerLen := len(elements)
		if layerLen%2 == 1 {
			elements = append(elements, trie.ZeroHashes[i])
		}
		next := make([][32]byte, len(elements)/2)
		for j := 0; j < len(next); j++ {
			next[j] = combi(elements[2*j], elements[2*j+1])
		}
		elements = next
	}
	return elements[0]
}

// MerkleizeVectorSSZ hashes each element via its own HashTreeRoot and
// merkleizes the resulting roots as a vector of the given length.
func MerkleizeVectorSSZ[T HTR](elements []T, length uint64) ([32]byte, error) {
	roots := make([][32]byte, len(elements))
	for i, el := range elements {
		root, err := el.HashTreeRoot()
		if err != nil {
			return [32]byte{}, err
		}
		roots[i] = root
	}
	return MerkleizeVector(roots, length), nil
}

// MerkleizeListSSZ is MerkleizeVectorSSZ with the list's actual length
// mixed in, per SSZ's list-vs-vector merkleization rule.
func MerkleizeListSSZ[T HTR](elements []T, limit uint64) ([32]byte, error) {
	body, err := MerkleizeVectorSSZ(elements, limit)
	if err != nil {
		return [32]byte{}, err
	}
	return MixIn(body, uint64(len(elements))), nil
}

// MerkleizeByteSliceSSZ merkleizes a byte slice as a vector of 32-byte
// chunks, zero-padding the final chunk.
func MerkleizeByteSliceSSZ(input []byte) ([32]byte, error) {
	numChunks := (len(input) + 31) / 32
	if numChunks == 0 {
		return [32]byte{}, errInvalidNilSlice
	}
	chunks := make([][32]byte, numChunks)
	for i := range chunks {
		end := 32 * (i + 1)
		if end > len(input) {
			end = len(input)
		}
		copy(chunks[i][:], input[32*i:end])
	}
	return MerkleizeVector(chunks, uint64(numChunks)), nil
}
