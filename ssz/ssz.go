// Package ssz defines the hash-tree-root contract consensus types
// implement, plus the small helpers the fork-choice and block processor
// need to compare and combine roots. The real SSZ merkleization algorithm
// is treated as a pure function assumed available (spec.md §1: "the SSZ
// codec ... assumed available as pure functions"); this package supplies
// the Go-side contract and a deterministic placeholder combinator so the
// rest of the module has something concrete to call and test against,
// grounded on the generated-code shape the teacher's ethpb types exposed
// (a HashTreeRoot() ([32]byte, error) method per type).
package ssz

import (
	"encoding/binary"

	"github.com/lucidchain/beacon/crypto/hash"
)

// HTR is satisfied by every consensus type that can compute its own
// hash-tree-root.
type HTR interface {
	HashTreeRoot() ([32]byte, error)
}

// Equal reports whether two roots are bytewise identical.
func Equal(a, b [32]byte) bool {
	return a == b
}

// MixIn folds an auxiliary length/index value into a root the way SSZ
// list types mix in their length, used by MerkleizeListSSZ.
func MixIn(root [32]byte, aux uint64) [32]byte {
	var buf [32]byte
	binary.LittleEndian.PutUint64(buf[:8], aux)
	return hash.Hash(append(append([]byte{}, root[:]...), buf[:]...))
}

// HashSequence folds a sequence of already-rooted leaves into one root by
// repeated pairwise hashing. The block-body root in consensustypes does
// not call it; it folds the attestation and deposit lists with its own
// sequential hash.
func HashSequence(leaves [][32]byte) [32]byte {
	if len(leaves) == 0 {
		return [32]byte{}
	}
	level := leaves
	for len(level) > 1 {
		next := make([][32]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, hash.Hash(append(append([]byte{}, level[i][:]...), level[i+1][:]...)))
			} else {
				next = append(next, hash.Hash(append(append([]byte{}, level[i][:]...), level[i][:]...)))
			}
		}
		level = next
	}
	return level[0]
}
