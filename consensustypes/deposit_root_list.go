package consensustypes

import (
	"github.com/lucidchain/beacon/container/trie"
	"github.com/pkg/errors"
)

// DepositDataRootList is the append-only Merkle list of deposit-data roots
// indexed by eth1_deposit_index (spec.md §3), backed by the sparse Merkle
// trie the deposit contract itself uses (see container/trie, adapted from
// the teacher's container/trie/sparse_merkle.go).
type DepositDataRootList struct {
	trie *trie.SparseMerkleTrie
}

// NewDepositDataRootList returns an empty list at the configured deposit
// contract tree depth.
func NewDepositDataRootList(depth uint64) (*DepositDataRootList, error) {
	t, err := trie.NewTrie(depth)
	if err != nil {
		return nil, errors.Wrap(err, "could not create empty deposit root list")
	}
	return &DepositDataRootList{trie: t}, nil
}

// Push appends a new deposit-data root at the next index (spec.md §6:
// DepositDataRootList.push(leaf)).
func (l *DepositDataRootList) Push(depositDataRoot [32]byte) error {
	return l.trie.Push(depositDataRoot[:])
}

// Count returns the number of leaves pushed so far, i.e. the next
// eth1_deposit_index this list will assign.
func (l *DepositDataRootList) Count() int {
	return l.trie.NumOfItems()
}

// Root returns the Merkle root of the list as defined by the deposit
// contract (sha256 of the trie root concatenated with the little-endian
// deposit count).
func (l *DepositDataRootList) Root() ([32]byte, error) {
	return l.trie.HashTreeRoot()
}

// SingleProof returns the Merkle inclusion proof for the leaf at index
// (spec.md §6: deposit list provides get_single_proof(generalized_index)).
func (l *DepositDataRootList) SingleProof(index int) ([][]byte, error) {
	return l.trie.MerkleProof(index)
}
