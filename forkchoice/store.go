// Package forkchoice implements Component E, LMD-GHOST fork choice
// (spec.md §4.E). Adapted from the teacher's
// beacon-chain/blockchain/fork_choice/service.go Store
// (OnBlock/OnAttestation/Head/Ancestor/LatestAttestingBalance), and the
// ForkChoiceNode field shape grounded on
// beacon-chain/forkchoice/protoarray/node.go. The teacher's Head() breaks
// ties by first-observed child; this package instead breaks ties by
// larger block root (treated as a big-endian integer), a deliberate
// deviation from the teacher required by spec.md §8 scenario 5 and
// documented in DESIGN.md.
package forkchoice

import (
	"bytes"
	"sync"

	"github.com/lucidchain/beacon/consensustypes"
	"github.com/lucidchain/beacon/primitives"
	"github.com/lucidchain/beacon/runtime/logging"
	"github.com/pkg/errors"
)

var log = logging.New("forkchoice")

// ErrUnknownParent is returned by AddBlock when node.ParentRoot is neither
// stored nor the all-zero genesis parent (spec.md §4.E: "require
// node.parent_root is present or is the all-zero root").
var ErrUnknownParent = errors.New("parent root unknown to fork choice")

// Store is the single-writer fork-choice state spec.md §4.E and §5
// describe: a map root -> ForkChoiceNode, justified/finalized checkpoints,
// and latest-messages, all guarded by one mutex since exactly one task may
// own this store (teacher pattern: lock-guarded struct, no raw field
// access from outside the package).
type Store struct {
	mu sync.Mutex

	started bool
	time    uint64

	nodes    map[[32]byte]*consensustypes.ForkChoiceNode
	children map[[32]byte][][32]byte

	justified consensustypes.Checkpoint
	finalized consensustypes.Checkpoint

	latestMessages map[uint64]consensustypes.LatestMessage
	balances       map[uint64]uint64
}

// New returns an empty, unstarted fork-choice store.
func New() *Store {
	return &Store{
		nodes:          make(map[[32]byte]*consensustypes.ForkChoiceNode),
		children:       make(map[[32]byte][][32]byte),
		latestMessages: make(map[uint64]consensustypes.LatestMessage),
		balances:       make(map[uint64]uint64),
	}
}

// Start marks the instance live; subsequent calls are no-ops
// (spec.md §4.E: "subsequent calls are no-ops").
func (s *Store) Start(genesisTime uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.time = genesisTime
}

// Stop drains and releases the store; a stopped store rejects no further
// calls itself, that responsibility belongs to the Chain Coordinator
// (spec.md §5: "stop() drains in-flight work with a deadline").
func (s *Store) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = false
}

// OnTick advances internal time; it performs no state transition itself
// (spec.md §4.E).
func (s *Store) OnTick(slot uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.time = slot
}

// SetValidatorBalances replaces the effective-balance table fork-choice
// weighs votes by. The Block Processor calls this after every successfully
// applied state transition.
func (s *Store) SetValidatorBalances(balances map[uint64]uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances = balances
}

// SeedGenesis installs node as the tree's root, unconditionally adopting
// its embedded checkpoints as the initial justified/finalized state
// (spec.md §4.H: "seed fork-choice with the genesis node (all-zero parent
// root)") — the one case where justified/finalized are set outright
// rather than only advanced by AddBlock's strictly-greater rule.
func (s *Store) SeedGenesis(node *consensustypes.ForkChoiceNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if node.ParentRoot != consensustypes.ZeroRoot {
		return errors.New("genesis node must have the all-zero parent root")
	}
	s.nodes[node.BlockRoot] = node
	s.justified = node.JustifiedCheckpoint
	s.finalized = node.FinalizedCheckpoint
	return nil
}

// AddBlock inserts node keyed by node.BlockRoot, requiring its parent to
// already be known (or the genesis parent), and advances justified/
// finalized if node's embedded checkpoints strictly advance them
// (spec.md §4.E: "update justified/finalized if node's embedded
// checkpoints advance them (epoch strictly greater)").
func (s *Store) AddBlock(node *consensustypes.ForkChoiceNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if node.ParentRoot != consensustypes.ZeroRoot {
		if _, ok := s.nodes[node.ParentRoot]; !ok {
			return ErrUnknownParent
		}
	}
	if _, exists := s.nodes[node.BlockRoot]; exists {
		// Idempotent re-insertion of an already-known block is a no-op
		// (spec.md §8: "re-applying an already-stored block is a no-op").
		return nil
	}
	s.nodes[node.BlockRoot] = node
	s.children[node.ParentRoot] = append(s.children[node.ParentRoot], node.BlockRoot)

	if node.JustifiedCheckpoint.Epoch > s.justified.Epoch {
		s.justified = node.JustifiedCheckpoint
		log.WithField("epoch", s.justified.Epoch).Info("justified checkpoint advanced")
	}
	if node.FinalizedCheckpoint.Epoch > s.finalized.Epoch {
		s.finalized = node.FinalizedCheckpoint
		log.WithField("epoch", s.finalized.Epoch).Info("finalized checkpoint advanced")
	}
	return nil
}

// AddAttestation overwrites validatorIndex's latest message iff
// targetEpoch is strictly newer than what is currently recorded
// (spec.md §4.E; global invariant 6: "LatestMessage.epoch is strictly
// non-decreasing").
func (s *Store) AddAttestation(validatorIndex uint64, blockRoot [32]byte, targetEpoch primitives.Epoch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.latestMessages[validatorIndex]
	if ok && targetEpoch <= cur.Epoch {
		return
	}
	s.latestMessages[validatorIndex] = consensustypes.LatestMessage{Epoch: targetEpoch, Root: blockRoot}
}

// JustifiedCheckpoint returns the current justified checkpoint.
func (s *Store) JustifiedCheckpoint() consensustypes.Checkpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.justified
}

// FinalizedCheckpoint returns the current finalized checkpoint.
func (s *Store) FinalizedCheckpoint() consensustypes.Checkpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalized
}

// Node returns the stored fork-choice node for root, if any.
func (s *Store) Node(root [32]byte) (*consensustypes.ForkChoiceNode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[root]
	return n, ok
}

// Head descends from the justified checkpoint's block, at each step
// picking the child maximizing the total attesting balance of validators
// whose latest message is at-or-below that subtree, tie-breaking by
// larger block root (spec.md §4.E, §8 scenario 5).
func (s *Store) Head() ([32]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headLocked()
}

// HeadStateRoot returns the state root of the node Head() resolves to
// (spec.md §4.E).
func (s *Store) HeadStateRoot() ([32]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	root, err := s.headLocked()
	if err != nil {
		return [32]byte{}, err
	}
	return s.nodes[root].StateRoot, nil
}

func (s *Store) headLocked() ([32]byte, error) {
	current := s.justified.Root
	if _, ok := s.nodes[current]; !ok {
		return [32]byte{}, errors.New("justified checkpoint root not known to fork choice")
	}
	for {
		kids := s.children[current]
		if len(kids) == 0 {
			return current, nil
		}
		best := kids[0]
		bestWeight := s.subtreeWeightLocked(best)
		for _, k := range kids[1:] {
			w := s.subtreeWeightLocked(k)
			if w > bestWeight || (w == bestWeight && bytes.Compare(k[:], best[:]) > 0) {
				best = k
				bestWeight = w
			}
		}
		current = best
	}
}

// subtreeWeightLocked sums the effective balance of every validator whose
// latest message root is root or a descendant of root. Callers must hold
// s.mu.
func (s *Store) subtreeWeightLocked(root [32]byte) uint64 {
	var total uint64
	for validatorIndex, msg := range s.latestMessages {
		if s.isAncestorOrSelfLocked(root, msg.Root) {
			total += s.balances[validatorIndex]
		}
	}
	return total
}

// isAncestorOrSelfLocked reports whether candidate is root or a descendant
// of root, walking candidate's parent chain up to the finalized root or
// genesis. Callers must hold s.mu.
func (s *Store) isAncestorOrSelfLocked(root, candidate [32]byte) bool {
	cur := candidate
	for {
		if cur == root {
			return true
		}
		node, ok := s.nodes[cur]
		if !ok || node.ParentRoot == consensustypes.ZeroRoot {
			return false
		}
		if cur == node.ParentRoot {
			return false
		}
		cur = node.ParentRoot
	}
}

// Ancestor walks up from root to the block at the given slot, or to the
// first ancestor below that slot when none sits exactly at it, grounded
// on the teacher's fork_choice/service.go Ancestor function. No other
// package in this module calls it.
func (s *Store) Ancestor(root [32]byte, slot primitives.Slot) ([32]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := root
	for {
		node, ok := s.nodes[cur]
		if !ok {
			return [32]byte{}, errors.New("ancestor: root not known to fork choice")
		}
		if node.Slot == slot {
			return cur, nil
		}
		if node.Slot < slot || node.ParentRoot == consensustypes.ZeroRoot {
			return cur, nil
		}
		cur = node.ParentRoot
	}
}
