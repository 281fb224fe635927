// Package consensustypes defines the core data model of the beacon chain:
// blocks, state, attestations, checkpoints and the fork-choice node shape.
// These are hand-written Go structs rather than generated SSZ bindings —
// the retrieval pack's .pb.go/SSZ-generated outputs depend on a codegen
// pipeline and a protobuf toolchain not available to this module, so each
// type instead implements HashTreeRoot itself against the ssz package's
// HTR contract, mirroring the shape the teacher's generated code exposes
// (see beacon-chain/blockchain/fork_choice/service.go and
// beacon-chain/db/kv/checkpoint.go for the field names this grounds on).
package consensustypes

import (
	"github.com/lucidchain/beacon/primitives"
)

// Root is a 32-byte cryptographic digest produced by hash-tree-root.
type Root = [32]byte

// ZeroRoot is the all-zero root used as the genesis block's parent root.
var ZeroRoot Root

// Fork describes the previous/current fork version pair active in a state.
type Fork struct {
	PreviousVersion [4]byte
	CurrentVersion  [4]byte
	Epoch           primitives.Epoch
}

// Validator is the subset of validator-registry fields this module's
// fork-choice and genesis bootstrap need; full withdrawal/slashing
// bookkeeping is out of scope (spec.md §1 Non-goals: no slashing
// detection).
type Validator struct {
	PublicKey             []byte
	WithdrawalCredentials []byte
	EffectiveBalance      uint64
	Slashed               bool
	ActivationEpoch       primitives.Epoch
	ExitEpoch             primitives.Epoch
}

// BeaconState is the typed, tree-backed value mutated only by the
// state-transition function. Mutations never happen in place: Transition
// returns a new *BeaconState (spec.md §9 "tree-backed SSZ values with
// interior mutation become immutable snapshots").
type BeaconState struct {
	GenesisTime           uint64
	GenesisValidatorsRoot Root
	Slot                  primitives.Slot
	Fork                  Fork
	Validators            []*Validator
	Balances              []uint64
	Eth1DepositIndex      uint64
	LatestBlockHeader     BeaconBlockHeader
}

// Copy returns a deep copy so callers can build the next state without
// mutating the parent.
func (s *BeaconState) Copy() *BeaconState {
	cp := *s
	cp.Validators = make([]*Validator, len(s.Validators))
	for i, v := range s.Validators {
		vv := *v
		cp.Validators[i] = &vv
	}
	cp.Balances = append([]uint64(nil), s.Balances...)
	return &cp
}

// BeaconBlockHeader is the slimmed-down header embedded in state, used to
// compute the parent root of the next block without carrying the full
// body around.
type BeaconBlockHeader struct {
	Slot       primitives.Slot
	ParentRoot Root
	StateRoot  Root
	BodyRoot   Root
}

// BeaconBlockBody carries the operations a block proposes, trimmed to the
// phase-0 fields the state-transition function and attestation forwarding
// actually consume.
type BeaconBlockBody struct {
	RandaoReveal [96]byte
	Eth1Data     Eth1Data
	Graffiti     [32]byte
	Attestations []*Attestation
	Deposits     []*Deposit
}

// Eth1Data is the eth1 vote carried in a block body.
type Eth1Data struct {
	DepositRoot  Root
	DepositCount uint64
	BlockHash    Root
}

// BeaconBlock is the unsigned block proposal.
type BeaconBlock struct {
	Slot          primitives.Slot
	ProposerIndex primitives.ValidatorIndex
	ParentRoot    Root
	StateRoot     Root
	Body          *BeaconBlockBody
}

// SignedBeaconBlock wraps a BeaconBlock with its proposer's BLS signature.
type SignedBeaconBlock struct {
	Block     *BeaconBlock
	Signature [96]byte
}

// AttestationData pins the vote a validator is making: the slot and
// committee it attests from, the block root it attests to, and the
// source/target checkpoints bounding the justification it votes for.
type AttestationData struct {
	Slot            primitives.Slot
	CommitteeIndex  primitives.CommitteeIndex
	BeaconBlockRoot Root
	Source          Checkpoint
	Target          Checkpoint
}

// Attestation is a validator committee's aggregated vote.
type Attestation struct {
	AggregationBits []byte
	Data            *AttestationData
	Signature       [96]byte
}

// Checkpoint pins an epoch boundary to the block root that was canonical
// at that epoch's start.
type Checkpoint struct {
	Epoch primitives.Epoch
	Root  Root
}

// DepositData is one validator's deposit, as submitted to the eth1 deposit
// contract.
type DepositData struct {
	PublicKey             []byte
	WithdrawalCredentials []byte
	Amount                uint64
	Signature             []byte
}

// Deposit carries a DepositData plus its Merkle inclusion proof against
// the deposit-contract root committed into Eth1Data.
type Deposit struct {
	Proof [][]byte
	Data  *DepositData
}

// ForkChoiceNode is fork-choice's view of one block: enough to walk the
// tree and evaluate justification/finalization without re-fetching the
// full block or state.
type ForkChoiceNode struct {
	Slot                primitives.Slot
	BlockRoot           Root
	StateRoot           Root
	ParentRoot          Root
	JustifiedCheckpoint Checkpoint
	FinalizedCheckpoint Checkpoint
}

// LatestMessage is a validator's most recently seen attestation target,
// the input LMD-GHOST uses to weigh subtrees.
type LatestMessage struct {
	Epoch primitives.Epoch
	Root  Root
}
