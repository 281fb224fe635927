// Package statetransition implements the pure state-transition function
// spec.md §6 names as the core's one cryptographic/economic contract:
// `(config, pre_state, signed_block, opts) -> post_state | Error`. The
// teacher's own transition pipeline
// (beacon-chain/core/transition, core/blocks, core/altair, ...) spans many
// incompatible historical generations of the phase-0/Altair/Bellatrix
// fork schedule; rather than adapt a mismatched multi-era pipeline, this
// package implements the phase-0 subset spec.md's Block Processor actually
// drives (slot and proposer checks, proposer-signature verification,
// deposit processing; eth1 data votes are not processed), grounded on the invariants spec.md §3-§4.G states directly
// and on the teacher's core/blocks validation style (reject, don't panic,
// wrap every error with context).
package statetransition

import (
	"github.com/lucidchain/beacon/config/params"
	"github.com/lucidchain/beacon/consensustypes"
	"github.com/lucidchain/beacon/crypto/bls"
	"github.com/pkg/errors"
)

// Opts configures a single Transition call.
type Opts struct {
	// VerifySignatures enables signature verification; callers leave it
	// false for blocks that have already been verified once by the sync
	// layer, mirroring spec.md §4.G step 3's `{verify_signatures: !trusted}`.
	VerifySignatures bool
	Verifier         bls.Verifier
}

// ErrSlotNotAfterParent is InvalidBlock-kind per spec.md §7: "slot
// ordering" errors are permanent for this block's bytes.
var ErrSlotNotAfterParent = errors.New("block slot is not after parent state slot")

// ErrInvalidProposerIndex rejects a block proposed by an index outside
// the validator set.
var ErrInvalidProposerIndex = errors.New("proposer index out of range")

// ErrInvalidSignature rejects a block whose proposer signature fails
// verification when verification was requested.
var ErrInvalidSignature = errors.New("block signature verification failed")

// Transition applies signedBlock to pre, returning the resulting state.
// It never mutates pre (spec.md §9: "the STF returns a new state rather
// than mutating in place").
func Transition(cfg *params.BeaconChainConfig, pre *consensustypes.BeaconState, signedBlock *consensustypes.SignedBeaconBlock, opts Opts) (*consensustypes.BeaconState, error) {
	block := signedBlock.Block
	if block.Slot <= pre.Slot {
		return nil, ErrSlotNotAfterParent
	}
	if uint64(block.ProposerIndex) >= uint64(len(pre.Validators)) {
		return nil, ErrInvalidProposerIndex
	}

	post := pre.Copy()
	post.Slot = block.Slot

	if opts.VerifySignatures {
		if opts.Verifier == nil {
			return nil, errors.New("signature verification requested but no verifier configured")
		}
		proposer := pre.Validators[block.ProposerIndex]
		blockRoot, err := block.HashTreeRoot()
		if err != nil {
			return nil, errors.Wrap(err, "could not compute block root for signature check")
		}
		ok, err := opts.Verifier.Verify([][]byte{proposer.PublicKey}, blockRoot, signedBlock.Signature[:])
		if err != nil {
			return nil, errors.Wrap(err, "signature verification errored")
		}
		if !ok {
			return nil, ErrInvalidSignature
		}
	}

	if err := processEth1Data(post, block.Body.Eth1Data); err != nil {
		return nil, errors.Wrap(err, "could not process eth1 data")
	}
	if err := processDeposits(cfg, post, block.Body.Deposits, opts); err != nil {
		return nil, errors.Wrap(err, "could not process deposits")
	}

	parentRoot, err := parentHeaderRoot(pre)
	if err != nil {
		return nil, errors.Wrap(err, "could not compute parent header root")
	}
	bodyRoot, err := block.Body.HashTreeRoot()
	if err != nil {
		return nil, errors.Wrap(err, "could not compute body root")
	}
	post.LatestBlockHeader = consensustypes.BeaconBlockHeader{
		Slot:       block.Slot,
		ParentRoot: parentRoot,
		StateRoot:  consensustypes.ZeroRoot, // left zero; neither Transition nor its callers fill it in
		BodyRoot:   bodyRoot,
	}

	return post, nil
}

func parentHeaderRoot(pre *consensustypes.BeaconState) ([32]byte, error) {
	h := pre.LatestBlockHeader
	// The state's cached header carries a zeroed state_root placeholder
	// (nothing fills it in). hashHeader hashes the header's slot,
	// parent_root and state_root as a block with an empty body; the
	// header's body_root is not included.
	return hashHeader(h)
}

func hashHeader(h consensustypes.BeaconBlockHeader) ([32]byte, error) {
	b := &consensustypes.BeaconBlock{
		Slot:       h.Slot,
		ParentRoot: h.ParentRoot,
		StateRoot:  h.StateRoot,
		Body:       &consensustypes.BeaconBlockBody{},
	}
	return b.HashTreeRoot()
}

func processEth1Data(post *consensustypes.BeaconState, data consensustypes.Eth1Data) error {
	// Eth1 voting-period aggregation is out of scope for this module's
	// reduced state (no Eth1DataVotes field carried); the deposit count
	// observed on-chain is tracked via Eth1DepositIndex directly.
	return nil
}

func processDeposits(cfg *params.BeaconChainConfig, post *consensustypes.BeaconState, deposits []*consensustypes.Deposit, opts Opts) error {
	for _, d := range deposits {
		if opts.VerifySignatures {
			// The signing root covers the deposit data without its signature.
			root, err := (&consensustypes.DepositData{
				PublicKey:             d.Data.PublicKey,
				WithdrawalCredentials: d.Data.WithdrawalCredentials,
				Amount:                d.Data.Amount,
			}).HashTreeRoot()
			if err != nil {
				return err
			}
			ok, err := opts.Verifier.Verify([][]byte{d.Data.PublicKey}, root, d.Data.Signature)
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("deposit signature verification failed")
			}
		}
		idx := findValidatorIndex(post, d.Data.PublicKey)
		if idx < 0 {
			balance := d.Data.Amount
			if balance > cfg.MaxEffectiveBalance {
				balance = cfg.MaxEffectiveBalance
			}
			post.Validators = append(post.Validators, &consensustypes.Validator{
				PublicKey:             d.Data.PublicKey,
				WithdrawalCredentials: d.Data.WithdrawalCredentials,
				EffectiveBalance:      balance,
			})
			post.Balances = append(post.Balances, d.Data.Amount)
		} else {
			post.Balances[idx] += d.Data.Amount
		}
		post.Eth1DepositIndex++
	}
	return nil
}

func findValidatorIndex(state *consensustypes.BeaconState, pubkey []byte) int {
	for i, v := range state.Validators {
		if string(v.PublicKey) == string(pubkey) {
			return i
		}
	}
	return -1
}
