package statetransition_test

import (
	"testing"

	"github.com/lucidchain/beacon/config/params"
	"github.com/lucidchain/beacon/consensustypes"
	"github.com/lucidchain/beacon/crypto/bls"
	"github.com/lucidchain/beacon/primitives"
	"github.com/lucidchain/beacon/statetransition"
	"github.com/stretchr/testify/require"
)

func baseState() *consensustypes.BeaconState {
	return &consensustypes.BeaconState{
		Slot: 0,
		Validators: []*consensustypes.Validator{
			{PublicKey: []byte{0x01}, EffectiveBalance: 32000000000},
		},
		Balances: []uint64{32000000000},
	}
}

func signedBlock(slot primitives.Slot, proposer uint64) *consensustypes.SignedBeaconBlock {
	return &consensustypes.SignedBeaconBlock{
		Block: &consensustypes.BeaconBlock{
			Slot:          slot,
			ProposerIndex: primitives.ValidatorIndex(proposer),
			Body:          &consensustypes.BeaconBlockBody{},
		},
	}
}

func TestTransition_RejectsNonIncreasingSlot(t *testing.T) {
	cfg := params.InteropConfig()
	pre := baseState()
	pre.Slot = 5
	b := signedBlock(5, 0)
	_, err := statetransition.Transition(cfg, pre, b, statetransition.Opts{})
	require.ErrorIs(t, err, statetransition.ErrSlotNotAfterParent)
}

func TestTransition_RejectsUnknownProposer(t *testing.T) {
	cfg := params.InteropConfig()
	pre := baseState()
	b := signedBlock(1, 99)
	_, err := statetransition.Transition(cfg, pre, b, statetransition.Opts{})
	require.ErrorIs(t, err, statetransition.ErrInvalidProposerIndex)
}

func TestTransition_AppliesDeposit(t *testing.T) {
	cfg := params.InteropConfig()
	pre := baseState()
	data := &consensustypes.DepositData{PublicKey: []byte{0x02}, WithdrawalCredentials: []byte{0x00}, Amount: 32000000000}
	root, err := data.HashTreeRoot()
	require.NoError(t, err)
	data.Signature = bls.Sign([][]byte{data.PublicKey}, root)

	b := signedBlock(1, 0)
	b.Block.Body.Deposits = []*consensustypes.Deposit{{Data: data}}
	blockRoot, err := b.Block.HashTreeRoot()
	require.NoError(t, err)
	copy(b.Signature[:], bls.Sign([][]byte{{0x01}}, blockRoot))

	post, err := statetransition.Transition(cfg, pre, b, statetransition.Opts{
		VerifySignatures: true,
		Verifier:         bls.NewInteropVerifier(),
	})
	require.NoError(t, err)
	require.Len(t, post.Validators, 2)
	require.Equal(t, uint64(1), post.Eth1DepositIndex)
	require.Len(t, pre.Validators, 1, "pre-state must not be mutated")
}

func TestTransition_InvalidSignatureRejected(t *testing.T) {
	cfg := params.InteropConfig()
	pre := baseState()
	b := signedBlock(1, 0)
	b.Signature = [96]byte{0xFF}

	_, err := statetransition.Transition(cfg, pre, b, statetransition.Opts{
		VerifySignatures: true,
		Verifier:         bls.NewInteropVerifier(),
	})
	require.ErrorIs(t, err, statetransition.ErrInvalidSignature)
}
