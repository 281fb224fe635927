package attestation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lucidchain/beacon/attestation"
	"github.com/lucidchain/beacon/beaconclock"
	"github.com/lucidchain/beacon/beacondb"
	"github.com/lucidchain/beacon/config/params"
	"github.com/lucidchain/beacon/consensustypes"
	"github.com/lucidchain/beacon/crypto/bls"
	"github.com/lucidchain/beacon/forkchoice"
)

func setup(t *testing.T) (*attestation.Processor, *forkchoice.Store, *beacondb.Store, [32]byte) {
	t.Helper()
	cfg := params.InteropConfig()
	dir := t.TempDir()
	store, err := beacondb.NewKVStore(dir)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	fc := forkchoice.New()
	var blockRoot, stateRoot [32]byte
	blockRoot[0] = 0xAB

	state := &consensustypes.BeaconState{
		Slot: 1,
		Validators: []*consensustypes.Validator{
			{PublicKey: []byte{0x01}, EffectiveBalance: 32000000000},
			{PublicKey: []byte{0x02}, EffectiveBalance: 32000000000},
		},
		Balances: []uint64{32000000000, 32000000000},
	}
	require.NoError(t, store.SaveState(stateRoot, state))
	block := &consensustypes.SignedBeaconBlock{Block: &consensustypes.BeaconBlock{StateRoot: stateRoot, Body: &consensustypes.BeaconBlockBody{}}}
	require.NoError(t, store.SaveBlock(blockRoot, block))
	checkpoint := consensustypes.Checkpoint{Epoch: 0, Root: stateRoot}
	require.NoError(t, fc.SeedGenesis(&consensustypes.ForkChoiceNode{
		BlockRoot: blockRoot, StateRoot: stateRoot,
		JustifiedCheckpoint: checkpoint, FinalizedCheckpoint: checkpoint,
	}))

	genesisTime := time.Unix(int64(cfg.MinGenesisTime), 0)
	clock := beaconclock.New(genesisTime, cfg, beaconclock.WithNow(func() time.Time { return genesisTime }))
	proc, err := attestation.New(cfg, clock, store, fc, bls.NewInteropVerifier())
	require.NoError(t, err)
	return proc, fc, store, blockRoot
}

func TestReceiveAttestation_UnknownBlockRejected(t *testing.T) {
	proc, _, _, _ := setup(t)
	var unknown [32]byte
	unknown[0] = 0xFF
	att := &consensustypes.Attestation{
		Data: &consensustypes.AttestationData{BeaconBlockRoot: unknown},
	}
	err := proc.ReceiveAttestation(att)
	require.ErrorIs(t, err, attestation.ErrUnknownBlockRoot)
}

func TestReceiveAttestation_FutureTargetEpochRejected(t *testing.T) {
	proc, _, _, blockRoot := setup(t)
	att := &consensustypes.Attestation{
		Data: &consensustypes.AttestationData{
			BeaconBlockRoot: blockRoot,
			Target:          consensustypes.Checkpoint{Epoch: 1000},
		},
	}
	err := proc.ReceiveAttestation(att)
	require.ErrorIs(t, err, attestation.ErrFutureTargetEpoch)
}

func TestReceiveAttestation_ForwardsVotesToForkChoice(t *testing.T) {
	proc, fc, _, blockRoot := setup(t)
	var stateRoot [32]byte // matches the checkpoint root saved in setup

	// With MaxCommitteesPerSlot=64 and committee index 0, only validator
	// index 0 (0 % 64 == 0) falls into this committee out of the two
	// seeded validators.
	bits := []byte{0b00000001}
	data := &consensustypes.AttestationData{
		BeaconBlockRoot: blockRoot,
		Target:          consensustypes.Checkpoint{Epoch: 0, Root: stateRoot},
	}
	root, err := data.HashTreeRoot()
	require.NoError(t, err)
	sig := bls.Sign([][]byte{{0x01}}, root)

	att := &consensustypes.Attestation{AggregationBits: bits, Data: data}
	copy(att.Signature[:], sig)

	require.NoError(t, proc.ReceiveAttestation(att))
	msg, ok := fc.Node(blockRoot)
	require.True(t, ok)
	require.NotNil(t, msg)
}
