package blockchain_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lucidchain/beacon/attestation"
	"github.com/lucidchain/beacon/beaconclock"
	"github.com/lucidchain/beacon/beacondb"
	"github.com/lucidchain/beacon/blockchain"
	"github.com/lucidchain/beacon/config/params"
	"github.com/lucidchain/beacon/consensustypes"
	"github.com/lucidchain/beacon/crypto/bls"
	"github.com/lucidchain/beacon/eventfeed"
	"github.com/lucidchain/beacon/forkchoice"
	"github.com/lucidchain/beacon/primitives"
)

type fixture struct {
	proc        *blockchain.Processor
	store       *beacondb.Store
	forkChoice  *forkchoice.Store
	cfg         *params.BeaconChainConfig
	genesisRoot [32]byte
}

func setup(t *testing.T) *fixture {
	t.Helper()
	cfg := params.InteropConfig()
	store, err := beacondb.NewKVStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	pubkey := []byte{0x01}
	genesisState := &consensustypes.BeaconState{
		Slot: 0,
		Validators: []*consensustypes.Validator{
			{PublicKey: pubkey, EffectiveBalance: 32000000000},
		},
		Balances: []uint64{32000000000},
	}
	stateRoot, err := genesisState.HashTreeRoot()
	require.NoError(t, err)
	genesisBlock := &consensustypes.BeaconBlock{Slot: 0, ParentRoot: consensustypes.ZeroRoot, StateRoot: stateRoot, Body: &consensustypes.BeaconBlockBody{}}
	genesisRoot, err := genesisBlock.HashTreeRoot()
	require.NoError(t, err)
	require.NoError(t, store.StoreChainHead(genesisRoot, &consensustypes.SignedBeaconBlock{Block: genesisBlock}, stateRoot, genesisState))

	fc := forkchoice.New()
	fc.Start(0)
	cp := consensustypes.Checkpoint{Epoch: 0, Root: genesisRoot}
	require.NoError(t, fc.SeedGenesis(&consensustypes.ForkChoiceNode{
		Slot: 0, BlockRoot: genesisRoot, StateRoot: stateRoot, ParentRoot: consensustypes.ZeroRoot,
		JustifiedCheckpoint: cp, FinalizedCheckpoint: cp,
	}))

	clock := beaconclock.New(time.Unix(0, 0), cfg, beaconclock.WithNow(func() time.Time { return time.Unix(0, 0) }))
	verifier := bls.NewInteropVerifier()
	attestations, err := attestation.New(cfg, clock, store, fc, verifier)
	require.NoError(t, err)
	feed := &eventfeed.Feed{}
	proc := blockchain.NewProcessor(cfg, clock, store, fc, attestations, verifier, feed)

	return &fixture{proc: proc, store: store, forkChoice: fc, cfg: cfg, genesisRoot: genesisRoot}
}

func childBlock(parentRoot [32]byte, slot primitives.Slot, pubkey []byte) *consensustypes.SignedBeaconBlock {
	b := &consensustypes.BeaconBlock{
		Slot:          slot,
		ProposerIndex: 0,
		ParentRoot:    parentRoot,
		Body:          &consensustypes.BeaconBlockBody{},
	}
	root, err := b.HashTreeRoot()
	if err != nil {
		panic(err)
	}
	sig := bls.Sign([][]byte{pubkey}, root)
	signed := &consensustypes.SignedBeaconBlock{Block: b}
	copy(signed.Signature[:], sig)
	return signed
}

func TestReceiveBlock_AppliesChildOfKnownParent(t *testing.T) {
	f := setup(t)
	child := childBlock(f.genesisRoot, 1, []byte{0x01})

	require.NoError(t, f.proc.ReceiveBlock(context.Background(), child, false))

	root, err := child.Block.HashTreeRoot()
	require.NoError(t, err)
	has, err := f.store.HasBlock(root)
	require.NoError(t, err)
	require.True(t, has)

	head, err := f.forkChoice.Head()
	require.NoError(t, err)
	require.Equal(t, root, head)
}

func TestReceiveBlock_IdempotentReapply(t *testing.T) {
	f := setup(t)
	child := childBlock(f.genesisRoot, 1, []byte{0x01})

	require.NoError(t, f.proc.ReceiveBlock(context.Background(), child, false))
	require.NoError(t, f.proc.ReceiveBlock(context.Background(), child, false), "re-applying an already-stored block must be a no-op")
}

func TestReceiveBlock_RejectsFutureSlot(t *testing.T) {
	f := setup(t)
	// current slot is 0 (clock pinned at genesis); MaxFutureSlots is 32.
	child := childBlock(f.genesisRoot, primitives.Slot(f.cfg.MaxFutureSlots)+1, []byte{0x01})

	err := f.proc.ReceiveBlock(context.Background(), child, false)
	require.Error(t, err)
	kind, ok := blockchain.KindOf(err)
	require.True(t, ok)
	require.Equal(t, blockchain.KindFutureSlot, kind)
}

func TestReceiveBlock_ParksOrphanThenDrainsOnParentArrival(t *testing.T) {
	f := setup(t)
	parent := childBlock(f.genesisRoot, 1, []byte{0x01})
	parentRoot, err := parent.Block.HashTreeRoot()
	require.NoError(t, err)
	child := childBlock(parentRoot, 2, []byte{0x01})

	// Child arrives first: its parent is unknown, so it is parked.
	err = f.proc.ReceiveBlock(context.Background(), child, false)
	require.Error(t, err)
	kind, ok := blockchain.KindOf(err)
	require.True(t, ok)
	require.Equal(t, blockchain.KindUnknownParent, kind)

	childRoot, err := child.Block.HashTreeRoot()
	require.NoError(t, err)
	has, err := f.store.HasBlock(childRoot)
	require.NoError(t, err)
	require.False(t, has, "parked block must not be stored until its parent is applied")

	// Parent arrives: it applies, and draining re-applies the parked child.
	require.NoError(t, f.proc.ReceiveBlock(context.Background(), parent, false))

	has, err = f.store.HasBlock(childRoot)
	require.NoError(t, err)
	require.True(t, has, "orphan must be drained once its parent is stored")

	head, err := f.forkChoice.Head()
	require.NoError(t, err)
	require.Equal(t, childRoot, head)
}
