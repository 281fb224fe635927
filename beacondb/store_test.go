package beacondb_test

import (
	"testing"

	"github.com/lucidchain/beacon/beacondb"
	"github.com/lucidchain/beacon/consensustypes"
	"github.com/stretchr/testify/require"
)

func TestStoreChainHead_AtomicTriple(t *testing.T) {
	store, err := beacondb.NewKVStore(t.TempDir())
	require.NoError(t, err)
	defer func() { require.NoError(t, store.Close()) }()

	block := &consensustypes.SignedBeaconBlock{Block: &consensustypes.BeaconBlock{Slot: 1, Body: &consensustypes.BeaconBlockBody{}}}
	st := &consensustypes.BeaconState{Slot: 1}
	var blockRoot, stateRoot [32]byte
	blockRoot[0] = 1
	stateRoot[0] = 2

	require.NoError(t, store.StoreChainHead(blockRoot, block, stateRoot, st))

	gotBlock, err := store.Block(blockRoot)
	require.NoError(t, err)
	require.Equal(t, block.Block.Slot, gotBlock.Block.Slot)

	gotState, err := store.State(stateRoot)
	require.NoError(t, err)
	require.Equal(t, st.Slot, gotState.Slot)

	head, found, err := store.ChainHeadRoot()
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, blockRoot, head)
}

func TestSaveJustifiedCheckpoint_RequiresBlock(t *testing.T) {
	store, err := beacondb.NewKVStore(t.TempDir())
	require.NoError(t, err)
	defer func() { require.NoError(t, store.Close()) }()

	var root [32]byte
	root[0] = 9
	err = store.SaveJustifiedCheckpoint(consensustypes.Checkpoint{Epoch: 1, Root: root})
	require.Error(t, err)

	block := &consensustypes.SignedBeaconBlock{Block: &consensustypes.BeaconBlock{Slot: 1, Body: &consensustypes.BeaconBlockBody{}}}
	require.NoError(t, store.SaveBlock(root, block))
	require.NoError(t, store.SaveJustifiedCheckpoint(consensustypes.Checkpoint{Epoch: 1, Root: root}))

	cp, err := store.JustifiedCheckpoint()
	require.NoError(t, err)
	require.Equal(t, root, cp.Root)
	require.Equal(t, uint64(1), uint64(cp.Epoch))
}

func TestLatestMessage_RoundTrip(t *testing.T) {
	store, err := beacondb.NewKVStore(t.TempDir())
	require.NoError(t, err)
	defer func() { require.NoError(t, store.Close()) }()

	_, found, err := store.LatestMessage(7)
	require.NoError(t, err)
	require.False(t, found)

	var root [32]byte
	root[0] = 3
	require.NoError(t, store.SaveLatestMessage(7, consensustypes.LatestMessage{Epoch: 2, Root: root}))
	msg, found, err := store.LatestMessage(7)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, root, msg.Root)
}
