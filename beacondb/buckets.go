package beacondb

// Bucket names, one per namespace spec.md §4.B exposes to the core.
// Grounded on the teacher's beacon-chain/db/kv/kv.go bucket-per-namespace
// layout (blocksBucket, stateBucket, checkpointBucket, ...).
var (
	blocksBucket       = []byte("blocks")
	statesBucket       = []byte("states")
	blockSlotIndex     = []byte("block-slot-index")
	checkpointsBucket  = []byte("checkpoints")
	chainHeadBucket    = []byte("chain-head")
	depositRootsBucket = []byte("deposit-root-lists")
	latestMsgBucket    = []byte("latest-messages")
)

var (
	keyJustifiedBlockRoot = []byte("justified-block-root")
	keyJustifiedStateRoot = []byte("justified-state-root")
	keyFinalizedBlockRoot = []byte("finalized-block-root")
	keyFinalizedStateRoot = []byte("finalized-state-root")
	keyJustifiedEpoch     = []byte("justified-epoch")
	keyFinalizedEpoch     = []byte("finalized-epoch")
	keyChainHead          = []byte("chain-head")
)
