package blockchain

import (
	"context"
	"sync"

	"github.com/lucidchain/beacon/attestation"
	"github.com/lucidchain/beacon/beaconclock"
	"github.com/lucidchain/beacon/beacondb"
	"github.com/lucidchain/beacon/config/params"
	"github.com/lucidchain/beacon/consensustypes"
	"github.com/lucidchain/beacon/crypto/bls"
	"github.com/lucidchain/beacon/eventfeed"
	"github.com/lucidchain/beacon/forkchoice"
	"github.com/lucidchain/beacon/runtime/logging"
	"github.com/lucidchain/beacon/ssz"
	"github.com/lucidchain/beacon/statetransition"
	"go.opencensus.io/trace"
)

var log = logging.New("blockchain")

// Processor implements Component G, the Block Processor: the five-stage
// pipeline Received -> Validated -> Applied -> Stored -> Notified
// (spec.md §4.G), plus an orphan pool for blocks whose parent has not yet
// arrived.
type Processor struct {
	// mu guards orphans, the only mutable state this type owns directly;
	// the pipeline's other state (fork choice, storage) is owned by its
	// own lock-guarded type (spec.md §5: "single-writer per subsystem").
	mu      sync.Mutex
	orphans map[[32]byte][]*consensustypes.SignedBeaconBlock

	cfg          *params.BeaconChainConfig
	clock        *beaconclock.Clock
	store        *beacondb.Store
	forkChoice   *forkchoice.Store
	attestations *attestation.Processor
	verifier     bls.Verifier
	feed         *eventfeed.Feed
}

// NewProcessor constructs a Block Processor wired to the given
// components. None of them are owned by Processor; it only calls their
// exported methods, per spec.md §9's "no back-reference to the
// coordinator is required beyond event emission".
func NewProcessor(cfg *params.BeaconChainConfig, clock *beaconclock.Clock, store *beacondb.Store, forkChoice *forkchoice.Store, attestations *attestation.Processor, verifier bls.Verifier, feed *eventfeed.Feed) *Processor {
	return &Processor{
		orphans:      make(map[[32]byte][]*consensustypes.SignedBeaconBlock),
		cfg:          cfg,
		clock:        clock,
		store:        store,
		forkChoice:   forkChoice,
		attestations: attestations,
		verifier:     verifier,
		feed:         feed,
	}
}

// ReceiveBlock runs b through the five-stage pipeline spec.md §4.G
// describes. trusted suppresses signature verification for blocks the
// sync layer already checked once (spec.md §4.G step 3's
// `{verify_signatures: !trusted}`).
func (p *Processor) ReceiveBlock(ctx context.Context, b *consensustypes.SignedBeaconBlock, trusted bool) error {
	ctx, span := trace.StartSpan(ctx, "blockchain.ReceiveBlock")
	defer span.End()

	root, err := b.Block.HashTreeRoot()
	if err != nil {
		err = wrapErr(KindInvalidBlock, err, "could not hash incoming block")
		observeErr(err)
		return err
	}

	if has, err := p.store.HasBlock(root); err != nil {
		err = wrapErr(KindStorageFault, err, "could not check for existing block")
		observeErr(err)
		return err
	} else if has {
		// Idempotence (spec.md §8): re-applying an already-stored block
		// is a no-op and emits no events.
		return nil
	}

	if err := p.validateAndApply(ctx, b, root, trusted); err != nil {
		observeErr(err)
		return err
	}
	blocksProcessedTotal.Inc()

	p.drainOrphans(ctx, root)
	return nil
}

// validateAndApply implements stages Validated/Applied/Stored/Notified
// for one block whose parent is assumed reachable; ReceiveBlock and
// drainOrphans are the two callers.
func (p *Processor) validateAndApply(ctx context.Context, b *consensustypes.SignedBeaconBlock, root [32]byte, trusted bool) error {
	block := b.Block

	parentState, err := p.store.State(p.parentStateRoot(block))
	if err != nil {
		return wrapErr(KindStorageFault, err, "could not load parent state")
	}
	if parentState == nil {
		p.parkOrphan(block.ParentRoot, b)
		return newErr(KindUnknownParent, "parent state not found, block parked")
	}

	currentSlot := p.clock.CurrentSlot()
	if block.Slot <= parentState.Slot {
		return newErr(KindInvalidBlock, "block slot is not after parent state slot")
	}
	if uint64(block.Slot) > uint64(currentSlot)+uint64(p.cfg.MaxFutureSlots) {
		return newErr(KindFutureSlot, "block slot is beyond the future-slot tolerance")
	}

	newState, err := statetransition.Transition(p.cfg, parentState, b, statetransition.Opts{
		VerifySignatures: !trusted,
		Verifier:         p.verifier,
	})
	if err != nil {
		return wrapErr(KindInvalidBlock, err, "state transition rejected block")
	}
	stateRoot, err := newState.HashTreeRoot()
	if err != nil {
		return wrapErr(KindInvalidBlock, err, "could not hash post-state")
	}

	if err := p.store.StoreProcessedBlock(root, b, stateRoot, newState, uint64(block.Slot)); err != nil {
		return wrapErr(KindStorageFault, err, "could not store processed block")
	}

	fcNode := &consensustypes.ForkChoiceNode{
		Slot:       block.Slot,
		BlockRoot:  root,
		StateRoot:  stateRoot,
		ParentRoot: block.ParentRoot,
		// A block's own justified/finalized checkpoints live inside its
		// post-state in the full protocol; this reduced model carries
		// them forward from the parent node unchanged, since phase-0
		// justification/finalization bookkeeping is out of this
		// module's scope beyond the genesis checkpoint.
		JustifiedCheckpoint: p.forkChoice.JustifiedCheckpoint(),
		FinalizedCheckpoint: p.forkChoice.FinalizedCheckpoint(),
	}
	if err := p.forkChoice.AddBlock(fcNode); err != nil {
		return wrapErr(KindInvalidBlock, err, "fork choice rejected block")
	}
	p.forkChoice.SetValidatorBalances(effectiveBalances(newState))

	p.notify(root, newState)

	for _, att := range block.Body.Attestations {
		if err := p.attestations.ReceiveAttestation(att); err != nil {
			log.WithField("error", err).Warn("could not process block-embedded attestation")
		}
	}
	return nil
}

// notify implements stage 5: emit the block event, then update chain.head
// and emit head only when fork choice's head changed. It emits no
// justified or finalized events and does not update the stored
// justified/finalized roots.
func (p *Processor) notify(blockRoot [32]byte, newState *consensustypes.BeaconState) {
	p.feed.Send(eventfeed.Event{Type: eventfeed.Block, Data: eventfeed.BlockData{Slot: uint64(newState.Slot), BlockRoot: blockRoot}})
	validatorCountGauge.Set(float64(len(newState.Validators)))

	previousHead, hadHead, err := p.store.ChainHeadRoot()
	if err != nil {
		log.WithField("error", err).Warn("could not read previous chain head")
	}
	head, err := p.forkChoice.Head()
	if err != nil {
		log.WithField("error", err).Warn("could not resolve head after block application")
		return
	}
	if !hadHead || !ssz.Equal(previousHead, head) {
		if err := p.store.SetChainHead(head); err != nil {
			log.WithField("error", err).Error("could not persist new chain head")
			return
		}
		p.feed.Send(eventfeed.Event{Type: eventfeed.Head, Data: eventfeed.HeadData{Slot: uint64(newState.Slot), HeadRoot: head}})
		headSlotGauge.Set(float64(newState.Slot))
	}
}

// effectiveBalances builds the validator-index -> effective-balance table
// fork choice weighs votes by, keeping it current with the post-state a
// block's transition just produced (spec.md §4.E: "pick the child
// maximising total attesting balance").
func effectiveBalances(state *consensustypes.BeaconState) map[uint64]uint64 {
	balances := make(map[uint64]uint64, len(state.Validators))
	for i, v := range state.Validators {
		balances[uint64(i)] = v.EffectiveBalance
	}
	return balances
}

func (p *Processor) parentStateRoot(block *consensustypes.BeaconBlock) [32]byte {
	parent, err := p.store.Block(block.ParentRoot)
	if err != nil || parent == nil {
		return block.ParentRoot
	}
	node, ok := p.forkChoice.Node(block.ParentRoot)
	if !ok {
		return block.ParentRoot
	}
	return node.StateRoot
}

func (p *Processor) parkOrphan(parentRoot [32]byte, b *consensustypes.SignedBeaconBlock) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orphans[parentRoot] = append(p.orphans[parentRoot], b)
}

// drainOrphans re-applies every block parked under parentRoot now that
// its parent has reached Stored (spec.md §4.G step 2, §8 scenario 4).
func (p *Processor) drainOrphans(ctx context.Context, parentRoot [32]byte) {
	p.mu.Lock()
	pending := p.orphans[parentRoot]
	delete(p.orphans, parentRoot)
	p.mu.Unlock()

	for _, b := range pending {
		if err := p.ReceiveBlock(ctx, b, false); err != nil {
			log.WithField("error", err).Warn("could not apply drained orphan block")
		}
	}
}
