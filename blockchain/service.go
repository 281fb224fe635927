package blockchain

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/lucidchain/beacon/attestation"
	"github.com/lucidchain/beacon/beaconclock"
	"github.com/lucidchain/beacon/beacondb"
	"github.com/lucidchain/beacon/config/params"
	"github.com/lucidchain/beacon/consensustypes"
	"github.com/lucidchain/beacon/crypto/bls"
	"github.com/lucidchain/beacon/crypto/hash"
	"github.com/lucidchain/beacon/eventfeed"
	"github.com/lucidchain/beacon/execution"
	"github.com/lucidchain/beacon/forkchoice"
	"github.com/lucidchain/beacon/genesis"
	"github.com/lucidchain/beacon/primitives"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
)

// Service is Component H, the Chain Coordinator: it owns no consensus
// data itself, only handles to the components that do, restructured per
// spec.md §9's "BeaconChain god-object decomposed" note from the
// teacher's single beacon-chain/blockchain/service.go Service.
type Service struct {
	cfg          *params.BeaconChainConfig
	store        *beacondb.Store
	forkChoice   *forkchoice.Store
	eth1         execution.Eth1Follower
	bootstrapper *genesis.Bootstrapper
	verifier     bls.Verifier
	feed         *eventfeed.Feed

	mu                    sync.Mutex
	clock                 *beaconclock.Clock
	attestations          *attestation.Processor
	blocks                *Processor
	currentForkDigest     [4]byte
	currentForkEpoch      primitives.Epoch
	genesisValidatorsRoot [32]byte
	cancel                context.CancelFunc

	// ingress is the bounded FIFO SPEC_FULL.md §9 resolves the
	// back-pressure Open Question with: ReceiveBlock blocks its caller
	// once it fills rather than dropping a block, the same preference
	// for back-pressure over silent loss the teacher's gossip-handling
	// code shows.
	ingress chan blockRequest
}

type blockRequest struct {
	ctx     context.Context
	block   *consensustypes.SignedBeaconBlock
	trusted bool
	resp    chan error
}

// NewService wires cfg and the given components into an unstarted
// Coordinator; Start performs the genesis wait (or warm load) and brings
// up the remaining per-genesis components (clock, attestation processor,
// block processor).
func NewService(cfg *params.BeaconChainConfig, store *beacondb.Store, forkChoice *forkchoice.Store, eth1 execution.Eth1Follower, verifier bls.Verifier, feed *eventfeed.Feed) (*Service, error) {
	bootstrapper, err := genesis.New(cfg, verifier)
	if err != nil {
		return nil, errors.Wrap(err, "could not construct genesis bootstrapper")
	}
	return &Service{
		cfg:          cfg,
		store:        store,
		forkChoice:   forkChoice,
		eth1:         eth1,
		bootstrapper: bootstrapper,
		verifier:     verifier,
		feed:         feed,
	}, nil
}

// Start implements spec.md §4.H's start(): wait_for_state (warm load, or
// on a cold start eth1.InitBlockCache followed by the genesis wait),
// fork_choice.start(genesis_time), start the clock and the Block
// Processor, and cache current_fork_digest. On a warm start
// eth1.InitBlockCache is not called.
func (s *Service) Start() error {
	ctx, span := trace.StartSpan(context.Background(), "blockchain.Start")
	defer span.End()

	state, err := s.waitForState(ctx)
	if err != nil {
		return err
	}

	genesisTime := time.Unix(int64(state.GenesisTime), 0)
	s.clock = beaconclock.New(genesisTime, s.cfg)
	s.attestations, err = attestation.New(s.cfg, s.clock, s.store, s.forkChoice, s.verifier)
	if err != nil {
		return wrapErr(KindConfigMismatch, err, "could not construct attestation processor")
	}
	s.blocks = NewProcessor(s.cfg, s.clock, s.store, s.forkChoice, s.attestations, s.verifier, s.feed)
	s.genesisValidatorsRoot = state.GenesisValidatorsRoot

	s.forkChoice.Start(state.GenesisTime)

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.ingress = make(chan blockRequest, s.cfg.BlockIngressQueueSize)
	go s.clock.Run(runCtx, s.onTick)
	go s.pumpBlocks(runCtx)

	s.refreshForkDigest(state.Fork.CurrentVersion, 0)
	return nil
}

// pumpBlocks is the ingress FIFO's sole consumer, applying queued blocks
// to the Block Processor one at a time.
func (s *Service) pumpBlocks(ctx context.Context) {
	for {
		select {
		case req := <-s.ingress:
			req.resp <- s.blocks.ReceiveBlock(req.ctx, req.block, req.trusted)
		case <-ctx.Done():
			return
		}
	}
}

// Stop implements spec.md §4.H's stop(): fork-choice, clock, block
// processor, in that order.
func (s *Service) Stop() {
	s.forkChoice.Stop()
	if s.cancel != nil {
		s.cancel()
	}
}

// waitForState implements "either load latest stored state, or subscribe
// to eth1 blocks until Genesis Bootstrapper succeeds" (spec.md §4.H).
func (s *Service) waitForState(ctx context.Context) (*consensustypes.BeaconState, error) {
	ctx, span := trace.StartSpan(ctx, "blockchain.waitForState")
	defer span.End()

	headRoot, found, err := s.store.ChainHeadRoot()
	if err != nil {
		return nil, wrapErr(KindStorageFault, err, "could not read chain head")
	}
	if found {
		block, err := s.store.Block(headRoot)
		if err != nil || block == nil {
			return nil, wrapErr(KindStorageFault, err, "chain head root has no stored block")
		}
		state, err := s.store.State(block.Block.StateRoot)
		if err != nil || state == nil {
			return nil, wrapErr(KindStorageFault, err, "chain head block has no stored state")
		}
		return state, nil
	}

	if err := s.eth1.InitBlockCache(); err != nil {
		return nil, wrapErr(KindConfigMismatch, err, "could not init eth1 block cache")
	}
	state, rootList, err := s.runGenesisBootstrap(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.initializeBeaconChain(ctx, state, rootList); err != nil {
		return nil, err
	}
	return state, nil
}

// genesisResult carries the outcome of one eth1 block handler invocation
// back to runGenesisBootstrap's blocking wait.
type genesisResult struct {
	state *consensustypes.BeaconState
	err   error
}

// runGenesisBootstrap implements spec.md §4.D step 5 from the
// Coordinator's side: subscribe to eth1 blocks, feed each to the
// bootstrapper, and resolve on the first one producing a valid genesis
// state (spec.md §9: "async event resolution of genesis ... an explicit
// subscription handle ... dropped on genesis completion").
func (s *Service) runGenesisBootstrap(ctx context.Context) (*consensustypes.BeaconState, *consensustypes.DepositDataRootList, error) {
	_, span := trace.StartSpan(ctx, "blockchain.runGenesisBootstrap")
	defer span.End()

	resultCh := make(chan genesisResult, 1)
	var once sync.Once
	send := func(r genesisResult) { once.Do(func() { resultCh <- r }) }

	sub := s.eth1.On("block", func(block execution.Eth1Block) {
		deposits, err := s.eth1.ProcessPastDeposits(block.Number)
		if err != nil {
			send(genesisResult{err: wrapErr(KindConfigMismatch, err, "could not fetch past deposits")})
			return
		}
		if err := s.bootstrapper.ProcessEth1Block(block, deposits); err != nil {
			send(genesisResult{err: wrapErr(KindConfigMismatch, err, "could not process eth1 block")})
			return
		}
		state, err := s.bootstrapper.TryGenesis(block)
		if err != nil {
			if stderrors.Is(err, genesis.ErrNotReady) {
				return
			}
			send(genesisResult{err: wrapErr(KindConfigMismatch, err, "genesis bootstrap failed")})
			return
		}
		send(genesisResult{state: state})
	})
	defer sub.Unsubscribe()

	r := <-resultCh
	if r.err != nil {
		return nil, nil, r.err
	}
	return r.state, s.bootstrapper.RootList(), nil
}

// initializeBeaconChain implements spec.md §4.H's
// initialize_beacon_chain(state, deposit_root_list).
func (s *Service) initializeBeaconChain(ctx context.Context, state *consensustypes.BeaconState, rootList *consensustypes.DepositDataRootList) error {
	_, span := trace.StartSpan(ctx, "blockchain.initializeBeaconChain")
	defer span.End()

	stateRoot, err := state.HashTreeRoot()
	if err != nil {
		return wrapErr(KindInvalidBlock, err, "could not hash genesis state")
	}
	genesisBlock := &consensustypes.BeaconBlock{
		Slot:       s.cfg.GenesisSlot,
		ParentRoot: consensustypes.ZeroRoot,
		StateRoot:  stateRoot,
		Body:       &consensustypes.BeaconBlockBody{},
	}
	blockRoot, err := genesisBlock.HashTreeRoot()
	if err != nil {
		return wrapErr(KindInvalidBlock, err, "could not hash genesis block")
	}

	if existingRoot, found, err := s.store.CanonicalBlockRootAtSlot(uint64(s.cfg.GenesisSlot)); err != nil {
		return wrapErr(KindStorageFault, err, "could not read existing genesis block")
	} else if found {
		existing, err := s.store.Block(existingRoot)
		if err != nil || existing == nil {
			return wrapErr(KindStorageFault, err, "genesis slot indexed but block missing")
		}
		if existing.Block.StateRoot != stateRoot {
			return newErr(KindGenesisMismatch, "stored genesis state root differs from newly bootstrapped genesis; wipe storage to proceed")
		}
		return nil
	}

	cp := consensustypes.Checkpoint{Epoch: s.cfg.GenesisEpoch, Root: blockRoot}
	signedGenesis := &consensustypes.SignedBeaconBlock{Block: genesisBlock}
	if err := s.store.StoreChainHead(blockRoot, signedGenesis, stateRoot, state); err != nil {
		return wrapErr(KindStorageFault, err, "could not store genesis block and state")
	}
	if err := s.store.SaveCanonicalSlotBlockRoot(uint64(s.cfg.GenesisSlot), blockRoot); err != nil {
		return wrapErr(KindStorageFault, err, "could not index genesis block by slot")
	}
	if err := s.store.SaveJustifiedCheckpoint(cp); err != nil {
		return wrapErr(KindStorageFault, err, "could not save genesis justified checkpoint")
	}
	if err := s.store.SaveFinalizedCheckpoint(cp); err != nil {
		return wrapErr(KindStorageFault, err, "could not save genesis finalized checkpoint")
	}
	rootListRoot, err := rootList.Root()
	if err != nil {
		return wrapErr(KindStorageFault, err, "could not hash deposit root list")
	}
	if err := s.store.SaveDepositRootListRoot(state.Eth1DepositIndex, rootListRoot); err != nil {
		return wrapErr(KindStorageFault, err, "could not save deposit root list")
	}

	node := &consensustypes.ForkChoiceNode{
		Slot:                s.cfg.GenesisSlot,
		BlockRoot:           blockRoot,
		StateRoot:           stateRoot,
		ParentRoot:          consensustypes.ZeroRoot,
		JustifiedCheckpoint: cp,
		FinalizedCheckpoint: cp,
	}
	if err := s.forkChoice.SeedGenesis(node); err != nil {
		return wrapErr(KindStorageFault, err, "could not seed fork choice with genesis node")
	}
	headSlotGauge.Set(float64(s.cfg.GenesisSlot))
	validatorCountGauge.Set(float64(len(state.Validators)))
	return nil
}

// ReceiveBlock enqueues b on the ingress FIFO and waits for the Block
// Processor to apply it, blocking if the queue is full (spec.md §4.H).
func (s *Service) ReceiveBlock(ctx context.Context, b *consensustypes.SignedBeaconBlock, trusted bool) error {
	resp := make(chan error, 1)
	select {
	case s.ingress <- blockRequest{ctx: ctx, block: b, trusted: trusted, resp: resp}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-resp:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ReceiveAttestation is a thin forwarder to the Attestation Processor
// (spec.md §4.H).
func (s *Service) ReceiveAttestation(ctx context.Context, att *consensustypes.Attestation) error {
	_, span := trace.StartSpan(ctx, "blockchain.ReceiveAttestation")
	defer span.End()
	return s.attestations.ReceiveAttestation(att)
}

// onTick is the Clock callback: it keeps fork-choice's notion of current
// time current (spec.md §4.E's OnTick), then recomputes the fork digest
// from the fork version active at the current head's epoch.
func (s *Service) onTick(tick beaconclock.SlotTick) {
	s.forkChoice.OnTick(uint64(tick.Slot))

	head, err := s.forkChoice.Head()
	if err != nil {
		return
	}
	node, ok := s.forkChoice.Node(head)
	if !ok {
		return
	}
	epoch := node.Slot.ToEpoch(s.cfg.SlotsPerEpoch)
	version := s.cfg.ForkVersionForEpoch(epoch)
	s.refreshForkDigest(version, epoch)
}

// refreshForkDigest recomputes current_fork_digest for version and emits
// ForkDigestChanged when it differs from the cached digest. Start calls it
// once and onTick calls it on every clock tick, so a head that crosses a
// fork boundary is picked up on the next tick.
func (s *Service) refreshForkDigest(version [4]byte, epoch primitives.Epoch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	digest := computeForkDigest(version, s.genesisValidatorsRoot)
	if digest == s.currentForkDigest {
		s.currentForkEpoch = epoch
		return
	}
	s.currentForkDigest = digest
	s.currentForkEpoch = epoch
	s.feed.Send(eventfeed.Event{Type: eventfeed.ForkDigestChanged, Data: eventfeed.ForkDigestData{Digest: digest}})
}

// CurrentForkDigest returns the cached fork digest.
func (s *Service) CurrentForkDigest() [4]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentForkDigest
}

// computeForkDigest implements compute_fork_digest(current_fork_version,
// genesis_validators_root): the first 4 bytes of hash(version || root).
func computeForkDigest(version [4]byte, genesisValidatorsRoot [32]byte) [4]byte {
	buf := make([]byte, 0, 36)
	buf = append(buf, version[:]...)
	buf = append(buf, genesisValidatorsRoot[:]...)
	h := hash.Hash(buf)
	var digest [4]byte
	copy(digest[:], h[:4])
	return digest
}
