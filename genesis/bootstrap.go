// Package genesis implements Component D, the Genesis Bootstrapper
// (spec.md §4.D): given an eth1 block and the deposits observed up to it,
// tries to build a valid genesis beacon state. Grounded on the teacher's
// beacon-chain/powchain/deposit.go deposit-accumulation/BLS-verification
// pattern (bls.Domain/sig.Verify against each deposit) and
// beacon-chain/powchain/log_processing.go's strictly-ascending,
// dedup-by-index block processing.
package genesis

import (
	"github.com/lucidchain/beacon/config/params"
	"github.com/lucidchain/beacon/consensustypes"
	"github.com/lucidchain/beacon/crypto/bls"
	"github.com/lucidchain/beacon/execution"
	"github.com/lucidchain/beacon/primitives"
	"github.com/lucidchain/beacon/runtime/logging"
	"github.com/pkg/errors"
)

var log = logging.New("genesis")

// ErrNotReady is returned by TryGenesis when the accumulated deposits and
// eth1 block do not yet satisfy is_valid_genesis_state; the caller should
// keep waiting for the next eth1 block (spec.md §4.D step 4).
var ErrNotReady = errors.New("not enough validators/time for genesis yet")

// Bootstrapper accumulates deposits across eth1 blocks and tries each new
// block against the genesis predicate.
type Bootstrapper struct {
	cfg      *params.BeaconChainConfig
	verifier bls.Verifier

	deposits     []*consensustypes.DepositData
	seenIndex    map[int]bool
	rootList     *consensustypes.DepositDataRootList
	lastEth1Num  uint64
	haveLastNum  bool
}

// New constructs a Bootstrapper against cfg using verifier for every
// deposit's BLS signature.
func New(cfg *params.BeaconChainConfig, verifier bls.Verifier) (*Bootstrapper, error) {
	rootList, err := consensustypes.NewDepositDataRootList(cfg.DepositContractTreeDepth)
	if err != nil {
		return nil, errors.Wrap(err, "could not create deposit root list")
	}
	return &Bootstrapper{
		cfg:       cfg,
		verifier:  verifier,
		seenIndex: make(map[int]bool),
		rootList:  rootList,
	}, nil
}

// ProcessEth1Block ingests one eth1 block (spec.md §4.D step 1-2: fetch
// deposit datas at or before E.number, append their roots to the deposit
// list), verifying and accumulating each new deposit exactly once
// (deduplicated by its position in arrival order, mirroring the teacher's
// dedup-by-eth1_deposit_index in log_processing.go). Blocks must be fed in
// ascending number order; a block observed out of order is rejected.
func (g *Bootstrapper) ProcessEth1Block(block execution.Eth1Block, deposits []*consensustypes.DepositData) error {
	if g.haveLastNum && block.Number < g.lastEth1Num {
		return errors.Errorf("eth1 block %d observed out of order after %d", block.Number, g.lastEth1Num)
	}
	g.lastEth1Num = block.Number
	g.haveLastNum = true

	for i, d := range deposits {
		if g.seenIndex[i] {
			continue
		}
		valid, err := g.verifyDeposit(d)
		if err != nil {
			return errors.Wrap(err, "could not verify deposit signature")
		}
		if !valid {
			log.WithField("index", i).Warn("discarding deposit with invalid signature")
			g.seenIndex[i] = true
			continue
		}
		root, err := d.HashTreeRoot()
		if err != nil {
			return errors.Wrap(err, "could not hash deposit data")
		}
		if err := g.rootList.Push(root); err != nil {
			return errors.Wrap(err, "could not append deposit root")
		}
		g.deposits = append(g.deposits, d)
		g.seenIndex[i] = true
	}
	return nil
}

func (g *Bootstrapper) verifyDeposit(d *consensustypes.DepositData) (bool, error) {
	root, err := (&consensustypes.DepositData{
		PublicKey:             d.PublicKey,
		WithdrawalCredentials: d.WithdrawalCredentials,
		Amount:                d.Amount,
	}).HashTreeRoot()
	if err != nil {
		return false, err
	}
	return g.verifier.Verify([][]byte{d.PublicKey}, root, d.Signature)
}

// TryGenesis implements spec.md §4.D steps 3-4: calls the pure
// initialize_beacon_state_from_eth1 function, then is_valid_genesis_state;
// returns ErrNotReady if the predicate fails so the caller discards and
// waits for the next eth1 block.
func (g *Bootstrapper) TryGenesis(block execution.Eth1Block) (*consensustypes.BeaconState, error) {
	state := g.initializeBeaconStateFromEth1(block)
	if !isValidGenesisState(g.cfg, state) {
		return nil, ErrNotReady
	}
	return state, nil
}

// initializeBeaconStateFromEth1 is the pure function spec.md §4.D step 3
// names directly: builds an unsigned genesis state from an eth1 block hash
// and timestamp plus the deposits accumulated so far.
func (g *Bootstrapper) initializeBeaconStateFromEth1(block execution.Eth1Block) *consensustypes.BeaconState {
	validators := make([]*consensustypes.Validator, 0, len(g.deposits))
	balances := make([]uint64, 0, len(g.deposits))
	for _, d := range g.deposits {
		balance := d.Amount
		if balance > g.cfg.MaxEffectiveBalance {
			balance = g.cfg.MaxEffectiveBalance
		}
		validators = append(validators, &consensustypes.Validator{
			PublicKey:             d.PublicKey,
			WithdrawalCredentials: d.WithdrawalCredentials,
			EffectiveBalance:      balance,
			ActivationEpoch:       0,
			ExitEpoch:             primitives.FarFutureEpoch,
		})
		balances = append(balances, d.Amount)
	}
	return &consensustypes.BeaconState{
		GenesisTime:      block.Timestamp + g.cfg.GenesisDelay,
		Slot:             0,
		Fork:             consensustypes.Fork{CurrentVersion: toArray4(g.cfg.GenesisForkVersion), PreviousVersion: toArray4(g.cfg.GenesisForkVersion)},
		Validators:       validators,
		Balances:         balances,
		Eth1DepositIndex: uint64(len(g.deposits)),
	}
}

// isValidGenesisState implements the predicate named in spec.md §4.D step
// 4: enough active validators, and genesis time has been reached.
func isValidGenesisState(cfg *params.BeaconChainConfig, state *consensustypes.BeaconState) bool {
	if uint64(len(state.Validators)) < cfg.MinGenesisActiveValidatorCount {
		return false
	}
	return state.GenesisTime >= cfg.MinGenesisTime
}

func toArray4(b []byte) [4]byte {
	var a [4]byte
	copy(a[:], b)
	return a
}

// RootList exposes the accumulated deposit-root list for the Chain
// Coordinator to hand to Storage at genesis (spec.md §4.H:
// "atomically store ... the deposit-root list at index
// state.eth1_deposit_index").
func (g *Bootstrapper) RootList() *consensustypes.DepositDataRootList {
	return g.rootList
}
