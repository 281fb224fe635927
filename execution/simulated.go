package execution

import (
	"sync"

	"github.com/lucidchain/beacon/consensustypes"
)

// SimulatedBackend is a deterministic in-memory Eth1Follower fake used by
// the Genesis Bootstrapper's tests and local/interop bring-up, grounded on
// the teacher's beacon-chain/powchain/testing fakes (a POWChain interface
// satisfied without a live eth1 node).
type SimulatedBackend struct {
	mu       sync.Mutex
	handlers map[string][]BlockHandler
	deposits []*consensustypes.DepositData
}

// NewSimulatedBackend returns an empty backend ready to have blocks and
// deposits fed into it by a test.
func NewSimulatedBackend() *SimulatedBackend {
	return &SimulatedBackend{
		handlers: make(map[string][]BlockHandler),
	}
}

type simSubscription struct {
	backend *SimulatedBackend
	event   string
	index   int
}

func (s *simSubscription) Unsubscribe() {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	hs := s.backend.handlers[s.event]
	if s.index < 0 || s.index >= len(hs) {
		return
	}
	s.backend.handlers[s.event] = append(hs[:s.index], hs[s.index+1:]...)
}

// On implements Eth1Follower.
func (b *SimulatedBackend) On(event string, handler BlockHandler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], handler)
	return &simSubscription{backend: b, event: event, index: len(b.handlers[event]) - 1}
}

// InitBlockCache implements Eth1Follower; it is a no-op for the simulated
// backend since there is no remote client connection to warm up.
func (b *SimulatedBackend) InitBlockCache() error {
	return nil
}

// ProcessPastDeposits implements Eth1Follower, returning every deposit fed
// in via AddDeposit. Deposits carry no block number here, so toBlockNumber
// does not filter them.
func (b *SimulatedBackend) ProcessPastDeposits(toBlockNumber uint64) ([]*consensustypes.DepositData, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*consensustypes.DepositData, 0, len(b.deposits))
	for _, d := range b.deposits {
		out = append(out, d)
	}
	return out, nil
}

// AddDeposit registers a deposit as having occurred, for tests to build up
// genesis-validator sets.
func (b *SimulatedBackend) AddDeposit(d *consensustypes.DepositData) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deposits = append(b.deposits, d)
}

// EmitBlock fires every handler registered for "block", in the order they
// were registered, the way a real eth1 follower delivers blocks strictly
// in ascending number order (see SPEC_FULL.md §4.D).
func (b *SimulatedBackend) EmitBlock(block Eth1Block) {
	b.mu.Lock()
	handlers := append([]BlockHandler(nil), b.handlers["block"]...)
	b.mu.Unlock()
	for _, h := range handlers {
		h(block)
	}
}
