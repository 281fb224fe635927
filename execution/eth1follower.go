// Package execution defines Component C, the Eth1 Follower, as an
// interface only (spec.md §1 Non-goals: "the Ethereum 1.0 JSON-RPC
// follower ... [is] out of scope"; spec.md §4.C gives its contract). The
// real follower would be backed by go-ethereum's ethclient/rpc packages,
// grounded on the teacher's beacon-chain/powchain vs
// beacon-chain/powchain/testing split: production code talks to go-ethereum,
// tests and local interop talk to a deterministic fake.
package execution

import "github.com/lucidchain/beacon/consensustypes"

// Eth1Block is the subset of an eth1 block header the Genesis Bootstrapper
// and Chain Coordinator need.
type Eth1Block struct {
	Hash      [32]byte
	Number    uint64
	Timestamp uint64
}

// BlockHandler is invoked once per eth1 block the follower observes, in
// ascending block-number order.
type BlockHandler func(Eth1Block)

// Subscription is returned by On and cancels the handler when closed,
// matching spec.md §9's "explicit subscription handle ... dropped on
// genesis completion".
type Subscription interface {
	Unsubscribe()
}

// Eth1Follower is the contract spec.md §4.C and §6 describe: a
// subscribe/unsubscribe API over eth1 blocks plus a historical-deposit
// query.
type Eth1Follower interface {
	// On subscribes handler to every future eth1 block event.
	On(event string, handler BlockHandler) Subscription
	// InitBlockCache seeds the follower's internal view of genesis
	// configuration ahead of historical deposit replay.
	InitBlockCache() error
	// ProcessPastDeposits returns every deposit data in ascending
	// eth1_deposit_index order with block number <= toBlockNumber.
	ProcessPastDeposits(toBlockNumber uint64) ([]*consensustypes.DepositData, error)
}
