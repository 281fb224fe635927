// Package params defines the constants that parameterize the beacon chain:
// slot timing, validator economics, fork schedule and network identifiers.
// Trimmed from the teacher's BeaconChainConfig (beacon-chain's
// config/params/config.go) down to the phase-0 fields this module's state
// transition and fork-choice actually consume; later-fork fields (Altair
// sync committees, Bellatrix execution payloads, Capella withdrawals) are
// out of scope (see spec.md §1 Non-goals) and were dropped rather than
// carried as dead struct fields.
package params

import (
	"github.com/lucidchain/beacon/encoding/bytesutil"
	"github.com/lucidchain/beacon/primitives"
)

// versionLength is the byte length of an SSZ fork version, RootLength's
// sibling constant in the teacher's config/fieldparams package; inlined
// here since this module carries only the phase-0 fields that package's
// wider Altair/Bellatrix/Capella/Deneb preset constants were dropped for.
const versionLength = 4

// BeaconChainConfig contains the constant configuration a node needs to
// participate in the beacon chain.
type BeaconChainConfig struct {
	ConfigName   string
	PresetBase   string

	// Time parameters.
	MinGenesisTime                 uint64
	MinGenesisActiveValidatorCount uint64
	GenesisDelay                   uint64
	SecondsPerSlot                 uint64
	SlotsPerEpoch                  primitives.Slot
	MinAttestationInclusionDelay   primitives.Slot
	SlotsPerHistoricalRoot         primitives.Slot
	MinSeedLookahead               primitives.Epoch
	MaxSeedLookahead               primitives.Epoch
	MinValidatorWithdrawabilityDelay primitives.Epoch
	ShardCommitteePeriod           primitives.Epoch
	MinEpochsToInactivityPenalty   primitives.Epoch
	Eth1FollowDistance             uint64
	SecondsPerETH1Block            uint64
	SafeSlotsToUpdateJustified     primitives.Slot
	ProposerScoreBoost             uint64
	MaxFutureSlots                 primitives.Slot
	// BlockIngressQueueSize bounds the Chain Coordinator's incoming-block
	// FIFO; ReceiveBlock blocks the caller once it fills rather than
	// dropping blocks silently.
	BlockIngressQueueSize uint64

	// Validator economics.
	MinDepositAmount           uint64
	MaxEffectiveBalance        uint64
	EjectionBalance            uint64
	EffectiveBalanceIncrement  uint64
	HysteresisQuotient         uint64
	HysteresisDownwardMultiplier uint64
	HysteresisUpwardMultiplier uint64
	BaseRewardFactor           uint64
	WhistleBlowerRewardQuotient uint64
	ProposerRewardQuotient     uint64
	InactivityPenaltyQuotient  uint64
	MinSlashingPenaltyQuotient uint64
	ProportionalSlashingMultiplier uint64
	ChurnLimitQuotient         uint64
	MinPerEpochChurnLimit      uint64

	// Max operations per block.
	MaxProposerSlashings uint64
	MaxAttesterSlashings uint64
	MaxAttestations      uint64
	MaxDeposits          uint64
	MaxVoluntaryExits    uint64

	// Committees.
	ShuffleRoundCount          uint64
	MaxCommitteesPerSlot       uint64
	MaxValidatorsPerCommittee  uint64
	TargetCommitteeSize        uint64

	// Registry limits.
	EpochsPerHistoricalVector primitives.Epoch
	EpochsPerSlashingsVector  primitives.Epoch
	HistoricalRootsLimit      uint64
	ValidatorRegistryLimit    uint64

	// Fork schedule. GenesisForkVersion is the only version this module
	// ships with fork logic for; ForkVersionSchedule exists so the Chain
	// Coordinator's fork-digest computation (spec.md §4.H) has somewhere
	// real to read additional scheduled forks from in a future network.
	GenesisForkVersion  []byte
	GenesisEpoch        primitives.Epoch
	GenesisSlot         primitives.Slot
	ForkVersionSchedule map[[versionLength]byte]primitives.Epoch
	ForkVersionNames    map[[versionLength]byte]string

	// Network identifiers (resolves spec.md's chainId/networkId Open
	// Question: both are configured per network preset, not placeholders).
	DepositChainID         uint64
	DepositNetworkID       uint64
	DepositContractAddress string

	// Misc.
	FarFutureEpoch            primitives.Epoch
	FarFutureSlot             primitives.Slot
	ZeroHash                  [32]byte
	DepositContractTreeDepth  uint64
	DomainDeposit             [4]byte
	DomainBeaconProposer      [4]byte
	DomainBeaconAttester      [4]byte
	DomainRandao              [4]byte
	DomainVoluntaryExit       [4]byte
}

// InitializeForkSchedule (re)derives ForkVersionSchedule/ForkVersionNames
// from the config's fork version fields, mirroring the teacher's
// BeaconChainConfig.InitializeForkSchedule.
func (b *BeaconChainConfig) InitializeForkSchedule() {
	b.ForkVersionSchedule = map[[versionLength]byte]primitives.Epoch{
		bytesutil.ToBytes4(b.GenesisForkVersion): b.GenesisEpoch,
	}
	b.ForkVersionNames = map[[versionLength]byte]string{
		bytesutil.ToBytes4(b.GenesisForkVersion): "phase0",
	}
}

// ForkVersionForEpoch returns the fork version active at epoch e, walking
// the schedule for the highest entry whose epoch has already been reached
// (ties favor the later fork), as the Chain Coordinator's fork-digest
// recomputation (SPEC_FULL.md §4.H) requires.
func (b *BeaconChainConfig) ForkVersionForEpoch(e primitives.Epoch) [versionLength]byte {
	best := bytesutil.ToBytes4(b.GenesisForkVersion)
	bestEpoch := b.GenesisEpoch
	for version, epoch := range b.ForkVersionSchedule {
		if epoch <= e && epoch >= bestEpoch {
			bestEpoch = epoch
			best = version
		}
	}
	return best
}

// Copy returns a deep-enough copy of the config for tests that mutate a
// local copy (teacher convention: never mutate the shared active config in
// place).
func (b *BeaconChainConfig) Copy() *BeaconChainConfig {
	c := *b
	c.ForkVersionSchedule = make(map[[versionLength]byte]primitives.Epoch, len(b.ForkVersionSchedule))
	for k, v := range b.ForkVersionSchedule {
		c.ForkVersionSchedule[k] = v
	}
	c.ForkVersionNames = make(map[[versionLength]byte]string, len(b.ForkVersionNames))
	for k, v := range b.ForkVersionNames {
		c.ForkVersionNames[k] = v
	}
	return &c
}
