package params

import "github.com/lucidchain/beacon/primitives"

// MainnetConfig returns the configuration to be used in the main network.
func MainnetConfig() *BeaconChainConfig {
	cfg := &BeaconChainConfig{
		ConfigName: "mainnet",
		PresetBase: "mainnet",

		MinGenesisTime:                  1606824000,
		MinGenesisActiveValidatorCount:  16384,
		GenesisDelay:                    604800,
		SecondsPerSlot:                  12,
		SlotsPerEpoch:                   32,
		MinAttestationInclusionDelay:    1,
		SlotsPerHistoricalRoot:          8192,
		MinSeedLookahead:                1,
		MaxSeedLookahead:                4,
		MinValidatorWithdrawabilityDelay: 256,
		ShardCommitteePeriod:            256,
		MinEpochsToInactivityPenalty:    4,
		Eth1FollowDistance:              2048,
		SecondsPerETH1Block:             14,
		SafeSlotsToUpdateJustified:      8,
		ProposerScoreBoost:              40,
		MaxFutureSlots:                  32,
		BlockIngressQueueSize:           256,

		MinDepositAmount:             1000000000,
		MaxEffectiveBalance:          32000000000,
		EjectionBalance:              16000000000,
		EffectiveBalanceIncrement:    1000000000,
		HysteresisQuotient:           4,
		HysteresisDownwardMultiplier: 1,
		HysteresisUpwardMultiplier:   5,
		BaseRewardFactor:             64,
		WhistleBlowerRewardQuotient:  512,
		ProposerRewardQuotient:       8,
		InactivityPenaltyQuotient:    1 << 26,
		MinSlashingPenaltyQuotient:   128,
		ProportionalSlashingMultiplier: 1,
		ChurnLimitQuotient:           65536,
		MinPerEpochChurnLimit:        4,

		MaxProposerSlashings: 16,
		MaxAttesterSlashings: 2,
		MaxAttestations:      128,
		MaxDeposits:          16,
		MaxVoluntaryExits:    16,

		ShuffleRoundCount:         90,
		MaxCommitteesPerSlot:      64,
		MaxValidatorsPerCommittee: 2048,
		TargetCommitteeSize:       128,

		EpochsPerHistoricalVector: 65536,
		EpochsPerSlashingsVector:  8192,
		HistoricalRootsLimit:      16777216,
		ValidatorRegistryLimit:    1099511627776,

		GenesisForkVersion: []byte{0, 0, 0, 0},
		GenesisEpoch:       0,
		GenesisSlot:        0,

		DepositChainID:         1,
		DepositNetworkID:       1,
		DepositContractAddress: "0x00000000219ab540356cBB839Cbe05303d7705Fa",

		FarFutureEpoch:           primitives.FarFutureEpoch,
		FarFutureSlot:            primitives.FarFutureSlot,
		DepositContractTreeDepth: 32,

		DomainDeposit:        [4]byte{0x03, 0x00, 0x00, 0x00},
		DomainBeaconProposer: [4]byte{0x00, 0x00, 0x00, 0x00},
		DomainBeaconAttester: [4]byte{0x01, 0x00, 0x00, 0x00},
		DomainRandao:         [4]byte{0x02, 0x00, 0x00, 0x00},
		DomainVoluntaryExit:  [4]byte{0x04, 0x00, 0x00, 0x00},
	}
	cfg.InitializeForkSchedule()
	return cfg
}

// InteropConfig returns a config tuned for local interop/devnet bring-up:
// a tiny genesis validator count and fast slot times, the same way the
// teacher's E2ETestConfig/MinimalSpecConfig presets relax mainnet's
// constants for fast iteration (config/params/testnet_e2e_config.go).
func InteropConfig() *BeaconChainConfig {
	cfg := MainnetConfig().Copy()
	cfg.ConfigName = "interop"
	cfg.MinGenesisActiveValidatorCount = 64
	cfg.GenesisDelay = 0
	cfg.SecondsPerSlot = 2
	cfg.Eth1FollowDistance = 8
	cfg.InitializeForkSchedule()
	return cfg
}
