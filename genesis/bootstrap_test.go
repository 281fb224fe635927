package genesis_test

import (
	"testing"

	"github.com/lucidchain/beacon/config/params"
	"github.com/lucidchain/beacon/consensustypes"
	"github.com/lucidchain/beacon/crypto/bls"
	"github.com/lucidchain/beacon/execution"
	"github.com/lucidchain/beacon/genesis"
	"github.com/stretchr/testify/require"
)

func depositFor(t *testing.T, pubkey byte) *consensustypes.DepositData {
	t.Helper()
	d := &consensustypes.DepositData{
		PublicKey:             []byte{pubkey},
		WithdrawalCredentials: []byte{0x00},
		Amount:                32000000000,
	}
	root, err := (&consensustypes.DepositData{PublicKey: d.PublicKey, WithdrawalCredentials: d.WithdrawalCredentials, Amount: d.Amount}).HashTreeRoot()
	require.NoError(t, err)
	d.Signature = bls.Sign([][]byte{d.PublicKey}, root)
	return d
}

func TestColdStart_NoDeposits(t *testing.T) {
	cfg := params.InteropConfig()
	b, err := genesis.New(cfg, bls.NewInteropVerifier())
	require.NoError(t, err)

	block := execution.Eth1Block{Number: 100, Timestamp: cfg.MinGenesisTime}
	require.NoError(t, b.ProcessEth1Block(block, nil))
	_, err = b.TryGenesis(block)
	require.ErrorIs(t, err, genesis.ErrNotReady)
}

func TestGenesisSuccess_EnoughDeposits(t *testing.T) {
	cfg := params.InteropConfig()
	b, err := genesis.New(cfg, bls.NewInteropVerifier())
	require.NoError(t, err)

	deposits := make([]*consensustypes.DepositData, cfg.MinGenesisActiveValidatorCount)
	for i := range deposits {
		deposits[i] = depositFor(t, byte(i))
	}
	block := execution.Eth1Block{Number: 100, Timestamp: cfg.MinGenesisTime}
	require.NoError(t, b.ProcessEth1Block(block, deposits))

	state, err := b.TryGenesis(block)
	require.NoError(t, err)
	require.Len(t, state.Validators, int(cfg.MinGenesisActiveValidatorCount))
	require.Equal(t, int(cfg.MinGenesisActiveValidatorCount), b.RootList().Count())
}

func TestProcessEth1Block_RejectsOutOfOrder(t *testing.T) {
	cfg := params.InteropConfig()
	b, err := genesis.New(cfg, bls.NewInteropVerifier())
	require.NoError(t, err)

	require.NoError(t, b.ProcessEth1Block(execution.Eth1Block{Number: 100}, nil))
	err = b.ProcessEth1Block(execution.Eth1Block{Number: 50}, nil)
	require.Error(t, err)
}

func TestProcessEth1Block_InvalidSignatureDiscarded(t *testing.T) {
	cfg := params.InteropConfig()
	b, err := genesis.New(cfg, bls.NewInteropVerifier())
	require.NoError(t, err)

	bad := &consensustypes.DepositData{PublicKey: []byte{1}, WithdrawalCredentials: []byte{0}, Amount: 32000000000, Signature: []byte("not-a-real-signature-000000000000000000000000000000000000000000000000000000000000000000")}
	require.NoError(t, b.ProcessEth1Block(execution.Eth1Block{Number: 1}, []*consensustypes.DepositData{bad}))
	require.Equal(t, 0, b.RootList().Count())
}
