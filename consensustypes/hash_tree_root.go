package consensustypes

import (
	"encoding/binary"

	"github.com/lucidchain/beacon/crypto/hash"
)

// HashTreeRoot identifies a block by hashing its four top-level fields plus
// its body root, matching the field order in spec.md §3
// ({slot, proposer_index, parent_root, state_root, body}).
func (b *BeaconBlock) HashTreeRoot() ([32]byte, error) {
	bodyRoot, err := b.Body.HashTreeRoot()
	if err != nil {
		return [32]byte{}, err
	}
	var slotBuf, idxBuf [8]byte
	binary.LittleEndian.PutUint64(slotBuf[:], uint64(b.Slot))
	binary.LittleEndian.PutUint64(idxBuf[:], uint64(b.ProposerIndex))

	h := hash.Hash(append(append([]byte{}, slotBuf[:]...), idxBuf[:]...))
	h = hash.Hash(append(append([]byte{}, h[:]...), b.ParentRoot[:]...))
	h = hash.Hash(append(append([]byte{}, h[:]...), b.StateRoot[:]...))
	h = hash.Hash(append(append([]byte{}, h[:]...), bodyRoot[:]...))
	return h, nil
}

// HashTreeRoot for the signed envelope returns the unsigned BeaconBlock
// root; the signature is not folded in, so a re-signed but otherwise
// identical block has the same identity. Fork-choice and storage key on
// this root per spec.md §3 ("Identity = hash_tree_root(block)").
func (sb *SignedBeaconBlock) HashTreeRoot() ([32]byte, error) {
	return sb.Block.HashTreeRoot()
}

// HashTreeRoot of the body folds in the randao reveal, graffiti, the eth1
// vote's block hash (not its deposit root or count), and a sequential hash
// of the attestation roots and of the deposit-data roots.
func (body *BeaconBlockBody) HashTreeRoot() ([32]byte, error) {
	attRoots := make([][32]byte, len(body.Attestations))
	for i, a := range body.Attestations {
		r, err := a.HashTreeRoot()
		if err != nil {
			return [32]byte{}, err
		}
		attRoots[i] = r
	}
	depRoots := make([][32]byte, len(body.Deposits))
	for i, d := range body.Deposits {
		r, err := d.Data.HashTreeRoot()
		if err != nil {
			return [32]byte{}, err
		}
		depRoots[i] = r
	}
	h := hash.Hash(append(append([]byte{}, body.RandaoReveal[:]...), body.Graffiti[:]...))
	h = hash.Hash(append(append([]byte{}, h[:]...), body.Eth1Data.BlockHash[:]...))
	attRoot := hashSequence(attRoots)
	depRoot := hashSequence(depRoots)
	h = hash.Hash(append(append([]byte{}, h[:]...), attRoot[:]...))
	h = hash.Hash(append(append([]byte{}, h[:]...), depRoot[:]...))
	return h, nil
}

// HashTreeRoot of an attestation folds its data root and its signature;
// the aggregation bits are not included.
func (a *Attestation) HashTreeRoot() ([32]byte, error) {
	dataRoot, err := a.Data.HashTreeRoot()
	if err != nil {
		return [32]byte{}, err
	}
	return hash.Hash(append(append([]byte{}, dataRoot[:]...), a.Signature[:]...)), nil
}

// HashTreeRoot of attestation data folds slot, committee index, block
// root, and the two checkpoints.
func (d *AttestationData) HashTreeRoot() ([32]byte, error) {
	var slotBuf, idxBuf [8]byte
	binary.LittleEndian.PutUint64(slotBuf[:], uint64(d.Slot))
	binary.LittleEndian.PutUint64(idxBuf[:], uint64(d.CommitteeIndex))
	h := hash.Hash(append(append([]byte{}, slotBuf[:]...), idxBuf[:]...))
	h = hash.Hash(append(append([]byte{}, h[:]...), d.BeaconBlockRoot[:]...))
	srcRoot, err := d.Source.HashTreeRoot()
	if err != nil {
		return [32]byte{}, err
	}
	tgtRoot, err := d.Target.HashTreeRoot()
	if err != nil {
		return [32]byte{}, err
	}
	h = hash.Hash(append(append([]byte{}, h[:]...), srcRoot[:]...))
	h = hash.Hash(append(append([]byte{}, h[:]...), tgtRoot[:]...))
	return h, nil
}

// HashTreeRoot of a checkpoint folds epoch and root.
func (c *Checkpoint) HashTreeRoot() ([32]byte, error) {
	var epochBuf [8]byte
	binary.LittleEndian.PutUint64(epochBuf[:], uint64(c.Epoch))
	return hash.Hash(append(append([]byte{}, epochBuf[:]...), c.Root[:]...)), nil
}

// HashTreeRoot of deposit data, the leaf value the DepositDataRootList
// stores (spec.md §4.D step 2: "appending hash_tree_root(deposit_data)").
func (d *DepositData) HashTreeRoot() ([32]byte, error) {
	var amountBuf [8]byte
	binary.LittleEndian.PutUint64(amountBuf[:], d.Amount)
	h := hash.Hash(append(append([]byte{}, d.PublicKey...), d.WithdrawalCredentials...))
	h = hash.Hash(append(append([]byte{}, h[:]...), amountBuf[:]...))
	h = hash.Hash(append(append([]byte{}, h[:]...), d.Signature...))
	return h, nil
}

// HashTreeRoot of state folds the fields the spec calls out explicitly
// (genesis_time, genesis_validators_root, fork, validators, eth1_deposit_index)
// plus slot and the latest block header, enough for genesis-state-root
// comparisons and round-trip tests.
func (s *BeaconState) HashTreeRoot() ([32]byte, error) {
	var genesisTimeBuf, slotBuf, depIdxBuf [8]byte
	binary.LittleEndian.PutUint64(genesisTimeBuf[:], s.GenesisTime)
	binary.LittleEndian.PutUint64(slotBuf[:], uint64(s.Slot))
	binary.LittleEndian.PutUint64(depIdxBuf[:], s.Eth1DepositIndex)

	h := hash.Hash(append(append([]byte{}, genesisTimeBuf[:]...), s.GenesisValidatorsRoot[:]...))
	h = hash.Hash(append(append([]byte{}, h[:]...), slotBuf[:]...))
	h = hash.Hash(append(append([]byte{}, h[:]...), depIdxBuf[:]...))

	var forkEpochBuf, headerSlotBuf [8]byte
	binary.LittleEndian.PutUint64(forkEpochBuf[:], uint64(s.Fork.Epoch))
	binary.LittleEndian.PutUint64(headerSlotBuf[:], uint64(s.LatestBlockHeader.Slot))
	h = hash.Hash(append(append(append(append([]byte{}, h[:]...), s.Fork.PreviousVersion[:]...), s.Fork.CurrentVersion[:]...), forkEpochBuf[:]...))
	hdr := s.LatestBlockHeader
	h = hash.Hash(append(append([]byte{}, h[:]...), headerSlotBuf[:]...))
	h = hash.Hash(append(append(append(append([]byte{}, h[:]...), hdr.ParentRoot[:]...), hdr.StateRoot[:]...), hdr.BodyRoot[:]...))

	validatorRoots := make([][32]byte, len(s.Validators))
	for i, v := range s.Validators {
		r, err := v.HashTreeRoot()
		if err != nil {
			return [32]byte{}, err
		}
		validatorRoots[i] = r
	}
	vRoot := hashSequence(validatorRoots)
	h = hash.Hash(append(append([]byte{}, h[:]...), vRoot[:]...))
	return h, nil
}

// HashTreeRoot of a validator folds its public key, withdrawal
// credentials and effective balance.
func (v *Validator) HashTreeRoot() ([32]byte, error) {
	var balBuf [8]byte
	binary.LittleEndian.PutUint64(balBuf[:], v.EffectiveBalance)
	h := hash.Hash(append(append([]byte{}, v.PublicKey...), v.WithdrawalCredentials...))
	h = hash.Hash(append(append([]byte{}, h[:]...), balBuf[:]...))
	return h, nil
}

func hashSequence(leaves [][32]byte) [32]byte {
	if len(leaves) == 0 {
		return [32]byte{}
	}
	var acc [32]byte
	for _, l := range leaves {
		acc = hash.Hash(append(append([]byte{}, acc[:]...), l[:]...))
	}
	return acc
}
