// Package bls defines the BLS signature verification contract the
// Attestation Processor and Genesis Bootstrapper depend on. The actual
// pairing-based verification is assumed available as a pure function
// (spec.md §1: "BLS verification primitives assumed available as pure
// functions"); this package supplies the Go interface the rest of the
// module codes against, plus an interop double for tests and local
// devnets, grounded on the teacher's injection point in
// beacon-chain/powchain/deposit.go (bls.PublicKeyFromBytes/.../sig.Verify).
// A real implementation would satisfy Verifier with
// github.com/supranational/blst or github.com/herumi/bls-eth-go-binary,
// both of which the teacher's go.mod carries for exactly this purpose.
package bls

// Verifier validates a BLS signature over a message given a set of
// participating public keys, aggregating them internally when len(pubkeys)
// > 1 (spec.md §6: "verify(pubkeys, message, signature) -> bool").
type Verifier interface {
	Verify(pubkeys [][]byte, msg [32]byte, sig []byte) (bool, error)
}

// Domain computes a BLS signing domain the way the teacher's
// bls.Domain(domainType, forkVersion) helper does, mixing a domain type
// into the fork version so signatures from different operations or
// networks never collide.
func Domain(domainType [4]byte, forkVersion [4]byte) [32]byte {
	var out [32]byte
	copy(out[:4], domainType[:])
	copy(out[4:8], forkVersion[:])
	return out
}
