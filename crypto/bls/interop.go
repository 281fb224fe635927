package bls

import "github.com/lucidchain/beacon/crypto/hash"

// InteropVerifier is a deterministic, non-cryptographic Verifier double
// used by tests and local interop networks where real BLS key material is
// not available. It accepts a signature iff it equals the hash of the
// message mixed with every public key, so mismatched keys or messages
// always fail the same way a real pairing check would.
type InteropVerifier struct{}

// NewInteropVerifier returns a Verifier suitable for tests.
func NewInteropVerifier() *InteropVerifier {
	return &InteropVerifier{}
}

// Verify implements Verifier.
func (InteropVerifier) Verify(pubkeys [][]byte, msg [32]byte, sig []byte) (bool, error) {
	want := expectedInteropSig(pubkeys, msg)
	if len(sig) != len(want) {
		return false, nil
	}
	for i := range sig {
		if sig[i] != want[i] {
			return false, nil
		}
	}
	return true, nil
}

// Sign returns the signature InteropVerifier.Verify will accept for the
// given keys and message, so tests can construct well-formed attestations
// and blocks without real BLS key material.
func Sign(pubkeys [][]byte, msg [32]byte) []byte {
	return expectedInteropSig(pubkeys, msg)
}

func expectedInteropSig(pubkeys [][]byte, msg [32]byte) []byte {
	h := msg
	for _, pk := range pubkeys {
		h = hash.Hash(append(append([]byte{}, h[:]...), pk...))
	}
	out := make([]byte, 96)
	copy(out, h[:])
	copy(out[32:], h[:])
	copy(out[64:], h[:])
	return out
}
