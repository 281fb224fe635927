package bls

// PublicKey is the raw, serialized compressed BLS public key this package
// passes around; a real backend (blst/herumi) would parse/cache this into
// a curve point, but nothing downstream of Verifier needs that today.
type PublicKey []byte

// Copy returns an independent copy of the key bytes.
func (p PublicKey) Copy() PublicKey {
	out := make(PublicKey, len(p))
	copy(out, p)
	return out
}

// SignatureSet batches several (pubkeys, message, signature) triples for a
// single verification pass, grounded on the teacher's
// crypto/bls/signature_set.go batch-verification-set abstraction used
// throughout block/attestation processing to avoid verifying each
// signature individually.
type SignatureSet struct {
	Signatures [][]byte
	PublicKeys [][]PublicKey
	Messages   [][32]byte
}

// NewSet constructs an empty signature set.
func NewSet() *SignatureSet {
	return &SignatureSet{}
}

// Add appends one (pubkeys, message, signature) triple to the set.
func (s *SignatureSet) Add(pubkeys []PublicKey, msg [32]byte, sig []byte) {
	s.PublicKeys = append(s.PublicKeys, pubkeys)
	s.Messages = append(s.Messages, msg)
	s.Signatures = append(s.Signatures, sig)
}

// Join merges set into s and returns s.
func (s *SignatureSet) Join(set *SignatureSet) *SignatureSet {
	s.Signatures = append(s.Signatures, set.Signatures...)
	s.PublicKeys = append(s.PublicKeys, set.PublicKeys...)
	s.Messages = append(s.Messages, set.Messages...)
	return s
}

// Verify checks every triple in the set against verifier, short-circuiting
// on the first failure or error. A real aggregate-signature backend could
// do this in one pairing check instead of len(s.Signatures) of them; that
// optimization is left to the Verifier implementation, not this package.
func (s *SignatureSet) Verify(verifier Verifier) (bool, error) {
	for i, sig := range s.Signatures {
		pubkeys := make([][]byte, len(s.PublicKeys[i]))
		for j, pk := range s.PublicKeys[i] {
			pubkeys[j] = pk
		}
		ok, err := verifier.Verify(pubkeys, s.Messages[i], sig)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// Copy returns an independent copy of the set.
func (s *SignatureSet) Copy() *SignatureSet {
	signatures := make([][]byte, len(s.Signatures))
	for i := range s.Signatures {
		sig := make([]byte, len(s.Signatures[i]))
		copy(sig, s.Signatures[i])
		signatures[i] = sig
	}
	pubkeys := make([][]PublicKey, len(s.PublicKeys))
	for i := range s.PublicKeys {
		group := make([]PublicKey, len(s.PublicKeys[i]))
		for j, pk := range s.PublicKeys[i] {
			group[j] = pk.Copy()
		}
		pubkeys[i] = group
	}
	messages := make([][32]byte, len(s.Messages))
	copy(messages, s.Messages)
	return &SignatureSet{Signatures: signatures, PublicKeys: pubkeys, Messages: messages}
}
