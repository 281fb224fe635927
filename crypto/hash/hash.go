// Package hash defines the hashing primitive used across consensus data
// structures. It is intentionally a thin wrapper: the retrieval pack's own
// crypto/hash package was not available to copy, and sha256 needs no
// third-party library, so this stays on the standard library (see
// DESIGN.md).
package hash

import "crypto/sha256"

// Hash defines a function that returns the sha256 checksum of the data
// passed in, used throughout the trie and fork-choice packages wherever the
// spec calls for hashing two concatenated 32-byte values.
func Hash(data []byte) [32]byte {
	return sha256.Sum256(data)
}
