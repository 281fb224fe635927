// Package bytesutil defines helper functions for converting integers and
// slices of bytes into the fixed-size arrays the consensus types and trie
// packages pass around. Grounded on the retrieval pack's
// encoding/bytesutil test file (function names and semantics inferred from
// the tests, since the implementation file itself was not retrieved; see
// DESIGN.md), kept on the standard library since these are pure byte-slicing
// helpers with no third-party equivalent in the pack.
package bytesutil

import "encoding/binary"

// ToBytes32 is a convenience method for converting a byte slice to a fix
// sized 32 byte array. This method will truncate the input if it is larger
// than 32 bytes.
func ToBytes32(x []byte) [32]byte {
	var y [32]byte
	copy(y[:], x)
	return y
}

// ToBytes4 is a convenience method for converting a byte slice to a fix
// sized 4 byte array.
func ToBytes4(x []byte) [4]byte {
	var y [4]byte
	copy(y[:], x)
	return y
}

// ToBytes8 is a convenience method for converting a byte slice to a fix
// sized 8 byte array.
func ToBytes8(x []byte) [8]byte {
	var y [8]byte
	copy(y[:], x)
	return y
}

// Bytes8 returns the little endian byte representation of the given uint64.
func Bytes8(i uint64) []byte {
	bytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(bytes, i)
	return bytes
}

// FromBytes8 returns a uint64 from a little endian byte slice of length 8.
func FromBytes8(x []byte) uint64 {
	return binary.LittleEndian.Uint64(x)
}

// SafeCopy2dBytes performs a deep copy of a slice of byte slices; nil
// inner slices stay nil in the copy.
func SafeCopy2dBytes(src [][]byte) [][]byte {
	if src == nil {
		return nil
	}
	dst := make([][]byte, len(src))
	for i, s := range src {
		if s == nil {
			continue
		}
		dst[i] = make([]byte, len(s))
		copy(dst[i], s)
	}
	return dst
}
