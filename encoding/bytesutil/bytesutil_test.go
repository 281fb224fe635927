package bytesutil_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lucidchain/beacon/encoding/bytesutil"
)

func TestToBytes32(t *testing.T) {
	require.Equal(t, [32]byte{1, 2, 3}, bytesutil.ToBytes32([]byte{1, 2, 3}))

	long := make([]byte, 40)
	for i := range long {
		long[i] = byte(i + 1)
	}
	var want [32]byte
	copy(want[:], long)
	require.Equal(t, want, bytesutil.ToBytes32(long), "longer input must be truncated, not panic")
}

func TestToBytes4(t *testing.T) {
	require.Equal(t, [4]byte{1, 2, 3, 4}, bytesutil.ToBytes4([]byte{1, 2, 3, 4, 5}))
	require.Equal(t, [4]byte{1, 2}, bytesutil.ToBytes4([]byte{1, 2}))
}

func TestToBytes8(t *testing.T) {
	require.Equal(t, [8]byte{1, 2, 3, 4, 5, 6, 7, 8}, bytesutil.ToBytes8([]byte{1, 2, 3, 4, 5, 6, 7, 8}))
}

func TestBytes8_FromBytes8_RoundTrip(t *testing.T) {
	tests := []uint64{0, 1, 255, 256, 65535, 4294967295, 18446744073709551615}
	for _, tt := range tests {
		b := bytesutil.Bytes8(tt)
		require.Len(t, b, 8)
		require.Equal(t, tt, bytesutil.FromBytes8(b))
	}
}

func TestSafeCopy2dBytes(t *testing.T) {
	src := [][]byte{{1, 2}, {3, 4, 5}, nil}
	dst := bytesutil.SafeCopy2dBytes(src)
	require.Equal(t, src, dst)

	// Mutating the source must not affect the copy.
	src[0][0] = 0xff
	require.Equal(t, byte(1), dst[0][0])

	require.Nil(t, bytesutil.SafeCopy2dBytes(nil))
}
