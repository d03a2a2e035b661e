package bgi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCBGIsThisFormat(t *testing.T) {
	buf := append([]byte("CompressedBG___"), make([]byte, 0x30)...)
	priority, ok := CBGBuilder{}.IsThisFormat("x.cbg", buf)
	require.True(t, ok)
	require.Equal(t, uint8(255), priority)

	_, ok = CBGBuilder{}.IsThisFormat("x.cbg", []byte("not a cbg file"))
	require.False(t, ok)
}

func TestUnpackZerosLiteralThenZeroRun(t *testing.T) {
	// Encoding: varint(3) literal bytes {1,2,3}, then varint(2) zero run.
	packed := []byte{3, 1, 2, 3, 2}
	out := make([]byte, 5)
	unpackZeros(packed, out)
	require.Equal(t, []byte{1, 2, 3, 0, 0}, out)
}

func TestReverseAverageSamplingFirstRowAndColumn(t *testing.T) {
	// A 2x2, 1-byte-per-pixel image. Deltas: top-left has no neighbors so
	// its delta is the true value; each subsequent pixel's delta was added
	// to the average of its left/above neighbor(s).
	stride, pixelSize, width, height := 2, 1, 2, 2
	buf := []byte{
		10, 5, // row 0: pixel(0,0)=10 (no neighbors); pixel(1,0) delta=5, left=10 -> 15
		3, 2, // row 1: pixel(0,1) delta=3, above=10 -> 13; pixel(1,1) delta=2, avg(left=13,above=15)=14 -> 16
	}
	reverseAverageSampling(buf, width, height, stride, pixelSize)
	require.Equal(t, []byte{10, 15, 13, 16}, buf)
}

func TestConvertBGR565(t *testing.T) {
	// 0xFFFF -> all channel bits set: R=0x1f<<3=0xf8, G=0x3f<<2=0xfc, B=0x1f<<3=0xf8.
	img := convertBGR565([]byte{0xff, 0xff}, 1, 1)
	require.Equal(t, []byte{0xf8, 0xfc, 0xf8}, img.Bytes)
}
