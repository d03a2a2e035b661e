package bgi

import (
	"testing"

	"github.com/dsnet/vnscript/prefix"
	"github.com/dsnet/vnscript/prng"
	"github.com/stretchr/testify/require"
)

// buildTestDSC builds a minimal DSC file encoding two literal symbols 'A'
// and 'B' each at depth 1, obfuscating the depth table with the same
// CBGKeyStream formula the decoder reverses.
func buildTestDSC() []byte {
	buf := make([]byte, 0x20+dscDepthTableSize)
	copy(buf, dscMagic)

	const key = uint32(0xdeadbeef)
	magicWord := uint16(buf[0]) | uint16(buf[1])<<8
	magic := uint32(magicWord) << 16

	buf[0x10] = byte(key)
	buf[0x11] = byte(key >> 8)
	buf[0x12] = byte(key >> 16)
	buf[0x13] = byte(key >> 24)

	outputSize := uint32(3)
	buf[0x14] = byte(outputSize)
	buf[0x15] = byte(outputSize >> 8)
	buf[0x16] = byte(outputSize >> 16)
	buf[0x17] = byte(outputSize >> 24)

	decCount := uint32(3)
	buf[0x18] = byte(decCount)
	buf[0x19] = byte(decCount >> 8)
	buf[0x1a] = byte(decCount >> 16)
	buf[0x1b] = byte(decCount >> 24)

	depths := make([]int, dscDepthTableSize)
	depths['A'] = 1
	depths['B'] = 1

	keyStream := prng.NewCBGKeyStream(magic, key)
	for i := 0; i < dscDepthTableSize; i++ {
		buf[0x20+i] = byte(depths[i]) + keyStream.NextByte()
	}

	w := prefix.NewMSBWriter()
	w.PutBits(0, 1) // 'A'
	w.PutBits(1, 1) // 'B'
	w.PutBits(0, 1) // 'A'
	bits := w.Flush()

	return append(buf, bits...)
}

func TestDSCIsThisFormat(t *testing.T) {
	priority, ok := DSCBuilder{}.IsThisFormat("x.dsc", buildTestDSC())
	require.True(t, ok)
	require.Equal(t, uint8(255), priority)

	_, ok = DSCBuilder{}.IsThisFormat("x.dsc", []byte("not a dsc file"))
	require.False(t, ok)
}

func TestDSCDecode(t *testing.T) {
	s, err := newDSCScript(buildTestDSC())
	require.NoError(t, err)
	require.Equal(t, []byte("ABA"), s.data)
}
