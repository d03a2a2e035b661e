package bgi

import (
	"bytes"
	"testing"

	"github.com/dsnet/vnscript/encoding"
	"github.com/dsnet/vnscript/script"
	"github.com/stretchr/testify/require"
)

// buildTestV1 constructs a minimal BGI V1 script: a body offset of 32
// (right after the 32-byte header), two string pushes (speaker, message)
// followed by a message opcode and an end opcode, with the referenced
// strings appended after the bytecode.
func buildTestV1() []byte {
	var buf bytes.Buffer
	buf.Write(v1Magic)            // 28 bytes
	buf.Write([]byte{4, 0, 0, 0}) // rel offset -> body at 28+4=32

	writeU32 := func(v uint32) {
		buf.Write([]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
	}
	writeU32(0x0003) // push string address (speaker)
	writeU32(24)     // address relative to body start -> "Alice\0" below
	writeU32(0x0003) // push string address (message)
	writeU32(30)     // address relative to body start -> "Hello\0" below
	writeU32(0x0140) // message opcode: pops message, then speaker
	writeU32(0x001b) // end opcode

	buf.WriteString("Alice\x00")
	buf.WriteString("Hello\x00")
	return buf.Bytes()
}

func TestV1IsThisFormat(t *testing.T) {
	priority, ok := V1Builder{}.IsThisFormat("x.bin", buildTestV1())
	require.True(t, ok)
	require.Equal(t, uint8(255), priority)

	_, ok = V1Builder{}.IsThisFormat("x.bin", []byte("not a BGI script"))
	require.False(t, ok)
}

func TestV1ExtractMessages(t *testing.T) {
	s, err := V1Builder{}.BuildScript(buildTestV1(), nil)
	require.NoError(t, err)

	msgs, err := s.ExtractMessages()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.NotNil(t, msgs[0].Name)
	require.Equal(t, "Alice", *msgs[0].Name)
	require.Equal(t, "Hello", msgs[0].Message)
}

func TestV1ImportMessagesInPlace(t *testing.T) {
	s, err := V1Builder{}.BuildScript(buildTestV1(), nil)
	require.NoError(t, err)

	name := "Alice"
	var out bytes.Buffer
	err = s.ImportMessages([]script.Message{{Name: &name, Message: "Hi"}}, &out, "x.bin", encoding.UTF8, script.ReplacementTable{})
	require.NoError(t, err)

	s2, err := V1Builder{}.BuildScript(out.Bytes(), nil)
	require.NoError(t, err)
	msgs, err := s2.ExtractMessages()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "Hi", msgs[0].Message)
}

func TestV1ImportMessageTooLong(t *testing.T) {
	s, err := V1Builder{}.BuildScript(buildTestV1(), nil)
	require.NoError(t, err)

	name := "Alice"
	var out bytes.Buffer
	err = s.ImportMessages([]script.Message{{Name: &name, Message: "Hello, much longer than the original slot"}}, &out, "x.bin", encoding.UTF8, script.ReplacementTable{})
	require.Error(t, err)
}

func TestV1ImportMessageCountMismatch(t *testing.T) {
	s, err := V1Builder{}.BuildScript(buildTestV1(), nil)
	require.NoError(t, err)

	var out bytes.Buffer
	err = s.ImportMessages(nil, &out, "x.bin", encoding.UTF8, script.ReplacementTable{})
	require.Error(t, err)
}
