package bgi

import (
	"bytes"
	"testing"

	"github.com/dsnet/vnscript/encoding"
	"github.com/dsnet/vnscript/script"
	"github.com/stretchr/testify/require"
)

// buildTestBP returns a minimal synthetic BP file: an 8-byte header, one
// opcode-5 push-string referencing the cstring "hi", and an end opcode.
func buildTestBP() []byte {
	return []byte{
		0x08, 0x00, 0x00, 0x00, // header_size = 8
		0x09, 0x00, 0x00, 0x00, // instr_size = 9
		0x05, 0x00, // opcode 5 (push string)
		0x05, 0x00, // relative offset = 5
		0x17, 0x00, // end opcode
		'h', 'i', 0x00,
	}
}

func TestBPIsThisFormat(t *testing.T) {
	buf := buildTestBP()
	priority, ok := BPBuilder{}.IsThisFormat("x._bp", buf)
	require.True(t, ok)
	require.Equal(t, uint8(60), priority)
}

func TestBPExtractMessages(t *testing.T) {
	s, err := newBPScript(buildTestBP(), encoding.UTF8)
	require.NoError(t, err)
	msgs, err := s.ExtractMessages()
	require.NoError(t, err)
	require.Equal(t, []script.Message{{Message: "hi"}}, msgs)
}

func TestBPImportMessagesInPlace(t *testing.T) {
	buf := buildTestBP()
	s, err := newBPScript(buf, encoding.UTF8)
	require.NoError(t, err)

	var out bytes.Buffer
	err = s.ImportMessages([]script.Message{{Message: "x"}}, &out, "x._bp", encoding.UTF8, script.ReplacementTable{})
	require.NoError(t, err)

	want := append([]byte{}, buf...)
	want[14], want[15], want[16] = 'x', 0, 0
	require.Equal(t, want, out.Bytes())
}

func TestBPImportMessagesGrows(t *testing.T) {
	buf := buildTestBP()
	s, err := newBPScript(buf, encoding.UTF8)
	require.NoError(t, err)

	var out bytes.Buffer
	err = s.ImportMessages([]script.Message{{Message: "hello"}}, &out, "x._bp", encoding.UTF8, script.ReplacementTable{})
	require.NoError(t, err)

	want := []byte{
		0x08, 0x00, 0x00, 0x00,
		0x0c, 0x00, 0x00, 0x00, // instr_size grew to 12
		0x05, 0x00,
		0x05, 0x00, // offset unchanged: the longer string starts where the old one did
		0x17, 0x00,
		'h', 'e', 'l', 'l', 'o', 0x00,
	}
	require.Equal(t, want, out.Bytes())

	// The reparsed output must extract the new message.
	s2, err := newBPScript(out.Bytes(), encoding.UTF8)
	require.NoError(t, err)
	msgs, err := s2.ExtractMessages()
	require.NoError(t, err)
	require.Equal(t, []script.Message{{Message: "hello"}}, msgs)
}

func TestBPImportMessageCountMismatch(t *testing.T) {
	s, err := newBPScript(buildTestBP(), encoding.UTF8)
	require.NoError(t, err)
	var out bytes.Buffer
	err = s.ImportMessages(nil, &out, "x._bp", encoding.UTF8, script.ReplacementTable{})
	require.Error(t, err)
}
