package bgi

import (
	"bytes"
	"testing"

	"github.com/dsnet/vnscript/encoding"
	"github.com/stretchr/testify/require"
)

func buildTestBSI() []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0x01, 0x00, 0x00, 0x00}) // section_count = 1
	buf.WriteString("config\x00")
	buf.Write([]byte{0x02, 0x00, 0x00, 0x00}) // entry_count = 2
	buf.WriteString("name\x00")
	buf.WriteString("Protagonist\x00")
	buf.WriteString("volume\x00")
	buf.WriteString("100\x00")
	return buf.Bytes()
}

func TestBSIParse(t *testing.T) {
	s, err := newBSIScript(buildTestBSI(), encoding.UTF8)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"name": "Protagonist", "volume": "100"}, s.Data["config"])
}

func TestBSIRoundTrip(t *testing.T) {
	s, err := newBSIScript(buildTestBSI(), encoding.UTF8)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, writeBSI(s.Data, &out, encoding.UTF8))

	s2, err := newBSIScript(out.Bytes(), encoding.UTF8)
	require.NoError(t, err)
	require.Equal(t, s.Data, s2.Data)
}

func TestBSICustomExportImport(t *testing.T) {
	s, err := newBSIScript(buildTestBSI(), encoding.UTF8)
	require.NoError(t, err)

	var jsonOut bytes.Buffer
	require.NoError(t, s.CustomExport(&jsonOut, encoding.UTF8))

	var wireOut bytes.Buffer
	require.NoError(t, s.CustomImport(&jsonOut, &wireOut, encoding.UTF8, encoding.UTF8))

	s2, err := newBSIScript(wireOut.Bytes(), encoding.UTF8)
	require.NoError(t, err)
	require.Equal(t, s.Data, s2.Data)
}
