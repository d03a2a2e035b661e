package escude

import (
	"encoding/binary"
	"io"
	"testing"

	"github.com/dsnet/vnscript/encoding"
	"github.com/dsnet/vnscript/prefix"
	"github.com/dsnet/vnscript/prng"
	"github.com/stretchr/testify/require"
)

// buildTestArchive constructs a one-entry ESC-ARC2 buffer, encrypting the
// index the same way the real format does so parsing exercises the actual
// EscudeKeyStream sequence rather than a hand-picked ciphertext.
func buildTestArchive(name string, data []byte) []byte {
	const seed = uint32(0x12345678)
	nameBytes := append([]byte(name), 0)
	nameOffset := uint32(0)
	dataOffset := uint32(12 + 4 + 4 + 12 + len(nameBytes))
	length := uint32(len(data))

	stream := prng.NewEscudeKeyStream(seed)
	encFileCount := uint32(1) ^ stream.Next()
	encNameTblLen := uint32(len(nameBytes)) ^ stream.Next()
	encNameOffset := nameOffset ^ stream.Next()
	encDataOffset := dataOffset ^ stream.Next()
	encLength := length ^ stream.Next()

	buf := make([]byte, dataOffset+length)
	copy(buf[0:8], archiveMagic)
	binary.LittleEndian.PutUint32(buf[8:12], seed)
	binary.LittleEndian.PutUint32(buf[12:16], encFileCount)
	binary.LittleEndian.PutUint32(buf[16:20], encNameTblLen)
	binary.LittleEndian.PutUint32(buf[20:24], encNameOffset)
	binary.LittleEndian.PutUint32(buf[24:28], encDataOffset)
	binary.LittleEndian.PutUint32(buf[28:32], encLength)
	copy(buf[32:], nameBytes)
	copy(buf[dataOffset:], data)
	return buf
}

func TestArchiveIsThisFormat(t *testing.T) {
	priority, ok := Builder{}.IsThisFormat("x.bin", buildTestArchive("a.txt", []byte("hi")))
	require.True(t, ok)
	require.Equal(t, uint8(255), priority)

	_, ok = Builder{}.IsThisFormat("x.bin", []byte("not an archive"))
	require.False(t, ok)
}

func TestArchiveListAndOpen(t *testing.T) {
	buf := buildTestArchive("hello.txt", []byte("hello world"))
	s, err := Builder{}.BuildScript(buf, nil)
	require.NoError(t, err)

	names := s.IterArchiveFilename()
	require.Equal(t, []string{"hello.txt"}, names)

	entry, err := s.OpenFile(0)
	require.NoError(t, err)
	got, err := io.ReadAll(entry)
	require.NoError(t, err)
	require.Equal(t, "hello world", string(got))
	require.Equal(t, "hello.txt", entry.Header().Name)
}

func TestArchiveLZWPassthrough(t *testing.T) {
	payload := []byte("the quick brown fox jumps over the lazy dog, repeated, repeated, repeated")
	packed := prefix.EncodeLZW(payload)

	var acp []byte
	acp = append(acp, []byte("acp\x00")...)
	sizeBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(sizeBuf, uint32(len(payload)))
	acp = append(acp, sizeBuf...)
	acp = append(acp, packed...)

	buf := buildTestArchive("data.acp", acp)
	s, err := Builder{}.BuildScript(buf, nil)
	require.NoError(t, err)

	entry, err := s.OpenFile(0)
	require.NoError(t, err)
	got, err := io.ReadAll(entry)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestArchiveDefaultEncoding(t *testing.T) {
	require.Equal(t, encoding.CodePage(932), Builder{}.DefaultEncoding())
}
