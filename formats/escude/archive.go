// Package escude implements the ESC-ARC2 archive format used by Escude
// engine titles: an index encrypted with a small LFSR-style cipher, and
// entries optionally passed through a 9-bit LZW codec tagged "acp".
package escude

import (
	"bytes"
	"io"

	"github.com/dsnet/vnscript/binio"
	"github.com/dsnet/vnscript/encoding"
	"github.com/dsnet/vnscript/internal/errs"
	"github.com/dsnet/vnscript/prefix"
	"github.com/dsnet/vnscript/prng"
	"github.com/dsnet/vnscript/script"
)

var archiveMagic = []byte("ESC-ARC2")

const acpTag = "acp"

// Builder is the Builder for ESC-ARC2 archives.
type Builder struct{}

var _ script.Builder = Builder{}

func (Builder) DefaultEncoding() encoding.Encoding         { return encoding.CodePage(932) }
func (Builder) DefaultArchiveEncoding() *encoding.Encoding { return nil }
func (Builder) Extensions() []string                      { return []string{"bin"} }
func (Builder) ScriptType() script.ScriptType              { return script.TypeEscudeBin }
func (Builder) IsImage() bool                              { return false }
func (Builder) IsArchive() bool                            { return true }
func (Builder) CanCreateFile() bool                        { return false }

func (Builder) CreateFile(io.Reader, io.Writer, encoding.Encoding) error {
	return errs.New(errs.BadOpcode, "ESC-ARC2 does not support create_file")
}

func (Builder) IsThisFormat(filename string, prefix []byte) (uint8, bool) {
	if len(prefix) > 8 && bytes.HasPrefix(prefix, archiveMagic) {
		return 255, true
	}
	return 0, false
}

func (b Builder) BuildScript(buf []byte, cfg *script.ExtraConfig) (script.Script, error) {
	enc := b.DefaultEncoding()
	if cfg != nil && cfg.DefaultEncoding != (encoding.Encoding{}) {
		enc = cfg.DefaultEncoding
	}
	return newArchive(buf, enc)
}

// entry is one index row: the filename table offset (relative to the end
// of the index), the data offset (absolute), and the entry's byte length.
type entry struct {
	nameOffset uint32
	dataOffset uint32
	length     uint32
}

// Archive is a parsed ESC-ARC2 index: a decrypted table of entries and a
// reference to the full underlying buffer the entries' data spans index
// into directly (no copy at parse time).
type Archive struct {
	script.Unsupported
	buf     []byte
	enc     encoding.Encoding
	entries []entry
}

// newArchive validates the header and decrypts the index using
// EscudeKeyStream, keyed on the 32-bit word at offset 0x8, with one key
// word per 32-bit field starting at the file count. No max_pos read bound
// is computed.
func newArchive(buf []byte, enc encoding.Encoding) (*Archive, error) {
	if len(buf) < 0xC || !bytes.HasPrefix(buf, archiveMagic) {
		return nil, errs.New(errs.InvalidMagic, "missing ESC-ARC2 magic")
	}
	r := binio.NewReader(buf)
	seed, err := r.PeekU32LEAt(0x8)
	if err != nil {
		return nil, err
	}
	stream := prng.NewEscudeKeyStream(seed)

	if err := r.Seek(0xC); err != nil {
		return nil, err
	}
	rawFileCount, err := r.ReadU32LE()
	if err != nil {
		return nil, err
	}
	fileCount := rawFileCount ^ stream.Next()
	rawNameTblLen, err := r.ReadU32LE()
	if err != nil {
		return nil, err
	}
	_ = rawNameTblLen ^ stream.Next() // name table length; unused beyond the header layout it implies

	entries := make([]entry, 0, fileCount)
	for i := uint32(0); i < fileCount; i++ {
		rawName, err := r.ReadU32LE()
		if err != nil {
			return nil, err
		}
		rawData, err := r.ReadU32LE()
		if err != nil {
			return nil, err
		}
		rawLen, err := r.ReadU32LE()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry{
			nameOffset: rawName ^ stream.Next(),
			dataOffset: rawData ^ stream.Next(),
			length:     rawLen ^ stream.Next(),
		})
	}
	return &Archive{buf: buf, enc: enc, entries: entries}, nil
}

func (a *Archive) DefaultOutputScriptType() script.OutputKind { return script.OutputJSON }
func (a *Archive) IsOutputSupported(k script.OutputKind) bool { return false }

func (a *Archive) nameTableBase() int64 {
	return int64(len(a.entries))*12 + 0x14
}

func (a *Archive) IterArchiveFilename() []string {
	names := make([]string, len(a.entries))
	r := binio.NewReader(a.buf)
	for i, e := range a.entries {
		raw, err := r.PeekCStringAt(a.nameTableBase() + int64(e.nameOffset))
		if err != nil {
			names[i] = ""
			continue
		}
		name, err := encoding.Decode(a.enc, raw, false)
		if err != nil {
			names[i] = ""
			continue
		}
		names[i] = name
	}
	return names
}

func (a *Archive) IterArchiveOffset() []int64 {
	offsets := make([]int64, len(a.entries))
	for i, e := range a.entries {
		offsets[i] = int64(e.dataOffset)
	}
	return offsets
}

// entryReader adapts a decoded entry's bytes (already LZW-unpacked, if
// tagged) to the ArchiveEntryReader contract.
type entryReader struct {
	*bytes.Reader
	header script.EntryHeader
}

func (r *entryReader) Header() script.EntryHeader { return r.header }

func (a *Archive) OpenFile(index int) (script.ArchiveEntryReader, error) {
	if index < 0 || index >= len(a.entries) {
		return nil, errs.New(errs.Truncated, "archive entry index out of range")
	}
	e := a.entries[index]
	raw, err := binio.NewReader(a.buf).PeekAt(int64(e.dataOffset), int(e.length))
	if err != nil {
		return nil, err
	}

	data := raw
	if bytes.HasPrefix(raw, []byte(acpTag)) {
		r := binio.NewReader(raw)
		size, err := r.PeekU32BEAt(4)
		if err != nil {
			return nil, err
		}
		data, err = prefix.DecodeLZW(raw[8:], int(size))
		if err != nil {
			return nil, err
		}
	}

	name, err := binio.NewReader(a.buf).PeekCStringAt(a.nameTableBase() + int64(e.nameOffset))
	if err != nil {
		return nil, err
	}
	decodedName, err := encoding.Decode(a.enc, name, false)
	if err != nil {
		return nil, err
	}

	return &entryReader{
		Reader: bytes.NewReader(data),
		header: script.EntryHeader{
			Name:   decodedName,
			Offset: int64(e.dataOffset),
			Size:   int64(len(data)),
		},
	}, nil
}
