package bgi

import (
	"bytes"
	"io"

	"github.com/dsnet/vnscript/binio"
	"github.com/dsnet/vnscript/encoding"
	"github.com/dsnet/vnscript/internal/errs"
	"github.com/dsnet/vnscript/internal/warn"
	"github.com/dsnet/vnscript/prefix"
	"github.com/dsnet/vnscript/prng"
	"github.com/dsnet/vnscript/script"
)

var dscMagic = []byte("DSC FORMAT 1.00\x00")

const dscDepthTableSize = 512

// DSCBuilder is the Builder for BGI DSC containers: a Huffman+LZSS blob
// whose depth table is itself obfuscated with the same key-stream CBG uses
// for its pixel data.
type DSCBuilder struct{}

var _ script.Builder = DSCBuilder{}

func (DSCBuilder) DefaultEncoding() encoding.Encoding { return encoding.CodePage(932) }
func (DSCBuilder) DefaultArchiveEncoding() *encoding.Encoding {
	enc := encoding.CodePage(932)
	return &enc
}
func (DSCBuilder) Extensions() []string          { return nil }
func (DSCBuilder) ScriptType() script.ScriptType { return script.TypeBGIDsc }
func (DSCBuilder) IsImage() bool                 { return false }
func (DSCBuilder) IsArchive() bool               { return false }
func (DSCBuilder) CanCreateFile() bool           { return false }

func (DSCBuilder) CreateFile(io.Reader, io.Writer, encoding.Encoding) error {
	return errs.New(errs.BadOpcode, "DSC does not support create_file")
}

func (DSCBuilder) IsThisFormat(filename string, prefix []byte) (uint8, bool) {
	if len(prefix) >= 16 && bytes.HasPrefix(prefix, dscMagic) {
		return 255, true
	}
	return 0, false
}

func (b DSCBuilder) BuildScript(buf []byte, cfg *script.ExtraConfig) (script.Script, error) {
	return newDSCScript(buf)
}

// DSCScript wraps a decompressed DSC blob. The decompressed bytes are
// opaque to this handler (DSC is a generic container other BGI formats
// are stored inside of); they are exposed only via CustomExport, letting
// a caller re-dispatch the result through the top-level identify step.
type DSCScript struct {
	script.Unsupported
	data []byte
}

func newDSCScript(buf []byte) (*DSCScript, error) {
	if len(buf) < 16 || !bytes.HasPrefix(buf, dscMagic) {
		return nil, errs.New(errs.InvalidMagic, "missing DSC FORMAT 1.00 magic")
	}
	if len(buf) < 0x20+dscDepthTableSize {
		return nil, errs.New(errs.Truncated, "DSC header too small")
	}
	r := binio.NewReader(buf)
	magicWord, err := r.PeekU16LEAt(0)
	if err != nil {
		return nil, err
	}
	magic := uint32(magicWord) << 16
	key, err := r.PeekU32LEAt(0x10)
	if err != nil {
		return nil, err
	}
	outputSize, err := r.PeekU32LEAt(0x14)
	if err != nil {
		return nil, err
	}
	decCount, err := r.PeekU32LEAt(0x18)
	if err != nil {
		return nil, err
	}

	keyStream := prng.NewCBGKeyStream(magic, key)
	depths := make([]int, dscDepthTableSize)
	for i := 0; i < dscDepthTableSize; i++ {
		d := buf[0x20+i] - keyStream.NextByte()
		if d > 0 {
			depths[i] = int(d)
		}
	}
	tree := prefix.BuildFromDepths(depths)

	bitR := prefix.NewMSBReader(buf, 0x20+dscDepthTableSize)
	data, err := prefix.DecodeDSC(tree, bitR, int(outputSize))
	if err != nil {
		return nil, err
	}
	if uint32(len(data)) != outputSize {
		warn.Warnf(nil, "DSC output size mismatch: expected %d, decoded %d (dec_count %d)", outputSize, len(data), decCount)
	}
	return &DSCScript{data: data}, nil
}

func (s *DSCScript) DefaultOutputScriptType() script.OutputKind { return script.OutputCustom }
func (s *DSCScript) IsOutputSupported(k script.OutputKind) bool { return k == script.OutputCustom }
func (s *DSCScript) CustomOutputExtension() string              { return "unk" }

func (s *DSCScript) CustomExport(w io.Writer, enc encoding.Encoding) error {
	_, err := w.Write(s.data)
	return err
}
