package bgi

import (
	"bytes"

	"github.com/dsnet/vnscript/binio"
	"github.com/dsnet/vnscript/encoding"
	"github.com/dsnet/vnscript/internal/errs"
	"github.com/dsnet/vnscript/prefix"
	"github.com/dsnet/vnscript/prng"
	"github.com/dsnet/vnscript/script"
	"github.com/dsnet/vnscript/structpack"
)

var cbgMagic = []byte("CompressedBG___")

// cbgHeader is the 0x20-byte CBG record following the 16-byte magic; pixel
// data starts right after it, at offset 0x30.
type cbgHeader struct {
	Width               uint16
	Height              uint16
	Bpp                 uint32
	Unknown             uint64 // present on the wire, unused by any decoder path
	IntermediateLength  uint32
	Key                 uint32
	EncLength           uint32
	CheckSum            uint8
	CheckXor            uint8
	Version             uint16
}

// CBGBuilder is the Builder for BGI CBG images.
type CBGBuilder struct{}

var _ script.Builder = CBGBuilder{}

func (CBGBuilder) DefaultEncoding() encoding.Encoding         { return encoding.CodePage(932) }
func (CBGBuilder) DefaultArchiveEncoding() *encoding.Encoding { return nil }
func (CBGBuilder) Extensions() []string                        { return nil }
func (CBGBuilder) ScriptType() script.ScriptType                { return script.TypeBGICBG }
func (CBGBuilder) IsImage() bool                                { return true }
func (CBGBuilder) IsArchive() bool                              { return false }
func (CBGBuilder) CanCreateFile() bool                          { return false }

func (CBGBuilder) IsThisFormat(filename string, prefix []byte) (uint8, bool) {
	if len(prefix) >= 0x10 && bytes.HasPrefix(prefix, cbgMagic) {
		return 255, true
	}
	return 0, false
}

func (CBGBuilder) BuildScript(buf []byte, cfg *script.ExtraConfig) (script.Script, error) {
	return newCBGScript(buf)
}

type cbgColorType int

const (
	cbgBgra32 cbgColorType = iota
	cbgBgr24
	cbgGrayscale
	cbgBgr565
)

// CBGScript holds the parsed header and the un-decoded payload; decoding
// happens lazily in ExportImage.
type CBGScript struct {
	script.Unsupported
	header    cbgHeader
	payload   []byte // the whole file; encoded data starts at offset 0x30
	colorType cbgColorType
}

func newCBGScript(buf []byte) (*CBGScript, error) {
	if len(buf) < 0x30 || !bytes.HasPrefix(buf, cbgMagic) {
		return nil, errs.New(errs.InvalidMagic, "missing CompressedBG___ magic")
	}
	r := binio.NewReader(buf)
	if err := r.Skip(16); err != nil {
		return nil, err
	}
	var h cbgHeader
	if err := structpack.Unpack(r, &h); err != nil {
		return nil, err
	}
	if h.Version > 2 {
		return nil, errs.Newf(errs.UnsupportedVersion, "CBG version %d unsupported", h.Version)
	}
	var colorType cbgColorType
	switch h.Bpp {
	case 32:
		colorType = cbgBgra32
	case 24:
		colorType = cbgBgr24
	case 8:
		colorType = cbgGrayscale
	case 16:
		if h.Version == 2 {
			return nil, errs.New(errs.UnsupportedVersion, "CBG bpp 16 unsupported in version 2")
		}
		colorType = cbgBgr565
	default:
		return nil, errs.Newf(errs.UnsupportedVersion, "CBG bpp %d unsupported", h.Bpp)
	}
	return &CBGScript{header: h, payload: buf, colorType: colorType}, nil
}

func (s *CBGScript) DefaultOutputScriptType() script.OutputKind { return script.OutputJSON }
func (s *CBGScript) IsOutputSupported(k script.OutputKind) bool { return false }

// ExportImage decodes the Huffman-coded, zero-run-length-coded,
// average-sampled pixel data CBG v1 stores after its header, per
// spec.md's image-codec component.
func (s *CBGScript) ExportImage() (script.ImageData, error) {
	h := s.header
	if h.Version >= 2 {
		return script.ImageData{}, errs.New(errs.UnsupportedVersion, "CBG version 2 decoding not implemented")
	}

	stream := prefix.NewMSBReader(s.payload, 0x30)
	key := prng.NewCBGKeyStream(0, h.Key)

	encoded := make([]byte, h.EncLength)
	for i := range encoded {
		b, err := readStreamByte(stream)
		if err != nil {
			return script.ImageData{}, err
		}
		encoded[i] = b - key.NextByte()
	}
	var sum, xorv byte
	for _, b := range encoded {
		sum += b
		xorv ^= b
	}
	if sum != h.CheckSum || xorv != h.CheckXor {
		return script.ImageData{}, errs.New(errs.ChecksumMismatch, "CBG encoded weight-table checksum mismatch")
	}

	weightReader := binio.NewReader(encoded)
	weights := make([]uint32, 0x100)
	for i := range weights {
		v, err := weightReader.ReadVarInt()
		if err != nil {
			return script.ImageData{}, err
		}
		weights[i] = v
	}
	tree := prefix.BuildFromWeights(weights, false)

	packed := make([]byte, h.IntermediateLength)
	for i := range packed {
		sym, err := tree.DecodeMSB(stream)
		if err != nil {
			return script.ImageData{}, err
		}
		packed[i] = byte(sym)
	}

	pixelSize := int(h.Bpp / 8)
	stride := int(h.Width) * pixelSize
	output := make([]byte, stride*int(h.Height))
	unpackZeros(packed, output)
	reverseAverageSampling(output, int(h.Width), int(h.Height), stride, pixelSize)

	if s.colorType == cbgBgr565 {
		return convertBGR565(output, int(h.Width), int(h.Height)), nil
	}
	var ct script.ImageColorType
	switch s.colorType {
	case cbgBgra32:
		ct = script.ColorBGRA
	case cbgBgr24:
		ct = script.ColorBGR
	case cbgGrayscale:
		ct = script.ColorGrayscale
	}
	return script.ImageData{
		Width: int(h.Width), Height: int(h.Height),
		ColorType: ct, BitDepth: 8, Bytes: output,
	}, nil
}

// readStreamByte reads a single aligned byte from an MSBReader by pulling 8
// bits; CBG's encrypted-segment reads happen before the Huffman stream is
// touched, at a byte-aligned cursor position.
func readStreamByte(r *prefix.MSBReader) (byte, error) {
	v, err := r.GetBits(8)
	if err != nil {
		return 0, err
	}
	return byte(v), nil
}

// unpackZeros expands the "skip zero-filled run / copy literal run"
// interleaved encoding the Huffman stream decodes to: each run starts with
// a varint length, alternating between a copied literal run and an
// all-zero run, starting with a literal run.
func unpackZeros(input []byte, output []byte) {
	dst, src := 0, 0
	decZero := false
	for dst < len(output) {
		count := 0
		shift := uint(0)
		for {
			if src >= len(input) {
				return
			}
			code := input[src]
			src++
			count |= int(code&0x7f) << shift
			shift += 7
			if code&0x80 == 0 {
				break
			}
		}
		if dst+count > len(output) {
			break
		}
		if !decZero {
			if src+count > len(input) {
				break
			}
			copy(output[dst:dst+count], input[src:src+count])
			src += count
		} else {
			for i := 0; i < count; i++ {
				output[dst+i] = 0
			}
		}
		decZero = !decZero
		dst += count
	}
}

// reverseAverageSampling undoes CBG's per-pixel delta encoding: each
// channel byte is the true value minus the average of its left and
// above neighbors (only one of which, or neither, may apply at the
// image edges).
func reverseAverageSampling(output []byte, width, height, stride, pixelSize int) {
	for y := 0; y < height; y++ {
		line := y * stride
		for x := 0; x < width; x++ {
			pixel := line + x*pixelSize
			for p := 0; p < pixelSize; p++ {
				var avg uint32
				if x > 0 {
					avg += uint32(output[pixel+p-pixelSize])
				}
				if y > 0 {
					avg += uint32(output[pixel+p-stride])
				}
				if x > 0 && y > 0 {
					avg /= 2
				}
				if avg != 0 {
					output[pixel+p] += byte(avg)
				}
			}
		}
	}
}

func convertBGR565(input []byte, width, height int) script.ImageData {
	out := make([]byte, 0, width*height*3)
	for i := 0; i+1 < len(input); i += 2 {
		pixel := uint16(input[i]) | uint16(input[i+1])<<8
		blue := byte(pixel&0x1f) << 3
		green := byte((pixel>>5)&0x3f) << 2
		red := byte((pixel>>11)&0x1f) << 3
		out = append(out, blue, green, red)
	}
	return script.ImageData{
		Width: width, Height: height,
		ColorType: script.ColorBGR, BitDepth: 8, Bytes: out,
	}
}
