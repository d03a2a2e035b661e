// Package bgi implements the BGI (Buriko General Interpreter) engine's
// script and image formats: BP's opcode-5 string scan, BSI's key/value
// section map, CBG's Huffman+delta-coded image, and the V1 bytecode
// disassembler (spec components C9/C12).
package bgi

import (
	"io"

	"github.com/dsnet/vnscript/binio"
	"github.com/dsnet/vnscript/binpatch"
	"github.com/dsnet/vnscript/encoding"
	"github.com/dsnet/vnscript/internal/errs"
	"github.com/dsnet/vnscript/internal/warn"
	"github.com/dsnet/vnscript/script"
	"github.com/sirupsen/logrus"
)

const bpOpcodePushString = 5
const bpOpcodeEnd = 0x17

// bpString is one discovered opcode-5 operand: offsetPos is where the
// 2-byte relative offset itself lives; textAddress is the absolute
// position of the NUL-terminated string it resolves to.
type bpString struct {
	offsetPos   int64
	textOffset  uint16
	textAddress int64
}

// BPScript is a parsed BGI BP script: the owning buffer plus the table of
// discovered string references, found by BPBuilder.BuildScript.
type BPScript struct {
	script.Unsupported
	buf         []byte
	headerSize  uint32
	instrSize   uint32
	strs        []bpString
	enc         encoding.Encoding
}

// BPBuilder is the Builder for BGI BP scripts.
type BPBuilder struct{}

var _ script.Builder = BPBuilder{}

func (BPBuilder) DefaultEncoding() encoding.Encoding         { return encoding.CodePage(932) }
func (BPBuilder) DefaultArchiveEncoding() *encoding.Encoding { return nil }
func (BPBuilder) Extensions() []string                      { return []string{"_bp"} }
func (BPBuilder) ScriptType() script.ScriptType              { return script.TypeBGIBp }
func (BPBuilder) IsImage() bool                              { return false }
func (BPBuilder) IsArchive() bool                            { return false }
func (BPBuilder) CanCreateFile() bool                        { return false }

func (BPBuilder) CreateFile(io.Reader, io.Writer, encoding.Encoding) error {
	return errs.New(errs.BadOpcode, "BP does not support create_file")
}

// IsThisFormat validates the header_size/instr_size invariant against the
// full file length; BP has no magic bytes, so this is a structural check
// rather than a byte-prefix match.
func (BPBuilder) IsThisFormat(filename string, prefix []byte) (uint8, bool) {
	if len(prefix) < 8 {
		return 0, false
	}
	r := binio.NewReader(prefix)
	headerSize, err := r.ReadU32LE()
	if err != nil {
		return 0, false
	}
	instrSize, err := r.ReadU32LE()
	if err != nil {
		return 0, false
	}
	if uint64(headerSize)+uint64(instrSize) != uint64(len(prefix)) {
		return 0, false
	}
	return 60, true
}

func (b BPBuilder) BuildScript(buf []byte, cfg *script.ExtraConfig) (script.Script, error) {
	enc := b.DefaultEncoding()
	if cfg != nil && cfg.DefaultEncoding != (encoding.Encoding{}) {
		enc = cfg.DefaultEncoding
	}
	return newBPScript(buf, enc)
}

func newBPScript(buf []byte, enc encoding.Encoding) (*BPScript, error) {
	r := binio.NewReader(buf)
	headerSize, err := r.ReadU32LE()
	if err != nil {
		return nil, err
	}
	instrSize, err := r.ReadU32LE()
	if err != nil {
		return nil, err
	}
	if uint64(headerSize)+uint64(instrSize) != uint64(len(buf)) {
		return nil, errs.New(errs.InvalidMagic, "header_size + instr_size does not match file length")
	}

	s := &BPScript{buf: buf, headerSize: headerSize, instrSize: instrSize, enc: enc}

	// Pass 1: find the last end-of-script (0x17) opcode word, word-aligned
	// from the header boundary.
	lastInstrPos := int64(-1)
	lastInstrValid := false
	pos := int64(headerSize)
	for pos+2 <= int64(len(buf)) {
		op, err := r.PeekU16LEAt(pos)
		if err != nil {
			break
		}
		if op == bpOpcodeEnd {
			lastInstrPos = pos
			lastInstrValid = true
		}
		pos += 2
	}

	// Pass 2: rescan for opcode-5 push-string operands whose target lands
	// on a NUL-preceded byte at or after the discovered boundary.
	pos = int64(headerSize)
	for pos+2 <= int64(len(buf)) {
		op, err := r.PeekU16LEAt(pos)
		if err != nil {
			break
		}
		pos += 2
		if op != bpOpcodePushString {
			continue
		}
		if pos+2 > int64(len(buf)) {
			break
		}
		textOffset, err := r.PeekU16LEAt(pos)
		if err != nil {
			break
		}
		textAddress := pos + int64(textOffset) - 1
		valid := (textAddress >= lastInstrPos || !lastInstrValid) &&
			textAddress < int64(len(buf)) &&
			(textAddress == lastInstrPos || (textAddress > 0 && buf[textAddress-1] == 0))
		if valid {
			s.strs = append(s.strs, bpString{offsetPos: pos, textOffset: textOffset, textAddress: textAddress})
		}
		pos += 2
	}
	return s, nil
}

func (s *BPScript) DefaultOutputScriptType() script.OutputKind { return script.OutputJSON }
func (s *BPScript) IsOutputSupported(k script.OutputKind) bool { return k == script.OutputJSON }

// ExtractMessages reads the C-string at each discovered text address and
// decodes it with the script's configured encoding.
func (s *BPScript) ExtractMessages() ([]script.Message, error) {
	r := binio.NewReader(s.buf)
	msgs := make([]script.Message, 0, len(s.strs))
	for _, str := range s.strs {
		raw, err := r.PeekCStringAt(str.textAddress)
		if err != nil {
			return nil, err
		}
		text, err := encoding.Decode(s.enc, raw, false)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, script.Message{Message: text})
	}
	return msgs, nil
}

// ImportMessages rewrites every discovered string where it stands: text
// that fits in the original slot is padded with trailing zeros to the old
// length, and longer text replaces the old bytes and shifts everything
// after it. Each string's offset operand (string address minus the
// operand's own position, plus one) is recomputed from where the string was
// written via binpatch.Patcher.PatchU16RelativeToWritePos, and instr_size
// is rewritten when any string grew.
func (s *BPScript) ImportMessages(messages []script.Message, w io.Writer, filename string, enc encoding.Encoding, repl script.ReplacementTable) error {
	if len(messages) != len(s.strs) {
		return errs.Newf(errs.MessageCountMismatch, "got %d messages, script has %d string references", len(messages), len(s.strs))
	}

	p := binpatch.New(s.buf, nil, nil)
	grew := false
	var err error

	for i, str := range s.strs {
		if err = p.CopyUpTo(str.textAddress); err != nil {
			return err
		}
		r := binio.NewReader(s.buf)
		oldRaw, cerr := r.PeekCStringAt(str.textAddress)
		if cerr != nil {
			return cerr
		}
		oldLen := int64(len(oldRaw)) + 1 // including NUL

		text := repl.Apply(messages[i].Message)
		encoded, eerr := encoding.Encode(enc, text, false)
		if eerr != nil {
			return eerr
		}
		newLen := int64(len(encoded)) + 1

		writeAt := p.WritePos()
		if newLen <= oldLen {
			if err = p.ReplaceBytesWithWrite(oldLen, func(p *binpatch.Patcher) {
				p.RawWrite(encoded)
				p.RawWrite([]byte{0})
				p.RawWrite(make([]byte, oldLen-newLen))
			}); err != nil {
				return err
			}
		} else {
			grew = true
			if err = p.ReplaceBytesWithWrite(oldLen, func(p *binpatch.Patcher) {
				p.RawWrite(encoded)
				p.RawWrite([]byte{0})
			}); err != nil {
				return err
			}
			warn.Warnf(logrus.Fields{"file": filename}, "BP string at offset %d grew; rewriting its offset", str.textAddress)
		}
		// An earlier grown string may have shifted this one, so the offset
		// operand is always recomputed from where the string was written.
		if err = p.PatchU16RelativeToWritePos(str.offsetPos, writeAt, str.offsetPos, 1); err != nil {
			return err
		}
	}
	if err = p.CopyUpTo(int64(len(s.buf))); err != nil {
		return err
	}

	out, err := p.Finish()
	if err != nil {
		return err
	}
	if grew {
		// instr_size header field lives at byte offset 4.
		newInstrSize := uint32(p.WritePos()) - s.headerSize
		out[4] = byte(newInstrSize)
		out[5] = byte(newInstrSize >> 8)
		out[6] = byte(newInstrSize >> 16)
		out[7] = byte(newInstrSize >> 24)
	}
	_, err = w.Write(out)
	return err
}
