package bgi

import (
	"bytes"
	"io"

	"github.com/dsnet/vnscript/binio"
	"github.com/dsnet/vnscript/encoding"
	"github.com/dsnet/vnscript/internal/errs"
	"github.com/dsnet/vnscript/script"
)

// V1Builder is the Builder for BGI V1 bytecode scripts.
type V1Builder struct{}

var _ script.Builder = V1Builder{}

func (V1Builder) DefaultEncoding() encoding.Encoding         { return encoding.CodePage(932) }
func (V1Builder) DefaultArchiveEncoding() *encoding.Encoding { return nil }
func (V1Builder) Extensions() []string                       { return nil }
func (V1Builder) ScriptType() script.ScriptType               { return script.TypeBGIV1 }
func (V1Builder) IsImage() bool                                { return false }
func (V1Builder) IsArchive() bool                              { return false }
func (V1Builder) CanCreateFile() bool                          { return false }

func (V1Builder) CreateFile(io.Reader, io.Writer, encoding.Encoding) error {
	return errs.New(errs.BadOpcode, "BGI V1 does not support create_file")
}

func (V1Builder) IsThisFormat(filename string, prefix []byte) (uint8, bool) {
	if bytes.HasPrefix(prefix, v1Magic) {
		return 255, true
	}
	return 0, false
}

func (b V1Builder) BuildScript(buf []byte, cfg *script.ExtraConfig) (script.Script, error) {
	enc := b.DefaultEncoding()
	if cfg != nil && cfg.DefaultEncoding != (encoding.Encoding{}) {
		enc = cfg.DefaultEncoding
	}
	d, err := NewV1Disassembler(buf, enc)
	if err != nil {
		return nil, err
	}
	if err := d.Disassemble(); err != nil {
		return nil, err
	}
	return &V1Script{buf: buf, enc: enc, offset: d.offset, refs: d.Strings}, nil
}

// V1Script exposes the string references a V1Disassembler discovered as
// an ordered, editable message list. RoleInternal references are kept out
// of the editable surface (they are function names and other
// non-dialogue strings), matching the original tool's "internal strings
// exist only to consume the stack" treatment.
type V1Script struct {
	script.Unsupported
	buf    []byte
	enc    encoding.Encoding
	offset int64
	refs   []BGIString
}

func (s *V1Script) DefaultOutputScriptType() script.OutputKind { return script.OutputJSON }
func (s *V1Script) IsOutputSupported(k script.OutputKind) bool { return k == script.OutputJSON }

func (s *V1Script) editableRefs() []BGIString {
	out := make([]BGIString, 0, len(s.refs))
	for _, ref := range s.refs {
		if ref.Role != script.RoleInternal {
			out = append(out, ref)
		}
	}
	return out
}

func (s *V1Script) ExtractMessages() ([]script.Message, error) {
	r := binio.NewReader(s.buf)
	refs := s.editableRefs()
	msgs := make([]script.Message, 0, len(refs))
	var pendingName *string
	for _, ref := range refs {
		raw, err := r.PeekCStringAt(s.offset + ref.Address)
		if err != nil {
			return nil, err
		}
		text, err := encoding.Decode(s.enc, raw, false)
		if err != nil {
			return nil, err
		}
		if ref.Role == script.RoleName {
			name := text
			pendingName = &name
			continue
		}
		msgs = append(msgs, script.Message{Name: pendingName, Message: text})
		pendingName = nil
	}
	return msgs, nil
}

// ImportMessages only supports rewrites that fit within each string's
// original slot (padded with trailing zeros): BGI V1 code addresses are
// absolute within the bytecode body, and growing a string would require
// relocating every code address past it, which this handler does not
// attempt.
func (s *V1Script) ImportMessages(messages []script.Message, w io.Writer, filename string, enc encoding.Encoding, repl script.ReplacementTable) error {
	refs := s.editableRefs()
	var want int
	for _, ref := range refs {
		if ref.Role != script.RoleName {
			want++
		}
	}
	if len(messages) != want {
		return errs.Newf(errs.MessageCountMismatch, "got %d messages, script has %d", len(messages), want)
	}

	out := append([]byte{}, s.buf...)
	msgIdx := 0
	for _, ref := range refs {
		if ref.Role == script.RoleName {
			continue
		}
		msg := messages[msgIdx]
		msgIdx++
		text := repl.Apply(msg.Message)
		encoded, err := encoding.Encode(enc, text, false)
		if err != nil {
			return err
		}
		pos := s.offset + ref.Address
		oldRaw, err := binio.NewReader(s.buf).PeekCStringAt(pos)
		if err != nil {
			return err
		}
		if int64(len(encoded)) > int64(len(oldRaw)) {
			return errs.Newf(errs.MessageTooLong, "string at address %d grew from %d to %d bytes", ref.Address, len(oldRaw), len(encoded))
		}
		copy(out[pos:], encoded)
		for i := len(encoded); i < len(oldRaw); i++ {
			out[int64(pos)+int64(i)] = 0
		}
	}
	_, err := w.Write(out)
	return err
}
