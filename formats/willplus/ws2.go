// Package willplus implements the WillPlus engine's Ws2 script format: a
// marker-scanned bytecode stream (no fixed opcode table; strings are found
// by searching for literal byte sequences with a wildcard byte) that is
// sometimes stored with every byte rotated left by two bits.
package willplus

import (
	"io"
	"math/bits"
	"strings"

	"github.com/dsnet/vnscript/encoding"
	"github.com/dsnet/vnscript/internal/errs"
	"github.com/dsnet/vnscript/internal/warn"
	"github.com/dsnet/vnscript/script"
)

// Builder is the Builder for WillPlus Ws2 scripts.
type Builder struct{}

var _ script.Builder = Builder{}

func (Builder) DefaultEncoding() encoding.Encoding         { return encoding.CodePage(932) }
func (Builder) DefaultArchiveEncoding() *encoding.Encoding { return nil }
func (Builder) Extensions() []string                      { return []string{"ws2"} }
func (Builder) ScriptType() script.ScriptType              { return script.TypeWillPlusWs2 }
func (Builder) IsImage() bool                              { return false }
func (Builder) IsArchive() bool                            { return false }
func (Builder) CanCreateFile() bool                        { return false }

func (Builder) CreateFile(io.Reader, io.Writer, encoding.Encoding) error {
	return errs.New(errs.BadOpcode, "Ws2 does not support create_file")
}

// IsThisFormat has no magic bytes to key off; Ws2 scripts are identified
// by the ".ws2" filename extension alone, with a low, non-magic priority
// of 40, so any builder that claims the same file with a higher priority
// wins in the dispatcher.
func (Builder) IsThisFormat(filename string, prefix []byte) (uint8, bool) {
	if strings.HasSuffix(strings.ToLower(filename), ".ws2") {
		return 40, true
	}
	return 0, false
}

func (b Builder) BuildScript(buf []byte, cfg *script.ExtraConfig) (script.Script, error) {
	enc := b.DefaultEncoding()
	if cfg != nil && cfg.DefaultEncoding != (encoding.Encoding{}) {
		enc = cfg.DefaultEncoding
	}
	return newScript(buf, enc, false)
}

// ws2String is one discovered string: its byte offset, decoded text, the
// on-wire length including the NUL terminator, and (for "char\0" message
// strings) the actor name string immediately preceding it, if any.
type ws2String struct {
	pos   int64
	text  string
	wlen  int64
	actor *ws2String
}

// Ws2Script is a parsed Ws2 file.
type Ws2Script struct {
	script.Unsupported
	buf       []byte
	enc       encoding.Encoding
	strs      []ws2String
	encrypted bool
}

func (s *Ws2Script) DefaultOutputScriptType() script.OutputKind { return script.OutputJSON }
func (s *Ws2Script) IsOutputSupported(k script.OutputKind) bool { return k == script.OutputJSON }

// equalWildcard reports whether buf[pos:pos+len(pattern)] matches pattern,
// where a 0xFF byte in pattern matches any byte.
func equalWildcard(buf []byte, pos int, pattern []byte) bool {
	if pos+len(pattern) > len(buf) {
		return false
	}
	for i, want := range pattern {
		if buf[pos+i] != want && want != 0xFF {
			return false
		}
	}
	return true
}

func peekCString(buf []byte, pos int) ([]byte, error) {
	i := pos
	for i < len(buf) && buf[i] != 0 {
		i++
	}
	if i >= len(buf) {
		return nil, errs.At(errs.Truncated, int64(pos), "unterminated C string")
	}
	return buf[pos:i], nil
}

func getWs2String(buf []byte, pos int, enc encoding.Encoding) (ws2String, error) {
	raw, err := peekCString(buf, pos)
	if err != nil {
		return ws2String{}, err
	}
	text, err := encoding.Decode(enc, raw, true)
	if err != nil {
		return ws2String{}, err
	}
	return ws2String{pos: int64(pos), text: text, wlen: int64(len(raw) + 1)}, nil
}

// newScript scans buf for the three marker patterns Ws2 uses to embed
// dialogue: a choice-list header ("\x00\xFF\x0F\x02"), a speaker-name tag
// ("%LC"/"%LF"), and a message tag ("char\0"). If no strings are found, the
// whole file is assumed to be rotated left by two bits per byte (a cheap
// obfuscation some WillPlus titles apply) and the scan is retried once on
// the rotated-right copy.
func newScript(buf []byte, enc encoding.Encoding, decrypted bool) (*Ws2Script, error) {
	var strs []ws2String
	var actor *ws2String

	pos := 0
	for pos < len(buf) {
		if equalWildcard(buf, pos, []byte{0x00, 0xFF, 0x0F, 0x02}) {
			pos += 4
			if pos >= len(buf) {
				break
			}
			if buf[pos] == 0 {
				pos++
				continue
			}
			for pos < len(buf) {
				pos += 2
				str, err := getWs2String(buf, pos, enc)
				if err != nil {
					return nil, err
				}
				pos += int(str.wlen) + 4
				for pos < len(buf) && buf[pos] != 0 {
					pos++
				}
				pos++
				stop := pos >= len(buf) || buf[pos] != 0xFF
				strs = append(strs, str)
				if stop {
					break
				}
			}
		}
		if equalWildcard(buf, pos, []byte("%LC")) || equalWildcard(buf, pos, []byte("%LF")) {
			pos += 3
			str, err := getWs2String(buf, pos, enc)
			if err != nil {
				return nil, err
			}
			pos += int(str.wlen) + 4
			actorCopy := str
			actor = &actorCopy
		}
		if equalWildcard(buf, pos, []byte("char\x00")) {
			pos += 5
			str, err := getWs2String(buf, pos, enc)
			if err != nil {
				return nil, err
			}
			pos += int(str.wlen) + 4
			str.actor = actor
			actor = nil
			strs = append(strs, str)
		}
		pos++
	}

	if !decrypted && len(strs) == 0 {
		rotated := make([]byte, len(buf))
		for i, b := range buf {
			rotated[i] = bits.RotateLeft8(b, -2)
		}
		return newScript(rotated, enc, true)
	}
	return &Ws2Script{buf: buf, enc: enc, strs: strs, encrypted: decrypted}, nil
}

func (s *Ws2Script) ExtractMessages() ([]script.Message, error) {
	msgs := make([]script.Message, 0, len(s.strs))
	for _, str := range s.strs {
		msg := strings.TrimSuffix(str.text, "%K%P")
		var name *string
		if str.actor != nil {
			n := strings.TrimPrefix(strings.TrimPrefix(str.actor.text, "%LC"), "%LF")
			name = &n
		}
		msgs = append(msgs, script.Message{Name: name, Message: msg})
	}
	return msgs, nil
}

// ImportMessages writes each replacement into its original slot, padded
// with spaces, truncating (with a warning) any text that does not fit.
// The prefix/suffix markers baked into the name and message on-wire slots
// ("%LC"/"%LF", "%K%P") are preserved rather than round-tripped through the
// message text, matching the original tool's fixed-width-with-markers
// layout.
func (s *Ws2Script) ImportMessages(messages []script.Message, w io.Writer, filename string, enc encoding.Encoding, repl script.ReplacementTable) error {
	if len(messages) != len(s.strs) {
		return errs.Newf(errs.MessageCountMismatch, "got %d messages, script has %d", len(messages), len(s.strs))
	}

	out := append([]byte{}, s.buf...)
	for i, str := range s.strs {
		msg := messages[i]
		if str.actor != nil {
			if msg.Name == nil {
				return errs.New(errs.BadOpcode, "message without name for a named Ws2 slot")
			}
			actorPrefix := ""
			switch {
			case strings.HasPrefix(str.actor.text, "%LC"):
				actorPrefix = "%LC"
			case strings.HasPrefix(str.actor.text, "%LF"):
				actorPrefix = "%LF"
			}
			targetLen := int(str.actor.wlen) - len(actorPrefix) - 1
			if err := writeFixedSlot(out, int(str.actor.pos)+len(actorPrefix), targetLen, repl.Apply(*msg.Name), enc); err != nil {
				return err
			}
		}
		suffix := ""
		if strings.HasSuffix(str.text, "%K%P") {
			suffix = "%K%P"
		}
		targetLen := int(str.wlen) - len(suffix) - 1
		if err := writeFixedSlot(out, int(str.pos), targetLen, repl.Apply(msg.Message), enc); err != nil {
			return err
		}
	}

	if s.encrypted {
		for i := range out {
			out[i] = bits.RotateLeft8(out[i], 2)
		}
	}
	_, err := w.Write(out)
	return err
}

// writeFixedSlot encodes text and writes it at out[pos:pos+targetLen],
// space-padding short text and truncating (with a warning) text that
// exceeds the slot.
func writeFixedSlot(out []byte, pos, targetLen int, text string, enc encoding.Encoding) error {
	encoded, err := encoding.Encode(enc, text, true)
	if err != nil {
		return err
	}
	if len(encoded) > targetLen {
		warn.Warnf(nil, "Ws2 string %q too long for its slot (%d > %d bytes), truncating", text, len(encoded), targetLen)
		truncated := encoding.TruncateBytes(text, targetLen, "")
		encoded, err = encoding.Encode(enc, truncated, true)
		if err != nil {
			return err
		}
		for len(encoded) > targetLen {
			encoded = encoded[:len(encoded)-1]
		}
	}
	copy(out[pos:pos+targetLen], encoded)
	for i := len(encoded); i < targetLen; i++ {
		out[pos+i] = 0x20
	}
	return nil
}
