package bgi

import (
	"encoding/json"
	"io"

	"github.com/dsnet/vnscript/binio"
	"github.com/dsnet/vnscript/encoding"
	"github.com/dsnet/vnscript/internal/errs"
	"github.com/dsnet/vnscript/internal/warn"
	"github.com/dsnet/vnscript/script"
)

// BSIBuilder is the Builder for BGI BSI key/value section maps.
type BSIBuilder struct{}

var _ script.Builder = BSIBuilder{}

func (BSIBuilder) DefaultEncoding() encoding.Encoding         { return encoding.UTF8 }
func (BSIBuilder) DefaultArchiveEncoding() *encoding.Encoding { return nil }
func (BSIBuilder) Extensions() []string                       { return []string{"_bsi"} }
func (BSIBuilder) ScriptType() script.ScriptType               { return script.TypeBGIBsi }
func (BSIBuilder) IsImage() bool                               { return false }
func (BSIBuilder) IsArchive() bool                             { return false }
func (BSIBuilder) CanCreateFile() bool                         { return true }

// IsThisFormat has no magic to check; it only checks that the leading
// section count does not exceed the buffer length (entry counts are not
// examined), so it is a low-confidence match relative to magic-bearing
// formats.
func (BSIBuilder) IsThisFormat(filename string, prefix []byte) (uint8, bool) {
	if len(prefix) < 4 {
		return 0, false
	}
	r := binio.NewReader(prefix)
	sectionCount, err := r.ReadU32LE()
	if err != nil || sectionCount > uint32(len(prefix)) {
		return 0, false
	}
	return 20, true
}

func (b BSIBuilder) BuildScript(buf []byte, cfg *script.ExtraConfig) (script.Script, error) {
	enc := b.DefaultEncoding()
	if cfg != nil && cfg.DefaultEncoding != (encoding.Encoding{}) {
		enc = cfg.DefaultEncoding
	}
	return newBSIScript(buf, enc)
}

func (BSIBuilder) CreateFile(r io.Reader, w io.Writer, enc encoding.Encoding) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	var data bsiData
	if err := json.Unmarshal(raw, &data); err != nil {
		return errs.Newf(errs.InvalidMagic, "BSI custom import: malformed JSON: %v", err)
	}
	return writeBSI(data, w, enc)
}

// bsiData mirrors the ordered section -> key -> value shape, serialized
// with Go's map key sort (matching the original's BTreeMap ordering).
type bsiData map[string]map[string]string

// BSIScript is a parsed BGI BSI section map.
type BSIScript struct {
	script.Unsupported
	Data bsiData
}

func newBSIScript(buf []byte, enc encoding.Encoding) (*BSIScript, error) {
	r := binio.NewReader(buf)
	sectionCount, err := r.ReadU32LE()
	if err != nil {
		return nil, err
	}
	data := make(bsiData, sectionCount)
	for i := uint32(0); i < sectionCount; i++ {
		sectionNameRaw, err := r.ReadCString()
		if err != nil {
			return nil, err
		}
		sectionName, err := encoding.Decode(enc, sectionNameRaw, true)
		if err != nil {
			return nil, err
		}
		entryCount, err := r.ReadU32LE()
		if err != nil {
			return nil, err
		}
		section := make(map[string]string, entryCount)
		for j := uint32(0); j < entryCount; j++ {
			keyRaw, err := r.ReadCString()
			if err != nil {
				return nil, err
			}
			key, err := encoding.Decode(enc, keyRaw, true)
			if err != nil {
				return nil, err
			}
			valRaw, err := r.ReadCString()
			if err != nil {
				return nil, err
			}
			val, err := encoding.Decode(enc, valRaw, true)
			if err != nil {
				return nil, err
			}
			section[key] = val
		}
		data[sectionName] = section
	}
	if r.Remaining() > 0 {
		warn.Warnf(nil, "BSI script has %d trailing unread bytes", r.Remaining())
	}
	return &BSIScript{Data: data}, nil
}

func (s *BSIScript) DefaultOutputScriptType() script.OutputKind { return script.OutputCustom }
func (s *BSIScript) IsOutputSupported(k script.OutputKind) bool { return k == script.OutputCustom }
func (s *BSIScript) CustomOutputExtension() string              { return "json" }

func (s *BSIScript) CustomExport(w io.Writer, enc encoding.Encoding) error {
	raw, err := json.MarshalIndent(s.Data, "", "  ")
	if err != nil {
		return err
	}
	out, err := encoding.Encode(enc, string(raw), false)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

func (s *BSIScript) CustomImport(r io.Reader, w io.Writer, enc encoding.Encoding, outEnc encoding.Encoding) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	text, err := encoding.Decode(outEnc, raw, true)
	if err != nil {
		return err
	}
	var data bsiData
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return errs.Newf(errs.InvalidMagic, "BSI custom import: malformed JSON: %v", err)
	}
	return writeBSI(data, w, enc)
}

func writeBSI(data bsiData, w io.Writer, enc encoding.Encoding) error {
	bw := binio.NewWriter()
	bw.WriteU32LE(uint32(len(data)))
	for _, sectionName := range sortedKeys(data) {
		nameBytes, err := encoding.Encode(enc, sectionName, false)
		if err != nil {
			return err
		}
		bw.WriteCString(nameBytes)
		section := data[sectionName]
		bw.WriteU32LE(uint32(len(section)))
		for _, key := range sortedKeys(section) {
			keyBytes, err := encoding.Encode(enc, key, false)
			if err != nil {
				return err
			}
			bw.WriteCString(keyBytes)
			valBytes, err := encoding.Encode(enc, section[key], false)
			if err != nil {
				return err
			}
			bw.WriteCString(valBytes)
		}
	}
	_, err := w.Write(bw.Bytes())
	return err
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}
