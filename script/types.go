// Package script defines the format-handler contract (spec components C7
// and C8): the ScriptBuilder/Script capability sets every engine plugs
// into, the shared data model (Message, StringRef, EntryHeader, ...), and
// the dispatcher that picks a handler for a given file.
package script

import "github.com/dsnet/vnscript/encoding"

// ScriptType names a format handler, used both as an identity tag for
// dispatcher matching and as routing metadata an archive attaches to its
// entries so a handler for the outer container can tell the dispatcher
// what the inner file is.
type ScriptType string

const (
	TypeBGIBp       ScriptType = "bgi_bp"
	TypeBGIBsi      ScriptType = "bgi_bsi"
	TypeBGICBG      ScriptType = "bgi_cbg"
	TypeBGIV1       ScriptType = "bgi_v1"
	TypeBGIDsc      ScriptType = "bgi_dsc"
	TypeEscudeBin   ScriptType = "escude_bin"
	TypeWillPlusWs2 ScriptType = "will_plus_ws2"
	TypeKirikiriXP3 ScriptType = "kirikiri_xp3"
	TypeUnknown     ScriptType = ""
)

// Message is the canonical translatable unit: a speaker line (Name == nil)
// or a spoken line (Name pointing at the speaker). Ordering within a file
// is significant; importers rely on positional alignment.
type Message struct {
	Name    *string
	Message string
}

// ReplacementTable is an ordered mapping applied to every message and
// speaker name at import time, before encoding. Order is preserved because
// replacements can chain.
type ReplacementTable struct {
	Pairs [][2]string
}

// Apply runs every replacement pair in order over s.
func (rt ReplacementTable) Apply(s string) string {
	for _, pair := range rt.Pairs {
		s = replaceAll(s, pair[0], pair[1])
	}
	return s
}

func replaceAll(s, old, new string) string {
	if old == "" {
		return s
	}
	var out []byte
	for {
		i := indexOf(s, old)
		if i < 0 {
			out = append(out, s...)
			break
		}
		out = append(out, s[:i]...)
		out = append(out, new...)
		s = s[i+len(old):]
	}
	return string(out)
}

func indexOf(s, sub string) int {
	n, m := len(s), len(sub)
	if m == 0 || m > n {
		return -1
	}
	for i := 0; i+m <= n; i++ {
		if s[i:i+m] == sub {
			return i
		}
	}
	return -1
}

// FixedFormat describes the "fixed" variant of FormatOptions.
type FixedFormat struct {
	Length       int
	KeepOriginal bool
}

// FormatOptions is a line-wrapping hint for text formatters that must
// respect a fixed on-screen column width. A nil Fixed means "none".
type FormatOptions struct {
	Fixed *FixedFormat
}

// OutputKind names the shape of the intermediate a Script produces.
type OutputKind string

const (
	OutputJSON   OutputKind = "json"
	OutputYAML   OutputKind = "yaml"
	OutputCustom OutputKind = "custom"
)

// StringRefRole names what a StringRef points at.
type StringRefRole string

const (
	RoleMessage  StringRefRole = "message"
	RoleName     StringRefRole = "name"
	RoleInternal StringRefRole = "internal"
	RoleLabel    StringRefRole = "label"
	RoleHover    StringRefRole = "hover"
)

// StringRef points at a translatable byte range inside a script buffer.
type StringRef struct {
	Offset int64
	Length int64
	Role   StringRefRole
}

// EntryHeader describes one file inside an archive.
type EntryHeader struct {
	Name       string
	Offset     int64
	Size       int64
	ScriptType ScriptType // optional; TypeUnknown if the archive doesn't know
}

// ImageColorType names the channel layout of a decoded pixel buffer.
type ImageColorType string

const (
	ColorGrayscale ImageColorType = "grayscale"
	ColorRGB       ImageColorType = "rgb"
	ColorRGBA      ImageColorType = "rgba"
	ColorBGR       ImageColorType = "bgr"
	ColorBGRA      ImageColorType = "bgra"
)

// ImageData is the pixel-buffer contract every image decoder produces.
type ImageData struct {
	Width     int
	Height    int
	ColorType ImageColorType
	BitDepth  int
	Bytes     []byte
}

// ExtraConfig is a flat record of per-format knobs, treated as read-only by
// handlers; the dispatcher passes a shared reference.
type ExtraConfig struct {
	Language          string
	CompressionLevel  int
	DrawCanvas        bool
	WorkerCount       int
	Segmenter         string
	DefaultEncoding   encoding.Encoding
	ArchiveEncoding   *encoding.Encoding
}
