package script

import (
	"io"

	"github.com/dsnet/vnscript/encoding"
)

// Builder is the purely descriptive capability set every engine
// implements: identification and construction, with no per-file state.
type Builder interface {
	// DefaultEncoding is used when the caller did not override.
	DefaultEncoding() encoding.Encoding
	// DefaultArchiveEncoding is for archives whose filename tables differ
	// from script bodies; nil means "same as DefaultEncoding".
	DefaultArchiveEncoding() *encoding.Encoding
	// Extensions is a static list of filename extensions for fast
	// prefiltering.
	Extensions() []string
	ScriptType() ScriptType
	IsImage() bool
	IsArchive() bool
	// IsThisFormat inspects filename and the first prefixLen bytes of the
	// file (prefix may be shorter than prefixLen at EOF) and returns a
	// priority in [0, 255], or ok=false for "not mine". 255 means a
	// magic-number-certain match. This method never errors.
	IsThisFormat(filename string, prefix []byte) (priority uint8, ok bool)
	// CanCreateFile reports whether CreateFile is implemented.
	CanCreateFile() bool
	// CreateFile constructs a new file of this format from an
	// intermediate representation read from r, writing the resulting
	// bytes to w. Only meaningful when CanCreateFile is true.
	CreateFile(r io.Reader, w io.Writer, enc encoding.Encoding) error
	// BuildScript constructs a Script from an in-memory buffer.
	BuildScript(buf []byte, cfg *ExtraConfig) (Script, error)
}

// ArchiveEntryReader is the read+seek+metadata surface an archive's
// open-file operation returns.
type ArchiveEntryReader interface {
	io.Reader
	io.Seeker
	// Header returns the entry's directory metadata.
	Header() EntryHeader
}
