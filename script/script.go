package script

import (
	"io"

	"github.com/dsnet/vnscript/encoding"
)

// Script is the per-file object a Builder produces. Not every method
// applies to every format; textual handlers implement the message
// methods, archives implement the archive methods, images implement
// ExportImage. A handler that does not support a given operation returns
// an error rather than being asked to implement a method with no
// meaning for it — callers branch on Builder.IsImage/IsArchive and the
// output-kind queries first.
type Script interface {
	DefaultOutputScriptType() OutputKind
	IsOutputSupported(kind OutputKind) bool
	DefaultFormatType() FormatOptions

	// MultipleMessageFiles reports whether ExtractMultipleMessages and
	// ImportMultipleMessages should be used instead of the single-stream
	// variants (e.g. CSX's bundle of many named routines).
	MultipleMessageFiles() bool

	// ExtractMessages returns every Message in file order. Fails only for
	// malformed input.
	ExtractMessages() ([]Message, error)
	// ImportMessages writes a full replacement for the file to w. Must
	// fail with an errs.MessageCountMismatch-kinded error if len(messages)
	// differs from what ExtractMessages produced, unless the handler
	// documents a merging mode.
	ImportMessages(messages []Message, w io.Writer, filename string, enc encoding.Encoding, repl ReplacementTable) error

	// ExtractMultipleMessages and ImportMultipleMessages are the
	// multi-routine analogues, keyed by routine name.
	ExtractMultipleMessages() (map[string][]Message, error)
	ImportMultipleMessages(messages map[string][]Message, w io.Writer, filename string, enc encoding.Encoding, repl ReplacementTable) error

	// CustomOutputExtension, CustomExport, and CustomImport are used by
	// formats whose intermediate is not a message list.
	CustomOutputExtension() string
	CustomExport(w io.Writer, enc encoding.Encoding) error
	CustomImport(r io.Reader, w io.Writer, enc encoding.Encoding, outEnc encoding.Encoding) error

	// Archive-specific surface; meaningful only when the originating
	// Builder.IsArchive() is true.
	IterArchiveFilename() []string
	IterArchiveOffset() []int64
	OpenFile(index int) (ArchiveEntryReader, error)

	// ExportImage is meaningful only when the originating Builder's
	// IsImage() is true.
	ExportImage() (ImageData, error)
}
