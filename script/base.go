package script

import (
	"io"

	"github.com/dsnet/vnscript/encoding"
	"github.com/dsnet/vnscript/internal/errs"
)

// Unsupported is embedded by concrete Script implementations to provide a
// default "not supported by this handler" body for every method a given
// format doesn't implement, so e.g. a textual handler need not hand-write
// archive or image stubs.
type Unsupported struct{}

func (Unsupported) DefaultOutputScriptType() OutputKind  { return OutputJSON }
func (Unsupported) IsOutputSupported(OutputKind) bool    { return false }
func (Unsupported) DefaultFormatType() FormatOptions     { return FormatOptions{} }
func (Unsupported) MultipleMessageFiles() bool           { return false }

func (Unsupported) ExtractMessages() ([]Message, error) {
	return nil, errs.New(errs.BadOpcode, "handler does not support message extraction")
}

func (Unsupported) ImportMessages([]Message, io.Writer, string, encoding.Encoding, ReplacementTable) error {
	return errs.New(errs.BadOpcode, "handler does not support message import")
}

func (Unsupported) ExtractMultipleMessages() (map[string][]Message, error) {
	return nil, errs.New(errs.BadOpcode, "handler does not support multiple message files")
}

func (Unsupported) ImportMultipleMessages(map[string][]Message, io.Writer, string, encoding.Encoding, ReplacementTable) error {
	return errs.New(errs.BadOpcode, "handler does not support multiple message files")
}

func (Unsupported) CustomOutputExtension() string { return "" }

func (Unsupported) CustomExport(io.Writer, encoding.Encoding) error {
	return errs.New(errs.BadOpcode, "handler does not support custom export")
}

func (Unsupported) CustomImport(io.Reader, io.Writer, encoding.Encoding, encoding.Encoding) error {
	return errs.New(errs.BadOpcode, "handler does not support custom import")
}

func (Unsupported) IterArchiveFilename() []string { return nil }
func (Unsupported) IterArchiveOffset() []int64    { return nil }

func (Unsupported) OpenFile(int) (ArchiveEntryReader, error) {
	return nil, errs.New(errs.BadOpcode, "handler is not an archive")
}

func (Unsupported) ExportImage() (ImageData, error) {
	return ImageData{}, errs.New(errs.BadOpcode, "handler is not an image")
}
