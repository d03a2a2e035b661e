package script

import (
	"io"

	"github.com/dsnet/vnscript/internal/errs"
)

// Dispatcher holds an ordered registry of builders and identifies a
// format by content-sniffing with priority, per spec.md §4.1's
// is_this_format contract: the dispatcher picks the highest-priority
// match across every registered builder, breaking ties by registration
// order.
type Dispatcher struct {
	builders []Builder
}

// NewDispatcher returns an empty registry.
func NewDispatcher() *Dispatcher { return &Dispatcher{} }

// Register adds a builder to the registry.
func (d *Dispatcher) Register(b Builder) {
	d.builders = append(d.builders, b)
}

// Builders returns the registry contents, in registration order.
func (d *Dispatcher) Builders() []Builder { return d.builders }

// ByType looks up a registered builder by its ScriptType.
func (d *Dispatcher) ByType(t ScriptType) (Builder, bool) {
	for _, b := range d.builders {
		if b.ScriptType() == t {
			return b, true
		}
	}
	return nil, false
}

// Identify runs every registered builder's IsThisFormat and returns the
// highest-priority match. Ties go to the first-registered builder with
// that priority.
func (d *Dispatcher) Identify(filename string, prefix []byte) (Builder, bool) {
	var best Builder
	var bestPriority uint8
	found := false
	for _, b := range d.builders {
		p, ok := b.IsThisFormat(filename, prefix)
		if !ok {
			continue
		}
		if !found || p > bestPriority {
			best, bestPriority, found = b, p, true
		}
	}
	return best, found
}

// BuildScript identifies buf's format and builds a Script for it.
func (d *Dispatcher) BuildScript(filename string, buf []byte, cfg *ExtraConfig) (Script, ScriptType, error) {
	b, ok := d.Identify(filename, buf)
	if !ok {
		return nil, TypeUnknown, errs.New(errs.InvalidMagic, "no registered format matched this file")
	}
	s, err := b.BuildScript(buf, cfg)
	if err != nil {
		return nil, TypeUnknown, err
	}
	return s, b.ScriptType(), nil
}

// WalkArchive recurses into an archive Script, identifying each entry's
// inner format (falling back to the entry's own advertised ScriptType, if
// any, when content-sniffing the entry's first bytes does not match a
// registered builder) and invoking visit for each.
func (d *Dispatcher) WalkArchive(s Script, cfg *ExtraConfig, visit func(name string, entry ArchiveEntryReader, inner Script, innerType ScriptType) error) error {
	names := s.IterArchiveFilename()
	for i, name := range names {
		entry, err := s.OpenFile(i)
		if err != nil {
			return err
		}
		header := entry.Header()

		buf := make([]byte, header.Size)
		if _, err := io.ReadFull(entry, buf); err != nil {
			return err
		}

		var inner Script
		var innerType ScriptType
		if b, ok := d.Identify(name, buf); ok {
			inner, err = b.BuildScript(buf, cfg)
			if err != nil {
				return err
			}
			innerType = b.ScriptType()
		} else if header.ScriptType != TypeUnknown {
			if b, ok := d.ByType(header.ScriptType); ok {
				inner, err = b.BuildScript(buf, cfg)
				if err != nil {
					return err
				}
				innerType = header.ScriptType
			}
		}
		if err := visit(name, entry, inner, innerType); err != nil {
			return err
		}
	}
	return nil
}
