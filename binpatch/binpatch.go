// Package binpatch implements the streaming binary patcher (spec component
// C6): a copy-through rewriter that lets a format handler substitute byte
// ranges while emitting output, and later back-patch a 32-bit absolute
// offset once the shift every prior substitution introduced is known.
package binpatch

import "github.com/dsnet/vnscript/internal/errs"

// PosMap translates a position in one address space to the other. The zero
// value (nil) is the identity mapping.
type PosMap func(pos int64) int64

func identity(pos int64) int64 { return pos }

// patch records a pending offset rewrite: the output byte position holding
// the stale value, its width in bytes (2 or 4), and the read-space position
// whose written-space equivalent must be substituted in.
type patch struct {
	outPos     int64
	width      int
	readTarget int64
	// targetIsWritePos, when true, means readTarget is already a write-space
	// position (e.g. bytes appended past the original input have no
	// read-space equivalent) and must not be passed through translate.
	targetIsWritePos bool
	// relBase, when non-nil, makes this a relative patch: the written value
	// is target - translate(*relBase) + relBias instead of the absolute
	// translated target.
	relBase *int64
	relBias int64
}

// Patcher streams bytes from an input buffer to an output buffer,
// supporting in-place substitution and deferred 32-bit offset patching. If
// no Replace/PatchU32Address calls are made, CopyUpTo(len(input)) produces
// byte-identical output (the identity property the patcher must satisfy).
type Patcher struct {
	input      []byte
	readPos    int64
	output     []byte
	readToWrite PosMap
	writeToRead PosMap
	pending    []patch
	// marks records the (readPos, writePos) pair after each CopyUpTo and
	// ReplaceBytesWithWrite, letting PatchU32Address translate a read-space target to its
	// corresponding write-space position even when that target has not
	// yet been copied.
	marks []markEntry
}

type markEntry struct {
	readPos  int64
	writePos int64
}

// New builds a Patcher over input, with optional custom position maps
// (pass nil for the identity map in either direction).
func New(input []byte, readToWrite, writeToRead PosMap) *Patcher {
	if readToWrite == nil {
		readToWrite = identity
	}
	if writeToRead == nil {
		writeToRead = identity
	}
	p := &Patcher{input: input, readToWrite: readToWrite, writeToRead: writeToRead}
	p.marks = append(p.marks, markEntry{0, 0})
	return p
}

// Output returns the accumulated output buffer, with all pending offset
// patches already applied (call Finish first if you have not).
func (p *Patcher) Output() []byte { return p.output }

// WritePos returns the current output length.
func (p *Patcher) WritePos() int64 { return int64(len(p.output)) }

// ReadPos returns the current input cursor.
func (p *Patcher) ReadPos() int64 { return p.readPos }

// CopyUpTo copies bytes from the current input cursor up to (not
// including) read-space position pos, advancing both cursors.
func (p *Patcher) CopyUpTo(pos int64) error {
	if pos < p.readPos || pos > int64(len(p.input)) {
		return errs.Atf(errs.Truncated, pos, "copy_up_to out of range (cursor %d, len %d)", p.readPos, len(p.input))
	}
	p.output = append(p.output, p.input[p.readPos:pos]...)
	p.readPos = pos
	p.marks = append(p.marks, markEntry{p.readPos, int64(len(p.output))})
	return nil
}

// ReplaceBytesWithWrite skips oldLen bytes in the input (without copying
// them) and invokes f with the Patcher so it can emit replacement bytes via
// RawWrite. Later CopyUpTo calls and PatchU32Address calls see the
// resulting write-space shift.
func (p *Patcher) ReplaceBytesWithWrite(oldLen int64, f func(p *Patcher)) error {
	if p.readPos+oldLen > int64(len(p.input)) {
		return errs.Atf(errs.Truncated, p.readPos, "replace_bytes_with_write: %d bytes exceed input", oldLen)
	}
	p.readPos += oldLen
	f(p)
	p.marks = append(p.marks, markEntry{p.readPos, int64(len(p.output))})
	return nil
}

// RawWrite appends bytes directly to the output, for use inside a
// ReplaceBytesWithWrite callback.
func (p *Patcher) RawWrite(b []byte) {
	p.output = append(p.output, b...)
}

// PatchU32Address records that the 32-bit little-endian integer currently
// sitting in the output at the write-space position corresponding to
// read-space position readPos is itself a read-space offset, and must be
// rewritten (once its own target's final write-space position is known) to
// point at the translated write-space offset instead. target is the
// read-space position the address operand refers to.
func (p *Patcher) PatchU32Address(readPos, target int64) error {
	return p.patchAddress(readPos, target, 4)
}

// PatchU16Address is PatchU32Address's 16-bit-offset counterpart, used by
// formats (e.g. BGI BP) whose address operands are a single word wide.
// Finish truncates the translated write-space position to its low 16 bits.
func (p *Patcher) PatchU16Address(readPos, target int64) error {
	return p.patchAddress(readPos, target, 2)
}

func (p *Patcher) patchAddress(readPos, target int64, width int) error {
	outPos, err := p.translate(readPos)
	if err != nil {
		return err
	}
	p.pending = append(p.pending, patch{outPos: outPos, width: width, readTarget: target})
	return nil
}

// PatchU16RelativeToWritePos records a 16-bit field (at read-space readPos)
// whose written value must equal targetWritePos - translate(base) + bias.
// targetWritePos is already a write-space coordinate (used for bytes
// appended past the end of the original input, which have no read-space
// position of their own). This models BGI BP's "offset relative to the
// position of the operand" addressing instead of absolute offsets.
func (p *Patcher) PatchU16RelativeToWritePos(readPos, targetWritePos, base, bias int64) error {
	outPos, err := p.translate(readPos)
	if err != nil {
		return err
	}
	rb := base
	p.pending = append(p.pending, patch{outPos: outPos, width: 2, readTarget: targetWritePos, targetIsWritePos: true, relBase: &rb, relBias: bias})
	return nil
}

// translate maps a read-space position to its write-space equivalent as the
// nearest preceding mark plus the linear distance from it. The readToWrite
// and writeToRead maps passed to New are not consulted.
func (p *Patcher) translate(readPos int64) (int64, error) {
	var best markEntry
	found := false
	for _, m := range p.marks {
		if m.readPos <= readPos {
			best = m
			found = true
		}
	}
	if !found {
		return 0, errs.At(errs.Truncated, readPos, "no mark covers this read position yet")
	}
	delta := readPos - best.readPos
	return best.writePos + delta, nil
}

// Finish applies all pending 16- and 32-bit address patches, translating each
// recorded read-space target into its final write-space offset, and
// returns the completed output buffer.
func (p *Patcher) Finish() ([]byte, error) {
	for _, pt := range p.pending {
		target := pt.readTarget
		if !pt.targetIsWritePos {
			var err error
			target, err = p.translate(pt.readTarget)
			if err != nil {
				return nil, err
			}
		}
		value := target
		if pt.relBase != nil {
			base, err := p.translate(*pt.relBase)
			if err != nil {
				return nil, err
			}
			value = target - base + pt.relBias
		}
		if pt.outPos+int64(pt.width) > int64(len(p.output)) {
			return nil, errs.At(errs.Truncated, pt.outPos, "patch position out of range")
		}
		v := uint32(value)
		for i := 0; i < pt.width; i++ {
			p.output[pt.outPos+int64(i)] = byte(v >> (8 * uint(i)))
		}
	}
	return p.output, nil
}
