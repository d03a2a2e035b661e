package binio

import (
	"encoding/binary"

	"github.com/dsnet/vnscript/internal/errs"
)

// Writer is a growable byte buffer supporting both append writes and
// positional (back-patch) writes, so a header field (e.g. an index offset,
// an instruction-segment length) can be rewritten after the body that
// determines its value has already been written.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer { return &Writer{} }

// Bytes returns the accumulated buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int64 { return int64(len(w.buf)) }

// WriteBytes appends b.
func (w *Writer) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// WriteU8 appends one byte.
func (w *Writer) WriteU8(b uint8) {
	w.buf = append(w.buf, b)
}

// WriteU16LE appends a little-endian uint16.
func (w *Writer) WriteU16LE(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteU32LE appends a little-endian uint32.
func (w *Writer) WriteU32LE(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteU64LE appends a little-endian uint64.
func (w *Writer) WriteU64LE(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteCString appends s followed by a single NUL byte.
func (w *Writer) WriteCString(s []byte) {
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
}

// WriteAllAt overwrites len(b) bytes starting at pos with b's contents. pos
// must lie within the already-written buffer (this is not an append).
func (w *Writer) WriteAllAt(pos int64, b []byte) error {
	if pos < 0 || pos+int64(len(b)) > int64(len(w.buf)) {
		return errs.Atf(errs.Truncated, pos, "write of %d bytes out of range (len %d)", len(b), len(w.buf))
	}
	copy(w.buf[pos:], b)
	return nil
}

// WriteU32At overwrites 4 bytes at pos with the little-endian encoding of v.
func (w *Writer) WriteU32At(pos int64, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return w.WriteAllAt(pos, b[:])
}

// WriteU16At overwrites 2 bytes at pos with the little-endian encoding of v.
func (w *Writer) WriteU16At(pos int64, v uint16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return w.WriteAllAt(pos, b[:])
}

// WriteU64At overwrites 8 bytes at pos with the little-endian encoding of v.
func (w *Writer) WriteU64At(pos int64, v uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return w.WriteAllAt(pos, b[:])
}

// Pad appends n bytes of the given fill value.
func (w *Writer) Pad(n int, fill byte) {
	for i := 0; i < n; i++ {
		w.buf = append(w.buf, fill)
	}
}
