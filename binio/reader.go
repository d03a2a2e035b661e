// Package binio implements the binary I/O layer (spec component C1): an
// in-memory byte reader/writer pair with a full peek family that never
// advances the cursor on a failed read, positional writes for binary
// patching, and the stream wrappers (rotating-key XOR, run-length)
// that format handlers layer on top of a plain byte slice.
package binio

import (
	"encoding/binary"

	"github.com/dsnet/vnscript/internal/errs"
)

// Reader is a cursor over an owned or borrowed byte slice. All Peek* methods
// read without moving Pos; all Read* methods read and advance it. Every
// method restores Pos exactly to its entry value on error, so a failed read
// is always a no-op (Testable Property 2: peek/read neutrality on error).
type Reader struct {
	buf []byte
	pos int64
}

// NewReader wraps buf for reading. The slice is not copied; callers must
// not mutate it while the Reader is in use.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Len returns the total length of the underlying buffer.
func (r *Reader) Len() int64 { return int64(len(r.buf)) }

// Pos returns the current cursor position.
func (r *Reader) Pos() int64 { return r.pos }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int64 { return int64(len(r.buf)) - r.pos }

// Bytes returns the whole underlying buffer (not a copy).
func (r *Reader) Bytes() []byte { return r.buf }

// Seek moves the cursor to an absolute position. It is an error to seek
// outside [0, Len()].
func (r *Reader) Seek(pos int64) error {
	if pos < 0 || pos > int64(len(r.buf)) {
		return errs.Atf(errs.Truncated, pos, "seek out of range (len %d)", len(r.buf))
	}
	r.pos = pos
	return nil
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int64) error { return r.Seek(r.pos + n) }

func (r *Reader) sliceAt(pos, n int64) ([]byte, error) {
	if pos < 0 || n < 0 || pos+n > int64(len(r.buf)) {
		return nil, errs.Atf(errs.Truncated, pos, "need %d bytes, have %d", n, int64(len(r.buf))-pos)
	}
	return r.buf[pos : pos+n], nil
}

// PeekAt returns n bytes at an absolute position without moving Pos.
func (r *Reader) PeekAt(pos int64, n int) ([]byte, error) {
	return r.sliceAt(pos, int64(n))
}

// Peek returns n bytes at the current position without moving Pos.
func (r *Reader) Peek(n int) ([]byte, error) {
	return r.sliceAt(r.pos, int64(n))
}

// ReadBytes reads and returns n bytes, advancing Pos by n.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	b, err := r.sliceAt(r.pos, int64(n))
	if err != nil {
		return nil, err
	}
	r.pos += int64(n)
	return b, nil
}

// ReadU8 reads one byte.
func (r *Reader) ReadU8() (uint8, error) {
	b, err := r.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// PeekU8 peeks one byte at the current position.
func (r *Reader) PeekU8() (uint8, error) {
	b, err := r.Peek(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// PeekU8At peeks one byte at an absolute position.
func (r *Reader) PeekU8At(pos int64) (uint8, error) {
	b, err := r.PeekAt(pos, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadU16LE reads a little-endian uint16.
func (r *Reader) ReadU16LE() (uint16, error) {
	b, err := r.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadU16BE reads a big-endian uint16.
func (r *Reader) ReadU16BE() (uint16, error) {
	b, err := r.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// PeekU16LE peeks a little-endian uint16 at the current position.
func (r *Reader) PeekU16LE() (uint16, error) {
	b, err := r.Peek(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// PeekU16LEAt peeks a little-endian uint16 at an absolute position.
func (r *Reader) PeekU16LEAt(pos int64) (uint16, error) {
	b, err := r.PeekAt(pos, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadU32LE reads a little-endian uint32.
func (r *Reader) ReadU32LE() (uint32, error) {
	b, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadU32BE reads a big-endian uint32.
func (r *Reader) ReadU32BE() (uint32, error) {
	b, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// PeekU32LE peeks a little-endian uint32 at the current position.
func (r *Reader) PeekU32LE() (uint32, error) {
	b, err := r.Peek(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// PeekU32LEAt peeks a little-endian uint32 at an absolute position.
func (r *Reader) PeekU32LEAt(pos int64) (uint32, error) {
	b, err := r.PeekAt(pos, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// PeekU32BEAt peeks a big-endian uint32 at an absolute position.
func (r *Reader) PeekU32BEAt(pos int64) (uint32, error) {
	b, err := r.PeekAt(pos, 4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// ReadU64LE reads a little-endian uint64.
func (r *Reader) ReadU64LE() (uint64, error) {
	b, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadU64BE reads a big-endian uint64.
func (r *Reader) ReadU64BE() (uint64, error) {
	b, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// PeekU64LEAt peeks a little-endian uint64 at an absolute position.
func (r *Reader) PeekU64LEAt(pos int64) (uint64, error) {
	b, err := r.PeekAt(pos, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadI32LE reads a little-endian int32.
func (r *Reader) ReadI32LE() (int32, error) {
	v, err := r.ReadU32LE()
	return int32(v), err
}

// ReadI16LE reads a little-endian int16.
func (r *Reader) ReadI16LE() (int16, error) {
	v, err := r.ReadU16LE()
	return int16(v), err
}

// ReadCString reads bytes up to (and consuming) the next NUL at or after
// the current position, returning the bytes before the NUL.
func (r *Reader) ReadCString() ([]byte, error) {
	i := r.pos
	for i < int64(len(r.buf)) && r.buf[i] != 0 {
		i++
	}
	if i >= int64(len(r.buf)) {
		return nil, errs.At(errs.Truncated, r.pos, "unterminated C string")
	}
	s := r.buf[r.pos:i]
	r.pos = i + 1
	return s, nil
}

// PeekCStringAt peeks a NUL-terminated string (not including the NUL) at an
// absolute position, without moving Pos.
func (r *Reader) PeekCStringAt(pos int64) ([]byte, error) {
	if pos < 0 || pos > int64(len(r.buf)) {
		return nil, errs.At(errs.Truncated, pos, "position out of range")
	}
	i := pos
	for i < int64(len(r.buf)) && r.buf[i] != 0 {
		i++
	}
	if i >= int64(len(r.buf)) {
		return nil, errs.At(errs.Truncated, pos, "unterminated C string")
	}
	return r.buf[pos:i], nil
}

// ReadVarInt reads a 7-bits-per-byte variable-length unsigned integer, MSB
// of each byte a continuation flag, matching BGI CBG's weight-table codec.
func (r *Reader) ReadVarInt() (uint32, error) {
	start := r.pos
	var result uint32
	var shift uint
	for {
		b, err := r.ReadU8()
		if err != nil {
			r.pos = start
			return 0, err
		}
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= 32 {
			end := r.pos
			r.pos = start
			return 0, errs.At(errs.Truncated, end, "varint too long")
		}
	}
}
