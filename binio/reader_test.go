package binio

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPeekNeutrality(t *testing.T) {
	r := NewReader([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	before := r.Pos()
	if _, err := r.Peek(4); err != nil {
		t.Fatalf("Peek: %v", err)
	}
	if r.Pos() != before {
		t.Errorf("Peek moved Pos from %d to %d", before, r.Pos())
	}
	// A failing peek must also leave Pos untouched.
	if _, err := r.Peek(100); err == nil {
		t.Fatalf("expected error peeking past end")
	}
	if r.Pos() != before {
		t.Errorf("failed Peek moved Pos from %d to %d", before, r.Pos())
	}
}

func TestReadAdvancesPos(t *testing.T) {
	r := NewReader([]byte{0x01, 0x00, 0x02, 0x00})
	v, err := r.ReadU16LE()
	if err != nil {
		t.Fatalf("ReadU16LE: %v", err)
	}
	if v != 1 {
		t.Errorf("ReadU16LE = %d, want 1", v)
	}
	if r.Pos() != 2 {
		t.Errorf("Pos = %d, want 2", r.Pos())
	}
}

func TestReadFailureLeavesPosUnchanged(t *testing.T) {
	r := NewReader([]byte{1, 2})
	before := r.Pos()
	if _, err := r.ReadU32LE(); err == nil {
		t.Fatalf("expected truncation error")
	}
	if r.Pos() != before {
		t.Errorf("failed ReadU32LE moved Pos from %d to %d", before, r.Pos())
	}
}

func TestReadCString(t *testing.T) {
	r := NewReader([]byte("hello\x00world"))
	s, err := r.ReadCString()
	if err != nil {
		t.Fatalf("ReadCString: %v", err)
	}
	if string(s) != "hello" {
		t.Errorf("ReadCString = %q, want %q", s, "hello")
	}
	if r.Pos() != 6 {
		t.Errorf("Pos = %d, want 6", r.Pos())
	}
}

func TestReadVarInt(t *testing.T) {
	// 300 = 0b1_0010_1100 -> low7=0101100(0x2c)|cont, next=0b10(0x02)
	r := NewReader([]byte{0xAC, 0x02})
	v, err := r.ReadVarInt()
	if err != nil {
		t.Fatalf("ReadVarInt: %v", err)
	}
	if v != 300 {
		t.Errorf("ReadVarInt = %d, want 300", v)
	}
}

func TestWriterPositionalPatch(t *testing.T) {
	w := NewWriter()
	w.WriteU32LE(0) // placeholder
	w.WriteCString([]byte("payload"))
	if err := w.WriteU32At(0, uint32(w.Len())); err != nil {
		t.Fatalf("WriteU32At: %v", err)
	}
	r := NewReader(w.Bytes())
	patched, err := r.ReadU32LE()
	if err != nil {
		t.Fatalf("ReadU32LE: %v", err)
	}
	if int64(patched) != w.Len() {
		t.Errorf("patched length = %d, want %d", patched, w.Len())
	}
}

func TestRLE128RoundTrip(t *testing.T) {
	src := []byte{1, 1, 1, 1, 1, 2, 3, 4, 5, 5, 5, 5, 5, 5, 5, 9}
	enc := EncodeRLE128(src)
	dec, err := DecodeRLE128(enc, len(src))
	if err != nil {
		t.Fatalf("DecodeRLE128: %v", err)
	}
	if diff := cmp.Diff(src, dec); diff != "" {
		t.Errorf("RLE round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestXoredKeyStreamPositionDependent(t *testing.T) {
	key := []byte{0xAA, 0xBB, 0xCC}
	xs := XoredKeyStream{Key: key}
	plain := []byte("hello world this is a test")
	buf := append([]byte(nil), plain...)
	xs.Apply(buf, 0)
	// Decrypting in two pieces at the right base offsets must match
	// decrypting the whole buffer at once.
	whole := append([]byte(nil), buf...)
	xs.Apply(whole, 0)
	if diff := cmp.Diff(plain, whole); diff != "" {
		t.Errorf("XoredKeyStream round trip mismatch (-want +got):\n%s", diff)
	}
	split := append([]byte(nil), buf...)
	xs.Apply(split[:10], 0)
	xs.Apply(split[10:], 10)
	if diff := cmp.Diff(plain, split); diff != "" {
		t.Errorf("XoredKeyStream split-decrypt mismatch (-want +got):\n%s", diff)
	}
}
