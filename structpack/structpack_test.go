package structpack

import (
	"testing"

	"github.com/dsnet/vnscript/binio"
)

type cbgHeader struct {
	Width              uint16
	Height             uint16
	Bpp                uint32
	Unknown            uint64 `struct:"skip"`
	IntermediateLength uint32
	Key                uint32
	EncLength          uint32
	CheckSum           uint8
	CheckXor           uint8
	Version            uint16
}

func TestUnpackNativeFields(t *testing.T) {
	// Unknown is `skip`, so it is not present on the wire at all.
	w := binio.NewWriter()
	w.WriteU16LE(640)
	w.WriteU16LE(480)
	w.WriteU32LE(32)
	w.WriteU32LE(1000)
	w.WriteU32LE(0x1234)
	w.WriteU32LE(2000)
	w.WriteU8(42)
	w.WriteU8(7)
	w.WriteU16LE(1)

	r := binio.NewReader(w.Bytes())
	var h cbgHeader
	if err := Unpack(r, &h); err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if h.Width != 640 || h.Height != 480 || h.Bpp != 32 {
		t.Errorf("dims mismatch: %+v", h)
	}
	if h.Unknown != 0 {
		t.Errorf("skip field should default to zero, got %d", h.Unknown)
	}
	if h.IntermediateLength != 1000 || h.Key != 0x1234 || h.EncLength != 2000 {
		t.Errorf("mid fields mismatch: %+v", h)
	}
	if h.CheckSum != 42 || h.CheckXor != 7 || h.Version != 1 {
		t.Errorf("tail fields mismatch: %+v", h)
	}
}

type fixedStringRecord struct {
	Name string `struct:"fstring=8"`
}

func TestFixedStringTrimsTrailingZeros(t *testing.T) {
	w := binio.NewWriter()
	w.WriteBytes([]byte("abc\x00\x00\x00\x00\x00"))
	r := binio.NewReader(w.Bytes())
	var rec fixedStringRecord
	if err := Unpack(r, &rec); err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if rec.Name != "abc" {
		t.Errorf("Name = %q, want %q", rec.Name, "abc")
	}
}

func TestFixedStringRoundTrip(t *testing.T) {
	rec := fixedStringRecord{Name: "hi"}
	w := binio.NewWriter()
	if err := Pack(w, rec); err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if w.Len() != 8 {
		t.Fatalf("packed length = %d, want 8", w.Len())
	}
	r := binio.NewReader(w.Bytes())
	var got fixedStringRecord
	if err := Unpack(r, &got); err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if got.Name != "hi" {
		t.Errorf("Name = %q, want %q", got.Name, "hi")
	}
}

type pstringRecord struct {
	Value string `struct:"pstring=u16"`
}

func TestPStringRoundTrip(t *testing.T) {
	rec := pstringRecord{Value: "a prefixed string"}
	w := binio.NewWriter()
	if err := Pack(w, rec); err != nil {
		t.Fatalf("Pack: %v", err)
	}
	r := binio.NewReader(w.Bytes())
	var got pstringRecord
	if err := Unpack(r, &got); err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if got.Value != rec.Value {
		t.Errorf("Value = %q, want %q", got.Value, rec.Value)
	}
}

type fvecRecord struct {
	Entries []uint32 `struct:"fvec=3"`
}

func TestFvecRejectsWrongLength(t *testing.T) {
	rec := fvecRecord{Entries: []uint32{1, 2}}
	w := binio.NewWriter()
	if err := Pack(w, rec); err == nil {
		t.Fatalf("expected error packing wrong-length fvec")
	}
}

func TestFvecRoundTrip(t *testing.T) {
	rec := fvecRecord{Entries: []uint32{10, 20, 30}}
	w := binio.NewWriter()
	if err := Pack(w, rec); err != nil {
		t.Fatalf("Pack: %v", err)
	}
	r := binio.NewReader(w.Bytes())
	var got fvecRecord
	if err := Unpack(r, &got); err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if len(got.Entries) != 3 || got.Entries[0] != 10 || got.Entries[2] != 30 {
		t.Errorf("Entries = %v", got.Entries)
	}
}
