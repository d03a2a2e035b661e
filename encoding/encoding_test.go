package encoding

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDetectBOM(t *testing.T) {
	vectors := []struct {
		data []byte
		bom  BomType
		n    int
	}{
		{[]byte{0xEF, 0xBB, 0xBF, 'h', 'i'}, BomUTF8, 3},
		{[]byte{0xFF, 0xFE, 'h', 0}, BomUTF16LE, 2},
		{[]byte{0xFE, 0xFF, 0, 'h'}, BomUTF16BE, 2},
		{[]byte("hello"), BomNone, 0},
		{[]byte{}, BomNone, 0},
	}
	for _, v := range vectors {
		bom, n := DetectBOM(v.data)
		if bom != v.bom || n != v.n {
			t.Errorf("DetectBOM(%v) = (%v, %d), want (%v, %d)", v.data, bom, n, v.bom, v.n)
		}
	}
}

func TestDecodeUTF8RoundTrip(t *testing.T) {
	want := "hello, world"
	got, err := Decode(UTF8, []byte(want), true)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Decode mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeShiftJIS(t *testing.T) {
	// U+3042 (HIRAGANA LETTER A) encodes to 0x82A0 in Shift-JIS.
	data := []byte{0x82, 0xA0}
	got, err := Decode(ShiftJIS, data, true)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := string(rune(0x3042))
	if got != want {
		t.Errorf("Decode(ShiftJIS) = %q, want %q", got, want)
	}
}

func TestEncodeShiftJISRoundTrip(t *testing.T) {
	s := string([]rune{0x3053, 0x3093, 0x306b, 0x3061, 0x306f})
	enc, err := Encode(ShiftJIS, s, true)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	dec, err := Decode(ShiftJIS, enc, true)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if dec != s {
		t.Errorf("round trip mismatch: got %q, want %q", dec, s)
	}
}

func TestAutoPrefersUTF8(t *testing.T) {
	got, err := Decode(Auto, []byte("plain ascii"), true)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != "plain ascii" {
		t.Errorf("Decode(Auto) = %q", got)
	}
}

func TestEncodeUTF16RoundTrip(t *testing.T) {
	s := "test" + string(rune(0xe9))
	le := encodeUTF16(s, false)
	got, _, err := decodeUTF16(le, false, true)
	if err != nil {
		t.Fatalf("decodeUTF16: %v", err)
	}
	if got != s {
		t.Errorf("round trip mismatch: got %q, want %q", got, s)
	}
}

func TestTruncateNeverExceedsBudget(t *testing.T) {
	s := "cafe" + string(rune(0x301)) + "xyz"
	for n := 0; n <= len(s); n++ {
		out := Truncate(s, n, "")
		if len(out) > n {
			t.Errorf("Truncate(%q, %d) = %q, longer than budget", s, n, out)
		}
	}
}

func TestTruncateBytesRespectsSuffixBudget(t *testing.T) {
	s := "a very long line of plain ascii text that needs cutting"
	out := TruncateBytes(s, 10, "...")
	if len(out) > 10 {
		t.Errorf("TruncateBytes result %q exceeds budget of 10 bytes (%d)", out, len(out))
	}
}
