package prefix

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMSBBitStreamDuality(t *testing.T) {
	w := NewMSBWriter()
	values := []struct {
		v uint32
		n uint
	}{
		{0x1, 1}, {0x3, 2}, {0x2a, 6}, {0xff, 8}, {0x123, 12},
	}
	for _, tc := range values {
		w.PutBits(tc.v, tc.n)
	}
	buf := w.Flush()

	r := NewMSBReader(buf, 0)
	for _, tc := range values {
		got, err := r.GetBits(tc.n)
		if err != nil {
			t.Fatalf("GetBits: %v", err)
		}
		if got != tc.v {
			t.Errorf("GetBits(%d) = %#x, want %#x", tc.n, got, tc.v)
		}
	}
}

func TestLSBBitStreamDuality(t *testing.T) {
	w := NewLSBWriter()
	values := []struct {
		v uint32
		n uint
	}{
		{0x1, 1}, {0x3, 2}, {0x2a, 6}, {0xff, 8}, {0x123, 12},
	}
	for _, tc := range values {
		w.PutBits(tc.v, tc.n)
	}
	buf := w.Flush()

	r := NewLSBReader(buf, 0)
	for _, tc := range values {
		got, err := r.GetBits(tc.n)
		if err != nil {
			t.Fatalf("GetBits: %v", err)
		}
		if got != tc.v {
			t.Errorf("GetBits(%d) = %#x, want %#x", tc.n, got, tc.v)
		}
	}
}

// collectCodes walks a tree to record the bit sequence assigned to each
// leaf value, for checking Huffman uniqueness (Testable Property 6): every
// leaf's code is a prefix of no other leaf's code.
func collectCodes(t *Tree, idx int, path []int, out map[int][]int) {
	n := t.nodes[idx]
	if !n.isParent {
		cp := append([]int(nil), path...)
		out[n.value] = cp
		return
	}
	collectCodes(t, n.left, append(path, 0), out)
	collectCodes(t, n.right, append(path, 1), out)
}

func isPrefixOf(a, b []int) bool {
	if len(a) >= len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestHuffmanUniqueness(t *testing.T) {
	weights := []uint32{0, 5, 0, 3, 2, 0, 1, 1}
	tree := BuildFromWeights(weights, false)
	codes := make(map[int][]int)
	collectCodes(tree, tree.root, nil, codes)

	if len(codes) != 5 {
		t.Fatalf("expected 5 leaves, got %d", len(codes))
	}
	for v1, c1 := range codes {
		for v2, c2 := range codes {
			if v1 == v2 {
				continue
			}
			if isPrefixOf(c1, c2) {
				t.Errorf("code for %d (%v) is a prefix of code for %d (%v)", v1, c1, v2, c2)
			}
		}
	}
}

func TestHuffmanWeightTableDecodeScenario(t *testing.T) {
	// Scenario S2: weight table [2,1,1] (symbols A=0,B=1,C=2 conceptually),
	// bit stream "0, 10, 11" decodes to the three symbols in order.
	tree := BuildFromWeights([]uint32{2, 1, 1}, false)
	w := NewMSBWriter()
	w.PutBits(0, 1)
	w.PutBits(0b10, 2)
	w.PutBits(0b11, 2)
	buf := w.Flush()
	r := NewMSBReader(buf, 0)

	var got []int
	for i := 0; i < 3; i++ {
		v, err := tree.DecodeMSB(r)
		if err != nil {
			t.Fatalf("DecodeMSB: %v", err)
		}
		got = append(got, v)
	}
	want := []int{0, 1, 2}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("decode mismatch (-want +got):\n%s", diff)
	}
}

func TestLZWRoundTrip(t *testing.T) {
	input := []byte("the quick brown fox jumps over the lazy dog the quick brown fox")
	enc := EncodeLZW(input)
	got, err := DecodeLZW(enc, len(input))
	if err != nil {
		t.Fatalf("DecodeLZW: %v", err)
	}
	if diff := cmp.Diff(input, got); diff != "" {
		t.Errorf("LZW round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeDSCLiteralsOnly(t *testing.T) {
	// Depth table: three symbols (0,1,2) all at depth 2 is not prefix-free
	// with 3 leaves, so use a simple 2-leaf depth-1 table for a literal
	// round trip.
	depths := make([]int, 256)
	depths[65] = 1
	depths[66] = 1
	tree := BuildFromDepths(depths)

	w := NewMSBWriter()
	w.PutBits(0, 1)
	w.PutBits(1, 1)
	w.PutBits(0, 1)
	buf := w.Flush()
	r := NewMSBReader(buf, 0)

	out, err := DecodeDSC(tree, r, 3)
	if err != nil {
		t.Fatalf("DecodeDSC: %v", err)
	}
	want := []byte{65, 66, 65}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("decode mismatch (-want +got):\n%s", diff)
	}
}
