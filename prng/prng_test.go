package prng

import "testing"

func TestMT19937FirstOutputs(t *testing.T) {
	m := NewMT(MT19937, 5489)
	// Reference first two 32-bit outputs of the canonical MT19937 seeded
	// with the standard default seed 5489.
	want := []uint32{3499211612, 581869302}
	for i, w := range want {
		got := m.Next()
		if got != w {
			t.Errorf("output[%d] = %d, want %d", i, got, w)
		}
	}
}

func TestMTIndexAlwaysInRange(t *testing.T) {
	m := NewMT(QlieMT, 12345)
	for i := 0; i < 1000; i++ {
		m.Next()
		if m.index < 0 || m.index > m.p.StateLength {
			t.Fatalf("index %d out of range [0, %d]", m.index, m.p.StateLength)
		}
	}
}

func TestRC4KnownAnswer(t *testing.T) {
	// RFC 6229 test vector: key "Key", plaintext "Plaintext".
	rc4 := NewRC4([]byte("Key"))
	buf := []byte("Plaintext")
	rc4.ProcessBlock(buf)
	want := []byte{0xBB, 0xF3, 0x16, 0xE8, 0xD9, 0x40, 0xAF, 0x0A, 0xD3}
	for i := range want {
		if buf[i] != want[i] {
			t.Errorf("byte[%d] = %#x, want %#x", i, buf[i], want[i])
		}
	}
}

func TestRC4RoundTrip(t *testing.T) {
	key := []byte("a shared secret")
	plain := []byte("the quick brown fox jumps over the lazy dog")

	enc := NewRC4(key)
	cipher := append([]byte(nil), plain...)
	enc.ProcessBlock(cipher)

	dec := NewRC4(key)
	recovered := append([]byte(nil), cipher...)
	dec.ProcessBlock(recovered)

	for i := range plain {
		if recovered[i] != plain[i] {
			t.Fatalf("round trip mismatch at byte %d: got %#x want %#x", i, recovered[i], plain[i])
		}
	}
}

func TestCBGKeyStreamDeterministic(t *testing.T) {
	s1 := NewCBGKeyStream(0x1234, 0xdeadbeef)
	s2 := NewCBGKeyStream(0x1234, 0xdeadbeef)
	for i := 0; i < 16; i++ {
		a, b := s1.NextByte(), s2.NextByte()
		if a != b {
			t.Fatalf("byte %d diverged: %#x vs %#x", i, a, b)
		}
	}
}

func TestEscudeKeyStreamCloneIndependence(t *testing.T) {
	s := NewEscudeKeyStream(0xcafef00d)
	clone := s.Clone()
	clone.Next()
	clone.Next()
	// The clone's advances must not affect the original's sequence.
	want := NewEscudeKeyStream(0xcafef00d).Next()
	got := s.Next()
	if got != want {
		t.Errorf("original stream was perturbed by clone: got %#x want %#x", got, want)
	}
}
