package prng

// RC4 is a standard key-scheduled RC4 stream cipher state, grounded on the
// Rust original's `utils/rc4.rs`.
type RC4 struct {
	state [256]byte
	i, j  uint8
}

// NewRC4 runs the key-scheduling algorithm over key and returns a ready
// stream.
func NewRC4(key []byte) *RC4 {
	r := &RC4{}
	for i := range r.state {
		r.state[i] = uint8(i)
	}
	var j uint8
	for i := 0; i < 256; i++ {
		j = j + r.state[i] + key[i%len(key)]
		r.state[i], r.state[j] = r.state[j], r.state[i]
	}
	return r
}

// NextByte produces the next keystream byte via the standard PRGA step.
func (r *RC4) NextByte() byte {
	r.i++
	r.j += r.state[r.i]
	r.state[r.i], r.state[r.j] = r.state[r.j], r.state[r.i]
	return r.state[r.state[r.i]+r.state[r.j]]
}

// SkipBytes discards n keystream bytes, useful when a format's RC4 stream
// begins at a nonzero logical offset.
func (r *RC4) SkipBytes(n int) {
	for i := 0; i < n; i++ {
		r.NextByte()
	}
}

// GenerateBlock fills all of buf with fresh keystream bytes.
func (r *RC4) GenerateBlock(buf []byte) {
	for i := range buf {
		buf[i] = r.NextByte()
	}
}

// ProcessBlock XORs buf in place with the keystream, encrypting or
// decrypting depending on which direction buf already was.
func (r *RC4) ProcessBlock(buf []byte) {
	for i := range buf {
		buf[i] ^= r.NextByte()
	}
}
