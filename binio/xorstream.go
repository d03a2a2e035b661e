package binio

// XoredKeyStream applies a repeating multi-byte XOR key to a byte slice,
// position-dependent so that decrypting a sub-slice of a larger stream at a
// nonzero base offset still lines up with the key the way it would if the
// whole stream had been decrypted from position 0 (grounded on the Rust
// original's XoredKeyStream, `utils/xored_stream.rs`).
type XoredKeyStream struct {
	Key  []byte
	Base int64 // base offset added to the stream position before indexing Key
}

// Apply XORs buf in place as if it were read starting at absolute stream
// position pos.
func (x XoredKeyStream) Apply(buf []byte, pos int64) {
	if len(x.Key) == 0 {
		return
	}
	start := (pos + x.Base) % int64(len(x.Key))
	for i := range buf {
		buf[i] ^= x.Key[(start+int64(i))%int64(len(x.Key))]
	}
}

// XoredByteStream applies a single repeating byte XOR key, the degenerate
// one-byte case of XoredKeyStream used by several BGI obfuscation variants.
type XoredByteStream struct {
	Key byte
}

// Apply XORs buf in place with the single-byte key.
func (x XoredByteStream) Apply(buf []byte) {
	for i := range buf {
		buf[i] ^= x.Key
	}
}
