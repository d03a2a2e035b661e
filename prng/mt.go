// Package prng implements the PRNG and obfuscation kit (spec component C4):
// a parameterized Mersenne Twister family, RC4, and the linear BGI key
// streams used to decrypt DSC/CBG headers and Escude archive indices.
package prng

// MTParams names one Mersenne Twister instantiation. The corpus uses three:
// classic MT19937, Qlie's short-state 64/39 variant, and a compact 64-state
// variant with linear-congruential seeding (CatSystem's archive key
// stream). Sharing the twist/temper code across them is a property of this
// implementation, not a requirement of any one format.
type MTParams struct {
	StateLength int
	ShiftM      int
	MatrixA     uint32
	TemperingB  uint32
	TemperingC  uint32
	DefaultSeed uint32
	UpperMask   uint32
	LowerMask   uint32
}

// MT19937 is the classic 624-word Mersenne Twister, used by CatSystem.
var MT19937 = MTParams{
	StateLength: 624,
	ShiftM:      397,
	MatrixA:     0x9908b0df,
	TemperingB:  0x9d2c5680,
	TemperingC:  0xefc60000,
	DefaultSeed: 5489,
	UpperMask:   0x80000000,
	LowerMask:   0x7fffffff,
}

// QlieMT is Qlie's short-state variant: 64 words, m=39.
var QlieMT = MTParams{
	StateLength: 64,
	ShiftM:      39,
	MatrixA:     0x9908b0df,
	TemperingB:  0x9c4f88e3,
	TemperingC:  0xe7f70000,
	DefaultSeed: 5489,
	UpperMask:   0x80000000,
	LowerMask:   0x7fffffff,
}

// CatSystemMT is CatSystem's compact archive key-stream variant: a 64-word
// state seeded by a plain linear-congruential recurrence rather than the
// Knuth-style mixing Seed uses, instantiated via SeedLCG.
var CatSystemMT = MTParams{
	StateLength: 64,
	ShiftM:      39,
	MatrixA:     0x9908b0df,
	TemperingB:  0x9c4f88e3,
	TemperingC:  0xe7f70000,
	DefaultSeed: 5489,
	UpperMask:   0x80000000,
	LowerMask:   0x7fffffff,
}

// MT is a Mersenne Twister generator for a given parameter set.
type MT struct {
	p     MTParams
	state []uint32
	index int
}

// NewMT builds a generator for the given parameters, seeded with seed. If
// seed is 0, p.DefaultSeed is used.
func NewMT(p MTParams, seed uint32) *MT {
	if seed == 0 {
		seed = p.DefaultSeed
	}
	m := &MT{p: p, state: make([]uint32, p.StateLength)}
	m.Seed(seed)
	return m
}

// Seed re-seeds the generator using the standard Knuth-style linear
// recurrence: state[i] = 0x6c078965*(state[i-1] ^ (state[i-1]>>30)) + i.
func (m *MT) Seed(seed uint32) {
	m.state[0] = seed
	for i := 1; i < m.p.StateLength; i++ {
		prev := m.state[i-1]
		m.state[i] = 0x6c078965*(prev^(prev>>30)) + uint32(i)
	}
	m.index = m.p.StateLength
}

// SeedFromBytes XORs successive little-endian uint32 words taken from key
// into the current state, matching Qlie's archive key-expansion step
// (`xor_state`). At most min(len(key)/4, StateLength) words are consumed.
func (m *MT) SeedFromBytes(key []byte) {
	n := len(key) / 4
	if n > m.p.StateLength {
		n = m.p.StateLength
	}
	for i := 0; i < n; i++ {
		w := uint32(key[4*i]) | uint32(key[4*i+1])<<8 | uint32(key[4*i+2])<<16 | uint32(key[4*i+3])<<24
		m.state[i] ^= w
	}
}

// SeedLCG re-seeds the state with a plain linear-congruential recurrence
// (state[i] = mult*state[i-1] + incr), the seeding CatSystem's archive key
// stream uses in place of Seed's Knuth-style mixing.
func (m *MT) SeedLCG(seed, mult, incr uint32) {
	m.state[0] = seed
	for i := 1; i < m.p.StateLength; i++ {
		m.state[i] = mult*m.state[i-1] + incr
	}
	m.index = m.p.StateLength
}

func (m *MT) generate() {
	n := m.p.StateLength
	for i := 0; i < n; i++ {
		y := (m.state[i] & m.p.UpperMask) | (m.state[(i+1)%n] & m.p.LowerMask)
		next := m.state[(i+m.p.ShiftM)%n] ^ (y >> 1)
		if y&1 != 0 {
			next ^= m.p.MatrixA
		}
		m.state[i] = next
	}
	m.index = 0
}

// Next returns the next 32-bit output, tempering and re-twisting as needed.
func (m *MT) Next() uint32 {
	if m.index >= m.p.StateLength {
		m.generate()
	}
	y := m.state[m.index]
	m.index++

	y ^= y >> 11
	y ^= (y << 7) & m.p.TemperingB
	y ^= (y << 15) & m.p.TemperingC
	y ^= y >> 18
	return y
}

// Next64 combines two Next() calls into a 64-bit value, low half first,
// matching Qlie's rand64.
func (m *MT) Next64() uint64 {
	lo := uint64(m.Next())
	hi := uint64(m.Next())
	return lo | (hi << 32)
}
