package prefix

import "github.com/dsnet/vnscript/internal/errs"

const lzwDictCapacity = 0x8900

// DecodeLZW decodes the Escude archive's LZW variant: a 9-bit token width
// that grows on demand, with reserved control tokens 0x100 (end of
// stream), 0x101 (widen token by one bit, max 24), and 0x102 (clear
// dictionary). Unlike textbook LZW, the dictionary here does not store
// byte strings directly; it records, for each token emitted, the output
// position it started at, so a back-reference token copies the span
// between two recorded positions straight out of the output buffer being
// built.
func DecodeLZW(src []byte, outSize int) ([]byte, error) {
	r := NewMSBReader(src, 0)
	output := make([]byte, outSize)
	dict := make([]uint32, lzwDictCapacity+1)
	tokenWidth := uint(9)
	dictPos := 0
	dst := 0

	for dst < outSize {
		token, err := r.GetBits(tokenWidth)
		if err != nil {
			return nil, err
		}
		switch {
		case token == 0x100:
			return output[:dst], nil
		case token == 0x101:
			tokenWidth++
			if tokenWidth > 24 {
				return nil, errs.New(errs.BadOpcode, "LZW token width exceeded maximum of 24 bits")
			}
		case token == 0x102:
			tokenWidth = 9
			dictPos = 0
		default:
			if dictPos > lzwDictCapacity {
				return nil, errs.New(errs.BadOpcode, "LZW dictionary position exceeded capacity")
			}
			dict[dictPos] = uint32(dst)
			dictPos++
			if token < 0x100 {
				output[dst] = byte(token)
				dst++
			} else {
				idx := token - 0x103
				if int(idx) >= dictPos {
					return nil, errs.Newf(errs.BadOpcode, "LZW token out of bounds: %d", idx)
				}
				src := dict[idx]
				count := uint32(outSize-dst)
				if bound := dict[idx+1] - src + 1; bound < count {
					count = bound
				}
				for i := uint32(0); i < count; i++ {
					output[dst+int(i)] = output[int(src)+int(i)]
				}
				dst += int(count)
			}
		}
	}
	return output, nil
}

// EncodeLZW is the inverse of DecodeLZW: it greedily extends the longest
// known dictionary match at each position, emitting a code and, each time
// the dictionary grows past the current token width, a widen-token control
// code; the dictionary is cleared (and token width reset) once it reaches
// capacity.
func EncodeLZW(input []byte) []byte {
	w := NewMSBWriter()
	dict := make(map[string]uint32, 256)
	for i := 0; i < 256; i++ {
		dict[string([]byte{byte(i)})] = uint32(i)
	}
	nextCode := uint32(0x103)
	tokenWidth := uint(9)

	i := 0
	for i < len(input) {
		current := string(input[i : i+1])
		i++
		for i < len(input) {
			ext := current + string(input[i:i+1])
			if _, ok := dict[ext]; !ok {
				break
			}
			current = ext
			i++
		}
		w.PutBits(dict[current], tokenWidth)

		if i < len(input) {
			newEntry := current + string(input[i:i+1])
			dict[newEntry] = nextCode
			nextCode++

			if nextCode >= (1<<tokenWidth) && tokenWidth < 24 {
				w.PutBits(0x101, tokenWidth)
				tokenWidth++
			}

			if len(dict) >= lzwDictCapacity {
				w.PutBits(0x102, tokenWidth)
				dict = make(map[string]uint32, 256)
				for j := 0; j < 256; j++ {
					dict[string([]byte{byte(j)})] = uint32(j)
				}
				nextCode = 0x103
				tokenWidth = 9
			}
		}
	}
	w.PutBits(0x100, tokenWidth)
	return w.Flush()
}
