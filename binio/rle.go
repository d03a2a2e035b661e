package binio

import "github.com/dsnet/vnscript/internal/errs"

// DecodeRLE128 decodes the Emote/Qlie run-length codec: each control byte's
// high bit selects a literal run (low 7 bits + 1 literal bytes follow) or a
// repeat run (low 7 bits + 1 copies of the single byte that follows).
func DecodeRLE128(src []byte, outSize int) ([]byte, error) {
	out := make([]byte, 0, outSize)
	i := 0
	for len(out) < outSize {
		if i >= len(src) {
			return nil, errs.At(errs.Truncated, int64(i), "RLE stream exhausted before output size reached")
		}
		ctl := src[i]
		i++
		count := int(ctl&0x7f) + 1
		if ctl&0x80 != 0 {
			if i+count > len(src) {
				return nil, errs.At(errs.Truncated, int64(i), "RLE literal run truncated")
			}
			out = append(out, src[i:i+count]...)
			i += count
		} else {
			if i >= len(src) {
				return nil, errs.At(errs.Truncated, int64(i), "RLE repeat run truncated")
			}
			b := src[i]
			i++
			for j := 0; j < count; j++ {
				out = append(out, b)
			}
		}
	}
	return out[:outSize], nil
}

// EncodeRLE128 is the inverse of DecodeRLE128: it greedily emits repeat runs
// where three or more consecutive bytes match, and literal runs otherwise,
// each run capped at 128 bytes per the control-byte width.
func EncodeRLE128(src []byte) []byte {
	var out []byte
	i := 0
	for i < len(src) {
		runLen := 1
		for i+runLen < len(src) && src[i+runLen] == src[i] && runLen < 128 {
			runLen++
		}
		if runLen >= 3 {
			out = append(out, byte(runLen-1), src[i])
			i += runLen
			continue
		}
		// Accumulate a literal run until a repeat run of length >= 3 appears.
		start := i
		i++
		for i < len(src) {
			lookahead := 1
			for i+lookahead < len(src) && src[i+lookahead] == src[i] && lookahead < 128 {
				lookahead++
			}
			if lookahead >= 3 {
				break
			}
			i++
			if i-start >= 128 {
				break
			}
		}
		litLen := i - start
		out = append(out, byte(litLen-1)|0x80)
		out = append(out, src[start:i]...)
	}
	return out
}
