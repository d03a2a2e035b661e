package prefix

import "github.com/dsnet/vnscript/internal/errs"

// DecodeDSC decodes the DSC variant: a Huffman tree (built from a depth
// table by the caller, via BuildFromDepths) whose leaves double as an LZSS
// alphabet. A leaf value < 256 is a literal byte; a leaf value >= 256 means
// "copy ((leaf & 0xff) + 2) bytes from offset (get_bits(12) + 2) back in
// the output".
func DecodeDSC(tree *Tree, r *MSBReader, outSize int) ([]byte, error) {
	out := make([]byte, 0, outSize)
	for len(out) < outSize {
		leaf, err := tree.DecodeMSB(r)
		if err != nil {
			return nil, err
		}
		if leaf < 256 {
			out = append(out, byte(leaf))
			continue
		}
		length := (leaf & 0xff) + 2
		distBits, err := r.GetBits(12)
		if err != nil {
			return nil, err
		}
		distance := int(distBits) + 2
		start := len(out) - distance
		if start < 0 {
			return nil, errs.Newf(errs.BadOpcode, "DSC back-reference distance %d exceeds output length %d", distance, len(out))
		}
		for i := 0; i < length; i++ {
			out = append(out, out[start+i])
		}
	}
	if len(out) > outSize {
		out = out[:outSize]
	}
	return out, nil
}
