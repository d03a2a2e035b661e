package kirikiri

import (
	"io"

	"github.com/cespare/xxhash/v2"
)

// SegmenterKind selects how AddFile splits an incoming stream into
// independently-storable segments.
type SegmenterKind string

const (
	// SegmenterNone stores every file as one segment.
	SegmenterNone SegmenterKind = "none"
	// SegmenterFastCDC uses content-defined chunking, so inserting or
	// deleting bytes near the start of a file only changes the segments
	// touching the edit, not every segment after it.
	SegmenterFastCDC SegmenterKind = "fastcdc"
	// SegmenterFixed splits on fixed byte boundaries.
	SegmenterFixed SegmenterKind = "fixed"
)

// SegmenterConfig mirrors the three segmenting strategies: no splitting,
// content-defined chunking with FastCDC-style min/avg/max bounds, or
// fixed-size blocks.
type SegmenterConfig struct {
	Kind     SegmenterKind
	MinSize  uint32
	AvgSize  uint32
	MaxSize  uint32
	FixedSize int
}

// DefaultSegmenterConfig matches the default chunk-size bounds.
func DefaultSegmenterConfig() SegmenterConfig {
	return SegmenterConfig{
		Kind:    SegmenterFastCDC,
		MinSize: 32 * 1024,
		AvgSize: 256 * 1024,
		MaxSize: 8 * 1024 * 1024,
	}
}

// segmenter splits a stream into content segments.
type segmenter interface {
	segment(r io.Reader) ([][]byte, error)
}

// newSegmenter returns nil when cfg selects SegmenterNone, matching the
// writer's "no segmenter configured" fast path.
func newSegmenter(cfg SegmenterConfig) segmenter {
	switch cfg.Kind {
	case SegmenterFastCDC:
		return &fastCDCSegmenter{min: cfg.MinSize, avg: cfg.AvgSize, max: cfg.MaxSize}
	case SegmenterFixed:
		size := cfg.FixedSize
		if size <= 0 {
			size = 256 * 1024
		}
		return &fixedSizeSegmenter{size: size}
	default:
		return nil
	}
}

// gearTable is FastCDC's per-byte rolling-hash multiplier table. Rather
// than hand-picking 256 "random" 64-bit constants, it is generated once
// from xxhash so the table is reproducible and still well distributed
// across the 64-bit space.
var gearTable = buildGearTable()

func buildGearTable() [256]uint64 {
	var t [256]uint64
	var seed [8]byte
	for i := range t {
		seed[0] = byte(i)
		t[i] = xxhash.Sum64(seed[:1])*0x9E3779B97F4A7C15 + uint64(i)
	}
	return t
}

// fastCDCSegmenter implements a FastCDC-style gear-hash content-defined
// chunker: a rolling hash is updated one byte at a time, and a chunk
// boundary is declared once the hash's low bits are all zero (the usual
// "normalized chunking" two-mask variant, switching to a looser mask
// once the chunk has reached avg size, to keep chunks from running long).
type fastCDCSegmenter struct {
	min, avg, max uint32
}

func bitsForAvg(avg uint32) uint {
	bits := uint(0)
	for (uint32(1) << bits) < avg {
		bits++
	}
	if bits < 2 {
		bits = 2
	}
	return bits
}

func (s *fastCDCSegmenter) segment(r io.Reader) ([][]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	min, avg, max := s.min, s.avg, s.max
	if min == 0 {
		min = 32 * 1024
	}
	if avg == 0 {
		avg = 256 * 1024
	}
	if max == 0 {
		max = 8 * 1024 * 1024
	}
	bits := bitsForAvg(avg)
	maskSmall := (uint64(1) << (bits + 1)) - 1 // stricter before avg size: fewer boundaries
	maskLarge := (uint64(1) << (bits - 1)) - 1 // looser past avg size: more boundaries

	var chunks [][]byte
	start := 0
	for start < len(data) {
		end := len(data)
		if uint32(end-start) > max {
			end = start + int(max)
		}
		boundary := end
		var hash uint64
		for i := start; i < end; i++ {
			n := i - start
			hash = (hash << 1) + gearTable[data[i]]
			if uint32(n) < min {
				continue
			}
			mask := maskSmall
			if uint32(n) >= avg {
				mask = maskLarge
			}
			if hash&mask == 0 {
				boundary = i + 1
				break
			}
		}
		chunks = append(chunks, data[start:boundary])
		start = boundary
	}
	if len(chunks) == 0 {
		chunks = [][]byte{{}}
	}
	return chunks, nil
}

// fixedSizeSegmenter splits the stream into size-byte blocks, with a
// possibly-shorter final block.
type fixedSizeSegmenter struct {
	size int
}

func (s *fixedSizeSegmenter) segment(r io.Reader) ([][]byte, error) {
	var chunks [][]byte
	buf := make([]byte, s.size)
	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			chunks = append(chunks, chunk)
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return chunks, nil
}
