// Package kirikiri implements the Kirikiri engine's XP3 archive format: a
// magic-prefixed container whose index (a tree of File/info/segm/adlr
// chunks) is written last and pointed to by a back-patched offset in the
// header. Segments can be stored raw or zlib-deflated, and a file can be
// split across several segments so identical content only has to be
// stored once.
package kirikiri

// xp3Magic is the fixed 11-byte XP3 signature, byte for byte.
var xp3Magic = []byte("XP3\r\n \n\x1a\x8b\x67\x01")

// Chunk tags inside the index tree.
var (
	chunkFile = []byte("File")
	chunkInfo = []byte("info")
	chunkSegm = []byte("segm")
	chunkAdlr = []byte("adlr")
)

const (
	indexEncodeMethodMask = 0x07
	indexEncodeRaw        = 0
	indexEncodeZlib       = 1
	indexContinue         = 0x80
)

const fileProtected = uint32(1) << 31

const (
	segmEncodeMethodMask = 0x07
	segmEncodeRaw        = 0
	segmEncodeZlib       = 1
)
