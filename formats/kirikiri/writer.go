package kirikiri

import (
	"bytes"
	"context"
	"crypto/sha256"
	"hash/adler32"
	"io"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/dsnet/vnscript/binio"
	"github.com/dsnet/vnscript/encoding"
)

// WriterConfig configures one archive-writing session.
type WriterConfig struct {
	CompressFiles bool
	CompressIndex bool
	UseZstd       bool
	ZlibLevel     int
	ZstdLevel     int
	Segmenter     SegmenterConfig
	Workers       int
}

// DefaultWriterConfig matches the teacher-side default: FastCDC
// segmenting, zlib-compressed files and index, four compression workers.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		CompressFiles: true,
		CompressIndex: true,
		ZlibLevel:     6,
		Segmenter:     DefaultSegmenterConfig(),
		Workers:       4,
	}
}

// Stats is a point-in-time snapshot of Writer's running counters.
type Stats struct {
	TotalOriginalSize    uint64
	FinalArchiveSize     uint64
	TotalSegments        uint64
	UniqueSegments       uint64
	DeduplicationSavings uint64
}

type statsCounters struct {
	totalOriginalSize    atomic.Uint64
	finalArchiveSize     atomic.Uint64
	totalSegments        atomic.Uint64
	uniqueSegments       atomic.Uint64
	deduplicationSavings atomic.Uint64
}

func (c *statsCounters) snapshot() Stats {
	return Stats{
		TotalOriginalSize:    c.totalOriginalSize.Load(),
		FinalArchiveSize:     c.finalArchiveSize.Load(),
		TotalSegments:        c.totalSegments.Load(),
		UniqueSegments:       c.uniqueSegments.Load(),
		DeduplicationSavings: c.deduplicationSavings.Load(),
	}
}

// writtenSegment is the dedup table's record of where a content-addressed
// segment physically lives. done is closed once start/archivedSize are
// final, letting a second file that hashes to the same segment block on
// the first write instead of racing a duplicate compress+write — the Go
// channel-wait equivalent of the teacher's processing-set spin loop.
type writtenSegment struct {
	done         chan struct{}
	compressed   bool
	start        uint64
	originalSize uint64
	archivedSize uint64
}

type segmentEntry struct {
	compressed   bool
	start        uint64
	offsetInFile uint64
	originalSize uint64
	archivedSize uint64
}

type fileItem struct {
	name     string
	fileHash uint32

	mu           sync.Mutex
	originalSize uint64
	archivedSize uint64
	segments     []segmentEntry
}

func (it *fileItem) addSegment(e segmentEntry) {
	it.mu.Lock()
	it.originalSize += e.originalSize
	it.archivedSize += e.archivedSize
	it.segments = append(it.segments, e)
	it.mu.Unlock()
}

// Writer builds an XP3 archive incrementally: AddFile may be called from
// multiple goroutines (mirroring the teacher's per-file thread-pool job),
// and Close writes the back-patched index once every file has landed.
type Writer struct {
	out io.WriteSeeker
	cfg WriterConfig
	seg segmenter

	mu     sync.Mutex
	dedup  map[[32]byte]*writtenSegment
	order  []string
	items  map[string]*fileItem
	writeM sync.Mutex // serializes physical seeks/writes to out

	sem   *semaphore.Weighted
	ctx   context.Context
	stats statsCounters
}

// NewWriter writes the XP3 magic and a placeholder index offset, then
// returns a Writer ready for AddFile calls.
func NewWriter(out io.WriteSeeker, cfg WriterConfig) (*Writer, error) {
	if _, err := out.Write(xp3Magic); err != nil {
		return nil, err
	}
	if _, err := out.Write(make([]byte, 8)); err != nil {
		return nil, err
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Writer{
		out:   out,
		cfg:   cfg,
		seg:   newSegmenter(cfg.Segmenter),
		dedup: make(map[[32]byte]*writtenSegment),
		items: make(map[string]*fileItem),
		sem:   semaphore.NewWeighted(int64(workers)),
		ctx:   context.Background(),
	}, nil
}

// AddFile reads r to completion, segments it per the configured
// Segmenter, and stores each unique segment (deduplicated by SHA-256
// across the whole archive) while compression happens concurrently
// across a bounded worker pool.
func (w *Writer) AddFile(name string, r io.Reader) error {
	content, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	checksum := adler32.Checksum(content)
	item := &fileItem{name: name, fileHash: checksum}

	var chunks [][]byte
	if w.seg == nil {
		chunks = [][]byte{content}
	} else {
		chunks, err = w.seg.segment(bytes.NewReader(content))
		if err != nil {
			return err
		}
	}

	group, ctx := errgroup.WithContext(w.ctx)
	var offsetInFile uint64
	for _, chunk := range chunks {
		chunk := chunk
		off := offsetInFile
		offsetInFile += uint64(len(chunk))
		hash := sha256.Sum256(chunk)

		w.mu.Lock()
		existing, seen := w.dedup[hash]
		if !seen {
			existing = &writtenSegment{done: make(chan struct{})}
			w.dedup[hash] = existing
		}
		w.mu.Unlock()

		if seen {
			w.stats.totalSegments.Add(1)
			group.Go(func() error {
				<-existing.done
				w.stats.totalOriginalSize.Add(uint64(len(chunk)))
				w.stats.deduplicationSavings.Add(existing.archivedSize)
				item.addSegment(segmentEntry{
					compressed:   existing.compressed,
					start:        existing.start,
					offsetInFile: off,
					originalSize: uint64(len(chunk)),
					archivedSize: existing.archivedSize,
				})
				return nil
			})
			continue
		}

		if err := w.sem.Acquire(ctx, 1); err != nil {
			return err
		}
		group.Go(func() error {
			defer w.sem.Release(1)
			return w.writeSegment(item, existing, chunk, off)
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	item.mu.Lock()
	sort.Slice(item.segments, func(i, j int) bool { return item.segments[i].offsetInFile < item.segments[j].offsetInFile })
	item.mu.Unlock()

	w.mu.Lock()
	w.items[name] = item
	w.order = append(w.order, name)
	w.mu.Unlock()
	return nil
}

func (w *Writer) writeSegment(item *fileItem, slot *writtenSegment, chunk []byte, offsetInFile uint64) error {
	data := chunk
	compressed := false
	if w.cfg.CompressFiles {
		var err error
		data, err = compressBlock(chunk, w.cfg.UseZstd, w.cfg.ZlibLevel, w.cfg.ZstdLevel)
		if err != nil {
			return err
		}
		compressed = true
	}

	w.writeM.Lock()
	start, err := w.out.Seek(0, io.SeekEnd)
	if err != nil {
		w.writeM.Unlock()
		return err
	}
	if _, err := w.out.Write(data); err != nil {
		w.writeM.Unlock()
		return err
	}
	w.writeM.Unlock()

	slot.compressed = compressed
	slot.start = uint64(start)
	slot.originalSize = uint64(len(chunk))
	slot.archivedSize = uint64(len(data))
	close(slot.done)

	w.stats.totalOriginalSize.Add(slot.originalSize)
	w.stats.finalArchiveSize.Add(slot.archivedSize)
	w.stats.totalSegments.Add(1)
	w.stats.uniqueSegments.Add(1)

	item.addSegment(segmentEntry{
		compressed:   compressed,
		start:        slot.start,
		offsetInFile: offsetInFile,
		originalSize: slot.originalSize,
		archivedSize: slot.archivedSize,
	})
	return nil
}

func compressBlock(data []byte, useZstd bool, zlibLevel, zstdLevel int) ([]byte, error) {
	var buf bytes.Buffer
	if useZstd {
		enc, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(zstdLevel)))
		if err != nil {
			return nil, err
		}
		if _, err := enc.Write(data); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	level := zlibLevel
	if level == 0 {
		level = zlib.DefaultCompression
	}
	zw, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Stats returns a snapshot of the running totals (original/archived size,
// segment counts, dedup savings). Exposed as a method rather than only a
// Display string since this module has no CLI to print one to.
func (w *Writer) Stats() Stats { return w.stats.snapshot() }

// Close writes the index (one File chunk per added file, each holding
// info/segm/adlr sub-chunks), optionally zlib-compressing it, then
// back-patches the placeholder index offset in the header.
func (w *Writer) Close() error {
	w.mu.Lock()
	names := make([]string, len(w.order))
	copy(names, w.order)
	sort.Strings(names)
	items := w.items
	w.mu.Unlock()

	indexOffset, err := w.out.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}

	index := binio.NewWriter()
	var merr *multierror.Error
	for _, name := range names {
		item := items[name]
		nameBytes, err := encoding.Encode(encoding.UTF16LE, item.name, false)
		if err != nil {
			merr = multierror.Append(merr, err)
			continue
		}
		fileChunk := binio.NewWriter()
		infoDataSize := uint64(len(nameBytes)) + 22
		fileChunk.WriteBytes(chunkInfo)
		fileChunk.WriteU64LE(infoDataSize)
		fileChunk.WriteU32LE(0) // flags
		fileChunk.WriteU64LE(item.originalSize)
		fileChunk.WriteU64LE(item.archivedSize)
		fileChunk.WriteU16LE(uint16(len(nameBytes) / 2))
		fileChunk.WriteBytes(nameBytes)

		segmDataSize := uint64(len(item.segments)) * 28
		fileChunk.WriteBytes(chunkSegm)
		fileChunk.WriteU64LE(segmDataSize)
		for _, seg := range item.segments {
			flag := uint32(segmEncodeRaw)
			if seg.compressed {
				flag = segmEncodeZlib
			}
			fileChunk.WriteU32LE(flag)
			fileChunk.WriteU64LE(seg.start)
			fileChunk.WriteU64LE(seg.originalSize)
			fileChunk.WriteU64LE(seg.archivedSize)
		}

		fileChunk.WriteBytes(chunkAdlr)
		fileChunk.WriteU64LE(4)
		fileChunk.WriteU32LE(item.fileHash)

		index.WriteBytes(chunkFile)
		index.WriteU64LE(uint64(fileChunk.Len()))
		index.WriteBytes(fileChunk.Bytes())
	}
	if merr.ErrorOrNil() != nil {
		return merr
	}

	indexData := index.Bytes()
	if w.cfg.CompressIndex {
		compressed, err := compressBlock(indexData, false, w.cfg.ZlibLevel, w.cfg.ZstdLevel)
		if err != nil {
			return err
		}
		if _, err := w.out.Write([]byte{indexEncodeZlib}); err != nil {
			return err
		}
		if err := writeU64LE(w.out, uint64(len(compressed))); err != nil {
			return err
		}
		if err := writeU64LE(w.out, uint64(len(indexData))); err != nil {
			return err
		}
		if _, err := w.out.Write(compressed); err != nil {
			return err
		}
	} else {
		if _, err := w.out.Write([]byte{indexEncodeRaw}); err != nil {
			return err
		}
		if err := writeU64LE(w.out, uint64(len(indexData))); err != nil {
			return err
		}
		if _, err := w.out.Write(indexData); err != nil {
			return err
		}
	}

	if _, err := w.out.Seek(11, io.SeekStart); err != nil {
		return err
	}
	if err := writeU64LE(w.out, uint64(indexOffset)); err != nil {
		return err
	}
	_, err = w.out.Seek(0, io.SeekEnd)
	return err
}

func writeU64LE(w io.Writer, v uint64) error {
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * uint(i)))
	}
	_, err := w.Write(b[:])
	return err
}
