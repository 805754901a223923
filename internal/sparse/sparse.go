package sparse

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
)

// Magic identifies a sparse image.
const Magic uint32 = 0xed26ff3a

// MajorVersion is the only major format version understood.
const MajorVersion = 1

const (
	fileHeaderLen  = 28
	chunkHeaderLen = 12
	fillLen        = 4
	crcLen         = 4
)

// MaxBlockSize is the largest block size accepted in a header.
const MaxBlockSize = 64 << 20

// ChunkType is the kind of a sparse chunk.
type ChunkType uint16

// Chunk types defined by the sparse format.
const (
	ChunkRaw      ChunkType = 0xCAC1
	ChunkFill     ChunkType = 0xCAC2
	ChunkDontCare ChunkType = 0xCAC3
	ChunkCRC32    ChunkType = 0xCAC4
)

// String returns the chunk type name.
func (t ChunkType) String() string {
	switch t {
	case ChunkRaw:
		return "raw"
	case ChunkFill:
		return "fill"
	case ChunkDontCare:
		return "dont_care"
	case ChunkCRC32:
		return "crc32"
	default:
		return fmt.Sprintf("unknown(%#04x)", uint16(t))
	}
}

var (
	// ErrBadMagic is returned when the stream does not start with Magic.
	ErrBadMagic = errors.New("not a sparse image")
	// ErrUnsupportedVersion is returned for a major version other than MajorVersion.
	ErrUnsupportedVersion = errors.New("unsupported sparse format version")
	// ErrBadHeader is returned for inconsistent header sizes or block size.
	ErrBadHeader = errors.New("invalid sparse header")
	// ErrBadChunk is returned for an unknown chunk type or inconsistent chunk size.
	ErrBadChunk = errors.New("invalid sparse chunk")
	// ErrChecksum is returned when a CRC32 chunk does not match the image.
	ErrChecksum = errors.New("sparse image checksum mismatch")
	// ErrBlockCount is returned when the chunks do not add up to the declared blocks.
	ErrBlockCount = errors.New("sparse image block count mismatch")
	// ErrTruncated is returned when the stream ends early.
	ErrTruncated = errors.New("sparse image truncated")
)

// Header is the sparse file header as stored on disk.
type Header struct {
	Magic           uint32
	MajorVersion    uint16
	MinorVersion    uint16
	FileHeaderSize  uint16
	ChunkHeaderSize uint16
	BlockSize       uint32
	TotalBlocks     uint32
	TotalChunks     uint32
	ImageChecksum   uint32
}

// chunkHeader precedes every chunk.
type chunkHeader struct {
	Type      uint16
	Reserved  uint16
	Blocks    uint32
	TotalSize uint32
}

// Chunk describes one run of blocks of the expanded image.
type Chunk struct {
	Type ChunkType
	// StartBlock is the first output block covered by the chunk.
	StartBlock uint32
	// Blocks is the number of output blocks covered by the chunk.
	Blocks uint32
	// Fill is the 32-bit pattern of a fill chunk.
	Fill uint32
	// Data is the raw payload, kept only with CreateCopy.
	Data []byte
}

// ImportOptions controls Import.
type ImportOptions struct {
	// VerifyCRC checks CRC32 chunks against the expanded image.
	VerifyCRC bool
	// CreateCopy keeps raw payloads in memory.
	CreateCopy bool
}

// File is an imported sparse image.
type File struct {
	Header Header
	Chunks []Chunk
}

// Len returns the size of the expanded image in bytes.
func (f *File) Len() int64 {
	return int64(f.Header.BlockSize) * int64(f.Header.TotalBlocks)
}

// Destroy releases the chunk list and any copied payloads. It is safe to call twice.
func (f *File) Destroy() {
	f.Chunks = nil
}

// importer carries the state of a single Import call.
type importer struct {
	r      io.Reader
	opts   ImportOptions
	header Header
	crc    hash.Hash32
	block  []byte
	file   *File
}

// Import reads a sparse image from r.
func Import(r io.Reader, opts ImportOptions) (*File, error) {
	im := &importer{
		r:    bufio.NewReader(r),
		opts: opts,
		crc:  crc32.NewIEEE(),
	}

	if err := im.readHeader(); err != nil {
		return nil, err
	}

	im.file = &File{
		Header: im.header,
	}

	var block uint64

	for i := uint32(0); i < im.header.TotalChunks; i++ {
		chunk, err := im.readChunk(uint32(block), im.header.TotalBlocks-uint32(block))
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}

		block += uint64(chunk.Blocks)

		if chunk.Type != ChunkCRC32 {
			im.file.Chunks = append(im.file.Chunks, chunk)
		}
	}

	if block != uint64(im.header.TotalBlocks) {
		return nil, fmt.Errorf("%w: chunks cover %d of %d blocks", ErrBlockCount, block, im.header.TotalBlocks)
	}

	return im.file, nil
}

func (im *importer) readHeader() error {
	if err := binary.Read(im.r, binary.LittleEndian, &im.header); err != nil {
		return truncated(err)
	}

	h := im.header

	switch {
	case h.Magic != Magic:
		return fmt.Errorf("%w: magic %#08x", ErrBadMagic, h.Magic)
	case h.MajorVersion != MajorVersion:
		return fmt.Errorf("%w: %d.%d", ErrUnsupportedVersion, h.MajorVersion, h.MinorVersion)
	case h.FileHeaderSize < fileHeaderLen:
		return fmt.Errorf("%w: file header size %d", ErrBadHeader, h.FileHeaderSize)
	case h.ChunkHeaderSize < chunkHeaderLen:
		return fmt.Errorf("%w: chunk header size %d", ErrBadHeader, h.ChunkHeaderSize)
	case h.BlockSize == 0 || h.BlockSize%4 != 0 || h.BlockSize > MaxBlockSize:
		return fmt.Errorf("%w: block size %d", ErrBadHeader, h.BlockSize)
	}

	im.block = make([]byte, h.BlockSize)

	return im.skip(int64(h.FileHeaderSize) - fileHeaderLen)
}

// readChunk reads the chunk covering output blocks from start. At most
// remaining blocks may be claimed.
func (im *importer) readChunk(start, remaining uint32) (Chunk, error) {
	var ch chunkHeader
	if err := binary.Read(im.r, binary.LittleEndian, &ch); err != nil {
		return Chunk{}, truncated(err)
	}

	if err := im.skip(int64(im.header.ChunkHeaderSize) - chunkHeaderLen); err != nil {
		return Chunk{}, err
	}

	if ch.TotalSize < uint32(im.header.ChunkHeaderSize) {
		return Chunk{}, fmt.Errorf("%w: total size %d", ErrBadChunk, ch.TotalSize)
	}

	if ChunkType(ch.Type) != ChunkCRC32 && ch.Blocks > remaining {
		return Chunk{}, fmt.Errorf("%w: chunk claims %d blocks, %d left", ErrBlockCount, ch.Blocks, remaining)
	}

	chunk := Chunk{
		Type:       ChunkType(ch.Type),
		StartBlock: start,
		Blocks:     ch.Blocks,
	}

	dataSize := int64(ch.TotalSize) - int64(im.header.ChunkHeaderSize)
	expanded := int64(ch.Blocks) * int64(im.header.BlockSize)

	switch chunk.Type {
	case ChunkRaw:
		if dataSize != expanded {
			return Chunk{}, fmt.Errorf("%w: raw data %d bytes for %d blocks", ErrBadChunk, dataSize, ch.Blocks)
		}

		if err := im.readRaw(&chunk, dataSize); err != nil {
			return Chunk{}, err
		}

		return chunk, nil
	case ChunkFill:
		if dataSize != fillLen {
			return Chunk{}, fmt.Errorf("%w: fill data %d bytes", ErrBadChunk, dataSize)
		}

		if err := im.readFill(&chunk); err != nil {
			return Chunk{}, err
		}

		return chunk, nil
	case ChunkDontCare:
		if dataSize != 0 {
			return Chunk{}, fmt.Errorf("%w: don't care data %d bytes", ErrBadChunk, dataSize)
		}

		// Skipped blocks read back as zeros.
		if im.opts.VerifyCRC {
			clear(im.block)
			im.hashBlocks(ch.Blocks)
		}

		return chunk, nil
	case ChunkCRC32:
		if dataSize != crcLen {
			return Chunk{}, fmt.Errorf("%w: crc data %d bytes", ErrBadChunk, dataSize)
		}

		chunk.Blocks = 0

		if err := im.checkCRC(); err != nil {
			return Chunk{}, err
		}

		return chunk, nil
	default:
		return Chunk{}, fmt.Errorf("%w: type %s", ErrBadChunk, chunk.Type)
	}
}

func (im *importer) readRaw(chunk *Chunk, size int64) error {
	if im.opts.CreateCopy {
		// The buffer grows with the bytes actually present in the stream.
		var data bytes.Buffer
		if _, err := io.CopyN(&data, im.r, size); err != nil {
			return truncated(err)
		}

		chunk.Data = data.Bytes()

		if im.opts.VerifyCRC {
			_, _ = im.crc.Write(chunk.Data)
		}

		return nil
	}

	var sink io.Writer = io.Discard
	if im.opts.VerifyCRC {
		sink = im.crc
	}

	if _, err := io.CopyN(sink, im.r, size); err != nil {
		return truncated(err)
	}

	return nil
}

func (im *importer) readFill(chunk *Chunk) error {
	if err := binary.Read(im.r, binary.LittleEndian, &chunk.Fill); err != nil {
		return truncated(err)
	}

	if im.opts.VerifyCRC {
		for i := 0; i < len(im.block); i += fillLen {
			binary.LittleEndian.PutUint32(im.block[i:], chunk.Fill)
		}

		im.hashBlocks(chunk.Blocks)
	}

	return nil
}

func (im *importer) checkCRC() error {
	var want uint32
	if err := binary.Read(im.r, binary.LittleEndian, &want); err != nil {
		return truncated(err)
	}

	if !im.opts.VerifyCRC {
		return nil
	}

	if got := im.crc.Sum32(); got != want {
		return fmt.Errorf("%w: have %#08x, want %#08x", ErrChecksum, got, want)
	}

	return nil
}

// hashBlocks feeds the current block buffer into the checksum n times.
func (im *importer) hashBlocks(n uint32) {
	for i := uint32(0); i < n; i++ {
		_, _ = im.crc.Write(im.block)
	}
}

func (im *importer) skip(n int64) error {
	if n <= 0 {
		return nil
	}

	if _, err := io.CopyN(io.Discard, im.r, n); err != nil {
		return truncated(err)
	}

	return nil
}

// truncated maps short reads to ErrTruncated.
func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrTruncated
	}

	return err
}
