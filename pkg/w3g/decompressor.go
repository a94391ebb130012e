package w3g

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"runtime"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// blockFrame is one compressed block as framed in the file body.
type blockFrame struct {
	declared   int
	compressed []byte
}

// decompressBlocks reassembles the compressed data blocks into one
// logical byte stream.
//
// Block framing:
//   - Offset 0x00: Compressed size (1 word)
//   - Reforged only: 2 padding bytes
//   - Decompressed size (1 word)
//   - Checksum (1 dword)
//   - Reforged only: 2 more padding bytes
//   - Compressed data (compressed_size bytes)
//
// Frames are read sequentially, then inflated on a bounded worker pool
// since each block is an independent stream. Order is preserved when
// concatenating. A block whose output length disagrees with the declared
// length aborts the decode.
func decompressBlocks(r io.Reader, header *ReplayHeader) ([]byte, error) {
	isReforged := header.IsReforged()
	headerLen := 8
	if isReforged {
		headerLen = 12
	}

	frames := make([]blockFrame, header.NumCompressedBlocks)
	read := 0
	for i := range frames {
		blockHeader := make([]byte, headerLen)
		if _, err := io.ReadFull(r, blockHeader); err != nil {
			return nil, newTruncatedDataError(
				fmt.Sprintf("block %d header truncated", i), read,
			)
		}
		compressedSize := int(binary.LittleEndian.Uint16(blockHeader[0:]))
		sizePos := 2
		if isReforged {
			sizePos = 4
		}
		frames[i].declared = int(binary.LittleEndian.Uint16(blockHeader[sizePos:]))

		frames[i].compressed = make([]byte, compressedSize)
		if _, err := io.ReadFull(r, frames[i].compressed); err != nil {
			return nil, newTruncatedDataError(
				fmt.Sprintf("block %d data truncated: expected %d bytes", i, compressedSize),
				read,
			)
		}
		read += headerLen + compressedSize
	}

	out := make([][]byte, len(frames))
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i := range frames {
		i := i
		g.Go(func() error {
			decompressed, err := decompressBlock(frames[i].compressed, frames[i].declared)
			if err != nil {
				return err
			}
			if len(decompressed) != frames[i].declared {
				return newBlockSizeMismatchError(i, frames[i].declared, len(decompressed))
			}
			out[i] = decompressed
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var result bytes.Buffer
	result.Grow(int(header.DecompressedSize))
	for _, d := range out {
		result.Write(d)
	}
	return result.Bytes(), nil
}

// decompressBlock inflates one block. Classic replays use raw deflate,
// Reforged uses zlib with a header; trying deflate first and falling
// back covers both without branching on the client variant.
func decompressBlock(data []byte, declared int) ([]byte, error) {
	deflated, deflateErr := decompressDeflate(data)
	if deflateErr == nil && len(deflated) == declared {
		return deflated, nil
	}

	inflated, zlibErr := decompressZlib(data)
	if zlibErr == nil {
		log.Debug().Int("size", len(inflated)).Msg("block inflated via zlib fallback")
		return inflated, nil
	}
	if deflateErr == nil {
		return deflated, nil
	}
	return nil, newDecompressionError(
		fmt.Sprintf("deflate: %v, zlib: %v", deflateErr, zlibErr), 0,
	)
}

// decompressZlib decompresses data using zlib (with header).
func decompressZlib(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	// The W3G format doesn't always carry proper zlib trailers, so
	// io.ReadAll may fail with "unexpected EOF" after producing all
	// the data. Keep whatever was read before the error.
	var result bytes.Buffer
	buf := make([]byte, 8192)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			result.Write(buf[:n])
		}
		if err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			if result.Len() == 0 {
				return nil, err
			}
			break
		}
	}

	return result.Bytes(), nil
}

// decompressDeflate decompresses data using raw deflate (no header).
func decompressDeflate(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()

	return io.ReadAll(r)
}
