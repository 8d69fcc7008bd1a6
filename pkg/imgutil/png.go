package imgutil

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
)

var errNotPNG = errors.New("invalid PNG signature")

// ReadPNGChunks splits a PNG stream into its chunks, stopping after IEND.
// CRCs are not verified.
func ReadPNGChunks(data []byte) ([]Chunk, error) {
	if !hasPrefix(data, pngSig) {
		return nil, errNotPNG
	}

	var chunks []Chunk
	off := len(pngSig)
	for off < len(data) {
		if off+8 > len(data) {
			return nil, errors.New("truncated PNG chunk header")
		}
		size := int(binary.BigEndian.Uint32(data[off : off+4]))
		fourCC := string(data[off+4 : off+8])
		start := off + 8
		if size < 0 || start+size+4 > len(data) {
			return nil, fmt.Errorf("chunk %q overruns stream", fourCC)
		}
		chunks = append(chunks, Chunk{FourCC: fourCC, Data: data[start : start+size]})
		off = start + size + 4
		if fourCC == "IEND" {
			break
		}
	}
	return chunks, nil
}

// WritePNG serializes chunks, in order, after the PNG signature.
func WritePNG(chunks []Chunk) []byte {
	var buf bytes.Buffer
	buf.Write(pngSig)
	for _, c := range chunks {
		buf.Write(EncodePNGChunk(c.FourCC, c.Data))
	}
	return buf.Bytes()
}

// EncodePNGChunk serializes one chunk with its length and CRC.
func EncodePNGChunk(fourCC string, data []byte) []byte {
	out := make([]byte, 0, len(data)+12)
	out = binary.BigEndian.AppendUint32(out, uint32(len(data)))
	out = append(out, fourCC...)
	out = append(out, data...)
	crc := crc32.NewIEEE()
	crc.Write([]byte(fourCC))
	crc.Write(data)
	return binary.BigEndian.AppendUint32(out, crc.Sum32())
}

// APNGFrameCount returns the frame count declared by an acTL chunk, or 1 for a
// still PNG.
func APNGFrameCount(chunks []Chunk) int {
	for _, c := range chunks {
		if c.FourCC == "IDAT" {
			break
		}
		if c.FourCC == "acTL" && len(c.Data) >= 8 {
			if n := int(binary.BigEndian.Uint32(c.Data[0:4])); n > 0 {
				return n
			}
		}
	}
	return 1
}
