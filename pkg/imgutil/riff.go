package imgutil

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Chunk is one chunk of a RIFF (WebP) or PNG container.
type Chunk struct {
	FourCC string
	Data   []byte
}

var errNotWebP = errors.New("not a RIFF/WEBP container")

// ReadWebPChunks splits a WebP file into its top-level chunks.
func ReadWebPChunks(data []byte) ([]Chunk, error) {
	if len(data) < 12 || !hasPrefix(data, riffSig) || !hasPrefix(data[8:], webpSig) {
		return nil, errNotWebP
	}

	riffLen := int(binary.LittleEndian.Uint32(data[4:8]))
	end := 8 + riffLen
	if end > len(data) {
		end = len(data)
	}
	return ReadRIFFChunks(data[12:end])
}

// ReadRIFFChunks splits a bare sequence of RIFF chunks, such as the payload of
// an ANMF chunk.
func ReadRIFFChunks(data []byte) ([]Chunk, error) {
	var chunks []Chunk
	off := 0
	for off+8 <= len(data) {
		fourCC := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		start := off + 8
		if size < 0 || start+size > len(data) {
			return nil, fmt.Errorf("chunk %q overruns container", fourCC)
		}
		chunks = append(chunks, Chunk{FourCC: fourCC, Data: data[start : start+size]})
		off = start + size + size&1
	}
	return chunks, nil
}

// WriteWebP serializes chunks into a RIFF/WEBP container.
func WriteWebP(chunks []Chunk) []byte {
	var body bytes.Buffer
	body.WriteString("WEBP")
	for _, c := range chunks {
		writeChunk(&body, c.FourCC, c.Data)
	}

	out := make([]byte, 0, body.Len()+8)
	out = append(out, riffSig...)
	out = binary.LittleEndian.AppendUint32(out, uint32(body.Len()))
	return append(out, body.Bytes()...)
}

// EncodeChunk serializes a single chunk, including its padding byte.
func EncodeChunk(fourCC string, data []byte) []byte {
	var buf bytes.Buffer
	writeChunk(&buf, fourCC, data)
	return buf.Bytes()
}

func writeChunk(buf *bytes.Buffer, fourCC string, data []byte) {
	buf.WriteString(fourCC)
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)
	if len(data)&1 == 1 {
		buf.WriteByte(0)
	}
}

// WebP VP8X feature flags.
const (
	VP8XFlagAnimation = 0x02
	VP8XFlagXMP       = 0x04
	VP8XFlagEXIF      = 0x08
	VP8XFlagAlpha     = 0x10
	VP8XFlagICC       = 0x20
)

// VP8XPayload builds the 10 byte VP8X chunk body.
func VP8XPayload(flags byte, width, height int) []byte {
	p := make([]byte, 10)
	p[0] = flags
	PutUint24(p[4:7], uint32(width-1))
	PutUint24(p[7:10], uint32(height-1))
	return p
}

// BitstreamSize reads canvas dimensions and the alpha bit from a VP8 or VP8L
// chunk body.
func BitstreamSize(c Chunk) (width, height int, alpha bool, err error) {
	switch c.FourCC {
	case "VP8L":
		if len(c.Data) < 5 || c.Data[0] != 0x2f {
			return 0, 0, false, errors.New("bad VP8L header")
		}
		bits := binary.LittleEndian.Uint32(c.Data[1:5])
		width = int(bits&0x3fff) + 1
		height = int((bits>>14)&0x3fff) + 1
		alpha = (bits>>28)&1 == 1
		return width, height, alpha, nil
	case "VP8 ":
		if len(c.Data) < 10 || c.Data[3] != 0x9d || c.Data[4] != 0x01 || c.Data[5] != 0x2a {
			return 0, 0, false, errors.New("bad VP8 header")
		}
		width = int(binary.LittleEndian.Uint16(c.Data[6:8]) & 0x3fff)
		height = int(binary.LittleEndian.Uint16(c.Data[8:10]) & 0x3fff)
		return width, height, false, nil
	}
	return 0, 0, false, fmt.Errorf("chunk %q is not a bitstream", c.FourCC)
}

// PutUint24 writes a little-endian 24-bit value.
func PutUint24(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}

// WebPInfo returns the canvas size and frame count of a WebP file without
// decoding pixels.
func WebPInfo(data []byte) (width, height, frames int, err error) {
	chunks, err := ReadWebPChunks(data)
	if err != nil {
		return 0, 0, 0, err
	}
	if len(chunks) == 0 {
		return 0, 0, 0, errors.New("empty webp container")
	}

	first := chunks[0]
	if first.FourCC != "VP8X" {
		w, h, _, err := BitstreamSize(first)
		return w, h, 1, err
	}
	if len(first.Data) < 10 {
		return 0, 0, 0, errors.New("short VP8X chunk")
	}
	width = int(uint24(first.Data[4:7])) + 1
	height = int(uint24(first.Data[7:10])) + 1

	for _, c := range chunks[1:] {
		if c.FourCC == "ANMF" {
			frames++
		}
	}
	if frames == 0 {
		frames = 1
	}
	return width, height, frames, nil
}

// ANMF is the parsed header of one animation frame.
type ANMF struct {
	X, Y              int
	Width, Height     int
	DurationMS        int
	DisposeBackground bool
	NoBlend           bool
	// Payload holds the frame's ALPH and VP8/VP8L chunks.
	Payload []byte
}

// ParseANMF reads the header of an ANMF chunk. Offsets are stored halved in
// the container and are returned in pixels.
func ParseANMF(c Chunk) (ANMF, error) {
	if c.FourCC != "ANMF" || len(c.Data) < 16 {
		return ANMF{}, errors.New("not an ANMF chunk")
	}
	d := c.Data
	return ANMF{
		X:                 int(uint24(d[0:3])) * 2,
		Y:                 int(uint24(d[3:6])) * 2,
		Width:             int(uint24(d[6:9])) + 1,
		Height:            int(uint24(d[9:12])) + 1,
		DurationMS:        int(uint24(d[12:15])),
		DisposeBackground: d[15]&0x01 != 0,
		NoBlend:           d[15]&0x02 != 0,
		Payload:           d[16:],
	}, nil
}

// ANMFFrameSize returns the width and height stored in an ANMF chunk header.
func ANMFFrameSize(c Chunk) (width, height int, err error) {
	f, err := ParseANMF(c)
	if err != nil {
		return 0, 0, err
	}
	return f.Width, f.Height, nil
}

func uint24(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}
