package imgutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// vp8l builds a minimal VP8L chunk body header for a w x h image.
func vp8l(w, h int, alpha bool) []byte {
	bits := uint32(w-1) | uint32(h-1)<<14
	if alpha {
		bits |= 1 << 28
	}
	return []byte{0x2f, byte(bits), byte(bits >> 8), byte(bits >> 16), byte(bits >> 24)}
}

func TestWebPChunkRoundTrip(t *testing.T) {
	chunks := []Chunk{
		{FourCC: "VP8L", Data: vp8l(3, 2, true)},
		{FourCC: "EXIF", Data: []byte("abc")},
	}
	data := WriteWebP(chunks)
	assert.Equal(t, KindWebP, SniffBytes(data))
	assert.Zero(t, len(data)%2)

	got, err := ReadWebPChunks(data)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "VP8L", got[0].FourCC)
	assert.Equal(t, []byte("abc"), got[1].Data)

	w, h, n, err := WebPInfo(data)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2, 1}, []int{w, h, n})
}

func TestReadWebPChunksRejects(t *testing.T) {
	_, err := ReadWebPChunks([]byte("RIFF\x00\x00\x00\x00WAVE"))
	assert.Error(t, err)

	// A chunk claiming more bytes than the container holds.
	data := WriteWebP([]Chunk{{FourCC: "VP8L", Data: vp8l(1, 1, false)}})
	data[16] = 0xff
	_, err = ReadWebPChunks(data)
	assert.Error(t, err)
}

func TestWebPInfoAnimated(t *testing.T) {
	frame := make([]byte, 16)
	PutUint24(frame[6:9], 9)
	PutUint24(frame[9:12], 4)
	data := WriteWebP([]Chunk{
		{FourCC: "VP8X", Data: VP8XPayload(VP8XFlagAnimation, 10, 5)},
		{FourCC: "ANIM", Data: make([]byte, 6)},
		{FourCC: "ANMF", Data: frame},
		{FourCC: "ANMF", Data: frame},
	})

	w, h, n, err := WebPInfo(data)
	require.NoError(t, err)
	assert.Equal(t, []int{10, 5, 2}, []int{w, h, n})

	chunks, err := ReadWebPChunks(data)
	require.NoError(t, err)
	fw, fh, err := ANMFFrameSize(chunks[2])
	require.NoError(t, err)
	assert.Equal(t, []int{10, 5}, []int{fw, fh})

	_, _, err = ANMFFrameSize(chunks[1])
	assert.Error(t, err)
}

func TestBitstreamSize(t *testing.T) {
	w, h, alpha, err := BitstreamSize(Chunk{FourCC: "VP8L", Data: vp8l(640, 480, true)})
	require.NoError(t, err)
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)
	assert.True(t, alpha)

	vp8 := []byte{0, 0, 0, 0x9d, 0x01, 0x2a, 0x20, 0x00, 0x10, 0x00}
	w, h, alpha, err = BitstreamSize(Chunk{FourCC: "VP8 ", Data: vp8})
	require.NoError(t, err)
	assert.Equal(t, 32, w)
	assert.Equal(t, 16, h)
	assert.False(t, alpha)

	_, _, _, err = BitstreamSize(Chunk{FourCC: "EXIF"})
	assert.Error(t, err)
}

func TestEncodeChunkPads(t *testing.T) {
	b := EncodeChunk("XMP ", []byte{1, 2, 3})
	assert.Len(t, b, 8+3+1)
	assert.Equal(t, byte(3), b[4])
	assert.Zero(t, b[len(b)-1])
}
