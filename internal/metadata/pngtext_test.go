package metadata

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildPNGWithText(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.RGBA{R: 0xff, A: 0xff})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	data := buf.Bytes()
	require.Equal(t, "IEND", string(data[len(data)-8:len(data)-4]))

	insertAt := len(data) - 12
	out := append([]byte{}, data[:insertAt]...)
	out = append(out, buildPNGChunk("tEXt", []byte("Model\x00TestCam"))...)
	out = append(out, buildPNGChunk("tEXt", []byte("Comment\x00hello"))...)
	out = append(out, buildPNGChunk("tIME", []byte{0x07, 0xE8, 0x01, 0x02, 0x03, 0x04, 0x05})...)
	out = append(out, data[insertAt:]...)
	return out
}

func buildPNGChunk(chunkType string, data []byte) []byte {
	chunk := make([]byte, 4, 12+len(data))
	binary.BigEndian.PutUint32(chunk, uint32(len(data)))
	chunk = append(chunk, chunkType...)
	chunk = append(chunk, data...)
	crc := make([]byte, 4)
	binary.BigEndian.PutUint32(crc, crc32.ChecksumIEEE(append([]byte(chunkType), data...)))
	return append(chunk, crc...)
}

func TestInspectPNGTextThenStrip(t *testing.T) {
	data := buildPNGWithText(t)

	report, err := Inspect(bytes.NewReader(data))
	require.NoError(t, err)
	categories := map[string][]string{}
	for _, d := range report.Details {
		categories[d.Category] = d.Values
	}
	assert.Equal(t, []string{"tEXt:Model"}, categories[CategoryDevice])
	assert.Equal(t, []string{"tIME"}, categories[CategoryTimestamp])
	assert.NotContains(t, categories, CategoryGPS)

	stripped, err := Embed(data, Profiles{})
	require.NoError(t, err)
	report, err = Inspect(bytes.NewReader(stripped))
	require.NoError(t, err)
	assert.Empty(t, report.Details)

	_, err = png.Decode(bytes.NewReader(stripped))
	require.NoError(t, err)
}

func TestCategoryForKey(t *testing.T) {
	assert.Equal(t, CategoryGPS, categoryForKey("GPSLatitude"))
	assert.Equal(t, CategoryDevice, categoryForKey("Make"))
	assert.Equal(t, CategoryTimestamp, categoryForKey("Creation Time"))
	assert.Equal(t, CategoryIdentifier, categoryForKey("SerialNumber"))
	assert.Equal(t, "", categoryForKey("Comment"))
}
