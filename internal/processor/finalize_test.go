package processor

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"squeeze/internal/encode"
	"squeeze/internal/media"
	"squeeze/internal/metadata"
	"squeeze/internal/settings"
)

const artist = "SECRET-OWNER"

// taggedTIFF is an uncompressed 2x2 grayscale TIFF carrying an Artist tag.
func taggedTIFF() []byte {
	type entry struct {
		tag, typ    uint16
		count, data uint32
	}
	const (
		short = 3
		long  = 4
		ascii = 2
	)
	text := append([]byte(artist), 0)
	entries := []entry{
		{256, short, 1, 2},
		{257, short, 1, 2},
		{258, short, 1, 8},
		{259, short, 1, 1},
		{262, short, 1, 1},
		{273, long, 1, 0}, // strip offset, patched below
		{277, short, 1, 1},
		{278, short, 1, 2},
		{279, long, 1, 4},
		{315, ascii, uint32(len(text)), 0}, // text offset, patched below
	}
	ifdEnd := 8 + 2 + 12*len(entries) + 4
	textAt := uint32(ifdEnd)
	pixelsAt := textAt + uint32(len(text))
	entries[5].data = pixelsAt
	entries[9].data = textAt

	var buf bytes.Buffer
	buf.Write([]byte{'I', 'I', 0x2a, 0})
	_ = binary.Write(&buf, binary.LittleEndian, uint32(8))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(len(entries)))
	for _, e := range entries {
		_ = binary.Write(&buf, binary.LittleEndian, e.tag)
		_ = binary.Write(&buf, binary.LittleEndian, e.typ)
		_ = binary.Write(&buf, binary.LittleEndian, e.count)
		_ = binary.Write(&buf, binary.LittleEndian, e.data)
	}
	_ = binary.Write(&buf, binary.LittleEndian, uint32(0))
	buf.Write(text)
	buf.Write([]byte{0x10, 0x40, 0x80, 0xf0})
	return buf.Bytes()
}

// paddedCodec decodes for real but writes size filler bytes, so the size
// comparison in finalize is under the test's control.
type paddedCodec struct {
	encode.Codec
	size int
}

func (c paddedCodec) DecodeConfig([]byte) (int, int, int, error) { return 2, 2, 1, nil }

func (c paddedCodec) Encode(w io.Writer, _ *encode.Frames, _ media.Format, _ int) error {
	_, err := w.Write(make([]byte, c.size))
	return err
}

func processTIFF(t *testing.T, mode metadata.CopyMode, codec encode.Codec) (Result, []byte, []byte) {
	t.Helper()
	root := t.TempDir()
	src := filepath.Join(root, "scan.tif")
	original := taggedTIFF()
	writeFile(t, src, original)

	p, err := NewFrameProcessor(Config{
		Settings: settings.Output{
			Format:   media.FormatKeepSame,
			Location: settings.InCompressedFolder,
			Metadata: mode,
			CacheDir: t.TempDir(),
		},
		Codec:  codec,
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)

	res := p.Process(context.Background(), descriptorFor(t, root, src), &StopSignal{})
	require.True(t, res.Succeeded, "err: %v", res.Err)
	out, err := os.ReadFile(res.OutputPath)
	require.NoError(t, err)
	return res, original, out
}

func TestFallbackNeverShipsUnrewritableMetadata(t *testing.T) {
	for _, mode := range []metadata.CopyMode{metadata.CopyNone, metadata.CopyAllExceptSensitive} {
		t.Run(mode.String(), func(t *testing.T) {
			res, original, out := processTIFF(t, mode, paddedCodec{Codec: encode.NewCodec(), size: 4096})
			assert.True(t, res.HasWarning(FileSizeIncreased))
			assert.False(t, res.HasWarning(UsedOriginalFile))
			assert.NotEqual(t, original, out)
			assert.NotContains(t, string(out), artist)
		})
	}
}

func TestFallbackWithRealTIFFEncoderDropsTags(t *testing.T) {
	res, _, out := processTIFF(t, metadata.CopyNone, encode.NewCodec())
	assert.False(t, res.HasWarning(UsedOriginalFile))
	assert.NotContains(t, string(out), artist)
}

func TestFallbackUsesUnrewritableOriginalWhenCopyingAll(t *testing.T) {
	original := taggedTIFF()
	res, _, out := processTIFF(t, metadata.CopyAll, paddedCodec{Codec: encode.NewCodec(), size: len(original) + 100})
	assert.True(t, res.HasWarning(UsedOriginalFile))
	assert.True(t, res.HasWarning(FileSizeIncreased))
	assert.Equal(t, original, out)
}

func TestEqualSizeUsesOriginalWithoutSizeWarning(t *testing.T) {
	original := taggedTIFF()
	res, _, out := processTIFF(t, metadata.CopyAll, paddedCodec{Codec: encode.NewCodec(), size: len(original)})
	assert.True(t, res.HasWarning(UsedOriginalFile))
	assert.False(t, res.HasWarning(FileSizeIncreased))
	assert.Equal(t, original, out)
	assert.Equal(t, res.OriginalSize, res.CompressedSize)
}
