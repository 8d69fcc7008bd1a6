package encode

import (
	"bytes"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"os"
	"path/filepath"
	"testing"

	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"squeeze/internal/media"
	"squeeze/pkg/imgutil"
)

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 128, A: 255})
		}
	}
	return img
}

func animatedGIF(t *testing.T, n, w, h int) []byte {
	t.Helper()
	g := &gif.GIF{Config: image.Config{ColorModel: color.Palette(palette.Plan9), Width: w, Height: h}}
	for i := 0; i < n; i++ {
		// Later frames only cover part of the canvas.
		rect := image.Rect(0, 0, w, h)
		if i > 0 {
			rect = image.Rect(i, i, w/2+i, h/2+i)
		}
		p := image.NewPaletted(rect, palette.Plan9)
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			for x := rect.Min.X; x < rect.Max.X; x++ {
				p.SetColorIndex(x, y, uint8((x+y+i*17)%250))
			}
		}
		g.Image = append(g.Image, p)
		g.Delay = append(g.Delay, 10)
		g.Disposal = append(g.Disposal, gif.DisposalNone)
	}
	var buf bytes.Buffer
	require.NoError(t, gif.EncodeAll(&buf, g))
	return buf.Bytes()
}

func TestApplicable(t *testing.T) {
	assert.True(t, Applicable(Request{SourceExt: ".PNG", Target: media.FormatWebp, Quality: 80}))
	assert.True(t, Applicable(Request{SourceExt: ".gif", Target: media.FormatWebp, Quality: 0}))
	assert.False(t, Applicable(Request{SourceExt: ".png", Target: media.FormatWebp, Quality: 100}))
	assert.False(t, Applicable(Request{SourceExt: ".jpg", Target: media.FormatWebp, Quality: 80}))
	assert.False(t, Applicable(Request{SourceExt: ".png", Target: media.FormatJpg, Quality: 80}))
}

func TestTryWriteNotApplicableWritesNothing(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.jpg")
	handled, err := TryWrite(gradient(16, 16), Request{SourceExt: ".png", Target: media.FormatJpg, Quality: 80}, out)
	require.NoError(t, err)
	assert.False(t, handled)
	_, err = os.Stat(out)
	assert.True(t, os.IsNotExist(err))
}

func TestTryWritePicksSmallerCandidate(t *testing.T) {
	img := gradient(64, 48)
	out := filepath.Join(t.TempDir(), "nested", "dir", "out.webp")

	handled, err := TryWrite(img, Request{SourceExt: ".png", Target: media.FormatWebp, Quality: 60}, out)
	require.NoError(t, err)
	require.True(t, handled)

	written, err := os.ReadFile(out)
	require.NoError(t, err)

	var lossy, lossless bytes.Buffer
	require.NoError(t, webp.Encode(&lossy, img, &webp.Options{Quality: 60}))
	require.NoError(t, webp.Encode(&lossless, img, &webp.Options{Lossless: true}))
	smaller := lossy.Len()
	if lossless.Len() < smaller {
		smaller = lossless.Len()
	}
	assert.Equal(t, smaller, len(written))

	decoded, err := webp.Decode(bytes.NewReader(written))
	require.NoError(t, err)
	assert.Equal(t, img.Bounds().Size(), decoded.Bounds().Size())
}

func TestTryWriteFramesKeepsAnimation(t *testing.T) {
	frames, err := NewCodec().Decode(animatedGIF(t, 5, 40, 30))
	require.NoError(t, err)
	frames = frames.Coalesce()

	out := filepath.Join(t.TempDir(), "anim.webp")
	handled, err := TryWriteFrames(frames, Request{SourceExt: ".gif", Target: media.FormatWebp, Quality: 70}, out)
	require.NoError(t, err)
	require.True(t, handled)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	w, h, n, err := imgutil.WebPInfo(data)
	require.NoError(t, err)
	assert.Equal(t, 40, w)
	assert.Equal(t, 30, h)
	assert.Equal(t, 5, n)
}

func TestCoalesceProducesFullCanvasFrames(t *testing.T) {
	frames, err := NewCodec().Decode(animatedGIF(t, 3, 20, 10))
	require.NoError(t, err)
	require.Equal(t, 3, frames.Len())
	assert.NotEqual(t, image.Rect(0, 0, 20, 10), frames.Frames[1].Image.Bounds())

	full := frames.Coalesce()
	require.Equal(t, 3, full.Len())
	for _, fr := range full.Frames {
		assert.Equal(t, image.Rect(0, 0, 20, 10), fr.Image.Bounds())
		assert.Equal(t, 100, fr.DelayMS)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	src := Single(gradient(4, 4))
	cp := src.Clone()
	cp.Frames[0].Image.(*image.NRGBA).Set(0, 0, color.NRGBA{A: 255})
	assert.NotEqual(t, src.First().At(0, 0), cp.First().At(0, 0))
}

func TestCodecRoundTrips(t *testing.T) {
	c := NewCodec()
	still := Single(gradient(24, 12))

	for _, f := range []media.Format{media.FormatJpg, media.FormatPng, media.FormatTiff, media.FormatWebp, media.FormatGif} {
		t.Run(f.String(), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, c.Encode(&buf, still, f, 80))

			w, h, n, err := c.DecodeConfig(buf.Bytes())
			require.NoError(t, err)
			assert.Equal(t, 24, w)
			assert.Equal(t, 12, h)
			assert.Equal(t, 1, n)

			decoded, err := c.Decode(buf.Bytes())
			require.NoError(t, err)
			assert.Equal(t, 1, decoded.Len())
		})
	}
}

func TestEncodeAnimatedGIF(t *testing.T) {
	c := NewCodec()
	frames, err := c.Decode(animatedGIF(t, 4, 16, 16))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, c.Encode(&buf, frames.Coalesce(), media.FormatGif, NoQuality))

	_, _, n, err := c.DecodeConfig(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestDecodeRejectsUnknown(t *testing.T) {
	_, err := NewCodec().Decode([]byte("definitely not an image"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestWebPLoopCount(t *testing.T) {
	assert.Equal(t, 0, webpLoopCount(0))
	assert.Equal(t, 1, webpLoopCount(-1))
	assert.Equal(t, 3, webpLoopCount(2))
}
