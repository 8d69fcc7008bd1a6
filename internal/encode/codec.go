// Package encode decodes source images into frame collections and writes them
// back out, including the lossless-vs-lossy WebP comparison.
package encode

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/png"
	"io"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/gen2brain/avif"

	"squeeze/internal/media"
	"squeeze/pkg/imgutil"
)

// ErrUnsupportedFormat is returned for containers no codec can handle.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// NoQuality tells Encode to use the format's own default.
const NoQuality = -1

const (
	defaultQuality = 75
	avifSpeed      = 8
)

// Codec is the decode/encode capability the pipeline consumes.
type Codec interface {
	Decode(data []byte) (*Frames, error)
	DecodeConfig(data []byte) (width, height, frames int, err error)
	Encode(w io.Writer, frames *Frames, format media.Format, quality int) error
}

type codec struct{}

// NewCodec returns the built-in codec: imaging for JPEG/PNG/TIFF/BMP,
// image/gif for GIF animation, chai2010/webp (including animated WebP) and
// gen2brain/avif. Animated PNGs are split into frames before decoding.
func NewCodec() Codec {
	return codec{}
}

func (codec) Decode(data []byte) (*Frames, error) {
	r := bytes.NewReader(data)
	switch imgutil.SniffBytes(data) {
	case imgutil.KindGIF:
		g, err := gif.DecodeAll(r)
		if err != nil {
			return nil, err
		}
		return fromGIF(g), nil
	case imgutil.KindWebP:
		if chunks, err := imgutil.ReadWebPChunks(data); err == nil && hasChunk(chunks, "ANMF") {
			return decodeAnimatedWebP(chunks)
		}
		img, err := webp.Decode(r)
		if err != nil {
			return nil, err
		}
		return Single(img), nil
	case imgutil.KindAVIF:
		img, err := avif.Decode(r)
		if err != nil {
			return nil, err
		}
		return Single(img), nil
	case imgutil.KindPNG:
		if chunks, err := imgutil.ReadPNGChunks(data); err == nil && imgutil.APNGFrameCount(chunks) > 1 {
			return decodeAPNG(chunks)
		}
		img, err := imaging.Decode(r)
		if err != nil {
			return nil, err
		}
		return Single(img), nil
	case imgutil.KindJPEG, imgutil.KindTIFF, imgutil.KindBMP:
		img, err := imaging.Decode(r)
		if err != nil {
			return nil, err
		}
		return Single(img), nil
	default:
		return nil, ErrUnsupportedFormat
	}
}

func (codec) DecodeConfig(data []byte) (int, int, int, error) {
	switch imgutil.SniffBytes(data) {
	case imgutil.KindWebP:
		return imgutil.WebPInfo(data)
	case imgutil.KindGIF:
		g, err := gif.DecodeAll(bytes.NewReader(data))
		if err != nil {
			return 0, 0, 0, err
		}
		return g.Config.Width, g.Config.Height, len(g.Image), nil
	}
	frames := 1
	if chunks, err := imgutil.ReadPNGChunks(data); err == nil {
		frames = imgutil.APNGFrameCount(chunks)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, 0, err
	}
	return cfg.Width, cfg.Height, frames, nil
}

func (codec) Encode(w io.Writer, frames *Frames, format media.Format, quality int) error {
	if frames == nil || frames.Len() == 0 {
		return errors.New("no frames to encode")
	}
	q := quality
	if q < 0 || q > 100 {
		q = defaultQuality
	}

	switch format {
	case media.FormatJpg:
		return imaging.Encode(w, frames.First(), imaging.JPEG, imaging.JPEGQuality(q))
	case media.FormatPng:
		return imaging.Encode(w, frames.First(), imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	case media.FormatTiff:
		return imaging.Encode(w, frames.First(), imaging.TIFF)
	case media.FormatGif:
		return encodeGIF(w, frames)
	case media.FormatWebp:
		if quality == NoQuality {
			q = 100
		}
		if frames.Len() > 1 {
			return encodeAnimatedWebP(w, frames, webpOptions(q))
		}
		return webp.Encode(w, frames.First(), webpOptions(q))
	case media.FormatAvif:
		return avif.Encode(w, frames.First(), avif.Options{Quality: q, QualityAlpha: q, Speed: avifSpeed})
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// webpOptions maps quality 100 to the true lossless encoder.
func webpOptions(quality int) *webp.Options {
	if quality >= 100 {
		return &webp.Options{Lossless: true}
	}
	return &webp.Options{Quality: float32(quality)}
}

func fromGIF(g *gif.GIF) *Frames {
	out := &Frames{Width: g.Config.Width, Height: g.Config.Height, LoopCount: g.LoopCount}
	for i, p := range g.Image {
		fr := Frame{Image: p}
		if i < len(g.Delay) {
			fr.DelayMS = g.Delay[i] * 10
		}
		if i < len(g.Disposal) {
			fr.Disposal = g.Disposal[i]
		}
		out.Frames = append(out.Frames, fr)
	}
	if out.Width == 0 || out.Height == 0 {
		b := g.Image[0].Bounds()
		out.Width, out.Height = b.Max.X, b.Max.Y
	}
	return out
}

func hasChunk(chunks []imgutil.Chunk, fourCC string) bool {
	for _, c := range chunks {
		if c.FourCC == fourCC {
			return true
		}
	}
	return false
}
