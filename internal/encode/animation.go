package encode

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"io"

	"github.com/chai2010/webp"

	"squeeze/pkg/imgutil"
)

// gifPalette is web-safe plus one fully transparent entry.
var gifPalette = append(append(color.Palette{}, palette.WebSafe...), color.Transparent)

func encodeGIF(w io.Writer, frames *Frames) error {
	out := &gif.GIF{LoopCount: frames.LoopCount}
	for _, fr := range frames.Frames {
		b := fr.Image.Bounds()
		p := image.NewPaletted(image.Rect(0, 0, b.Dx(), b.Dy()), gifPalette)
		draw.FloydSteinberg.Draw(p, p.Bounds(), fr.Image, b.Min)
		out.Image = append(out.Image, p)
		out.Delay = append(out.Delay, fr.DelayMS/10)
		out.Disposal = append(out.Disposal, gif.DisposalNone)
	}
	if frames.Len() == 1 {
		out.LoopCount = 0
	}
	out.Config = image.Config{ColorModel: gifPalette, Width: frames.Width, Height: frames.Height}
	return gif.EncodeAll(w, out)
}

// encodeAnimatedWebP encodes each coalesced frame as a still with chai2010/webp
// and muxes the bitstreams into an ANIM/ANMF container. Frames are full-canvas,
// so every ANMF sits at the origin and replaces the previous frame.
func encodeAnimatedWebP(w io.Writer, frames *Frames, opts *webp.Options) error {
	var anmfs []imgutil.Chunk
	hasAlpha := false

	for _, fr := range frames.Frames {
		var buf bytes.Buffer
		if err := webp.Encode(&buf, fr.Image, opts); err != nil {
			return err
		}
		chunks, err := imgutil.ReadWebPChunks(buf.Bytes())
		if err != nil {
			return err
		}

		var frameData bytes.Buffer
		for _, c := range chunks {
			switch c.FourCC {
			case "ALPH":
				hasAlpha = true
			case "VP8L":
				if _, _, alpha, err := imgutil.BitstreamSize(c); err == nil && alpha {
					hasAlpha = true
				}
			case "VP8 ":
			default:
				continue
			}
			frameData.Write(imgutil.EncodeChunk(c.FourCC, c.Data))
		}
		if frameData.Len() == 0 {
			return errors.New("webp encoder produced no bitstream")
		}

		b := fr.Image.Bounds()
		header := make([]byte, 16)
		imgutil.PutUint24(header[6:9], uint32(b.Dx()-1))
		imgutil.PutUint24(header[9:12], uint32(b.Dy()-1))
		imgutil.PutUint24(header[12:15], uint32(clampDelay(fr.DelayMS)))
		header[15] = 0x02 // no blending, no disposal
		anmfs = append(anmfs, imgutil.Chunk{FourCC: "ANMF", Data: append(header, frameData.Bytes()...)})
	}

	flags := byte(imgutil.VP8XFlagAnimation)
	if hasAlpha {
		flags |= imgutil.VP8XFlagAlpha
	}

	anim := make([]byte, 6)
	anim[4] = byte(webpLoopCount(frames.LoopCount))
	anim[5] = byte(webpLoopCount(frames.LoopCount) >> 8)

	chunks := []imgutil.Chunk{
		{FourCC: "VP8X", Data: imgutil.VP8XPayload(flags, frames.Width, frames.Height)},
		{FourCC: "ANIM", Data: anim},
	}
	chunks = append(chunks, anmfs...)

	_, err := w.Write(imgutil.WriteWebP(chunks))
	return err
}

// webpLoopCount converts image/gif loop semantics (0 forever, -1 once, n extra
// repeats) to WebP's (0 forever, n total plays).
func webpLoopCount(gifLoops int) int {
	switch {
	case gifLoops == 0:
		return 0
	case gifLoops < 0:
		return 1
	case gifLoops >= 0xffff:
		return 0xffff
	default:
		return gifLoops + 1
	}
}

func clampDelay(ms int) int {
	if ms < 0 {
		return 0
	}
	if ms > 0xffffff {
		return 0xffffff
	}
	return ms
}
