package encode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"image/png"

	"github.com/chai2010/webp"

	"squeeze/pkg/imgutil"
)

// decodeAnimatedWebP decodes each ANMF frame as a still and places it at its
// offset on a transparent layer. Frames are left uncoalesced.
func decodeAnimatedWebP(chunks []imgutil.Chunk) (*Frames, error) {
	if len(chunks) == 0 || chunks[0].FourCC != "VP8X" || len(chunks[0].Data) < 10 {
		return nil, errors.New("animated webp without VP8X header")
	}
	vp8x := chunks[0].Data
	out := &Frames{
		Width:  (int(vp8x[4]) | int(vp8x[5])<<8 | int(vp8x[6])<<16) + 1,
		Height: (int(vp8x[7]) | int(vp8x[8])<<8 | int(vp8x[9])<<16) + 1,
	}

	for _, c := range chunks[1:] {
		switch c.FourCC {
		case "ANIM":
			if len(c.Data) >= 6 {
				out.LoopCount = gifLoopCount(int(binary.LittleEndian.Uint16(c.Data[4:6])))
			}
		case "ANMF":
			anmf, err := imgutil.ParseANMF(c)
			if err != nil {
				return nil, err
			}
			img, err := decodeANMF(anmf)
			if err != nil {
				return nil, fmt.Errorf("frame %d: %w", out.Len(), err)
			}
			fr := Frame{
				Image:    placeLayer(img, anmf.X, anmf.Y),
				DelayMS:  anmf.DurationMS,
				Disposal: gif.DisposalNone,
				Replace:  anmf.NoBlend,
			}
			if anmf.DisposeBackground {
				fr.Disposal = gif.DisposalBackground
			}
			out.Frames = append(out.Frames, fr)
		}
	}
	if out.Len() == 0 {
		return nil, errors.New("animated webp has no frames")
	}
	return out, nil
}

// decodeANMF wraps the frame bitstream in its own container for chai2010.
// An ALPH chunk needs a VP8X header to be honoured.
func decodeANMF(f imgutil.ANMF) (image.Image, error) {
	sub, err := imgutil.ReadRIFFChunks(f.Payload)
	if err != nil {
		return nil, err
	}
	var frame []imgutil.Chunk
	if hasChunk(sub, "ALPH") {
		frame = append(frame, imgutil.Chunk{
			FourCC: "VP8X",
			Data:   imgutil.VP8XPayload(imgutil.VP8XFlagAlpha, f.Width, f.Height),
		})
	}
	for _, c := range sub {
		switch c.FourCC {
		case "ALPH", "VP8 ", "VP8L":
			frame = append(frame, c)
		}
	}
	return webp.Decode(bytes.NewReader(imgutil.WriteWebP(frame)))
}

// apngControl is one fcTL chunk.
type apngControl struct {
	width, height int
	x, y          int
	delayMS       int
	dispose       byte
	blend         byte
}

func parseFCTL(data []byte) (apngControl, error) {
	if len(data) < 26 {
		return apngControl{}, errors.New("short fcTL chunk")
	}
	num := int(binary.BigEndian.Uint16(data[20:22]))
	den := int(binary.BigEndian.Uint16(data[22:24]))
	if den == 0 {
		den = 100
	}
	return apngControl{
		width:   int(binary.BigEndian.Uint32(data[4:8])),
		height:  int(binary.BigEndian.Uint32(data[8:12])),
		x:       int(binary.BigEndian.Uint32(data[12:16])),
		y:       int(binary.BigEndian.Uint32(data[16:20])),
		delayMS: num * 1000 / den,
		dispose: data[24],
		blend:   data[25],
	}, nil
}

// decodeAPNG rebuilds each animation frame as a standalone PNG and decodes it
// with image/png. A default image that is not part of the animation is
// skipped.
func decodeAPNG(chunks []imgutil.Chunk) (*Frames, error) {
	if len(chunks) == 0 || chunks[0].FourCC != "IHDR" || len(chunks[0].Data) != 13 {
		return nil, errors.New("png without IHDR")
	}
	ihdr := chunks[0].Data
	out := &Frames{
		Width:  int(binary.BigEndian.Uint32(ihdr[0:4])),
		Height: int(binary.BigEndian.Uint32(ihdr[4:8])),
	}

	var (
		shared  []imgutil.Chunk
		seenDAT bool
		current *apngControl
		pixels  []byte
	)
	flush := func() error {
		if current == nil {
			return nil
		}
		fr, err := apngFrame(ihdr, shared, *current, pixels)
		if err != nil {
			return fmt.Errorf("frame %d: %w", out.Len(), err)
		}
		out.Frames = append(out.Frames, fr)
		current, pixels = nil, nil
		return nil
	}

	for _, c := range chunks[1:] {
		switch c.FourCC {
		case "acTL":
			if len(c.Data) >= 8 {
				out.LoopCount = gifLoopCount(int(binary.BigEndian.Uint32(c.Data[4:8])))
			}
		case "fcTL":
			if err := flush(); err != nil {
				return nil, err
			}
			ctl, err := parseFCTL(c.Data)
			if err != nil {
				return nil, err
			}
			current = &ctl
		case "IDAT":
			seenDAT = true
			if current != nil {
				pixels = append(pixels, c.Data...)
			}
		case "fdAT":
			if current != nil && len(c.Data) > 4 {
				pixels = append(pixels, c.Data[4:]...)
			}
		case "IEND":
		default:
			if !seenDAT {
				shared = append(shared, c)
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if out.Len() == 0 {
		return nil, errors.New("apng has no frames")
	}
	return out, nil
}

func apngFrame(ihdr []byte, shared []imgutil.Chunk, ctl apngControl, pixels []byte) (Frame, error) {
	if ctl.width <= 0 || ctl.height <= 0 || len(pixels) == 0 {
		return Frame{}, errors.New("empty apng frame")
	}
	header := append([]byte(nil), ihdr...)
	binary.BigEndian.PutUint32(header[0:4], uint32(ctl.width))
	binary.BigEndian.PutUint32(header[4:8], uint32(ctl.height))

	stream := []imgutil.Chunk{{FourCC: "IHDR", Data: header}}
	stream = append(stream, shared...)
	stream = append(stream, imgutil.Chunk{FourCC: "IDAT", Data: pixels}, imgutil.Chunk{FourCC: "IEND"})

	img, err := png.Decode(bytes.NewReader(imgutil.WritePNG(stream)))
	if err != nil {
		return Frame{}, err
	}

	fr := Frame{
		Image:   placeLayer(img, ctl.x, ctl.y),
		DelayMS: ctl.delayMS,
		Replace: ctl.blend == 0,
	}
	switch ctl.dispose {
	case 1:
		fr.Disposal = gif.DisposalBackground
	case 2:
		fr.Disposal = gif.DisposalPrevious
	default:
		fr.Disposal = gif.DisposalNone
	}
	return fr, nil
}

// placeLayer copies img onto a layer whose bounds start at (x, y).
func placeLayer(img image.Image, x, y int) image.Image {
	b := img.Bounds()
	layer := image.NewNRGBA(image.Rect(x, y, x+b.Dx(), y+b.Dy()))
	draw.Draw(layer, layer.Bounds(), img, b.Min, draw.Src)
	return layer
}

// gifLoopCount converts a total play count (0 forever) to image/gif loop
// semantics.
func gifLoopCount(plays int) int {
	switch {
	case plays <= 0:
		return 0
	case plays == 1:
		return -1
	default:
		return plays - 1
	}
}
