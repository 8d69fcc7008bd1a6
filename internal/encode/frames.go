package encode

import (
	"image"
	"image/draw"
	"image/gif"

	"github.com/disintegration/imaging"
)

// Frame is one layer of a decoded image. Before Coalesce a layer may cover
// only part of the canvas, positioned by its own Bounds.
type Frame struct {
	Image    image.Image
	DelayMS  int
	Disposal byte
	// Replace draws the layer over its rectangle without alpha blending.
	Replace bool
}

// Frames is a decoded image: a single frame for stills, every layer for
// animations. LoopCount follows image/gif: 0 loops forever, -1 plays once.
type Frames struct {
	Frames    []Frame
	Width     int
	Height    int
	LoopCount int
}

// Single wraps a still image.
func Single(img image.Image) *Frames {
	b := img.Bounds()
	return &Frames{Frames: []Frame{{Image: img}}, Width: b.Dx(), Height: b.Dy()}
}

// Len is the number of frames.
func (f *Frames) Len() int {
	return len(f.Frames)
}

// First returns the first frame image.
func (f *Frames) First() image.Image {
	return f.Frames[0].Image
}

// Clone deep-copies every frame so the copy can be used from another
// goroutine.
func (f *Frames) Clone() *Frames {
	out := &Frames{Width: f.Width, Height: f.Height, LoopCount: f.LoopCount}
	out.Frames = make([]Frame, len(f.Frames))
	for i, fr := range f.Frames {
		out.Frames[i] = Frame{Image: imaging.Clone(fr.Image), DelayMS: fr.DelayMS, Disposal: fr.Disposal, Replace: fr.Replace}
	}
	return out
}

// Coalesce renders every layer onto the full canvas, honouring disposal,
// so each returned frame is a complete picture of Width x Height.
func (f *Frames) Coalesce() *Frames {
	canvasRect := image.Rect(0, 0, f.Width, f.Height)
	canvas := image.NewNRGBA(canvasRect)
	out := &Frames{Width: f.Width, Height: f.Height, LoopCount: f.LoopCount}

	for _, fr := range f.Frames {
		var previous *image.NRGBA
		if fr.Disposal == gif.DisposalPrevious {
			previous = imaging.Clone(canvas)
		}

		layer := fr.Image.Bounds()
		op := draw.Over
		if fr.Replace {
			op = draw.Src
		}
		draw.Draw(canvas, layer, fr.Image, layer.Min, op)
		out.Frames = append(out.Frames, Frame{Image: imaging.Clone(canvas), DelayMS: fr.DelayMS})

		switch fr.Disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, layer, image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			canvas = previous
		}
	}
	return out
}

// KeepFirst drops every frame but the first.
func (f *Frames) KeepFirst() *Frames {
	return &Frames{Frames: f.Frames[:1], Width: f.Width, Height: f.Height, LoopCount: f.LoopCount}
}

// Map applies fn to every frame image, returning a new collection whose
// canvas is the size of the first result.
func (f *Frames) Map(fn func(image.Image) image.Image) *Frames {
	out := &Frames{LoopCount: f.LoopCount}
	for _, fr := range f.Frames {
		out.Frames = append(out.Frames, Frame{Image: fn(fr.Image), DelayMS: fr.DelayMS})
	}
	if len(out.Frames) > 0 {
		b := out.Frames[0].Image.Bounds()
		out.Width, out.Height = b.Dx(), b.Dy()
	}
	return out
}
