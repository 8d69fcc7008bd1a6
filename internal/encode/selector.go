package encode

import (
	"bytes"
	"image"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"squeeze/internal/media"
)

// Request describes the encode a caller is about to perform.
type Request struct {
	SourceExt string
	Target    media.Format
	Quality   int
}

var losslessSourceFamily = map[string]bool{
	".webp": true, ".png": true, ".apng": true, ".gif": true,
}

// Applicable reports whether a lossless candidate is worth comparing: the
// target has a genuine lossless mode, a lossy quality was requested, and the
// source came from a lossless-capable family.
func Applicable(req Request) bool {
	return req.Target == media.FormatWebp &&
		req.Quality >= 0 && req.Quality < 100 &&
		losslessSourceFamily[strings.ToLower(req.SourceExt)]
}

// TryWrite encodes img lossy at req.Quality and lossless, then writes the
// smaller result to outputPath. It returns false without writing anything
// when the comparison does not apply.
func TryWrite(img image.Image, req Request, outputPath string) (bool, error) {
	if !Applicable(req) {
		return false, nil
	}
	return writeSmaller(Single(img), req, outputPath)
}

// TryWriteFrames is TryWrite for a whole frame collection.
func TryWriteFrames(frames *Frames, req Request, outputPath string) (bool, error) {
	if !Applicable(req) {
		return false, nil
	}
	return writeSmaller(frames, req, outputPath)
}

func writeSmaller(frames *Frames, req Request, outputPath string) (bool, error) {
	// Each encode owns its own copy; the caller's frames are never touched
	// from these goroutines.
	lossyFrames := frames.Clone()
	losslessFrames := frames.Clone()

	var lossy, lossless bytes.Buffer
	var g errgroup.Group
	g.Go(func() error {
		return encodeWebP(&lossy, lossyFrames, req.Quality)
	})
	g.Go(func() error {
		return encodeWebP(&lossless, losslessFrames, 100)
	})
	if err := g.Wait(); err != nil {
		return false, err
	}

	best := lossy.Bytes()
	if lossless.Len() < lossy.Len() {
		best = lossless.Bytes()
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return false, err
	}
	if err := os.WriteFile(outputPath, best, 0o644); err != nil {
		return false, err
	}
	return true, nil
}

func encodeWebP(buf *bytes.Buffer, frames *Frames, quality int) error {
	return codec{}.Encode(buf, frames, media.FormatWebp, quality)
}
