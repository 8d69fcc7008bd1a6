package processor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"squeeze/internal/dimension"
	"squeeze/internal/encode"
	"squeeze/internal/logging"
	"squeeze/internal/media"
	"squeeze/internal/metadata"
	"squeeze/internal/optimizer"
	"squeeze/internal/outpath"
	"squeeze/internal/settings"
)

var (
	errStopped = errors.New("stopped")
	// errFreeze marks an output that failed the post-write checks.
	errFreeze = errors.New("output failed verification")
)

// Config wires a FrameProcessor for one run.
type Config struct {
	Settings            settings.Output
	FromMultiSelectRoot bool
	ForPreview          bool
	Codec               encode.Codec
	Optimizer           *optimizer.Runner
	Logger              zerolog.Logger
}

// FrameProcessor runs the per-file pipeline. It holds no per-file state and is
// safe to share between goroutines.
type FrameProcessor struct {
	settings  settings.Output
	multiRoot bool
	preview   bool
	codec     encode.Codec
	optimizer *optimizer.Runner
	watermark image.Image
	log       zerolog.Logger
}

func NewFrameProcessor(cfg Config) (*FrameProcessor, error) {
	p := &FrameProcessor{
		settings:  cfg.Settings.Normalize(),
		multiRoot: cfg.FromMultiSelectRoot,
		preview:   cfg.ForPreview,
		codec:     cfg.Codec,
		optimizer: cfg.Optimizer,
		log:       cfg.Logger,
	}
	if p.codec == nil {
		p.codec = encode.NewCodec()
	}
	if p.settings.Watermark.Enabled {
		wm, err := imaging.Open(p.settings.Watermark.ImagePath)
		if err != nil {
			return nil, fmt.Errorf("loading watermark: %w", err)
		}
		p.watermark = wm
	}
	return p, nil
}

// stageResult is what each pipeline stage hands back: nil err to continue,
// or the classified reason to stop.
type stageResult struct {
	kind ErrorKind
	err  error
}

func proceed() stageResult { return stageResult{} }

func (r stageResult) ok() bool { return r.kind == ErrorNone }

func fail(err error) stageResult {
	switch {
	case errors.Is(err, errStopped):
		return stageResult{kind: Cancelled, err: err}
	case errors.Is(err, fs.ErrPermission):
		return stageResult{kind: AccessDenied, err: err}
	default:
		return stageResult{kind: FailedToCompress, err: err}
	}
}

// job carries one file through the stages.
type job struct {
	d   *media.Descriptor
	log zerolog.Logger

	outputPath    string
	ext           string
	target        media.Format
	formatChanged bool
	existed       bool

	source       []byte
	originalSize int64
	mode         os.FileMode
	profiles     metadata.Profiles
	frames       *encode.Frames
	orientation  int
	resized      bool

	staging        string
	finalized      bool
	compressedSize int64

	warnings []Warning
}

func (j *job) warn(w Warning) {
	if !hasWarning(j.warnings, w) {
		j.warnings = append(j.warnings, w)
	}
}

// Process takes d through load, shape, resize, write and finalize. It never
// panics; failures come back classified in the Result.
func (p *FrameProcessor) Process(ctx context.Context, d *media.Descriptor, stop *StopSignal) (res Result) {
	j := &job{d: d, log: logging.ForFile(p.log, d.SourcePath)}
	res = Result{Descriptor: d, OriginalSize: d.Size}

	defer func() {
		if r := recover(); r != nil {
			j.log.Error().Interface("panic", r).Msg("recovered while processing")
			p.cleanup(j)
			res.Error = FailedToCompress
			res.Err = fmt.Errorf("panic: %v", r)
			res.Succeeded = false
			res.OutputPath = ""
		}
	}()

	stages := []struct {
		name string
		run  func(context.Context, *job) stageResult
	}{
		{"checkpoint", p.checkpoint(stop)},
		{"resolve", p.resolve},
		{"load", p.load},
		{"checkpoint", p.checkpoint(stop)},
		{"shape", p.shape},
		{"resize", p.resize},
		{"watermark", p.applyWatermark},
		{"checkpoint", p.checkpoint(stop)},
		{"write", p.write},
		{"finalize", p.finalize},
		{"checkpoint", p.checkpoint(stop)},
		{"commit", p.commit},
	}

	for _, stage := range stages {
		r := stage.run(ctx, j)
		if j.originalSize > 0 {
			res.OriginalSize = j.originalSize
		}
		if r.ok() {
			continue
		}
		p.cleanup(j)
		res.Error = r.kind
		res.Err = r.err
		res.Warnings = j.warnings
		if r.kind == Cancelled {
			j.log.Debug().Str("stage", stage.name).Msg("cancelled")
		} else {
			j.log.Warn().Str("stage", stage.name).Err(r.err).Msg(r.kind.String())
		}
		return res
	}

	res.Succeeded = true
	res.OutputPath = j.outputPath
	res.CompressedSize = j.compressedSize
	res.Warnings = j.warnings
	d.SetCompressed(j.outputPath, j.compressedSize, j.frames.Width, j.frames.Height)
	j.log.Debug().Str("output", j.outputPath).Int64("size", j.compressedSize).Msg("compressed")
	return res
}

func (p *FrameProcessor) checkpoint(stop *StopSignal) func(context.Context, *job) stageResult {
	return func(ctx context.Context, j *job) stageResult {
		if stop.Stopped() || ctx.Err() != nil {
			return fail(errStopped)
		}
		return proceed()
	}
}

func (p *FrameProcessor) resolve(_ context.Context, j *job) stageResult {
	path, err := outpath.Resolve(j.d, p.settings, p.multiRoot, p.preview)
	if err != nil {
		return fail(err)
	}
	j.outputPath = path
	j.ext, j.formatChanged = outpath.ResolveExtension(j.d.Ext(), p.settings.Format)

	j.target = p.settings.Format
	if j.target == media.FormatKeepSame {
		j.target, _ = media.FormatForExtension(j.ext)
		if j.formatChanged {
			j.warn(FileFormatChanged)
		}
	}

	if !p.preview && p.settings.Location != settings.ReplaceOriginal {
		if _, err := os.Stat(path); err == nil {
			j.existed = true
		}
	}
	return proceed()
}

func (p *FrameProcessor) load(_ context.Context, j *job) stageResult {
	info, err := os.Stat(j.d.SourcePath)
	if err != nil {
		return fail(err)
	}
	j.mode = info.Mode().Perm()

	data, err := os.ReadFile(j.d.SourcePath)
	if err != nil {
		return fail(err)
	}
	j.source = data
	j.originalSize = int64(len(data))

	profiles, err := metadata.Extract(data)
	if err != nil {
		j.log.Debug().Err(err).Msg("reading metadata")
	}
	j.profiles = profiles
	j.orientation = metadata.ReadOrientation(profiles.Exif)

	frames, err := p.codec.Decode(data)
	if err != nil {
		return fail(fmt.Errorf("decoding: %w", err))
	}
	if frames.Len() == 0 {
		return fail(errors.New("decoding: no frames"))
	}
	j.frames = frames
	return proceed()
}

// shape settles single versus multi-frame handling and corrects orientation.
func (p *FrameProcessor) shape(_ context.Context, j *job) stageResult {
	state := "single-frame"
	if j.frames.Len() > 1 {
		if media.IsAnimatable(j.d.Ext()) {
			j.frames = j.frames.Coalesce()
		}
		if j.target.MultiFrame() && media.IsAnimatable(j.d.Ext()) {
			state = "multi-frame-preserved"
		} else {
			j.frames = j.frames.KeepFirst()
			j.warn(AnimationLost)
			state = "multi-frame-flattened"
		}
	}

	if j.orientation > 1 {
		o := j.orientation
		j.frames = j.frames.Map(func(img image.Image) image.Image { return orient(img, o) })
	}

	j.log.Debug().Str("state", state).Int("frames", j.frames.Len()).Int("orientation", j.orientation).Msg("loaded")
	return proceed()
}

// resize plans from frame 0 and scales every frame to that size.
func (p *FrameProcessor) resize(_ context.Context, j *job) stageResult {
	dim := p.settings.Dimension
	h, w := dimension.Plan(dim.Strategy, dim.Params, j.frames.Height, j.frames.Width)
	if h <= 0 || w <= 0 || (h == j.frames.Height && w == j.frames.Width) {
		return proceed()
	}
	j.frames = j.frames.Map(func(img image.Image) image.Image {
		return imaging.Resize(img, w, h, imaging.Lanczos)
	})
	j.resized = true
	return proceed()
}

func (p *FrameProcessor) applyWatermark(_ context.Context, j *job) stageResult {
	if p.watermark == nil {
		return proceed()
	}
	wm := p.settings.Watermark
	j.frames = j.frames.Map(func(img image.Image) image.Image {
		return overlay(img, p.watermark, wm.Position, wm.Scale, wm.Opacity)
	})
	return proceed()
}

func (p *FrameProcessor) write(ctx context.Context, j *job) stageResult {
	dir := filepath.Dir(j.outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fail(err)
	}
	tmp, err := os.CreateTemp(dir, ".squeeze-*"+j.ext)
	if err != nil {
		return fail(err)
	}
	j.staging = tmp.Name()
	if err := tmp.Close(); err != nil {
		return fail(err)
	}

	quality := encode.NoQuality
	if media.AcceptsQuality(j.ext) {
		quality = p.settings.Quality
	}

	req := encode.Request{SourceExt: j.d.Ext(), Target: j.target, Quality: quality}
	handled, err := encode.TryWriteFrames(j.frames, req, j.staging)
	if err != nil {
		return fail(fmt.Errorf("encoding: %w", err))
	}
	if !handled {
		if err := p.encodeTo(j.staging, j.frames, j.target, quality); err != nil {
			return fail(fmt.Errorf("encoding: %w", err))
		}
	}

	if p.optimizer.Has(j.target) {
		if err := p.optimizer.Run(ctx, j.target, j.staging); err != nil {
			j.log.Warn().Err(err).Msg("optimizer failed, keeping encoder output")
		}
	}
	return proceed()
}

func (p *FrameProcessor) encodeTo(path string, frames *encode.Frames, format media.Format, quality int) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := p.codec.Encode(f, frames, format, quality); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// commit moves a replace-mode output from the cache over the original.
func (p *FrameProcessor) commit(_ context.Context, j *job) stageResult {
	if p.preview || p.settings.Location != settings.ReplaceOriginal {
		return proceed()
	}

	dest := outpath.CommitPath(j.d.SourcePath, j.outputPath)
	if dest != j.d.SourcePath {
		if _, err := os.Stat(dest); err == nil {
			j.warn(FileOverwritten)
		}
	}
	if err := moveFile(j.outputPath, dest); err != nil {
		return fail(err)
	}
	if dest != j.d.SourcePath {
		if err := os.Remove(j.d.SourcePath); err != nil && !os.IsNotExist(err) {
			return fail(err)
		}
	}
	j.outputPath = dest
	return proceed()
}

// cleanup removes what this file wrote. Outputs placed over an existing file
// have already replaced it and are kept.
func (p *FrameProcessor) cleanup(j *job) {
	if j.staging != "" {
		_ = os.Remove(j.staging)
	}
	if j.finalized && !j.existed && j.outputPath != "" && j.outputPath != j.d.SourcePath {
		_ = os.Remove(j.outputPath)
	}
}

func orient(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// overlay scales mark so its longer side is scale times the short edge of img
// and draws it at pos with a small inset.
func overlay(img, mark image.Image, pos settings.Position, scale, opacity float64) image.Image {
	b := img.Bounds()
	short := b.Dx()
	if b.Dy() < short {
		short = b.Dy()
	}
	target := int(float64(short) * scale)
	if target < 1 {
		return img
	}
	mb := mark.Bounds()
	if mb.Dx() >= mb.Dy() {
		mark = imaging.Resize(mark, target, 0, imaging.Lanczos)
	} else {
		mark = imaging.Resize(mark, 0, target, imaging.Lanczos)
	}

	inset := short / 50
	mw, mh := mark.Bounds().Dx(), mark.Bounds().Dy()
	var at image.Point
	switch pos {
	case settings.TopLeft:
		at = image.Pt(inset, inset)
	case settings.TopRight:
		at = image.Pt(b.Dx()-mw-inset, inset)
	case settings.BottomLeft:
		at = image.Pt(inset, b.Dy()-mh-inset)
	case settings.Center:
		at = image.Pt((b.Dx()-mw)/2, (b.Dy()-mh)/2)
	default:
		at = image.Pt(b.Dx()-mw-inset, b.Dy()-mh-inset)
	}
	return imaging.Overlay(img, mark, b.Min.Add(at), opacity)
}
