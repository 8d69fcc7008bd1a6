package processor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"squeeze/internal/metadata"
)

// finalize embeds the metadata, verifies the staged output and decides between
// it and the original bytes before moving it into place.
func (p *FrameProcessor) finalize(_ context.Context, j *job) stageResult {
	data, err := os.ReadFile(j.staging)
	if err != nil {
		return fail(err)
	}

	var profiles metadata.Profiles
	if err := metadata.Apply(&j.profiles, &profiles, p.settings.Metadata); err != nil {
		j.log.Warn().Err(err).Msg("dropping unreadable exif")
	}
	if !profiles.Empty() {
		if data, err = metadata.Embed(data, profiles); err != nil {
			return fail(fmt.Errorf("embedding metadata: %w", err))
		}
	}

	w, h, n, err := p.codec.DecodeConfig(data)
	if err != nil {
		return fail(fmt.Errorf("%w: %v", errFreeze, err))
	}
	if w != j.frames.Width || h != j.frames.Height || n != j.frames.Len() {
		return fail(fmt.Errorf("%w: got %dx%d with %d frames, want %dx%d with %d",
			errFreeze, w, h, n, j.frames.Width, j.frames.Height, j.frames.Len()))
	}

	if encoded := int64(len(data)); encoded >= j.originalSize {
		if encoded > j.originalSize {
			j.warn(FileSizeIncreased)
		}
		if original, ok := p.fallback(j, profiles); ok && len(original) <= len(data) {
			data = original
			j.warn(UsedOriginalFile)
		}
	}

	if err := os.WriteFile(j.staging, data, j.mode|0o200); err != nil {
		return fail(err)
	}
	if err := os.Chmod(j.staging, j.mode|0o200); err != nil {
		return fail(err)
	}
	if err := replaceFile(j.staging, j.outputPath); err != nil {
		return fail(err)
	}
	j.staging = ""
	j.finalized = true
	j.compressedSize = int64(len(data))

	if j.existed {
		j.warn(FileOverwritten)
	}
	return proceed()
}

// fallback returns the original bytes, carrying the same metadata as the
// compressed output, when they can stand in for it. That is only the case when
// the pixels were not changed and the container is the same. Originals whose
// metadata cannot be rewritten are only used when everything may be copied.
func (p *FrameProcessor) fallback(j *job, profiles metadata.Profiles) ([]byte, bool) {
	if j.formatChanged || j.resized || p.watermark != nil || j.orientation > 1 {
		return nil, false
	}
	if hasWarning(j.warnings, AnimationLost) {
		return nil, false
	}
	if !metadata.CanEmbed(j.source) && p.settings.Metadata != metadata.CopyAll {
		return nil, false
	}
	original, err := metadata.Embed(j.source, profiles)
	if err != nil {
		j.log.Debug().Err(err).Msg("original cannot be re-annotated")
		return nil, false
	}
	return original, true
}

func hasWarning(warnings []Warning, w Warning) bool {
	for _, got := range warnings {
		if got == w {
			return true
		}
	}
	return false
}

func replaceFile(tmpPath, destPath string) error {
	if err := os.Rename(tmpPath, destPath); err == nil {
		return nil
	}
	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Rename(tmpPath, destPath)
}

// moveFile renames src to dst, copying through a temp file next to dst when the
// two are on different filesystems.
func moveFile(src, dst string) error {
	if src == dst {
		return nil
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".squeeze-*"+filepath.Ext(dst))
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := replaceFile(tmp.Name(), dst); err != nil {
		return err
	}
	return os.Remove(src)
}
