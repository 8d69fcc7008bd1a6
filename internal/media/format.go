package media

import (
	"fmt"
	"strings"
)

// Format is the target output format of a run.
type Format int

const (
	FormatKeepSame Format = iota
	FormatJpg
	FormatPng
	FormatTiff
	FormatWebp
	FormatAvif
	FormatGif
)

var formatNames = map[Format]string{
	FormatKeepSame: "keep",
	FormatJpg:      "jpg",
	FormatPng:      "png",
	FormatTiff:     "tiff",
	FormatWebp:     "webp",
	FormatAvif:     "avif",
	FormatGif:      "gif",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// ParseFormat accepts the names produced by String plus common aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "", "keep", "keepsame", "same":
		return FormatKeepSame, nil
	case "jpg", "jpeg":
		return FormatJpg, nil
	case "png":
		return FormatPng, nil
	case "tif", "tiff":
		return FormatTiff, nil
	case "webp":
		return FormatWebp, nil
	case "avif":
		return FormatAvif, nil
	case "gif":
		return FormatGif, nil
	}
	return FormatKeepSame, fmt.Errorf("unknown output format %q", s)
}

// Extensions are the accepted spellings for a format, default first.
func (f Format) Extensions() []string {
	return formatExtensions[f]
}

// DefaultExtension is the spelling used when the source spelling can't be kept.
func (f Format) DefaultExtension() string {
	exts := formatExtensions[f]
	if len(exts) == 0 {
		return ""
	}
	return exts[0]
}

// MultiFrame reports whether the format can carry an animation.
func (f Format) MultiFrame() bool {
	return f == FormatGif || f == FormatWebp
}

var formatExtensions = map[Format][]string{
	FormatJpg:  {".jpg", ".jpeg", ".jpe", ".jfif"},
	FormatPng:  {".png"},
	FormatTiff: {".tif", ".tiff"},
	FormatWebp: {".webp"},
	FormatAvif: {".avif"},
	FormatGif:  {".gif"},
}

// FormatForExtension maps an output-capable extension to its format. Inputs
// that are not valid outputs map to FormatKeepSame with ok == false.
func FormatForExtension(ext string) (Format, bool) {
	lower := strings.ToLower(ext)
	for f, exts := range formatExtensions {
		for _, candidate := range exts {
			if candidate == lower {
				return f, true
			}
		}
	}
	return FormatKeepSame, false
}

// IsSupportedOutput reports whether ext can be written as-is.
func IsSupportedOutput(ext string) bool {
	_, ok := FormatForExtension(ext)
	return ok
}

var inputExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".jpe": true, ".jfif": true,
	".png": true, ".apng": true,
	".gif": true,
	".tif": true, ".tiff": true,
	".webp": true,
	".avif": true,
	".bmp":  true,
}

// IsSupportedInput reports whether files with ext are picked up by a scan.
func IsSupportedInput(ext string) bool {
	return inputExtensions[strings.ToLower(ext)]
}

var animatableExtensions = map[string]bool{
	".gif": true, ".webp": true, ".png": true, ".apng": true,
}

// IsAnimatable reports whether a source with ext may hold more than one frame.
func IsAnimatable(ext string) bool {
	return animatableExtensions[strings.ToLower(ext)]
}

var qualityExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".jpe": true, ".jfif": true,
	".webp": true, ".avif": true, ".heic": true,
}

// AcceptsQuality reports whether an encode to ext takes a lossy quality.
func AcceptsQuality(ext string) bool {
	return qualityExtensions[strings.ToLower(ext)]
}

var losslessFamily = map[string]bool{
	".bmp": true, ".ico": true, ".tga": true, ".apng": true, ".psd": true,
}

// SubstituteExtension is the stand-in extension for a KeepSame source whose own
// extension can't be written.
func SubstituteExtension(srcExt string) string {
	if losslessFamily[strings.ToLower(srcExt)] {
		return FormatPng.DefaultExtension()
	}
	return FormatJpg.DefaultExtension()
}
