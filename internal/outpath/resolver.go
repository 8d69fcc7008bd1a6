// Package outpath maps a source file and the run settings to the path its
// output is written to.
package outpath

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"squeeze/internal/media"
	"squeeze/internal/settings"
)

// CompressedFolderName is the folder inserted by the InCompressedFolder location.
const CompressedFolderName = "Compressed"

var (
	ErrUnsupportedSetting       = errors.New("unsupported output setting")
	ErrOutputFolderUnconfigured = errors.New("output folder is not configured")
)

// Preflight reports configuration errors that would fail every file of a run.
func Preflight(s settings.Output) error {
	switch s.Location {
	case settings.ReplaceOriginal, settings.InCompressedFolder, settings.SameFolderWithFileNameSuffix:
		return nil
	case settings.UserSpecificFolder:
		if strings.TrimSpace(s.OutputFolder) == "" {
			return ErrOutputFolderUnconfigured
		}
		return nil
	default:
		return fmt.Errorf("%w: location %s", ErrUnsupportedSetting, s.Location)
	}
}

// Resolve returns the destination for d. Replace and preview runs always land
// in the cache mirror so the original is never written in place.
func Resolve(d *media.Descriptor, s settings.Output, fromMultiSelectRoot, forPreview bool) (string, error) {
	rel, err := d.RelativePath()
	if err != nil {
		return "", err
	}
	relDir := filepath.Dir(rel)
	ext, _ := ResolveExtension(d.Ext(), s.Format)
	stem := strings.TrimSuffix(filepath.Base(d.SourcePath), d.Ext())
	name := stem + ext

	if forPreview || s.Location == settings.ReplaceOriginal {
		return filepath.Join(CacheMirror(s.CacheDir, d.RootDir()), relDir, name), nil
	}

	switch s.Location {
	case settings.InCompressedFolder:
		if !fromMultiSelectRoot && !d.SelectedAsFile() {
			return filepath.Join(d.SelectionRoot, CompressedFolderName, relDir, name), nil
		}
		return filepath.Join(filepath.Dir(d.SourcePath), CompressedFolderName, name), nil

	case settings.UserSpecificFolder:
		folder := strings.TrimSpace(s.OutputFolder)
		if folder == "" {
			return "", ErrOutputFolderUnconfigured
		}
		if fromMultiSelectRoot {
			parent := filepath.Base(filepath.Dir(d.SourcePath))
			return filepath.Join(folder, parent, name), nil
		}
		if s.KeepFolderStructure {
			return filepath.Join(folder, relDir, name), nil
		}
		return filepath.Join(folder, name), nil

	case settings.SameFolderWithFileNameSuffix:
		return filepath.Join(filepath.Dir(d.SourcePath), rename(stem, s.Naming)+ext), nil

	default:
		return "", fmt.Errorf("%w: location %s", ErrUnsupportedSetting, s.Location)
	}
}

// CommitPath is where a replace run moves the cached output: beside the
// source, under the output's name.
func CommitPath(source, cached string) string {
	return filepath.Join(filepath.Dir(source), filepath.Base(cached))
}

// Destination is the final location of d's output once the run is over. For
// replace runs that is the commit path rather than the cache.
func Destination(d *media.Descriptor, s settings.Output, fromMultiSelectRoot, forPreview bool) (string, error) {
	path, err := Resolve(d, s, fromMultiSelectRoot, forPreview)
	if err != nil {
		return "", err
	}
	if !forPreview && s.Location == settings.ReplaceOriginal {
		return CommitPath(d.SourcePath, path), nil
	}
	return path, nil
}

// CacheMirror is the per-root directory inside cacheDir that mirrors the tree
// under root.
func CacheMirror(cacheDir, root string) string {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+filepath.ToSlash(root)))
	return filepath.Join(cacheDir, id.String())
}

// ResolveExtension picks the output extension for a source with srcExt. An
// extension that already spells the target format is kept as written. changed
// reports that the output format differs from the source's.
func ResolveExtension(srcExt string, format media.Format) (ext string, changed bool) {
	if format == media.FormatKeepSame {
		if media.IsSupportedOutput(srcExt) {
			return srcExt, false
		}
		return media.SubstituteExtension(srcExt), true
	}
	lower := strings.ToLower(srcExt)
	for _, candidate := range format.Extensions() {
		if candidate == lower {
			return srcExt, false
		}
	}
	return format.DefaultExtension(), true
}

func rename(stem string, n settings.Naming) string {
	if n.ReplaceFrom != "" {
		stem = strings.ReplaceAll(stem, n.ReplaceFrom, n.ReplaceTo)
	}
	return n.Prefix + stem + n.Suffix
}
