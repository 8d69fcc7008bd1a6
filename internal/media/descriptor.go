package media

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// Descriptor is one source file under one selection root.
type Descriptor struct {
	SourcePath    string
	SelectionRoot string

	Width  int
	Height int
	Size   int64

	HiddenByFilter bool
	ExcludedByUser bool

	mu               sync.Mutex
	compressedSize   int64
	compressedWidth  int
	compressedHeight int
	outputPath       string
}

// NewDescriptor builds a descriptor from absolute paths.
func NewDescriptor(source, root string, size int64) *Descriptor {
	return &Descriptor{
		SourcePath:    filepath.Clean(source),
		SelectionRoot: filepath.Clean(root),
		Size:          size,
	}
}

// SelectedAsFile reports whether the user picked this file directly rather
// than a folder containing it.
func (d *Descriptor) SelectedAsFile() bool {
	return d.SourcePath == d.SelectionRoot
}

// RootDir is the directory the relative path is measured from.
func (d *Descriptor) RootDir() string {
	if d.SelectedAsFile() {
		return filepath.Dir(d.SourcePath)
	}
	return d.SelectionRoot
}

// RelativePath is the source path relative to the selection root.
func (d *Descriptor) RelativePath() (string, error) {
	if d.SelectedAsFile() {
		return filepath.Base(d.SourcePath), nil
	}
	rel, err := filepath.Rel(d.SelectionRoot, d.SourcePath)
	if err != nil {
		return "", err
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is not under selection root %s", d.SourcePath, d.SelectionRoot)
	}
	return rel, nil
}

// Excluded reports whether either exclusion flag is set.
func (d *Descriptor) Excluded() bool {
	return d.HiddenByFilter || d.ExcludedByUser
}

// Ext returns the source extension as spelled on disk.
func (d *Descriptor) Ext() string {
	return filepath.Ext(d.SourcePath)
}

// SetCompressed records the finalized output of a run.
func (d *Descriptor) SetCompressed(path string, size int64, width, height int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.outputPath = path
	d.compressedSize = size
	d.compressedWidth = width
	d.compressedHeight = height
}

// Compressed returns the values stored by SetCompressed.
func (d *Descriptor) Compressed() (path string, size int64, width, height int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.outputPath, d.compressedSize, d.compressedWidth, d.compressedHeight
}

func (d *Descriptor) String() string {
	return d.SourcePath
}
