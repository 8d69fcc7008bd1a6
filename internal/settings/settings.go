// Package settings holds the immutable per-run output configuration.
package settings

import (
	"fmt"
	"strings"

	"squeeze/internal/dimension"
	"squeeze/internal/media"
	"squeeze/internal/metadata"
)

// Location selects where outputs are written.
type Location int

const (
	ReplaceOriginal Location = iota
	InCompressedFolder
	UserSpecificFolder
	SameFolderWithFileNameSuffix
)

var locationNames = []string{"replace", "compressed-folder", "folder", "suffix"}

func (l Location) String() string {
	if int(l) >= 0 && int(l) < len(locationNames) {
		return locationNames[l]
	}
	return fmt.Sprintf("location(%d)", int(l))
}

// ParseLocation is the inverse of String.
func ParseLocation(s string) (Location, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, candidate := range locationNames {
		if candidate == name {
			return Location(i), nil
		}
	}
	return ReplaceOriginal, fmt.Errorf("unknown output location %q", s)
}

// Position anchors the watermark.
type Position int

const (
	BottomRight Position = iota
	BottomLeft
	TopRight
	TopLeft
	Center
)

var positionNames = []string{"bottom-right", "bottom-left", "top-right", "top-left", "center"}

func (p Position) String() string {
	if int(p) >= 0 && int(p) < len(positionNames) {
		return positionNames[p]
	}
	return fmt.Sprintf("position(%d)", int(p))
}

// ParsePosition is the inverse of String.
func ParsePosition(s string) (Position, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return BottomRight, nil
	}
	for i, candidate := range positionNames {
		if candidate == name {
			return Position(i), nil
		}
	}
	return BottomRight, fmt.Errorf("unknown watermark position %q", s)
}

// Naming holds the file-stem transforms of the suffix location.
type Naming struct {
	Prefix      string
	Suffix      string
	ReplaceFrom string
	ReplaceTo   string
}

// Watermark overlays an image on every output.
type Watermark struct {
	Enabled   bool
	ImagePath string
	Opacity   float64
	Position  Position
	Scale     float64
}

// Dimension is the resize strategy and its parameters.
type Dimension struct {
	Strategy dimension.Strategy
	Params   dimension.Params
}

// Output is a snapshot of everything a run needs. It is passed by value and
// never mutated once a run has started.
type Output struct {
	Format    media.Format
	Quality   int
	Dimension Dimension

	Location            Location
	OutputFolder        string
	KeepFolderStructure bool
	Naming              Naming

	Metadata  metadata.CopyMode
	Watermark Watermark

	CacheDir   string
	Optimizers map[string][]string
	Workers    int
}

// Normalize clamps numeric fields into range.
func (o Output) Normalize() Output {
	if o.Quality < 0 {
		o.Quality = 0
	}
	if o.Quality > 100 {
		o.Quality = 100
	}
	if o.Watermark.Opacity <= 0 || o.Watermark.Opacity > 1 {
		o.Watermark.Opacity = 1
	}
	if o.Watermark.Scale <= 0 || o.Watermark.Scale > 1 {
		o.Watermark.Scale = 0.2
	}
	return o
}
