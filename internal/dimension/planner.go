// Package dimension computes output pixel sizes from a reduction strategy.
package dimension

import (
	"fmt"
	"math"
	"strings"
)

// Strategy selects how the output size is derived from the source size.
type Strategy int

const (
	KeepSame Strategy = iota
	Percentage
	LongEdge
	MaxHeight
	MaxWidth
	FixedHeight
	FixedWidth
	FitInFrame
	FixedInFrame
)

// PrintDPI is the resolution used to turn print-frame inches into pixels.
const PrintDPI = 300

var strategyNames = []string{
	"keep", "percentage", "long-edge", "max-height", "max-width",
	"fixed-height", "fixed-width", "fit-in-frame", "fixed-in-frame",
}

func (s Strategy) String() string {
	if int(s) >= 0 && int(s) < len(strategyNames) {
		return strategyNames[s]
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// ParseStrategy is the inverse of String.
func ParseStrategy(s string) (Strategy, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return KeepSame, nil
	}
	for i, candidate := range strategyNames {
		if candidate == name {
			return Strategy(i), nil
		}
	}
	return KeepSame, fmt.Errorf("unknown dimension strategy %q", s)
}

// Frame is a print frame in inches.
type Frame struct {
	LongEdge  float64 `mapstructure:"long_edge"`
	ShortEdge float64 `mapstructure:"short_edge"`
	Margin    float64 `mapstructure:"margin"`
}

// Params carries the strategy-specific inputs.
type Params struct {
	Percentage  float64
	PrimaryEdge int
	Frame       Frame
}

// Plan returns the target (height, width) for a source of the given size.
// Degenerate sources yield (0, 0); every other result is at least 1x1.
func Plan(strategy Strategy, p Params, height, width int) (int, int) {
	if width <= 0 || height <= 0 {
		return 0, 0
	}

	var h, w int
	switch strategy {
	case Percentage:
		h = scale(height, p.Percentage/100)
		w = scale(width, p.Percentage/100)
	case LongEdge:
		if width >= height {
			w, h = capEdge(width, height, p.PrimaryEdge)
		} else {
			h, w = capEdge(height, width, p.PrimaryEdge)
		}
	case MaxHeight:
		h, w = capEdge(height, width, p.PrimaryEdge)
	case MaxWidth:
		w, h = capEdge(width, height, p.PrimaryEdge)
	case FixedHeight:
		h, w = forceEdge(height, width, p.PrimaryEdge)
	case FixedWidth:
		w, h = forceEdge(width, height, p.PrimaryEdge)
	case FitInFrame:
		h, w = inFrame(height, width, p.Frame, false)
	case FixedInFrame:
		h, w = inFrame(height, width, p.Frame, true)
	default:
		h, w = height, width
	}

	return atLeastOne(h), atLeastOne(w)
}

// capEdge shrinks primary to edge when it is larger, scaling other along.
func capEdge(primary, other, edge int) (int, int) {
	if edge <= 0 || primary <= edge {
		return primary, other
	}
	return edge, proportional(other, edge, primary)
}

// forceEdge sets primary to edge exactly, in either direction.
func forceEdge(primary, other, edge int) (int, int) {
	if edge <= 0 {
		return primary, other
	}
	return edge, proportional(other, edge, primary)
}

func inFrame(height, width int, f Frame, exact bool) (int, int) {
	longPx := inchesToPixels(f.LongEdge - 2*f.Margin)
	shortPx := inchesToPixels(f.ShortEdge - 2*f.Margin)
	if longPx <= 0 || shortPx <= 0 {
		return height, width
	}
	if shortPx > longPx {
		longPx, shortPx = shortPx, longPx
	}

	landscape := width >= height
	imgLong, imgShort := height, width
	if landscape {
		imgLong, imgShort = width, height
	}

	newLong, newShort := imgLong, imgShort
	if exact || imgLong > longPx {
		newLong = longPx
		newShort = proportional(imgShort, longPx, imgLong)
	}
	if newShort > shortPx {
		newShort = shortPx
		newLong = proportional(imgLong, shortPx, imgShort)
	}

	if landscape {
		return newShort, newLong
	}
	return newLong, newShort
}

func inchesToPixels(inches float64) int {
	if inches <= 0 {
		return 0
	}
	return int(math.Round(inches * PrintDPI))
}

// proportional returns value * num / den rounded to the nearest integer.
func proportional(value, num, den int) int {
	return int(math.Round(float64(value) * float64(num) / float64(den)))
}

func scale(value int, factor float64) int {
	return int(math.Round(float64(value) * factor))
}

func atLeastOne(v int) int {
	if v < 1 {
		return 1
	}
	return v
}
