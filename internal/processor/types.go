package processor

import (
	"fmt"

	"squeeze/internal/media"
)

type ErrorKind int

const (
	ErrorNone ErrorKind = iota
	FailedToCompress
	AccessDenied
	Cancelled
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorNone:
		return "none"
	case FailedToCompress:
		return "failed to compress"
	case AccessDenied:
		return "access denied"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("error(%d)", int(k))
}

type Warning int

const (
	FileSizeIncreased Warning = iota
	UsedOriginalFile
	FileFormatChanged
	FileOverwritten
	AnimationLost
)

func (w Warning) String() string {
	switch w {
	case FileSizeIncreased:
		return "file size increased"
	case UsedOriginalFile:
		return "used original file"
	case FileFormatChanged:
		return "file format changed"
	case FileOverwritten:
		return "file overwritten"
	case AnimationLost:
		return "animation lost"
	}
	return fmt.Sprintf("warning(%d)", int(w))
}

// Result is the outcome of one file.
type Result struct {
	Descriptor     *media.Descriptor
	OutputPath     string
	Succeeded      bool
	Error          ErrorKind
	Warnings       []Warning
	Err            error
	OriginalSize   int64
	CompressedSize int64
}

// HasWarning reports whether w was raised for this file.
func (r Result) HasWarning(w Warning) bool {
	return hasWarning(r.Warnings, w)
}

// Summary is produced once per run.
type Summary struct {
	Total      int
	Succeeded  int
	Failed     int
	Cancelled  int
	BytesSaved int64
}

// ProgressUpdate is a delta the UI folds into its running totals.
type ProgressUpdate struct {
	TotalDelta      int
	ProcessedDelta  int
	ErrorDelta      int
	WarningDelta    int
	BytesSavedDelta int64
}

// Collector receives classified outcomes; it must be safe for concurrent use.
type Collector interface {
	AddError(kind ErrorKind, d *media.Descriptor, err error)
	AddWarning(w Warning, d *media.Descriptor)
}
