// Package logging configures the zerolog logger shared by the commands.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// Options selects level and output encoding.
type Options struct {
	Level string
	JSON  bool
	Out   io.Writer
}

// New builds a logger. Output is human-readable on a terminal and JSON
// otherwise, unless JSON forces it.
func New(opts Options) zerolog.Logger {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	if !opts.JSON && isTerminal(out) {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Nop discards everything; used when no logger is injected.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

// ForFile returns a child logger tagged with the source path.
func ForFile(l zerolog.Logger, path string) zerolog.Logger {
	return l.With().Str("file", path).Logger()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
