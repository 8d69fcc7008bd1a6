// Package report gathers per-file errors and warnings across a run.
package report

import (
	"sort"
	"sync"

	"squeeze/internal/media"
	"squeeze/internal/processor"
)

type Entry struct {
	Path string
	Err  error
}

// Collector groups files by error kind and warning. The zero value is not
// usable; call New.
type Collector struct {
	mu       sync.Mutex
	errors   map[processor.ErrorKind][]Entry
	warnings map[processor.Warning][]Entry
}

func New() *Collector {
	return &Collector{
		errors:   make(map[processor.ErrorKind][]Entry),
		warnings: make(map[processor.Warning][]Entry),
	}
}

func (c *Collector) AddError(kind processor.ErrorKind, d *media.Descriptor, err error) {
	if kind == processor.ErrorNone {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors[kind] = append(c.errors[kind], Entry{Path: d.SourcePath, Err: err})
}

func (c *Collector) AddWarning(w processor.Warning, d *media.Descriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warnings[w] = append(c.warnings[w], Entry{Path: d.SourcePath})
}

// Errors returns a copy of the recorded errors, each list sorted by path.
func (c *Collector) Errors() map[processor.ErrorKind][]Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[processor.ErrorKind][]Entry, len(c.errors))
	for k, v := range c.errors {
		out[k] = sorted(v)
	}
	return out
}

// Warnings returns a copy of the recorded warnings, each list sorted by path.
func (c *Collector) Warnings() map[processor.Warning][]Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[processor.Warning][]Entry, len(c.warnings))
	for k, v := range c.warnings {
		out[k] = sorted(v)
	}
	return out
}

// Reset clears everything, ready for the next run.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = make(map[processor.ErrorKind][]Entry)
	c.warnings = make(map[processor.Warning][]Entry)
}

func sorted(entries []Entry) []Entry {
	out := append([]Entry(nil), entries...)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
