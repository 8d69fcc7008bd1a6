// Package selection tracks the files a user picked, grouped by the root they
// were selected under.
package selection

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"squeeze/internal/media"
)

// Store is safe for concurrent use.
type Store struct {
	mu    sync.Mutex
	roots []string
	items map[string]*media.Descriptor
	order []string
	skip  []string
}

// NewStore returns an empty store. Directories at or under any of skipDirs are
// never scanned; pass the output folder so earlier results are not re-added.
func NewStore(skipDirs ...string) *Store {
	s := &Store{items: make(map[string]*media.Descriptor)}
	for _, dir := range skipDirs {
		if dir == "" {
			continue
		}
		if abs, err := filepath.Abs(dir); err == nil {
			s.skip = append(s.skip, abs)
		}
	}
	return s
}

// Add scans path, a file or a directory, and returns how many new files it
// contributed. Files already present through another root or a symlink are
// not added twice.
func (s *Store) Add(path string) (int, error) {
	absRoot, err := filepath.Abs(path)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return 0, err
	}

	var found []*media.Descriptor
	if !info.IsDir() {
		if !media.IsSupportedInput(filepath.Ext(absRoot)) {
			return 0, fmt.Errorf("%s: unsupported file type", absRoot)
		}
		found = append(found, media.NewDescriptor(absRoot, absRoot, info.Size()))
	} else {
		fsys := os.DirFS(absRoot)
		err = fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			fullPath := filepath.Join(absRoot, filepath.FromSlash(p))
			if d.IsDir() {
				if p != "." && s.skipped(fullPath) {
					return fs.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() || !media.IsSupportedInput(filepath.Ext(p)) {
				return nil
			}
			fi, err := d.Info()
			if err != nil {
				return err
			}
			found = append(found, media.NewDescriptor(fullPath, absRoot, fi.Size()))
			return nil
		})
		if err != nil {
			return 0, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, d := range found {
		key := identity(d.SourcePath)
		if _, ok := s.items[key]; ok {
			continue
		}
		s.items[key] = d
		s.order = append(s.order, key)
		added++
	}
	if added > 0 && !contains(s.roots, absRoot) {
		s.roots = append(s.roots, absRoot)
	}
	return added, nil
}

// Remove drops root and every file selected under it.
func (s *Store) Remove(root string) int {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	kept := s.order[:0]
	for _, key := range s.order {
		if s.items[key].SelectionRoot == absRoot {
			delete(s.items, key)
			removed++
			continue
		}
		kept = append(kept, key)
	}
	s.order = kept

	for i, r := range s.roots {
		if r == absRoot {
			s.roots = append(s.roots[:i], s.roots[i+1:]...)
			break
		}
	}
	return removed
}

// Exclude flags the file at path so runs skip it.
func (s *Store) Exclude(path string, excluded bool) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.items[identity(abs)]
	if ok {
		d.ExcludedByUser = excluded
	}
	return ok
}

// Descriptors returns every selected file in insertion order.
func (s *Store) Descriptors() []*media.Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*media.Descriptor, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.items[key])
	}
	return out
}

// Roots returns the selection roots, sorted.
func (s *Store) Roots() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	roots := append([]string(nil), s.roots...)
	sort.Strings(roots)
	return roots
}

// MultiRoot reports whether files came from more than one selection.
func (s *Store) MultiRoot() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.roots) > 1
}

// Len is the number of selected files.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

func (s *Store) skipped(dir string) bool {
	if filepath.Base(dir) == "Compressed" {
		return true
	}
	for _, skip := range s.skip {
		if isWithin(dir, skip) {
			return true
		}
	}
	return false
}

func identity(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	return filepath.Clean(path)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func isWithin(path string, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
