package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"chatd/internal/common/fsutil"
)

// GGUFScanner discovers model weights in a directory.
type GGUFScanner struct {
	// Ext is the file extension to match, case-insensitively.
	Ext string
}

// NewGGUFScanner returns a scanner for *.gguf files.
func NewGGUFScanner() *GGUFScanner { return &GGUFScanner{Ext: ".gguf"} }

// Scan lists matching files in dir (non-recursive). The descriptor name is the
// file name without its extension; Path is absolute. Results follow directory
// order, which os.ReadDir sorts by file name.
func (s *GGUFScanner) Scan(dir string) ([]Descriptor, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var out []Descriptor
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		if !strings.EqualFold(ext, s.Ext) {
			continue
		}
		out = append(out, Descriptor{
			Name: strings.TrimSuffix(name, ext),
			Path: filepath.Join(abs, name),
		})
	}
	return out, nil
}

// Merge appends scanned descriptors whose names are not already configured.
// Explicit configuration always wins over discovery.
func Merge(configured, scanned []Descriptor) []Descriptor {
	seen := make(map[string]struct{}, len(configured))
	out := make([]Descriptor, 0, len(configured)+len(scanned))
	for _, d := range configured {
		seen[Key(d.Name)] = struct{}{}
		out = append(out, d)
	}
	for _, d := range scanned {
		k := Key(d.Name)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, d)
	}
	return out
}
