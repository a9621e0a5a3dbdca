package fileset

import (
	"fmt"
	"iter"
	"strings"
)

// FileSet maps virtual paths to files for one compilation pass. Insertion
// order is preserved and used as the tie-break of suffix lookups. It is built
// once and must not be modified while compilations use it.
type FileSet struct {
	keys  []string
	files map[string]*VirtualFile
}

func New() *FileSet {
	return &FileSet{files: make(map[string]*VirtualFile)}
}

// Add appends file to the set. Keys must be unique.
func (s *FileSet) Add(f *VirtualFile) error {
	if _, exists := s.files[f.Path]; exists {
		return fmt.Errorf("duplicate virtual path %s", f.Path)
	}
	s.keys = append(s.keys, f.Path)
	s.files[f.Path] = f
	return nil
}

func (s *FileSet) Get(key string) (*VirtualFile, bool) {
	f, ok := s.files[key]
	return f, ok
}

func (s *FileSet) Has(key string) bool {
	_, ok := s.files[key]
	return ok
}

func (s *FileSet) Len() int {
	return len(s.keys)
}

// Keys returns virtual paths in insertion order.
func (s *FileSet) Keys() []string {
	return append([]string(nil), s.keys...)
}

// All iterates over files in insertion order.
func (s *FileSet) All() iter.Seq2[string, *VirtualFile] {
	return func(yield func(string, *VirtualFile) bool) {
		for _, k := range s.keys {
			if !yield(k, s.files[k]) {
				return
			}
		}
	}
}

// FindSuffix returns the first key (in insertion order) ending with suffix.
// This is a linear scan: a reverse path index would be faster for big sets
// but has to keep insertion order as tie-break.
func (s *FileSet) FindSuffix(suffix string) (string, bool) {
	if len(suffix) == 0 {
		return "", false
	}
	for _, k := range s.keys {
		if strings.HasSuffix(k, suffix) {
			return k, true
		}
	}
	return "", false
}
