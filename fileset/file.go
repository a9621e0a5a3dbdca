// Package fileset models the virtual, multi-root set of stylesheet sources
// available to one build pass.
package fileset

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// FileOptions are per-file build options.
type FileOptions struct {
	// IsImport, when set, overrides partial/root classification of the file.
	IsImport *bool
}

// VirtualFile is an entry of the build file set. Path is package qualified:
// "{}/rel/path.scss" for application files and "{name}/rel/path.scss" for
// files of package "name".
type VirtualFile struct {
	Path          string
	Package       string
	PathInPackage string
	DisplayPath   string
	Contents      []byte
	Hash          string
	Options       FileOptions

	// Source is where the file was read from: filesystem path or
	// "archive.zip/entry". Empty for in-memory files.
	Source string
}

// NewVirtualFile creates file entry for package pkg ("" for application) and
// computes its path, display path and content hash.
func NewVirtualFile(pkg, pathInPackage string, contents []byte) *VirtualFile {
	p := VirtualPath(pkg, pathInPackage)
	return &VirtualFile{
		Path:          p,
		Package:       pkg,
		PathInPackage: pathInPackage,
		DisplayPath:   displayPath(pkg, pathInPackage),
		Contents:      contents,
		Hash:          Hash(contents),
	}
}

// Extension returns file extension without leading dot.
func (f *VirtualFile) Extension() string {
	return strings.TrimPrefix(path.Ext(f.PathInPackage), ".")
}

// Basename returns last element of the path in package.
func (f *VirtualFile) Basename() string {
	return path.Base(f.PathInPackage)
}

func (f *VirtualFile) ContentsAsString() string {
	return string(f.Contents)
}

// Hash returns content hash used as cache key.
func Hash(data []byte) string {
	return strconv.FormatUint(xxhash.Sum64(data), 16)
}

// VirtualPath builds package qualified path.
func VirtualPath(pkg, rel string) string {
	return "{" + pkg + "}/" + strings.TrimPrefix(rel, "/")
}

// DecodePath converts package qualified path into display form: "rel/path"
// for application files and "packages/name/rel/path" for package files.
func DecodePath(p string) (string, error) {
	open := strings.Index(p, "{")
	closing := strings.LastIndex(p, "}/")
	if open < 0 || closing < open {
		return "", fmt.Errorf("failed to decode sass path: %s", p)
	}
	return displayPath(p[open+1:closing], p[closing+2:]), nil
}

func displayPath(pkg, rel string) string {
	if len(pkg) == 0 {
		return rel
	}
	return "packages/" + pkg + "/" + rel
}
