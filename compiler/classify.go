package compiler

import (
	"strings"

	"scssc/fileset"
)

// IsRoot reports whether file is compiled and emitted on its own. Explicit
// isImport option wins, otherwise files with base name starting with "_" are
// partials.
func IsRoot(f *fileset.VirtualFile) bool {
	if f.Options.IsImport != nil {
		return !*f.Options.IsImport
	}
	return !strings.HasPrefix(f.Basename(), "_")
}

// Roots returns root stylesheets of the set in insertion order.
func Roots(files *fileset.FileSet) []*fileset.VirtualFile {
	var roots []*fileset.VirtualFile
	for _, f := range files.All() {
		if IsRoot(f) {
			roots = append(roots, f)
		}
	}
	return roots
}
