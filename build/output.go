package build

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"scssc/compiler"
	"scssc/fileset"
)

// outputName returns slash separated location of compiled root relative to
// output directory: decoded path with css extension.
func outputName(root *fileset.VirtualFile) string {
	name := root.DisplayPath
	return strings.TrimSuffix(name, path.Ext(name)) + ".css"
}

// writeResult stores compiled css (and its source map when requested) under
// dir and returns written files.
func writeResult(dir string, root *fileset.VirtualFile, res *compiler.Result, sourceMaps bool) ([]string, error) {
	name := outputName(root)
	dst := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return nil, fmt.Errorf("unable to create output directory: %w", err)
	}

	css := res.CSS
	if sourceMaps && res.SourceMap != nil {
		css = strings.TrimRight(css, "\n") + "\n/*# sourceMappingURL=" + path.Base(name) + ".map */\n"
	}
	if err := os.WriteFile(dst, []byte(css), 0644); err != nil {
		return nil, fmt.Errorf("unable to write '%s': %w", dst, err)
	}
	written := []string{dst}

	if !sourceMaps || res.SourceMap == nil {
		return written, nil
	}

	// copy, cached results are shared
	sm := *res.SourceMap
	sm.File = path.Base(name)
	data, err := sm.Marshal()
	if err != nil {
		return written, fmt.Errorf("unable to encode source map for '%s': %w", name, err)
	}
	if err := os.WriteFile(dst+".map", data, 0644); err != nil {
		return written, fmt.Errorf("unable to write '%s': %w", dst+".map", err)
	}
	return append(written, dst+".map"), nil
}
