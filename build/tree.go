package build

import (
	"scssc/fileset"
	"scssc/resolver"
	"scssc/utils/debug"
)

// importTree renders imports of root as an indented tree, one line per
// resolved import.
func importTree(root *fileset.VirtualFile, imports []resolver.Import) string {
	edges := make(map[string][]debug.Node)
	seen := make(map[string]bool)
	for _, imp := range imports {
		// nested imports of a stylesheet loaded twice are resolved twice
		edge := imp.Parent + "\x00" + imp.Specifier + "\x00" + imp.Path
		if seen[edge] {
			continue
		}
		seen[edge] = true
		edges[imp.Parent] = append(edges[imp.Parent], debug.Node{Key: imp.Path, Label: importLabel(imp)})
	}

	tw := debug.NewTreeWriter()
	tw.Walk(0, debug.Node{Key: root.Path, Label: root.DisplayPath}, func(key string) []debug.Node {
		return edges[key]
	})
	return tw.String()
}

func importLabel(imp resolver.Import) string {
	label := imp.Specifier + " -> "
	if imp.Absolute {
		label += imp.Path + " [disk]"
	} else if d, err := fileset.DecodePath(imp.Path); err == nil {
		label += d
	} else {
		label += imp.Path
	}
	if len(imp.IncludePath) > 0 {
		label += " [include " + imp.IncludePath + "]"
	}
	return label
}
