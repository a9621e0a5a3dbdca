package compiler

import (
	"errors"
	"slices"

	"github.com/dominikbraun/graph"
)

// Graph records which file set entries every root depends on. Edges point
// from importing file to imported one.
type Graph struct {
	g     graph.Graph[string, string]
	roots map[string]bool
}

func NewGraph() *Graph {
	return &Graph{
		g:     graph.New(graph.StringHash, graph.Directed()),
		roots: make(map[string]bool),
	}
}

func (g *Graph) addVertex(v string) error {
	if err := g.g.AddVertex(v); err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
		return err
	}
	return nil
}

// Add records outcome of compiling root. Absolute (filesystem) imports are
// not part of the file set and are skipped, file set entries they import
// become direct imports of root.
func (g *Graph) Add(root string, res *Result) error {
	g.roots[root] = true
	if err := g.addVertex(root); err != nil {
		return err
	}
	if res == nil {
		return nil
	}
	for _, imp := range res.Imports {
		if imp.Absolute {
			continue
		}
		parent := imp.Parent
		if parent != root && !g.has(parent) {
			// parent was on disk, root depends on the file directly
			parent = root
		}
		if err := g.addVertex(imp.Path); err != nil {
			return err
		}
		if err := g.g.AddEdge(parent, imp.Path); err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
			return err
		}
	}
	return nil
}

func (g *Graph) has(v string) bool {
	_, err := g.g.Vertex(v)
	return err == nil
}

// Dependents returns roots (sorted) whose import tree contains any of changed
// paths, roots among changed are included.
func (g *Graph) Dependents(changed ...string) ([]string, error) {
	preds, err := g.g.PredecessorMap()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	queue := slices.Clone(changed)
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		if seen[v] {
			continue
		}
		seen[v] = true
		for p := range preds[v] {
			queue = append(queue, p)
		}
	}

	var out []string
	for v := range seen {
		if g.roots[v] {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return out, nil
}

// Imports returns direct imports of v, sorted.
func (g *Graph) Imports(v string) ([]string, error) {
	adj, err := g.g.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(adj[v]))
	for k := range adj[v] {
		out = append(out, k)
	}
	slices.Sort(out)
	return out, nil
}

// Order returns number of vertices.
func (g *Graph) Order() int {
	n, err := g.g.Order()
	if err != nil {
		return 0
	}
	return n
}
