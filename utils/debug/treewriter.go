// Package debug renders diagnostic trees (import trees of roots) as indented
// text suitable for logs and debug reports.
package debug

import (
	"fmt"
	"strconv"
	"strings"
)

const indent = "  "

// Node is an element of a tree written by Walk. Key identifies node when
// asking for its children, Label is what gets printed.
type Node struct {
	Key   string
	Label string
}

type TreeWriter struct {
	w *strings.Builder
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{
		w: &strings.Builder{},
	}
}

func (tw TreeWriter) String() string {
	return tw.w.String()
}

func (tw TreeWriter) Line(depth int, format string, args ...any) {
	tw.w.WriteString(strings.Repeat(indent, depth))
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

// Field writes "label: value" with value quoted, empty values are written as
// is.
func (tw TreeWriter) Field(depth int, label, value string) {
	tw.w.WriteString(strings.Repeat(indent, depth))
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	tw.w.WriteString(quote(value))
	tw.w.WriteByte('\n')
}

// Walk writes root and its descendants returned by children. A node which is
// already on the current branch is written with a cycle mark and not
// expanded again.
func (tw TreeWriter) Walk(depth int, root Node, children func(key string) []Node) {
	tw.walk(depth, root, children, make(map[string]bool))
}

func (tw TreeWriter) walk(depth int, n Node, children func(string) []Node, branch map[string]bool) {
	if branch[n.Key] {
		tw.Line(depth, "%s (cycle)", n.Label)
		return
	}
	tw.Line(depth, "%s", n.Label)

	branch[n.Key] = true
	for _, c := range children(n.Key) {
		tw.walk(depth+1, c, children, branch)
	}
	delete(branch, n.Key)
}

func quote(raw string) string {
	if raw == "" {
		return raw
	}
	return strconv.Quote(raw)
}
