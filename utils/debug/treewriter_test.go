package debug

import (
	"testing"
)

func TestTreeWriter_Line(t *testing.T) {
	tests := []struct {
		name   string
		depth  int
		format string
		args   []any
		want   string
	}{
		{name: "no depth", depth: 0, format: "root.scss", want: "root.scss\n"},
		{name: "depth 2", depth: 2, format: "_vars.scss", want: "    _vars.scss\n"},
		{name: "with formatting", depth: 1, format: "%s -> %s", args: []any{"vars", "_vars.scss"}, want: "  vars -> _vars.scss\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tw := NewTreeWriter()
			tw.Line(tt.depth, tt.format, tt.args...)
			if got := tw.String(); got != tt.want {
				t.Errorf("Line() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTreeWriter_Field(t *testing.T) {
	tests := []struct {
		name  string
		depth int
		label string
		value string
		want  string
	}{
		{name: "empty value", depth: 0, label: "include", value: "", want: "include: \n"},
		{name: "plain", depth: 1, label: "specifier", value: "~pkg/x", want: "  specifier: \"~pkg/x\"\n"},
		{name: "escaped", depth: 0, label: "error", value: "line1\nline \"2\"", want: "error: \"line1\\nline \\\"2\\\"\"\n"},
		{name: "backslash", depth: 0, label: "path", value: `c:\styles`, want: "path: \"c:\\\\styles\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tw := NewTreeWriter()
			tw.Field(tt.depth, tt.label, tt.value)
			if got := tw.String(); got != tt.want {
				t.Errorf("Field() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTreeWriter_Walk(t *testing.T) {
	edges := map[string][]Node{
		"root": {{Key: "a", Label: "A"}, {Key: "b", Label: "B"}},
		"a":    {{Key: "c", Label: "C"}},
		"b":    {{Key: "c", Label: "C"}},
	}
	children := func(key string) []Node { return edges[key] }

	tw := NewTreeWriter()
	tw.Walk(0, Node{Key: "root", Label: "ROOT"}, children)

	want := "ROOT\n  A\n    C\n  B\n    C\n"
	if got := tw.String(); got != want {
		t.Errorf("Walk():\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestTreeWriter_WalkCycle(t *testing.T) {
	edges := map[string][]Node{
		"a": {{Key: "b", Label: "b"}},
		"b": {{Key: "a", Label: "a"}},
	}

	tw := NewTreeWriter()
	tw.Walk(1, Node{Key: "a", Label: "a"}, func(key string) []Node { return edges[key] })

	want := "  a\n    b\n      a (cycle)\n"
	if got := tw.String(); got != want {
		t.Errorf("Walk():\ngot:\n%s\nwant:\n%s", got, want)
	}
}
