// Package sass defines the boundary to the stylesheet compiler and provides a
// built in compiler which only flattens loading directives.
package sass

import (
	"context"
	"fmt"
	"strings"
)

// ImportResult is what importer hands back to the compiler: contents to
// compile in place of the directive and the canonical location of the
// contents. File is reported back as prev for directives found in Contents.
type ImportResult struct {
	Contents string
	File     string
}

// Importer resolves url found in stylesheet located at prev. It is called
// synchronously and sequentially for a single compilation.
type Importer func(url, prev string) (*ImportResult, error)

// Options mirror the legacy compiler API options the build relies on.
type Options struct {
	// Indented selects indentation based dialect for the root stylesheet.
	Indented bool
	// SourceMap requests source map generation.
	SourceMap bool
	// SourceMapContents embeds sources into the map.
	SourceMapContents bool
	// OmitSourceMapURL suppresses sourceMappingURL comment in the output.
	OmitSourceMapURL bool
	SourceMapRoot    string
	OutFile          string
	Precision        int
	Importer         Importer
}

// Request describes single root compilation. File is the location compiler
// believes root stylesheet has, Data is its contents.
type Request struct {
	File string
	Data []byte
	Options
}

// Output of successful compilation. Map is a JSON encoded v3 source map, nil
// when source map was not requested.
type Output struct {
	CSS []byte
	Map []byte
}

// Compiler is the black box turning root stylesheet and importer into CSS.
type Compiler interface {
	Compile(ctx context.Context, req Request) (*Output, error)
}

// Frame is a location in the chain of stylesheets being compiled.
type Frame struct {
	File   string
	Line   int
	Column int
}

// Error is compilation failure. Formatted carries complete human readable
// diagnostic including location trace.
type Error struct {
	Message   string
	Formatted string
	Trace     []Frame
	Err       error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// newError builds diagnostic, trace is innermost first.
func newError(err error, snippet string, trace []Frame) *Error {
	var b strings.Builder
	fmt.Fprintf(&b, "Error: %s\n", err.Error())
	if len(trace) > 0 && len(snippet) > 0 {
		top := trace[0]
		fmt.Fprintf(&b, "    ╷\n%3d │ %s\n    │ %s^\n    ╵\n", top.Line, snippet, strings.Repeat(" ", max(top.Column-1, 0)))
	}
	for i, f := range trace {
		what := "@import"
		if i == len(trace)-1 {
			what = "root stylesheet"
		}
		fmt.Fprintf(&b, "  %s %d:%d  %s\n", f.File, f.Line, f.Column, what)
	}
	return &Error{
		Message:   err.Error(),
		Formatted: strings.TrimRight(b.String(), "\n"),
		Trace:     trace,
		Err:       err,
	}
}
