package sass

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"scssc/common"
	"scssc/css"
)

// maxImportDepth guards against import cycles.
const maxImportDepth = 64

// Flattener is a Compiler which does not evaluate stylesheets. It replaces
// every loading directive with contents returned by the importer (modules
// loaded by @use and @forward are included once) and keeps plain CSS imports
// as they are. Source indices in the produced map follow load order.
type Flattener struct {
	log     *zap.Logger
	scanner *css.Scanner
}

func NewFlattener(log *zap.Logger) *Flattener {
	if log == nil {
		log = zap.NewNop()
	}
	return &Flattener{log: log.Named("flattener"), scanner: css.NewScanner(log)}
}

type flattenState struct {
	opts    Options
	out     strings.Builder
	line    int
	col     int
	sources []string
	loaded  map[string]bool
	sm      mapBuilder
}

// write appends text to output mapping every emitted line to the original
// line it came from.
func (st *flattenState) write(text string, src, line int) {
	for len(text) > 0 {
		nl := strings.IndexByte(text, '\n')
		chunk := text
		if nl >= 0 {
			chunk = text[:nl]
		}
		if len(strings.TrimSpace(chunk)) > 0 {
			st.sm.add(st.line, st.col, src, line, 0)
		}
		st.out.WriteString(chunk)
		st.col += len(chunk)
		if nl < 0 {
			return
		}
		st.out.WriteByte('\n')
		st.line++
		st.col = 0
		line++
		text = text[nl+1:]
	}
}

func (st *flattenState) newline() {
	if st.col > 0 {
		st.out.WriteByte('\n')
		st.line++
		st.col = 0
	}
}

func syntaxOf(file string, indented bool) common.Syntax {
	if s, ok := common.SyntaxFromExt(path.Ext(file)); ok {
		return s
	}
	if indented {
		return common.SyntaxSass
	}
	return common.SyntaxScss
}

// Compile implements Compiler.
func (f *Flattener) Compile(ctx context.Context, req Request) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Importer == nil {
		req.Importer = func(url, _ string) (*ImportResult, error) {
			return nil, fmt.Errorf("can't find stylesheet to import: %s", url)
		}
	}

	st := &flattenState{opts: req.Options, loaded: make(map[string]bool)}
	st.sources = append(st.sources, req.File)

	root := common.SyntaxScss
	if req.Indented {
		root = common.SyntaxSass
	}
	if err := f.flatten(st, string(req.Data), root, req.File, 0, nil); err != nil {
		return nil, err
	}
	st.newline()

	out := &Output{}
	if req.SourceMap {
		sm := &SourceMap{
			Version:    3,
			File:       req.OutFile,
			SourceRoot: req.SourceMapRoot,
			Sources:    st.sources,
			Names:      []string{},
			Mappings:   st.sm.mappings(),
		}
		data, err := sm.Marshal()
		if err != nil {
			return nil, fmt.Errorf("unable to encode source map: %w", err)
		}
		out.Map = data
		if !req.OmitSourceMapURL && len(req.OutFile) > 0 {
			fmt.Fprintf(&st.out, "\n/*# sourceMappingURL=%s.map */", path.Base(req.OutFile))
		}
	}
	out.CSS = []byte(st.out.String())
	f.log.Debug("Flattened stylesheet", zap.String("file", req.File), zap.Int("sources", len(st.sources)), zap.Int("bytes", len(out.CSS)))
	return out, nil
}

// flatten emits contents of a single stylesheet with index src. The trace
// holds locations of directives which led here, innermost first.
func (f *Flattener) flatten(st *flattenState, contents string, syntax common.Syntax, file string, src int, trace []Frame) error {
	if len(trace) > maxImportDepth {
		return newError(errors.New("too many nested imports, this may be an import loop"), "", trace)
	}

	pos := 0
	for _, d := range f.scanner.Scan([]byte(contents), syntax, file) {
		st.write(contents[pos:d.Start], src, lineAt(contents, pos))
		pos = d.End

		lineStart := strings.LastIndexByte(contents[:d.Start], '\n') + 1
		indent := ""
		if syntax.Indented() {
			indent = contents[lineStart:d.Start]
		}
		here := Frame{File: file, Line: d.Line + 1, Column: d.Start - lineStart + 1}

		for i, a := range d.Args {
			if i > 0 || st.col > len(indent) {
				st.newline()
				st.write(indent, src, d.Line)
			}
			if a.Plain {
				stmt := "@import " + a.Raw
				if !syntax.Indented() {
					stmt += ";"
				}
				st.write(stmt, src, d.Line)
				continue
			}
			res, err := st.opts.Importer(a.URL, file)
			if err == nil && res == nil {
				err = fmt.Errorf("can't find stylesheet to import: %s", a.URL)
			}
			if err != nil {
				return newError(err, lineText(contents, lineStart), append([]Frame{here}, trace...))
			}

			// every successful import gets its own source index, importer
			// bookkeeping depends on it
			st.sources = append(st.sources, res.File)
			if d.Kind != css.KindImport && st.loaded[res.File] {
				continue
			}
			st.loaded[res.File] = true

			if err := f.flatten(st, indentBlock(res.Contents, indent), syntaxOf(res.File, syntax.Indented()), res.File,
				len(st.sources)-1, append([]Frame{here}, trace...)); err != nil {
				return err
			}
		}
	}
	st.write(contents[pos:], src, lineAt(contents, pos))
	return nil
}

func lineAt(s string, pos int) int {
	return strings.Count(s[:pos], "\n")
}

func lineText(s string, start int) string {
	end := strings.IndexByte(s[start:], '\n')
	if end < 0 {
		return strings.TrimRight(s[start:], "\r")
	}
	return strings.TrimRight(s[start:start+end], "\r")
}

// indentBlock shifts every line but the first one by indent, so content
// included by indented dialect stays nested under the directive parent.
func indentBlock(s, indent string) string {
	if len(indent) == 0 {
		return s
	}
	return strings.ReplaceAll(s, "\n", "\n"+indent)
}
