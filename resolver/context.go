package resolver

import (
	"os"
	"path"
	"strings"

	"go.uber.org/zap"

	"scssc/common"
	"scssc/fileset"
	"scssc/sass"
)

// Import is a single resolved edge of the import tree.
type Import struct {
	// Parent is the stack frame specifier was resolved against.
	Parent    string
	Specifier string
	Resolved
}

// Context is resolution state of one root compilation: the import path stack
// modelling where the compiler currently is, source map paths and referenced
// file set entries accumulated so far. It must not be shared between
// compilations and is discarded after one.
type Context struct {
	r           *Resolver
	log         *zap.Logger
	root        *fileset.VirtualFile
	compilePath string
	ext         common.Syntax

	stack          []string
	sourceMapPaths []string
	referenced     []string
	imports        []Import
}

// CompilePath returns location the compiler is told root stylesheet has:
// application files lose the package marker.
func CompilePath(root *fileset.VirtualFile) string {
	return strings.Replace(root.Path, "{}/", "", 1)
}

// NewContext starts resolution for root. Root display path is the first
// source map entry.
func (r *Resolver) NewContext(root *fileset.VirtualFile) *Context {
	ext, ok := common.SyntaxFromExt(root.Extension())
	if !ok {
		ext = common.SyntaxScss
	}
	return &Context{
		r:              r,
		log:            r.log.With(zap.String("root", root.DisplayPath)),
		root:           root,
		compilePath:    CompilePath(root),
		ext:            ext,
		sourceMapPaths: []string{root.DisplayPath},
	}
}

func (c *Context) Root() *fileset.VirtualFile {
	return c.root
}

func (c *Context) CompilePath() string {
	return c.compilePath
}

// SourceMapPaths returns decoded (or absolute) paths of root and every
// resolved import in resolution order.
func (c *Context) SourceMapPaths() []string {
	return append([]string(nil), c.sourceMapPaths...)
}

// ReferencedImports returns file set keys resolved so far, repeats included.
func (c *Context) ReferencedImports() []string {
	return append([]string(nil), c.referenced...)
}

// Imports returns resolved edges in resolution order.
func (c *Context) Imports() []Import {
	return append([]Import(nil), c.imports...)
}

// Stack returns current import path stack, bottom first.
func (c *Context) Stack() []string {
	return append([]string(nil), c.stack...)
}

// backtrack drops frames above the one compiler reports as prev. When prev
// is not on the stack at all it becomes the only frame.
func (c *Context) backtrack(prev string) {
	if len(c.stack) == 0 {
		c.stack = append(c.stack, prev)
	}
	i := len(c.stack) - 1
	for ; i >= 0; i-- {
		if c.stack[i] == prev {
			break
		}
	}
	if i < 0 {
		c.log.Debug("Previous location is not on import stack, restarting", zap.String("prev", prev), zap.Strings("stack", c.stack))
		c.stack = append(c.stack[:0], prev)
		return
	}
	c.stack = c.stack[:i+1]
}

// Resolve finds file url refers to when found in stylesheet prev. On success
// the result is pushed onto the import path stack and recorded.
func (c *Context) Resolve(url, prev string) (Resolved, error) {
	res, _, err := c.locate(url, prev)
	if err != nil {
		return Resolved{}, err
	}
	c.record(url, prev, res)
	return res, nil
}

// locate moves the stack to prev and searches for url without recording the
// match. It returns the frame url was resolved against.
func (c *Context) locate(url, prev string) (Resolved, string, error) {
	prev = fixTilde(standardPath(prev))
	if len(prev) == 0 || prev == c.compilePath {
		prev = c.root.Path
	}
	c.backtrack(prev)
	parent := c.stack[len(c.stack)-1]

	spec := fixTilde(standardPath(url))
	if !strings.HasPrefix(spec, "/") && !strings.HasPrefix(spec, "{") {
		spec = path.Join(path.Dir(parent), spec)
	}
	if i := strings.Index(spec, "{"); i > 0 {
		spec = spec[i:]
	}
	spec = c.r.anchor(spec)

	res, ok := c.r.search(spec, url, c.ext)
	if !ok {
		c.log.Debug("Import not found", zap.String("specifier", url), zap.String("prev", prev), zap.String("search", spec))
		return Resolved{}, parent, &NotFoundError{Specifier: url, Importer: displayOf(parent)}
	}
	return res, parent, nil
}

func (c *Context) record(url, prev string, res Resolved) {
	parent := c.stack[len(c.stack)-1]
	c.stack = append(c.stack, res.Path)
	c.imports = append(c.imports, Import{Parent: parent, Specifier: url, Resolved: res})
	if res.Absolute {
		c.sourceMapPaths = append(c.sourceMapPaths, res.Path)
	} else {
		c.referenced = append(c.referenced, res.Path)
		c.sourceMapPaths = append(c.sourceMapPaths, displayOf(res.Path))
	}
	c.log.Debug("Import resolved",
		zap.String("specifier", url),
		zap.String("prev", prev),
		zap.String("resolved", res.Path),
		zap.Bool("absolute", res.Absolute),
		zap.String("include", res.IncludePath))
}

// Import is sass.Importer: it resolves url and returns contents of the file,
// read from disk for absolute matches. Unreadable matches are not recorded.
func (c *Context) Import(url, prev string) (*sass.ImportResult, error) {
	res, parent, err := c.locate(url, prev)
	if err != nil {
		return nil, err
	}
	if res.Absolute {
		data, err := os.ReadFile(nativePath(res.Path))
		if err != nil {
			return nil, &NotFoundError{Specifier: url, Importer: displayOf(parent), Err: err}
		}
		c.record(url, prev, res)
		return &sass.ImportResult{Contents: string(data), File: res.Path}, nil
	}
	c.record(url, prev, res)
	f, _ := c.r.files.Get(res.Path)
	return &sass.ImportResult{Contents: f.ContentsAsString(), File: res.Path}, nil
}

// displayOf decodes file set keys, anything else is shown as is.
func displayOf(p string) string {
	if d, err := fileset.DecodePath(p); err == nil {
		return d
	}
	return p
}
