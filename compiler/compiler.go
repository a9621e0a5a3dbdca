// Package compiler drives compilation of root stylesheets: it classifies
// files, wires import resolution into the stylesheet compiler, fixes source
// maps and caches results.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"scssc/common"
	"scssc/fileset"
	"scssc/resolver"
	"scssc/sass"
)

// Result of compiling one root.
type Result struct {
	CSS       string          `json:"css"`
	SourceMap *sass.SourceMap `json:"sourceMap,omitempty"`
	// ReferencedImportPaths are file set keys resolved during compilation,
	// dependents have to be invalidated when any of them changes.
	ReferencedImportPaths []string          `json:"referencedImportPaths"`
	Imports               []resolver.Import `json:"imports"`
}

// Size approximates memory held by result.
func (r *Result) Size() int {
	n := len(r.CSS)
	if r.SourceMap != nil {
		n += len(r.SourceMap.Mappings)
		for _, s := range r.SourceMap.Sources {
			n += len(s)
		}
	}
	return n
}

// CompileError reports failed compilation of a root.
type CompileError struct {
	SourcePath string
	Err        error
	// Imports resolved before the failure, the last one is where compiler
	// was when it gave up.
	Imports []resolver.Import
}

func (e *CompileError) Error() string {
	formatted := e.Err.Error()
	var se *sass.Error
	if errors.As(e.Err, &se) && len(se.Formatted) > 0 {
		formatted = se.Formatted
	}
	return "Scss compiler error: " + formatted
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// Compiler compiles roots with backend stylesheet compiler.
type Compiler struct {
	log         *zap.Logger
	backend     sass.Compiler
	cache       Cache
	parallelism int
}

type Option func(*Compiler)

// WithCache sets result cache, nil disables caching.
func WithCache(c Cache) Option {
	return func(cc *Compiler) {
		cc.cache = c
	}
}

// WithParallelism limits number of roots compiled at the same time. Values
// below 1 mean number of CPUs.
func WithParallelism(n int) Option {
	return func(cc *Compiler) {
		cc.parallelism = n
	}
}

func New(log *zap.Logger, backend sass.Compiler, opts ...Option) *Compiler {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Compiler{log: log.Named("compiler"), backend: backend}
	for _, opt := range opts {
		opt(c)
	}
	if c.parallelism < 1 {
		c.parallelism = runtime.NumCPU()
	}
	return c
}

// CompileOneFile compiles root with a fresh resolution context. Any failure
// is returned as *CompileError carrying root display path.
func (c *Compiler) CompileOneFile(ctx context.Context, r *resolver.Resolver, root *fileset.VirtualFile) (*Result, error) {
	rc := r.NewContext(root)

	syntax, _ := common.SyntaxFromExt(root.Extension())
	req := sass.Request{
		File: rc.CompilePath(),
		Data: root.Contents,
		Options: sass.Options{
			Indented:          syntax.Indented(),
			SourceMap:         true,
			SourceMapContents: false,
			OmitSourceMapURL:  true,
			SourceMapRoot:     ".",
			OutFile:           "." + root.Basename(),
			Precision:         10,
			Importer:          rc.Import,
		},
	}

	out, err := c.backend.Compile(ctx, req)
	if err != nil {
		return nil, &CompileError{SourcePath: root.DisplayPath, Err: err, Imports: rc.Imports()}
	}

	res := &Result{
		CSS:                   string(out.CSS),
		ReferencedImportPaths: rc.ReferencedImports(),
		Imports:               rc.Imports(),
	}
	if len(out.Map) > 0 {
		sm, err := sass.ParseSourceMap(out.Map)
		if err != nil {
			return nil, &CompileError{SourcePath: root.DisplayPath, Err: fmt.Errorf("unable to parse source map: %w", err)}
		}
		sm.Sources = rc.SourceMapPaths()
		res.SourceMap = sm
	}
	return res, nil
}

// Compile returns cached result for root when every file it referenced is
// unchanged and resolver fingerprint matches, otherwise compiles it and
// stores the result.
func (c *Compiler) Compile(ctx context.Context, r *resolver.Resolver, root *fileset.VirtualFile) (*Result, bool, error) {
	log := c.log.With(zap.String("root", root.DisplayPath))
	if c.cache != nil {
		if e, ok := c.cache.Get(root.Path); ok {
			if e.Valid(root, r) {
				log.Debug("Cache hit")
				return e.Result, true, nil
			}
			log.Debug("Cache entry is stale")
		}
	}

	start := time.Now()
	res, err := c.CompileOneFile(ctx, r, root)
	if err != nil {
		return nil, false, err
	}
	log.Debug("Compiled", zap.Duration("elapsed", time.Since(start)),
		zap.Int("imports", len(res.Imports)), zap.String("size", humanize.Bytes(uint64(res.Size()))))

	if c.cache != nil {
		if err := c.cache.Put(root.Path, NewEntry(root, r, res)); err != nil {
			log.Warn("Unable to cache result", zap.Error(err))
		}
	}
	return res, false, nil
}

// Outcome of a single root in CompileAll.
type Outcome struct {
	Root   *fileset.VirtualFile
	Result *Result
	Cached bool
	Err    error
}

// CompileAll compiles every root of the resolver file set.
func (c *Compiler) CompileAll(ctx context.Context, r *resolver.Resolver) ([]Outcome, error) {
	return c.CompileRoots(ctx, r, Roots(r.Files()))
}

// CompileRoots compiles roots in parallel. Failure of a root is recorded in
// its outcome and does not affect others, error is returned only when ctx
// is done. Outcomes keep order of roots.
func (c *Compiler) CompileRoots(ctx context.Context, r *resolver.Resolver, roots []*fileset.VirtualFile) ([]Outcome, error) {
	outcomes := make([]Outcome, len(roots))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.parallelism)
	for i, root := range roots {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, cached, err := c.Compile(gctx, r, root)
			outcomes[i] = Outcome{Root: root, Result: res, Cached: cached, Err: err}
			if err != nil {
				c.log.Error("Compilation failed", zap.String("root", root.DisplayPath), zap.Error(err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}
