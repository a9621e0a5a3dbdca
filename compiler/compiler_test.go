package compiler_test

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync/atomic"
	"testing"

	"go.uber.org/zap/zaptest"

	"scssc/compiler"
	"scssc/fileset"
	"scssc/resolver"
	"scssc/sass"
)

type source struct {
	pkg, path, contents string
}

func newSet(t *testing.T, sources ...source) *fileset.FileSet {
	t.Helper()
	fs := fileset.New()
	for _, s := range sources {
		if err := fs.Add(fileset.NewVirtualFile(s.pkg, s.path, []byte(s.contents))); err != nil {
			t.Fatal(err)
		}
	}
	return fs
}

func newResolver(t *testing.T, fs *fileset.FileSet, opts ...resolver.Option) *resolver.Resolver {
	opts = append([]resolver.Option{resolver.WithRootDir(t.TempDir())}, opts...)
	return resolver.New(zaptest.NewLogger(t), fs, opts...)
}

// countingCompiler counts compilations and delegates to flattener.
type countingCompiler struct {
	calls atomic.Int32
	next  sass.Compiler
}

func (c *countingCompiler) Compile(ctx context.Context, req sass.Request) (*sass.Output, error) {
	c.calls.Add(1)
	return c.next.Compile(ctx, req)
}

func TestCompileOneFile(t *testing.T) {
	fs := newSet(t,
		source{"", "client/main.scss", "@import \"vars\";\n@import \"{ui}/button\";\nbody { margin: 0; }\n"},
		source{"", "client/_vars.scss", "$c: red;"},
		source{"ui", "_button.scss", ".btn { color: $c; }"},
	)
	log := zaptest.NewLogger(t)
	c := compiler.New(log, sass.NewFlattener(log))
	root, _ := fs.Get("{}/client/main.scss")

	res, err := c.CompileOneFile(context.Background(), newResolver(t, fs), root)
	if err != nil {
		t.Fatalf("CompileOneFile() error = %v", err)
	}
	if want := "$c: red;\n.btn { color: $c; }\nbody { margin: 0; }\n"; res.CSS != want {
		t.Errorf("CSS = %q, want %q", res.CSS, want)
	}
	if res.SourceMap == nil {
		t.Fatal("source map missing")
	}
	wantSources := []string{"client/main.scss", "client/_vars.scss", "packages/ui/_button.scss"}
	if !slices.Equal(res.SourceMap.Sources, wantSources) {
		t.Errorf("sources = %v, want %v", res.SourceMap.Sources, wantSources)
	}
	if res.SourceMap.File != ".main.scss" || len(res.SourceMap.SourcesContent) != 0 {
		t.Errorf("source map = %+v", res.SourceMap)
	}
	if !slices.Equal(res.ReferencedImportPaths, []string{"{}/client/_vars.scss", "{ui}/_button.scss"}) {
		t.Errorf("ReferencedImportPaths = %v", res.ReferencedImportPaths)
	}
	if strings.Contains(res.CSS, "sourceMappingURL") {
		t.Error("source map url must be omitted")
	}
}

func TestCompileOneFile_NotFound(t *testing.T) {
	fs := newSet(t, source{"", "dir/root.scss", "@import \"nope\";"})
	c := compiler.New(nil, sass.NewFlattener(nil))
	root, _ := fs.Get("{}/dir/root.scss")

	_, err := c.CompileOneFile(context.Background(), newResolver(t, fs), root)
	var ce *compiler.CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CompileError, got %v", err)
	}
	if ce.SourcePath != "dir/root.scss" {
		t.Errorf("SourcePath = %q", ce.SourcePath)
	}
	var nf *resolver.NotFoundError
	if !errors.As(err, &nf) || nf.Specifier != "nope" {
		t.Errorf("expected NotFoundError in chain, got %v", err)
	}
	msg := err.Error()
	if !strings.HasPrefix(msg, "Scss compiler error: Error: File to import: nope not found in file: dir/root.scss") {
		t.Errorf("Error() = %q", msg)
	}
	if !strings.Contains(msg, "dir/root.scss 1:1  root stylesheet") {
		t.Errorf("Error() lacks trace: %q", msg)
	}
}

func TestCompileOneFile_FailureKeepsImports(t *testing.T) {
	fs := newSet(t,
		source{"", "root.scss", "@import \"vars\";\n@import \"nope\";"},
		source{"", "_vars.scss", "$c: red;"},
	)
	c := compiler.New(nil, sass.NewFlattener(nil))
	root, _ := fs.Get("{}/root.scss")

	_, err := c.CompileOneFile(context.Background(), newResolver(t, fs), root)
	var ce *compiler.CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CompileError, got %v", err)
	}
	if len(ce.Imports) != 1 || ce.Imports[0].Path != "{}/_vars.scss" || ce.Imports[0].Parent != "{}/root.scss" {
		t.Errorf("Imports = %+v", ce.Imports)
	}
}

func TestCompileAll_IsolatesFailures(t *testing.T) {
	fs := newSet(t,
		source{"", "a.scss", ".a {}"},
		source{"", "b.scss", "@import \"missing\";"},
		source{"", "_partial.scss", ".p {}"},
		source{"", "c.sass", ".c\n  color: red"},
	)
	c := compiler.New(zaptest.NewLogger(t), sass.NewFlattener(nil), compiler.WithParallelism(2))
	outcomes, err := c.CompileAll(context.Background(), newResolver(t, fs))
	if err != nil {
		t.Fatalf("CompileAll() error = %v", err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("outcomes = %d, want 3", len(outcomes))
	}
	for i, want := range []string{"{}/a.scss", "{}/b.scss", "{}/c.sass"} {
		if outcomes[i].Root.Path != want {
			t.Errorf("outcome %d root = %s, want %s", i, outcomes[i].Root.Path, want)
		}
	}
	if outcomes[0].Err != nil || outcomes[2].Err != nil {
		t.Errorf("unexpected errors: %v, %v", outcomes[0].Err, outcomes[2].Err)
	}
	if outcomes[1].Err == nil || outcomes[1].Result != nil {
		t.Errorf("b.scss must fail: %+v", outcomes[1])
	}
	if outcomes[2].Result.CSS != ".c\n  color: red\n" {
		t.Errorf("c.sass CSS = %q", outcomes[2].Result.CSS)
	}
}

func TestCompile_CacheInvalidation(t *testing.T) {
	sources := []source{
		{"", "main.scss", "@import \"vars\";\n.m {}"},
		{"", "_vars.scss", "$a: 1;"},
	}
	cache, err := compiler.NewMemoryCache(8)
	if err != nil {
		t.Fatal(err)
	}
	backend := &countingCompiler{next: sass.NewFlattener(nil)}
	c := compiler.New(zaptest.NewLogger(t), backend, compiler.WithCache(cache))

	dir := t.TempDir()
	compile := func(fs *fileset.FileSet) bool {
		t.Helper()
		root, _ := fs.Get("{}/main.scss")
		_, cached, err := c.Compile(context.Background(), newResolver(t, fs, resolver.WithRootDir(dir)), root)
		if err != nil {
			t.Fatalf("Compile() error = %v", err)
		}
		return cached
	}

	if compile(newSet(t, sources...)) {
		t.Error("first compilation cannot be cached")
	}
	if !compile(newSet(t, sources...)) {
		t.Error("unchanged inputs must hit cache")
	}

	changed := slices.Clone(sources)
	changed[1].contents = "$a: 2;"
	if compile(newSet(t, changed...)) {
		t.Error("changed import must invalidate entry")
	}
	if got := backend.calls.Load(); got != 2 {
		t.Errorf("backend calls = %d, want 2", got)
	}
	if cache.Len() != 1 {
		t.Errorf("cache entries = %d", cache.Len())
	}
}

func TestCompileRoots_Canceled(t *testing.T) {
	fs := newSet(t, source{"", "a.scss", ".a {}"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := compiler.New(nil, sass.NewFlattener(nil))
	if _, err := c.CompileAll(ctx, newResolver(t, fs)); !errors.Is(err, context.Canceled) {
		t.Errorf("CompileAll() error = %v, want context.Canceled", err)
	}
}
