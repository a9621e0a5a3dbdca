package resolver_test

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"scssc/fileset"
	"scssc/resolver"
)

// newSet builds file set from package qualified paths keeping their order.
func newSet(t *testing.T, paths ...string) *fileset.FileSet {
	t.Helper()
	fs := fileset.New()
	for _, p := range paths {
		i := strings.Index(p, "}/")
		if !strings.HasPrefix(p, "{") || i < 0 {
			t.Fatalf("bad virtual path %q", p)
		}
		if err := fs.Add(fileset.NewVirtualFile(p[1:i], p[i+2:], []byte("/* "+p+" */"))); err != nil {
			t.Fatal(err)
		}
	}
	return fs
}

func newContext(t *testing.T, fs *fileset.FileSet, root string, opts ...resolver.Option) *resolver.Context {
	t.Helper()
	f, ok := fs.Get(root)
	if !ok {
		t.Fatalf("root %q is not in file set", root)
	}
	opts = append([]resolver.Option{resolver.WithRootDir(t.TempDir())}, opts...)
	return resolver.New(zaptest.NewLogger(t), fs, opts...).NewContext(f)
}

func mustResolve(t *testing.T, c *resolver.Context, url, prev string) resolver.Resolved {
	t.Helper()
	res, err := c.Resolve(url, prev)
	if err != nil {
		t.Fatalf("Resolve(%q, %q) error = %v", url, prev, err)
	}
	return res
}

func TestResolve_PartialInDirectory(t *testing.T) {
	fs := newSet(t, "{}/dir/root.scss", "{}/dir/_in-dir.scss")
	c := newContext(t, fs, "{}/dir/root.scss")

	res := mustResolve(t, c, "in-dir", c.CompilePath())
	want := resolver.Resolved{Path: "{}/dir/_in-dir.scss"}
	if res != want {
		t.Errorf("Resolve() = %+v, want %+v", res, want)
	}
	if got := c.SourceMapPaths(); !slices.Equal(got, []string{"dir/root.scss", "dir/_in-dir.scss"}) {
		t.Errorf("SourceMapPaths() = %v", got)
	}
	if got := c.ReferencedImports(); !slices.Equal(got, []string{"{}/dir/_in-dir.scss"}) {
		t.Errorf("ReferencedImports() = %v", got)
	}
}

func TestResolve_IncludePathFallback(t *testing.T) {
	paths := []string{"{}/root.scss", "{}/modules/module/_module.scss"}

	c := newContext(t, newSet(t, paths...), "{}/root.scss")
	if _, err := c.Resolve("module/module", "root.scss"); err == nil {
		t.Fatal("expected direct resolution to fail")
	}

	c = newContext(t, newSet(t, paths...), "{}/root.scss", resolver.WithIncludePaths([]string{"missing", "modules"}))
	res := mustResolve(t, c, "module/module", "root.scss")
	want := resolver.Resolved{Path: "{}/modules/module/_module.scss", IncludePath: "modules"}
	if res != want {
		t.Errorf("Resolve() = %+v, want %+v", res, want)
	}
}

func TestResolve_DirectMatchBeatsIncludePath(t *testing.T) {
	fs := newSet(t, "{}/root.scss", "{}/_vars.scss", "{}/lib/_vars.scss")
	c := newContext(t, fs, "{}/root.scss", resolver.WithIncludePaths([]string{"lib"}))
	res := mustResolve(t, c, "vars", "root.scss")
	if res.Path != "{}/_vars.scss" || res.IncludePath != "" {
		t.Errorf("Resolve() = %+v", res)
	}
}

func TestResolve_RoundTrip(t *testing.T) {
	keys := []string{"{}/root.scss", "{}/dir/x.scss", "{ui}/styles/y.sass", "{}/dir/_p.scss"}
	for _, key := range keys[1:] {
		t.Run(key, func(t *testing.T) {
			c := newContext(t, newSet(t, keys...), "{}/root.scss")
			res := mustResolve(t, c, key, "root.scss")
			if res.Path != key || res.Absolute {
				t.Errorf("Resolve(%q) = %+v", key, res)
			}
		})
	}
}

func TestResolve_ExtensionInference(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		root  string
		want  string
	}{
		{"plain", []string{"{}/root.scss", "{}/foo.scss"}, "{}/root.scss", "{}/foo.scss"},
		{"partial", []string{"{}/root.scss", "{}/_foo.scss"}, "{}/root.scss", "{}/_foo.scss"},
		{"root extension first", []string{"{}/root.sass", "{}/foo.scss", "{}/foo.sass"}, "{}/root.sass", "{}/foo.sass"},
		{"non partial first", []string{"{}/root.scss", "{}/_foo.scss", "{}/foo.css"}, "{}/root.scss", "{}/foo.css"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newContext(t, newSet(t, tt.files...), tt.root)
			res := mustResolve(t, c, "foo", c.CompilePath())
			if res.Path != tt.want {
				t.Errorf("Resolve() = %q, want %q", res.Path, tt.want)
			}
		})
	}
}

func TestResolve_TildeEquivalence(t *testing.T) {
	files := []string{"{}/root.scss", "{}/node_modules/pkgname/_file.scss"}
	var results []resolver.Resolved
	for _, spec := range []string{"~pkgname/file", "{}/node_modules/pkgname/file", "node_modules/pkgname/file"} {
		c := newContext(t, newSet(t, files...), "{}/root.scss")
		results = append(results, mustResolve(t, c, spec, "root.scss"))
	}
	want := resolver.Resolved{Path: "{}/node_modules/pkgname/_file.scss"}
	for i, res := range results {
		if res != want {
			t.Errorf("result %d = %+v, want %+v", i, res, want)
		}
	}
}

func TestImport_InstalledModuleOnDisk(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("filesystem paths are compared in forward slash form")
	}
	dir := t.TempDir()
	lib := filepath.Join(dir, "node_modules", "lib")
	if err := os.MkdirAll(lib, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(lib, "_vars.scss"), []byte("$x: 1;"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(lib, "theme.css"), []byte(".t{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	fs := newSet(t, "{}/main.scss")
	root, _ := fs.Get("{}/main.scss")
	c := resolver.New(zaptest.NewLogger(t), fs, resolver.WithRootDir(dir)).NewContext(root)

	res, err := c.Import("~lib/vars", "main.scss")
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	wantPath := dir + "/node_modules/lib/_vars.scss"
	if res.File != wantPath || res.Contents != "$x: 1;" {
		t.Errorf("Import() = %+v", res)
	}

	css := mustResolve(t, c, "~lib/theme.css", "main.scss")
	if !css.Absolute || css.Path != dir+"/node_modules/lib/theme.css" {
		t.Errorf("Resolve(theme.css) = %+v", css)
	}

	if got := c.SourceMapPaths(); !slices.Equal(got, []string{"main.scss", wantPath, css.Path}) {
		t.Errorf("SourceMapPaths() = %v", got)
	}
	if got := c.ReferencedImports(); len(got) != 0 {
		t.Errorf("absolute matches must not be referenced: %v", got)
	}
}

func TestResolve_StackBacktracking(t *testing.T) {
	fs := newSet(t,
		"{}/a/a.scss",
		"{}/a/b/_b.scss",
		"{}/a/b/c/_c.scss",
		"{}/a/b/_sibling.scss",
		"{}/a/b/c/_sibling.scss",
	)
	c := newContext(t, fs, "{}/a/a.scss")

	b := mustResolve(t, c, "b/b", "a/a.scss")
	cc := mustResolve(t, c, "c/c", b.Path)
	if cc.Path != "{}/a/b/c/_c.scss" {
		t.Fatalf("C = %q", cc.Path)
	}
	// C refers to B's directory
	up := mustResolve(t, c, "../sibling", cc.Path)
	if up.Path != "{}/a/b/_sibling.scss" {
		t.Errorf("../sibling from C = %q", up.Path)
	}

	// compiler is back in B
	next := mustResolve(t, c, "sibling", b.Path)
	if next.Path != "{}/a/b/_sibling.scss" {
		t.Errorf("sibling from B = %q", next.Path)
	}
	wantStack := []string{"{}/a/a.scss", "{}/a/b/_b.scss", "{}/a/b/_sibling.scss"}
	if got := c.Stack(); !slices.Equal(got, wantStack) {
		t.Errorf("Stack() = %v, want %v", got, wantStack)
	}

	imports := c.Imports()
	if len(imports) != 4 || imports[3].Parent != b.Path || imports[2].Parent != cc.Path {
		t.Errorf("Imports() = %+v", imports)
	}
}

func TestResolve_NotFound(t *testing.T) {
	fs := newSet(t, "{}/dir/root.scss", "{}/dir/_in-dir.scss")
	c := newContext(t, fs, "{}/dir/root.scss")

	_, err := c.Resolve("missing", "dir/root.scss")
	var nf *resolver.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if nf.Specifier != "missing" || nf.Importer != "dir/root.scss" {
		t.Errorf("NotFoundError = %+v", nf)
	}

	in := mustResolve(t, c, "in-dir", "dir/root.scss")
	_, err = c.Resolve("../../nowhere/x", in.Path)
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if want := "File to import: ../../nowhere/x not found in file: dir/_in-dir.scss"; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if got := c.Stack(); !slices.Equal(got, []string{"{}/dir/root.scss", "{}/dir/_in-dir.scss"}) {
		t.Errorf("failed resolution changed stack: %v", got)
	}
}

func TestResolve_SuffixFirstMatch(t *testing.T) {
	fs := newSet(t, "{}/root.scss", "{a}/lib/_x.scss", "{b}/lib/_x.scss")
	c := newContext(t, fs, "{}/root.scss")
	res := mustResolve(t, c, "../../lib/x", "root.scss")
	if res.Path != "{a}/lib/_x.scss" || res.Absolute {
		t.Errorf("Resolve() = %+v", res)
	}
	if got := c.SourceMapPaths(); got[1] != "packages/a/lib/_x.scss" {
		t.Errorf("SourceMapPaths() = %v", got)
	}
}

func TestImport_FromFileSet(t *testing.T) {
	fs := newSet(t, "{ui}/styles/main.scss", "{ui}/styles/_button.scss")
	c := newContext(t, fs, "{ui}/styles/main.scss")
	if c.CompilePath() != "{ui}/styles/main.scss" {
		t.Errorf("CompilePath() = %q", c.CompilePath())
	}
	res, err := c.Import("button", c.CompilePath())
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if res.File != "{ui}/styles/_button.scss" || res.Contents != "/* {ui}/styles/_button.scss */" {
		t.Errorf("Import() = %+v", res)
	}
	if got := c.SourceMapPaths(); !slices.Equal(got, []string{"packages/ui/styles/main.scss", "packages/ui/styles/_button.scss"}) {
		t.Errorf("SourceMapPaths() = %v", got)
	}
}
