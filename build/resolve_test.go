package build

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"scssc/compiler"
	"scssc/fileset"
	"scssc/resolver"
)

func TestImportTree(t *testing.T) {
	root := fileset.NewVirtualFile("", "main.scss", nil)
	imports := []resolver.Import{
		{Parent: "{}/main.scss", Specifier: "a", Resolved: resolver.Resolved{Path: "{}/_a.scss"}},
		{Parent: "{}/_a.scss", Specifier: "{ui}/b", Resolved: resolver.Resolved{Path: "{ui}/_b.scss"}},
		{Parent: "{}/main.scss", Specifier: "~x/y.css", Resolved: resolver.Resolved{Absolute: true, Path: "/p/node_modules/x/y.css"}},
		{Parent: "{}/main.scss", Specifier: "lib", Resolved: resolver.Resolved{Path: "{}/modules/_lib.scss", IncludePath: "modules"}},
		// loaded again from another place, nested imports repeat
		{Parent: "{}/main.scss", Specifier: "a", Resolved: resolver.Resolved{Path: "{}/_a.scss"}},
		{Parent: "{}/_a.scss", Specifier: "{ui}/b", Resolved: resolver.Resolved{Path: "{ui}/_b.scss"}},
	}

	want := "main.scss\n" +
		"  a -> _a.scss\n" +
		"    {ui}/b -> packages/ui/_b.scss\n" +
		"  ~x/y.css -> /p/node_modules/x/y.css [disk]\n" +
		"  lib -> modules/_lib.scss [include modules]\n"
	if got := importTree(root, imports); got != want {
		t.Errorf("importTree():\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func newMemoryResolver(t *testing.T, files map[string]string) *resolver.Resolver {
	t.Helper()
	fs := fileset.New()
	for name, contents := range files {
		if err := fs.Add(fileset.NewVirtualFile("", name, []byte(contents))); err != nil {
			t.Fatal(err)
		}
	}
	return resolver.New(zaptest.NewLogger(t), fs, resolver.WithRootDir(t.TempDir()))
}

func TestPrintResolution(t *testing.T) {
	r := newMemoryResolver(t, map[string]string{
		"client/main.scss":  "",
		"client/_vars.scss": "",
	})

	tests := []struct {
		name, file, spec string
		want             string
		wantErr          bool
	}{
		{name: "display path", file: "client/main.scss", spec: "vars", want: "vars -> client/_vars.scss\n"},
		{name: "file set key", file: "{}/client/main.scss", spec: "./_vars.scss", want: "./_vars.scss -> client/_vars.scss\n"},
		{name: "unknown stylesheet", file: "other.scss", spec: "vars", wantErr: true},
		{name: "unresolved", file: "client/main.scss", spec: "nope", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := printResolution(&buf, r, tt.file, tt.spec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("printResolution() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("printResolution() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrintResolution_NotFoundError(t *testing.T) {
	r := newMemoryResolver(t, map[string]string{"main.scss": ""})

	err := printResolution(&bytes.Buffer{}, r, "main.scss", "nope")
	var nf *resolver.NotFoundError
	if !errors.As(err, &nf) || nf.Importer != "main.scss" {
		t.Errorf("expected NotFoundError from main.scss, got %v", err)
	}
}

func TestPrintTree(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"client/main.scss":    "@import \"vars\";\n.main { color: $c; }\n",
		"client/_vars.scss":   "@import \"colors\";\n$c: red;\n",
		"_colors.scss":        "$red: red;\n",
		"client/_colors.scss": "$blue: blue;\n",
		"broken.scss":         "@import \"client/vars\";\n@import \"nope\";\n",
	})
	env := newTestEnv(t, root)
	p := newTestProject(t, env)
	ctx := context.Background()
	r, err := p.load(ctx)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := p.printTree(ctx, &buf, r, "client/main.scss"); err != nil {
		t.Fatalf("printTree() error = %v", err)
	}
	want := "client/main.scss\n  vars -> client/_vars.scss\n    colors -> client/_colors.scss\n"
	if got := buf.String(); got != want {
		t.Errorf("printTree():\ngot:\n%s\nwant:\n%s", got, want)
	}

	buf.Reset()
	err = p.printTree(ctx, &buf, r, "broken.scss")
	var ce *compiler.CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CompileError, got %v", err)
	}
	want = "broken.scss\n  client/vars -> client/_vars.scss\n    colors -> client/_colors.scss\n"
	if got := buf.String(); got != want {
		t.Errorf("printTree() on failure:\ngot:\n%s\nwant:\n%s", got, want)
	}
}
