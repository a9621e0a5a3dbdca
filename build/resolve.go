package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"scssc/compiler"
	"scssc/fileset"
	"scssc/resolver"
	"scssc/state"
)

// Resolve is "resolve" command: shows which file a specifier refers to when
// found in a given stylesheet, or with --tree the whole import tree of a
// root.
func Resolve(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("resolve")

	file := cmd.Args().Get(0)
	if len(file) == 0 {
		return errors.New("no stylesheet has been specified")
	}
	spec := cmd.Args().Get(1)
	tree := cmd.Bool("tree")
	if !tree && len(spec) == 0 {
		return errors.New("no import specifier has been specified")
	}
	if cmd.Args().Len() > 2 || (tree && cmd.Args().Len() > 1) {
		log.Warn("Malformed command line, too many arguments", zap.Strings("args", cmd.Args().Slice()))
	}
	if dir := cmd.String("project"); len(dir) > 0 {
		env.Cfg.Project.Root = dir
	}

	p, err := newProject(env, log)
	if err != nil {
		return err
	}
	defer func() {
		if er := p.Close(); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to close compile cache: %w", er))
		}
	}()

	r, err := p.load(ctx)
	if err != nil {
		return err
	}
	if tree {
		return p.printTree(ctx, os.Stdout, r, file)
	}
	return printResolution(os.Stdout, r, file, spec)
}

// lookup finds file set entry by display path or by file set key.
func lookup(files *fileset.FileSet, name string) (*fileset.VirtualFile, error) {
	if f, ok := files.Get(name); ok {
		return f, nil
	}
	for _, f := range files.All() {
		if f.DisplayPath == name {
			return f, nil
		}
	}
	return nil, fmt.Errorf("stylesheet '%s' is not part of the project", name)
}

// printResolution resolves spec as if found at the top of stylesheet name.
func printResolution(w io.Writer, r *resolver.Resolver, name, spec string) error {
	f, err := lookup(r.Files(), name)
	if err != nil {
		return err
	}
	res, err := r.NewContext(f).Resolve(spec, "")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, importLabel(resolver.Import{Parent: f.Path, Specifier: spec, Resolved: res}))
	return nil
}

// printTree compiles root name bypassing cache and prints its import tree,
// on failure the part resolved before the error is printed.
func (p *project) printTree(ctx context.Context, w io.Writer, r *resolver.Resolver, name string) error {
	f, err := lookup(r.Files(), name)
	if err != nil {
		return err
	}
	if !compiler.IsRoot(f) {
		p.log.Warn("Stylesheet is a partial, it is never compiled on its own", zap.String("file", f.DisplayPath))
	}
	res, err := p.compiler.CompileOneFile(ctx, r, f)
	if err != nil {
		var ce *compiler.CompileError
		if errors.As(err, &ce) {
			fmt.Fprint(w, importTree(f, ce.Imports))
		}
		return err
	}
	fmt.Fprint(w, importTree(f, res.Imports))
	return nil
}
