package build

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"scssc/compiler"
	"scssc/fileset"
	"scssc/state"
)

// summary of a single build pass.
type summary struct {
	Compiled int
	Cached   int
	Failed   []string
	Written  []string
}

// Run is "build" command: compiles every root of the project once.
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("build")

	if dir := cmd.Args().Get(0); len(dir) > 0 {
		env.Cfg.Project.Root = dir
	}
	if cmd.Args().Len() > 1 {
		log.Warn("Malformed command line, too many project directories", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
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

	log.Info("Build starting", zap.String("project", p.root), zap.String("output", p.outputDir()))
	defer func(start time.Time) {
		log.Info("Build completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	_, err = p.buildAll(ctx)
	return err
}

// buildAll loads project files, compiles all roots and writes results.
func (p *project) buildAll(ctx context.Context) (*summary, error) {
	r, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	outcomes, err := p.compiler.CompileAll(ctx, r)
	if err != nil {
		return nil, err
	}
	return p.emit(outcomes)
}

// emit writes successful outcomes and collects failures. Failure of a root
// does not prevent writing others.
func (p *project) emit(outcomes []compiler.Outcome) (*summary, error) {
	var (
		errs error
		sum  = &summary{}
	)
	for _, o := range outcomes {
		if o.Err != nil {
			sum.Failed = append(sum.Failed, o.Root.DisplayPath)
			p.reportFailure(o.Root, o.Err)
			errs = multierr.Append(errs, o.Err)
			continue
		}
		if o.Cached {
			sum.Cached++
		} else {
			sum.Compiled++
		}
		written, err := writeResult(p.outputDir(), o.Root, o.Result, p.cfg.Project.SourceMaps)
		sum.Written = append(sum.Written, written...)
		if err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	sort.Sort(natural.StringSlice(sum.Failed))
	sort.Sort(natural.StringSlice(sum.Written))

	p.log.Info("Stylesheets processed",
		zap.Int("roots", len(outcomes)),
		zap.Int("compiled", sum.Compiled),
		zap.Int("cached", sum.Cached),
		zap.Int("failed", len(sum.Failed)))
	for _, w := range sum.Written {
		p.log.Debug("Output written", zap.String("file", w))
	}
	if len(sum.Failed) > 0 {
		p.log.Warn("Some stylesheets failed to compile", zap.Strings("roots", sum.Failed))
	}
	return sum, errs
}

// reportFailure puts error, import chain and source of failed root into
// debug report.
func (p *project) reportFailure(root *fileset.VirtualFile, err error) {
	if p.rpt == nil {
		return
	}
	var b strings.Builder
	b.WriteString(err.Error())
	b.WriteString("\n\n")
	var ce *compiler.CompileError
	if errors.As(err, &ce) {
		b.WriteString(importTree(root, ce.Imports))
	}
	p.rpt.StoreData("imports/"+root.DisplayPath+".txt", []byte(b.String()))

	// nothing to copy for in-memory files
	if len(root.Source) == 0 {
		return
	}
	if err := p.rpt.StoreCopy("sources/"+root.DisplayPath, root.Source); err != nil {
		p.log.Debug("Unable to put stylesheet into report", zap.String("source", root.Source), zap.Error(err))
	}
}
