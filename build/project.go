// Package build implements program commands: one shot build, watch mode and
// resolution diagnostics.
package build

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"scssc/compiler"
	"scssc/config"
	"scssc/fileset"
	"scssc/resolver"
	"scssc/sass"
	"scssc/state"
)

// project ties configuration to the compile pipeline for a single command
// invocation.
type project struct {
	log      *zap.Logger
	cfg      *config.Config
	rpt      *config.Report
	root     string
	includes []string

	cache    compiler.Cache
	compiler *compiler.Compiler
}

func newProject(env *state.LocalEnv, log *zap.Logger) (*project, error) {
	if err := env.PrepareProject(); err != nil {
		return nil, err
	}

	p := &project{
		log:      log,
		cfg:      env.Cfg,
		rpt:      env.Rpt,
		root:     env.ProjectRoot,
		includes: env.Stylesheets.IncludePaths,
	}

	dbPath := env.Cfg.Compiler.CacheDatabase
	if len(dbPath) > 0 && !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(p.root, dbPath)
	}
	cache, err := compiler.NewCache(log, env.Cfg.Compiler.Cache, env.Cfg.Compiler.CacheEntries, dbPath)
	if err != nil {
		return nil, fmt.Errorf("unable to prepare compile cache: %w", err)
	}
	p.cache = cache

	opts := []compiler.Option{compiler.WithParallelism(env.Cfg.Compiler.Parallelism)}
	if cache != nil {
		opts = append(opts, compiler.WithCache(cache))
	}
	p.compiler = compiler.New(log, sass.NewFlattener(log), opts...)

	log.Debug("Project prepared",
		zap.String("root", p.root),
		zap.Strings("include paths", p.includes),
		zap.Stringer("cache", env.Cfg.Compiler.Cache))
	return p, nil
}

func (p *project) Close() (err error) {
	if p.cache != nil {
		err = multierr.Append(err, p.cache.Close())
	}
	return
}

// load reads current state of the project files and returns resolver over
// them.
func (p *project) load(ctx context.Context) (*resolver.Resolver, error) {
	files, err := fileset.NewLoader(p.log, p.root, p.cfg.Project.LoaderOptions(p.root)...).Load(ctx)
	if err != nil {
		return nil, err
	}
	return resolver.New(p.log, files,
		resolver.WithRootDir(p.root),
		resolver.WithIncludePaths(p.includes)), nil
}

func (p *project) outputDir() string {
	return p.cfg.Project.Output(p.root)
}
