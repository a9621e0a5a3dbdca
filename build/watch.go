package build

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"scssc/compiler"
	"scssc/config"
	"scssc/fileset"
	"scssc/state"
)

// Watch is "watch" command: builds project and then rebuilds roots affected
// by every change until interrupted.
func Watch(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("watch")

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

	w, err := newWatcher(p, env.Cfg.Watch.Debounce)
	if err != nil {
		return err
	}
	defer w.Close()

	log.Info("Watching for changes", zap.String("project", p.root), zap.Duration("debounce", w.debounce))
	return w.run(ctx)
}

const defaultDebounce = 300 * time.Millisecond

// watcher keeps results of the last pass and recompiles roots whose import
// tree contains changed files.
type watcher struct {
	log      *zap.Logger
	p        *project
	fsw      *fsnotify.Watcher
	debounce time.Duration

	files   *fileset.FileSet
	results map[string]*compiler.Result
	graph   *compiler.Graph
}

func newWatcher(p *project, debounce time.Duration) (*watcher, error) {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &watcher{
		log:      p.log,
		p:        p,
		fsw:      fsw,
		debounce: debounce,
		results:  make(map[string]*compiler.Result),
		graph:    compiler.NewGraph(),
	}, nil
}

func (w *watcher) Close() error {
	return w.fsw.Close()
}

func (w *watcher) run(ctx context.Context) error {
	if err := w.addDirs(); err != nil {
		return fmt.Errorf("failed to watch directories: %w", err)
	}
	w.rebuild(ctx)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.isRelevant(event) {
				continue
			}
			w.log.Debug("Change detected", zap.Stringer("event", event))
			if event.Has(fsnotify.Create) {
				w.addIfDirectory(event.Name)
			}
			timer.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("Watcher error", zap.Error(err))

		case <-timer.C:
			w.rebuild(ctx)
		}
	}
}

// rebuild runs one pass. Errors are logged, watching goes on.
func (w *watcher) rebuild(ctx context.Context) {
	start := time.Now()
	w.reloadIncludePaths()
	r, err := w.p.load(ctx)
	if err != nil {
		w.log.Error("Unable to load project files", zap.Error(err))
		return
	}

	roots := w.affected(r.Files())
	w.files = r.Files()
	if len(roots) == 0 {
		w.record(r.Files(), nil)
		w.log.Debug("Nothing to rebuild")
		return
	}

	outcomes, err := w.p.compiler.CompileRoots(ctx, r, roots)
	if err != nil {
		w.log.Warn("Rebuild interrupted", zap.Error(err))
		return
	}
	w.record(r.Files(), outcomes)
	if _, err := w.p.emit(outcomes); err != nil {
		w.log.Error("Rebuild completed with errors", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return
	}
	w.log.Info("Rebuild completed", zap.Int("roots", len(roots)), zap.Duration("elapsed", time.Since(start)))
}

// reloadIncludePaths picks up changes of stylesheet configuration, since
// they may change resolution of any import all results are dropped then.
func (w *watcher) reloadIncludePaths() {
	sc := config.LoadStylesheetConfig(w.log, w.p.root, w.p.cfg.Project.ConfigFile)
	if slices.Equal(sc.IncludePaths, w.p.includes) {
		return
	}
	w.log.Info("Include paths changed, rebuilding everything", zap.Strings("include paths", sc.IncludePaths))
	w.p.includes = sc.IncludePaths
	clear(w.results)
	w.graph = compiler.NewGraph()
	if w.p.cache != nil {
		if err := w.p.cache.Purge(); err != nil {
			w.log.Warn("Unable to purge compile cache", zap.Error(err))
		}
	}
}

// affected returns roots of files which have to be compiled: roots without
// a successful result and roots depending on changed files. Added or removed
// files may change resolution of any import, every root is compiled then.
func (w *watcher) affected(files *fileset.FileSet) []*fileset.VirtualFile {
	if w.files != nil && !slices.Equal(w.files.Keys(), files.Keys()) {
		w.log.Debug("File set layout changed, rebuilding everything")
		return compiler.Roots(files)
	}
	changed := changedFiles(w.files, files)
	deps, err := w.graph.Dependents(changed...)
	if err != nil {
		w.log.Warn("Unable to walk dependency graph, rebuilding everything", zap.Error(err))
		return compiler.Roots(files)
	}
	w.log.Debug("Changes collected", zap.Strings("changed", changed), zap.Strings("dependents", deps))

	var roots []*fileset.VirtualFile
	for _, root := range compiler.Roots(files) {
		if _, ok := w.results[root.Path]; !ok || slices.Contains(deps, root.Path) {
			roots = append(roots, root)
		}
	}
	return roots
}

// record keeps successful results of the pass and rebuilds dependency graph
// from scratch, roots which are gone are dropped.
func (w *watcher) record(files *fileset.FileSet, outcomes []compiler.Outcome) {
	for _, o := range outcomes {
		if o.Err != nil {
			delete(w.results, o.Root.Path)
			continue
		}
		w.results[o.Root.Path] = o.Result
	}

	g := compiler.NewGraph()
	for root, res := range w.results {
		if f, ok := files.Get(root); !ok || !compiler.IsRoot(f) {
			delete(w.results, root)
			continue
		}
		if err := g.Add(root, res); err != nil {
			w.log.Warn("Unable to record dependencies", zap.String("root", root), zap.Error(err))
		}
	}
	w.graph = g
}

// changedFiles lists keys added, removed or modified between two file sets.
func changedFiles(before, after *fileset.FileSet) []string {
	var changed []string
	if before == nil {
		return after.Keys()
	}
	for key, f := range after.All() {
		if old, ok := before.Get(key); !ok || old.Hash != f.Hash {
			changed = append(changed, key)
		}
	}
	for key := range before.All() {
		if !after.Has(key) {
			changed = append(changed, key)
		}
	}
	return changed
}

// watchRoots lists directories to watch recursively. Package archives are
// watched through their parent directory.
func (w *watcher) watchRoots() []string {
	dirs := []string{w.p.root}
	for _, pkg := range w.p.cfg.Project.LoaderPackages(w.p.root) {
		if strings.EqualFold(filepath.Ext(pkg.Path), ".zip") {
			dirs = append(dirs, filepath.Dir(pkg.Path))
			continue
		}
		dirs = append(dirs, pkg.Path)
	}
	return dirs
}

func (w *watcher) skipDir(p string) bool {
	name := filepath.Base(p)
	if strings.HasPrefix(name, ".") && p != w.p.root {
		return true
	}
	if name == "node_modules" && !w.p.cfg.Project.NodeModules {
		return true
	}
	return filepath.Clean(p) == filepath.Clean(w.p.outputDir())
}

func (w *watcher) addDirs() error {
	for _, dir := range w.watchRoots() {
		if err := w.addTree(dir); err != nil {
			return err
		}
	}
	return nil
}

func (w *watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && w.skipDir(p) {
			return filepath.SkipDir
		}
		return w.fsw.Add(p)
	})
}

func (w *watcher) addIfDirectory(p string) {
	fi, err := os.Stat(p)
	if err != nil || !fi.IsDir() || w.skipDir(p) {
		return
	}
	if err := w.addTree(p); err != nil {
		w.log.Warn("Unable to watch directory", zap.String("dir", p), zap.Error(err))
	}
}

func (w *watcher) isRelevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	if event.Has(fsnotify.Create) {
		if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
			return !w.skipDir(event.Name)
		}
	}
	ext := strings.ToLower(filepath.Ext(event.Name))
	return fileset.IsStylesheet(event.Name) || ext == ".zip" || filepath.Base(event.Name) == w.p.cfg.Project.ConfigFile
}
