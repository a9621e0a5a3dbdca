package fileset

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"scssc/archive"
	"scssc/common"
)

// Package describes a stylesheet package root: a directory or a zip archive.
type Package struct {
	Name string
	Path string
}

// OptionRule assigns build options to files whose display path matches the
// doublestar pattern.
type OptionRule struct {
	Pattern  string
	IsImport bool
}

// Loader builds FileSet from the application directory and package roots.
type Loader struct {
	log         *zap.Logger
	root        string
	packages    []Package
	rules       []OptionRule
	nodeModules bool
	skip        []string
}

type LoaderOption func(*Loader)

// WithPackages adds package roots, in order.
func WithPackages(pkgs ...Package) LoaderOption {
	return func(l *Loader) {
		l.packages = append(l.packages, pkgs...)
	}
}

// WithOptionRules sets per-file option rules, first matching rule wins.
func WithOptionRules(rules ...OptionRule) LoaderOption {
	return func(l *Loader) {
		l.rules = append(l.rules, rules...)
	}
}

// WithNodeModules makes loader include stylesheets found under node_modules
// of the application directory.
func WithNodeModules(include bool) LoaderOption {
	return func(l *Loader) {
		l.nodeModules = include
	}
}

// WithSkipDirs excludes directories (output locations and such) from the
// application walk.
func WithSkipDirs(dirs ...string) LoaderOption {
	return func(l *Loader) {
		for _, d := range dirs {
			if len(d) > 0 {
				l.skip = append(l.skip, filepath.Clean(d))
			}
		}
	}
}

func NewLoader(log *zap.Logger, root string, options ...LoaderOption) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	l := &Loader{log: log.Named("fileset"), root: filepath.Clean(root)}
	for _, o := range options {
		o(l)
	}
	// package directories are separate roots, do not load them as application files
	for _, p := range l.packages {
		l.skip = append(l.skip, filepath.Clean(p.Path))
	}
	return l
}

// IsStylesheet reports whether file is handled by the compiler: only the two
// sass dialects are build inputs, plain css is not.
func IsStylesheet(name string) bool {
	s, ok := common.SyntaxFromExt(path.Ext(name))
	return ok && s != common.SyntaxCss
}

// Load walks application directory first, then every package in configured
// order. Walk order is lexical which makes insertion order deterministic.
func (l *Loader) Load(ctx context.Context) (*FileSet, error) {
	set := New()

	if err := l.loadDir(ctx, set, "", l.root, true); err != nil {
		return nil, fmt.Errorf("unable to load application files: %w", err)
	}
	for _, p := range l.packages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		if strings.EqualFold(filepath.Ext(p.Path), ".zip") {
			err = l.loadArchive(set, p)
		} else {
			err = l.loadDir(ctx, set, p.Name, p.Path, false)
		}
		if err != nil {
			return nil, fmt.Errorf("unable to load package %q: %w", p.Name, err)
		}
	}
	l.log.Debug("File set loaded", zap.String("root", l.root), zap.Int("packages", len(l.packages)), zap.Int("files", set.Len()))
	return set, nil
}

func (l *Loader) loadDir(ctx context.Context, set *FileSet, pkg, dir string, app bool) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if p == dir {
				return nil
			}
			if l.skipDir(d.Name(), p, app) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !IsStylesheet(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		return l.add(set, pkg, filepath.ToSlash(rel), data, p)
	})
}

func (l *Loader) skipDir(name, p string, app bool) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	if name == "node_modules" && (!app || !l.nodeModules) {
		return true
	}
	return slices.Contains(l.skip, filepath.Clean(p))
}

func (l *Loader) loadArchive(set *FileSet, p Package) error {
	return archive.Walk(p.Path, "", IsStylesheet, func(name string, data []byte) error {
		return l.add(set, p.Name, name, data, p.Path+"/"+name)
	})
}

func (l *Loader) add(set *FileSet, pkg, rel string, data []byte, source string) error {
	f := NewVirtualFile(pkg, norm.NFC.String(rel), data)
	f.Source = source
	f.Options = l.optionsFor(f.DisplayPath)
	return set.Add(f)
}

func (l *Loader) optionsFor(display string) FileOptions {
	for _, r := range l.rules {
		matched, err := doublestar.Match(r.Pattern, display)
		if err != nil {
			l.log.Warn("Bad file option pattern, ignoring", zap.String("pattern", r.Pattern), zap.Error(err))
			continue
		}
		if matched {
			isImport := r.IsImport
			return FileOptions{IsImport: &isImport}
		}
	}
	return FileOptions{}
}
