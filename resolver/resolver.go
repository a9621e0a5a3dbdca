// Package resolver maps import specifiers found in stylesheets to files of the
// virtual file set (or, for installed modules, to files on disk).
package resolver

import (
	"fmt"
	"os"
	"path"
	"strings"

	"go.uber.org/zap"

	"scssc/common"
	"scssc/fileset"
)

// Resolved is a successful resolution. Absolute is set when Path points to
// the filesystem rather than the file set. IncludePath names the configured
// search directory which produced the match, empty for direct matches.
type Resolved struct {
	Absolute    bool
	Path        string
	IncludePath string
}

// NotFoundError is returned when no stage of resolution produced a match.
type NotFoundError struct {
	Specifier string
	Importer  string
	Err       error
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("File to import: %s not found in file: %s", e.Specifier, e.Importer)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// Resolver holds everything which stays the same for all roots of a build
// pass. It is safe for concurrent use, per root state lives in Context.
type Resolver struct {
	log          *zap.Logger
	files        *fileset.FileSet
	rootDir      string
	includePaths []string
	exists       func(string) bool
}

type Option func(*Resolver)

// WithRootDir sets project root, installed modules are looked up in its
// node_modules directory. Defaults to current working directory.
func WithRootDir(dir string) Option {
	return func(r *Resolver) {
		r.rootDir = dir
	}
}

// WithIncludePaths sets fallback search directories in order of preference.
func WithIncludePaths(paths []string) Option {
	return func(r *Resolver) {
		r.includePaths = append([]string(nil), paths...)
	}
}

func New(log *zap.Logger, files *fileset.FileSet, opts ...Option) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Resolver{
		log:    log.Named("resolver"),
		files:  files,
		exists: fileExists,
	}
	for _, opt := range opts {
		opt(r)
	}
	if len(r.rootDir) == 0 {
		if wd, err := os.Getwd(); err == nil {
			r.rootDir = wd
		}
	}
	r.rootDir = strings.TrimSuffix(standardPath(r.rootDir), "/") + "/"
	return r
}

// Files returns the file set resolver searches.
func (r *Resolver) Files() *fileset.FileSet {
	return r.files
}

// IncludePaths returns configured fallback search directories.
func (r *Resolver) IncludePaths() []string {
	return append([]string(nil), r.includePaths...)
}

// Fingerprint identifies inputs of resolution other than file contents:
// project root, include paths in order and file set keys in insertion order.
// Results obtained with a different fingerprint may resolve differently.
func (r *Resolver) Fingerprint() string {
	var b strings.Builder
	b.WriteString(r.rootDir)
	for _, inc := range r.includePaths {
		b.WriteString("\x00i:")
		b.WriteString(inc)
	}
	for key := range r.files.All() {
		b.WriteString("\x00f:")
		b.WriteString(key)
	}
	return fileset.Hash([]byte(b.String()))
}

// anchor replaces sentinel with project root. Plain CSS files are never part
// of the file set so any sentinel rooted css specifier becomes a filesystem
// path.
func (r *Resolver) anchor(spec string) string {
	if !strings.HasPrefix(spec, "{") {
		return spec
	}
	if rest, ok := strings.CutPrefix(spec, sentinel); ok {
		spec = r.rootDir + nodeModules + "/" + rest
	}
	if strings.HasSuffix(spec, ".css") {
		if rest, ok := strings.CutPrefix(spec, "{}/"); ok {
			spec = r.rootDir + rest
		}
	}
	return spec
}

// search runs candidate expansion and matching, first with the specifier
// itself and then with every include path prefixed to original url.
func (r *Resolver) search(spec, url string, ext common.Syntax) (Resolved, bool) {
	if res, ok := r.match(spec, ext); ok {
		return res, true
	}
	for _, inc := range r.includePaths {
		if res, ok := r.match(path.Join(standardPath(inc), standardPath(url)), ext); ok {
			res.IncludePath = inc
			return res, true
		}
	}
	return Resolved{}, false
}

func (r *Resolver) match(spec string, ext common.Syntax) (Resolved, bool) {
	absolute := strings.HasPrefix(spec, "/")
	for _, c := range candidates(spec, ext) {
		if absolute && r.exists(c) {
			return Resolved{Absolute: true, Path: c}, true
		}
		if r.files.Has(c) {
			return Resolved{Path: c}, true
		}
		if found, ok := r.files.FindSuffix(searchSuffix(c)); ok {
			return Resolved{Path: found}, true
		}
	}
	return Resolved{}, false
}

var extensionOrder = []common.Syntax{common.SyntaxScss, common.SyntaxSass, common.SyntaxCss}

// candidates lists file names specifier may refer to. Without a known
// extension the extension of the file being compiled is tried first, then
// the rest. Every name also gets its partial variant, partials go last.
func candidates(spec string, ext common.Syntax) []string {
	var list []string
	if _, ok := common.SyntaxFromExt(path.Ext(spec)); ok {
		list = append(list, spec)
	} else {
		list = append(list, spec+"."+ext.Ext())
		for _, s := range extensionOrder {
			if s != ext {
				list = append(list, spec+"."+s.Ext())
			}
		}
	}
	for _, c := range list {
		if !hasUnderscore(c) {
			list = append(list, path.Join(path.Dir(c), "_"+path.Base(c)))
		}
	}
	return list
}

// searchSuffix drops everything before node_modules or leading parent
// references, what remains is looked up as a key suffix. The node_modules
// segment itself is kept, unlike the documented "up to and including" rule:
// file set keys of installed packages carry it, so a suffix without it would
// also match same named application files.
func searchSuffix(c string) string {
	if i := strings.Index(c, nodeModules); i >= 0 {
		return c[i:]
	}
	for strings.HasPrefix(c, "../") {
		c = c[3:]
	}
	return c
}
