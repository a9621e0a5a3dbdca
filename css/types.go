// Package css finds loading directives (@import, @use, @forward) in
// stylesheets of both sass dialects and plain CSS.
package css

import "strings"

// Kind of loading directive.
type Kind int

const (
	KindImport Kind = iota
	KindUse
	KindForward
)

func (k Kind) String() string {
	switch k {
	case KindUse:
		return "@use"
	case KindForward:
		return "@forward"
	default:
		return "@import"
	}
}

func kindFromKeyword(kw string) (Kind, bool) {
	switch strings.ToLower(kw) {
	case "@import":
		return KindImport, true
	case "@use":
		return KindUse, true
	case "@forward":
		return KindForward, true
	}
	return KindImport, false
}

// Argument is a single loadable target of a directive.
type Argument struct {
	// URL is unquoted import specifier.
	URL string
	// Raw is argument text as written in the source.
	Raw string
	// Plain is set for plain CSS imports which must be kept in the output
	// as is: url(...), remote locations and imports with media queries.
	Plain bool
}

// Directive is a loading statement found in the source.
type Directive struct {
	Kind Kind
	Args []Argument
	// Start and End are byte offsets of the statement, End is exclusive and
	// includes terminating semicolon when present.
	Start int
	End   int
	// Line is zero based line of Start.
	Line int
}

// Loadable returns arguments which have to be resolved by the importer.
func (d Directive) Loadable() []Argument {
	var out []Argument
	for _, a := range d.Args {
		if !a.Plain {
			out = append(out, a)
		}
	}
	return out
}

// IsRemote reports whether import refers to a location compiler never loads.
func IsRemote(url string) bool {
	return strings.HasPrefix(url, "http://") ||
		strings.HasPrefix(url, "https://") ||
		strings.HasPrefix(url, "//")
}

// IsBuiltinModule reports whether url names a built in sass module.
func IsBuiltinModule(url string) bool {
	return strings.HasPrefix(url, "sass:")
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	if (s[0] == '"' && s[len(s)-1] == '"') ||
		(s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}
