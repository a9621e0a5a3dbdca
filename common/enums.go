// Package common keeps enums shared by configuration and compilation so that
// neither has to import the other.
package common

// Stylesheet dialect of a source file.
// ENUM(scss, sass, css)
type Syntax int

// Ext returns file extension for the dialect, without leading dot.
func (s Syntax) Ext() string {
	return s.String()
}

// Indented reports whether dialect is indentation based.
func (s Syntax) Indented() bool {
	return s == SyntaxSass
}

// SyntaxFromExt returns dialect for file extension (with or without leading
// dot). Unknown extensions are reported with false.
func SyntaxFromExt(ext string) (Syntax, bool) {
	if len(ext) > 0 && ext[0] == '.' {
		ext = ext[1:]
	}
	s, err := ParseSyntax(ext)
	if err != nil {
		return SyntaxScss, false
	}
	return s, true
}

// Where compiled results are kept between compilations.
// ENUM(none, memory, disk)
type CacheMode int
