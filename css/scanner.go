package css

import (
	"bytes"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"

	"scssc/common"
)

// Scanner locates loading directives in stylesheet sources.
type Scanner struct {
	log *zap.Logger
}

// NewScanner creates a new directive scanner.
func NewScanner(log *zap.Logger) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{log: log.Named("css-scanner")}
}

type token struct {
	tt   css.TokenType
	data string
	pos  int
}

// Scan returns directives in source order. The optional source parameter
// identifies what's being scanned (for debug logging).
func (s *Scanner) Scan(data []byte, syntax common.Syntax, source ...string) []Directive {
	var dirs []Directive
	if syntax.Indented() {
		dirs = s.scanIndented(data)
	} else {
		dirs = s.scanBraces(data)
	}
	if len(source) > 0 && source[0] != "" {
		s.log.Debug("Scanned stylesheet", zap.String("source", source[0]), zap.Stringer("syntax", syntax),
			zap.Int("bytes", len(data)), zap.Int("directives", len(dirs)))
	}
	return dirs
}

func lex(data []byte, base int) []token {
	var (
		tokens []token
		pos    = base
	)
	l := css.NewLexer(parse.NewInput(bytes.NewReader(data)))
	for {
		tt, text := l.Next()
		if tt == css.ErrorToken {
			return tokens
		}
		tokens = append(tokens, token{tt: tt, data: string(text), pos: pos})
		pos += len(text)
	}
}

// scanBraces handles scss and plain css. Line comments are not part of CSS
// syntax so lexer sees them as two delimiters, they are skipped here up to the
// end of line.
func (s *Scanner) scanBraces(data []byte) []Directive {
	var dirs []Directive

	tokens := lex(data, 0)
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		switch {
		case t.tt == css.DelimToken && t.data == "/" && i+1 < len(tokens) &&
			tokens[i+1].tt == css.DelimToken && tokens[i+1].data == "/" && tokens[i+1].pos == t.pos+1:
			for i++; i < len(tokens) && !(tokens[i].tt == css.WhitespaceToken && strings.Contains(tokens[i].data, "\n")); i++ {
			}
		case t.tt == css.AtKeywordToken:
			kind, ok := kindFromKeyword(t.data)
			if !ok {
				continue
			}
			j := i + 1
			for ; j < len(tokens); j++ {
				if tt := tokens[j].tt; tt == css.SemicolonToken || tt == css.LeftBraceToken || tt == css.RightBraceToken {
					break
				}
			}
			end := len(data)
			if j < len(tokens) {
				end = tokens[j].pos
				if tokens[j].tt == css.SemicolonToken {
					end++
				}
			}
			d := Directive{Kind: kind, Start: t.pos, End: end, Line: bytes.Count(data[:t.pos], []byte{'\n'})}
			d.Args = parseArgs(kind, tokens[i+1:min(j, len(tokens))], false)
			if len(d.Args) == 0 {
				s.log.Debug("Directive without arguments, ignoring", zap.Stringer("kind", kind), zap.Int("line", d.Line+1))
				continue
			}
			dirs = append(dirs, d)
			i = j
		}
	}
	return dirs
}

// scanIndented handles the indentation based dialect, where directives occupy
// a single line and are not terminated by semicolon.
func (s *Scanner) scanIndented(data []byte) []Directive {
	var (
		dirs  []Directive
		start int
	)
	for line := 0; start <= len(data); line++ {
		end := bytes.IndexByte(data[start:], '\n')
		if end < 0 {
			end = len(data)
		} else {
			end += start
		}
		text := strings.TrimRight(string(data[start:end]), "\r")
		trimmed := strings.TrimLeft(text, " \t")

		if strings.HasPrefix(trimmed, "@") {
			kw, rest, _ := strings.Cut(trimmed, " ")
			if kind, ok := kindFromKeyword(kw); ok {
				base := start + len(text) - len(rest)
				if args := parseArgs(kind, lex([]byte(rest), base), true); len(args) > 0 {
					dirs = append(dirs, Directive{
						Kind:  kind,
						Args:  args,
						Start: start + len(text) - len(trimmed),
						End:   start + len(text),
						Line:  line,
					})
				}
			}
		}
		if end == len(data) {
			break
		}
		start = end + 1
	}
	return dirs
}

// parseArgs splits directive tokens into arguments. @use and @forward take a
// single url followed by modifiers, @import takes comma separated list.
func parseArgs(kind Kind, tokens []token, indented bool) []Argument {
	var (
		args  []Argument
		group []token
		depth int
	)
	flush := func() {
		if a, ok := makeArgument(group, indented); ok {
			args = append(args, a)
		}
		group = group[:0]
	}
	for _, t := range tokens {
		switch t.tt {
		case css.LeftParenthesisToken, css.FunctionToken:
			depth++
		case css.RightParenthesisToken:
			depth--
		case css.CommaToken:
			if depth == 0 && kind == KindImport {
				flush()
				continue
			}
		}
		group = append(group, t)
	}
	flush()

	if kind != KindImport && len(args) > 0 {
		a := args[0]
		if IsBuiltinModule(a.URL) {
			return nil
		}
		// modifiers are not media queries
		a.Plain = false
		return []Argument{a}
	}
	return args
}

func makeArgument(group []token, indented bool) (Argument, bool) {
	var (
		raw      strings.Builder
		first    = -1
		trailing bool
	)
	for i, t := range group {
		raw.WriteString(t.data)
		if t.tt == css.WhitespaceToken || t.tt == css.CommentToken {
			continue
		}
		if first < 0 {
			first = i
		} else if !indented || isQuoted(group[first]) {
			trailing = true
		}
	}
	if first < 0 {
		return Argument{}, false
	}
	a := Argument{Raw: strings.TrimSpace(raw.String())}
	t := group[first]
	switch {
	case t.tt == css.StringToken:
		a.URL = unquote(t.data)
		a.Plain = trailing || IsRemote(a.URL)
	case t.tt == css.URLToken || (t.tt == css.FunctionToken && strings.EqualFold(t.data, "url(")):
		a.URL = urlValue(group[first:])
		a.Plain = true
	case indented:
		// unquoted imports are allowed by the indented dialect
		a.URL = a.Raw
		a.Plain = IsRemote(a.URL)
	default:
		return Argument{}, false
	}
	return a, true
}

func isQuoted(t token) bool {
	return t.tt == css.StringToken
}

func urlValue(group []token) string {
	t := group[0]
	if t.tt == css.URLToken {
		s := strings.TrimSuffix(t.data[strings.IndexByte(t.data, '(')+1:], ")")
		return unquote(s)
	}
	for _, n := range group[1:] {
		if n.tt == css.StringToken {
			return unquote(n.data)
		}
	}
	return ""
}
