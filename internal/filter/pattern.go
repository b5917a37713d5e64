package filter

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrPattern is returned for globs that cannot be compiled.
var ErrPattern = errors.New("invalid pattern")

// pattern is a compiled glob with find -path semantics, where '*' and '?' also
// match '/'. Bracket classes and '\' escapes work as in fnmatch(3). A pattern
// must match the whole path.
type pattern struct {
	re *regexp.Regexp
}

func compilePattern(glob string) (pattern, error) {
	var expr strings.Builder

	expr.WriteString("(?s)^")

	for rest := glob; rest != ""; {
		switch rest[0] {
		case '*':
			expr.WriteString(".*")

			rest = rest[1:]
		case '?':
			expr.WriteByte('.')

			rest = rest[1:]
		case '\\':
			if len(rest) == 1 {
				return pattern{}, fmt.Errorf("%w %q: trailing backslash", ErrPattern, glob)
			}

			expr.WriteString(regexp.QuoteMeta(rest[1:2]))

			rest = rest[2:]
		case '[':
			class, n, err := bracket(rest)
			if err != nil {
				return pattern{}, fmt.Errorf("%w %q: %w", ErrPattern, glob, err)
			}

			expr.WriteString(class)

			rest = rest[n:]
		default:
			expr.WriteString(regexp.QuoteMeta(rest[:1]))

			rest = rest[1:]
		}
	}

	expr.WriteByte('$')

	re, err := regexp.Compile(expr.String())
	if err != nil {
		return pattern{}, fmt.Errorf("%w %q: %w", ErrPattern, glob, err)
	}

	return pattern{re: re}, nil
}

// bracket translates the bracket expression that starts s into a regexp class and
// returns the number of bytes it spans. A ']' right after "[" or "[!" is literal.
func bracket(s string) (string, int, error) {
	body := 1
	negate := body < len(s) && s[body] == '!'

	if negate {
		body++
	}

	search := body
	if search < len(s) && s[search] == ']' {
		search++
	}

	end := strings.IndexByte(s[search:], ']')
	if end < 0 {
		return "", 0, errors.New("unclosed character class")
	}

	end += search

	var class strings.Builder

	class.WriteByte('[')

	if negate {
		class.WriteByte('^')
	}

	for _, c := range []byte(s[body:end]) {
		if c == '\\' || c == '[' || c == ']' || c == '^' {
			class.WriteByte('\\')
		}

		class.WriteByte(c)
	}

	class.WriteByte(']')

	return class.String(), end + 1, nil
}

func (p pattern) match(path string) bool {
	return p.re.MatchString(path)
}

func compilePatterns(globs []string) ([]pattern, error) {
	patterns := make([]pattern, 0, len(globs))

	for _, glob := range globs {
		p, err := compilePattern(glob)
		if err != nil {
			return nil, err
		}

		patterns = append(patterns, p)
	}

	return patterns, nil
}

func matchAny(patterns []pattern, path string) bool {
	for _, p := range patterns {
		if p.match(path) {
			return true
		}
	}

	return false
}

// Count returns how many of paths the glob matches.
func Count(glob string, paths []string) (int, error) {
	p, err := compilePattern(glob)
	if err != nil {
		return 0, err
	}

	var count int

	for _, path := range paths {
		if p.match(path) {
			count++
		}
	}

	return count, nil
}
