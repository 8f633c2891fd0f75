package auth

import (
	"fmt"
	"regexp"
	"strings"
)

// Pattern is a compiled route glob. It always matches the whole path.
//
//	?       one character other than '/'
//	*       any run of characters other than '/'
//	**      anything, '/' included
//	(a|b|)  alternatives, possibly empty, possibly nested
//	[a-z]   character class, [!a-z] negated
//
// "/dashboard(|/)" matches "/dashboard" and "/dashboard/" but not
// "/dashboard/orders".
type Pattern struct {
	source string
	re     *regexp.Regexp
}

func CompilePattern(glob string) (*Pattern, error) {
	if glob == "" || glob[0] != '/' {
		return nil, fmt.Errorf("route pattern %q must start with '/'", glob)
	}

	var b strings.Builder
	b.WriteString("^")
	depth := 0
	for i := 0; i < len(glob); i++ {
		switch ch := glob[i]; ch {
		case '*':
			if i+1 < len(glob) && glob[i+1] == '*' {
				b.WriteString(".*")
				i++
			} else {
				b.WriteString("[^/]*")
			}
		case '?':
			b.WriteString("[^/]")
		case '(':
			depth++
			b.WriteString("(?:")
		case ')':
			if depth == 0 {
				return nil, fmt.Errorf("route pattern %q: unbalanced ')'", glob)
			}
			depth--
			b.WriteString(")")
		case '|':
			if depth == 0 {
				b.WriteString(`\|`)
			} else {
				b.WriteString("|")
			}
		case '[':
			end := strings.IndexByte(glob[i+1:], ']')
			if end < 0 {
				return nil, fmt.Errorf("route pattern %q: unterminated character class", glob)
			}
			class := glob[i+1 : i+1+end]
			if strings.HasPrefix(class, "!") {
				class = "^" + class[1:]
			}
			b.WriteString("[" + class + "]")
			i += end + 1
		default:
			b.WriteString(regexp.QuoteMeta(string(ch)))
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("route pattern %q: unbalanced '('", glob)
	}
	b.WriteString("$")

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("route pattern %q: %w", glob, err)
	}
	return &Pattern{source: glob, re: re}, nil
}

func (p *Pattern) Match(path string) bool {
	return p.re.MatchString(path)
}

func (p *Pattern) String() string {
	return p.source
}
