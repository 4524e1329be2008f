package scanner

import (
	"regexp"
	"strings"
)

// pattern is one compiled exclude glob.
//
// Globs use gitignore syntax without negation: "*" and "?" stay within a
// path segment, "**" spans segments, and a trailing "/**" excludes a
// directory with everything below it. A glob without "/" matches any single
// path segment.
type pattern struct {
	source   string
	regex    *regexp.Regexp
	anchored bool
}

func compilePattern(glob string) (pattern, bool) {
	glob = strings.TrimSpace(glob)
	if glob == "" || strings.HasPrefix(glob, "#") {
		return pattern{}, false
	}
	p := pattern{source: glob}

	rooted := strings.HasPrefix(glob, "/")
	glob = strings.TrimPrefix(glob, "/")
	p.anchored = rooted || strings.Contains(strings.TrimSuffix(glob, "/"), "/")
	glob = strings.TrimSuffix(glob, "/**")
	glob = strings.TrimSuffix(glob, "/")

	p.regex = regexp.MustCompile("^" + globToRegex(glob) + "$")
	return p, true
}

// match reports whether rel, or one of its parent directories, is
// excluded. rel is slash-separated.
func (p pattern) match(rel string) bool {
	if !p.anchored {
		for _, seg := range strings.Split(rel, "/") {
			if p.regex.MatchString(seg) {
				return true
			}
		}
		return false
	}

	for i := 0; i <= len(rel); i++ {
		if i == len(rel) || rel[i] == '/' {
			if p.regex.MatchString(rel[:i]) {
				return true
			}
		}
	}
	return false
}

// globToRegex converts a glob to an unanchored regular expression body.
func globToRegex(glob string) string {
	var sb strings.Builder

	for i := 0; i < len(glob); {
		c := glob[i]
		switch c {
		case '*':
			if i+1 < len(glob) && glob[i+1] == '*' {
				if i+2 < len(glob) && glob[i+2] == '/' {
					// "**/" matches zero or more directories
					sb.WriteString("(?:.*/)?")
					i += 3
					continue
				}
				sb.WriteString(".*")
				i += 2
				continue
			}
			sb.WriteString("[^/]*")
			i++
		case '?':
			sb.WriteString("[^/]")
			i++
		case '[':
			j := i + 1
			for j < len(glob) && glob[j] != ']' {
				j++
			}
			if j < len(glob) {
				sb.WriteString(glob[i : j+1])
				i = j + 1
			} else {
				sb.WriteString(`\[`)
				i++
			}
		case '\\':
			if i+1 < len(glob) {
				sb.WriteString(regexp.QuoteMeta(glob[i+1 : i+2]))
				i += 2
			} else {
				sb.WriteString(`\\`)
				i++
			}
		default:
			sb.WriteString(regexp.QuoteMeta(glob[i : i+1]))
			i++
		}
	}
	return sb.String()
}
