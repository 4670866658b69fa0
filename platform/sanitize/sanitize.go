// Package sanitize cleans free text that arrives from third parties before it
// is stored or rendered into emails.
package sanitize

import (
	"html"
	"regexp"
	"strings"
)

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

// StripHTML removes tags, decodes entities and strips again so that encoded
// tags do not survive.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = html.UnescapeString(result)
	return htmlTagRegex.ReplaceAllString(result, "")
}

// Name cleans a person's name: no markup, no control characters, single spaces.
func Name(s string) string {
	s = StripHTML(s)
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
