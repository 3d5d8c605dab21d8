package convert

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var filenameCaser = cases.Title(language.Und, cases.NoLower)

// Filename derives a download filename from a source title. Unsafe characters
// are dropped, whitespace collapses to single spaces, and words keep their
// existing capitals while gaining an initial one. The extension, when given,
// includes the leading dot.
func Filename(title, extension string) string {
	cleaned := sanitizeTitle(title)
	if cleaned == "" {
		cleaned = "download"
	} else {
		cleaned = filenameCaser.String(cleaned)
	}
	return cleaned + extension
}

func sanitizeTitle(title string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range title {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' ||
			r == '"' || r == '<' || r == '>' || r == '|' || r < 0x20:
			continue
		case r == ' ' || r == '\t':
			if !lastSpace && b.Len() > 0 {
				b.WriteRune(' ')
				lastSpace = true
			}
		default:
			b.WriteRune(r)
			lastSpace = false
		}
	}
	return strings.TrimSpace(b.String())
}
