package parse

import (
	"regexp"
	"strings"
)

var (
	spacesRe        = regexp.MustCompile(`\p{Z}+`)
	formatControlRe = regexp.MustCompile(`\p{Cf}+`)
	whitespaceRe    = regexp.MustCompile(`\s+`)
)

func TrimText(text string) string {
	text = spacesRe.ReplaceAllString(text, " ")
	text = formatControlRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// TrimTitle normalizes a single-line title: all whitespace runs including line breaks collapse into one space.
func TrimTitle(title string) string {
	return whitespaceRe.ReplaceAllString(TrimText(title), " ")
}
