package codec

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var stripPolicy = bluemonday.StrictPolicy()

// NormalizePaste reduces clipboard content to a single line of plain text:
// markup is stripped, line breaks and whitespace runs collapse to one space,
// and the ends are trimmed.
func NormalizePaste(raw string) string {
	text := html.UnescapeString(stripPolicy.Sanitize(raw))
	return strings.Join(strings.Fields(text), " ")
}

// Sanitize strips markup from short free-text fields such as image captions.
func Sanitize(raw string) string {
	return html.UnescapeString(stripPolicy.Sanitize(raw))
}
