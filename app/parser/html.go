package parser

import (
	"html"
	"regexp"
	"strings"
)

var (
	scriptStyleRegex      = regexp.MustCompile(`(?i)<script[^>]*>[\s\S]*?</script>|<style[^>]*>[\s\S]*?</style>`)
	blockCloseRegex       = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr|table|blockquote|pre)>`)
	lineBreakRegex        = regexp.MustCompile(`(?i)<br\s*/?>`)
	tagRegex              = regexp.MustCompile(`<[^>]+>`)
	horizontalSpaceRegex  = regexp.MustCompile(`[ \t]+`)
	repeatedNewlinesRegex = regexp.MustCompile(`\n{3,}`)
)

// StripHTML derives plain text from an HTML fragment. Nil or blank input yields nil.
// Entities are decoded only after tags are removed, so encoded angle brackets
// in text survive as literal characters.
func StripHTML(fragment *string) *string {
	if fragment == nil || strings.TrimSpace(*fragment) == "" {
		return nil
	}

	text := scriptStyleRegex.ReplaceAllString(*fragment, "")
	text = blockCloseRegex.ReplaceAllString(text, "\n")
	text = lineBreakRegex.ReplaceAllString(text, "\n")
	text = tagRegex.ReplaceAllString(text, "")
	text = html.UnescapeString(text)
	text = horizontalSpaceRegex.ReplaceAllString(text, " ")
	text = repeatedNewlinesRegex.ReplaceAllString(text, "\n\n")
	text = strings.TrimSpace(text)

	return &text
}
