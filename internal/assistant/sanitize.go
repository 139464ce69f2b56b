package assistant

import (
	"regexp"
	"strings"
)

// Patterns for tool-call syntax the model sometimes leaks into plain text.
var (
	// A call-like tag immediately followed by a brace-delimited argument
	// blob, optionally closed by a stray end-of-sequence tag. Surrounding
	// whitespace collapses to a single space so the prose rejoins cleanly.
	leakedCallRe = regexp.MustCompile(`\s*<function=\w+>\{[^}]*\}(?:</s>)?\s*`)

	// Leftover bare tags without an argument blob.
	leakedTagRe = regexp.MustCompile(`<function=\w+>|</s>`)

	// Runs of three or more newlines.
	newlineRunRe = regexp.MustCompile(`\n{3,}`)
)

// Sanitize strips leaked tool-call syntax from a final answer and collapses
// blank-line runs. Purely cosmetic; semantic content is untouched.
func Sanitize(text string) string {
	text = leakedCallRe.ReplaceAllString(text, " ")
	text = leakedTagRe.ReplaceAllString(text, "")
	text = newlineRunRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
