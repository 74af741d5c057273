package services

import (
	"regexp"
	"strings"
)

// whitespace matches the same characters as \s in browser regular
// expressions, which is wider than RE2's ASCII-only \s.
const whitespace = `[\t\n\v\f\r \x{a0}\x{1680}\x{2000}-\x{200a}\x{2028}\x{2029}\x{202f}\x{205f}\x{3000}\x{feff}]`

var (
	blankLineRun  = regexp.MustCompile(`\n` + whitespace + `*\n`)
	sentenceBreak = regexp.MustCompile(`([.!?])` + whitespace + `+`)
	edgeSpace     = regexp.MustCompile(`^` + whitespace + `+|` + whitespace + `+$`)
)

// FormatAnswer normalizes model output for display: blank-line runs become a
// single newline, the text is trimmed, and every sentence ends its line.
func FormatAnswer(answer string) string {
	answer = blankLineRun.ReplaceAllString(answer, "\n")
	answer = edgeSpace.ReplaceAllString(answer, "")
	return sentenceBreak.ReplaceAllString(answer, "$1\n")
}

// BuildSystemPrompt wraps the page content in the assistant instructions.
// The content is embedded verbatim.
func BuildSystemPrompt(pageContent string) string {
	var b strings.Builder

	b.WriteString("You are a helpful assistant that answers questions about the following website content. Format your responses for readability:\n")
	b.WriteString("- Use short, clear sentences\n")
	b.WriteString("- Add line breaks between main points\n")
	b.WriteString("- Limit lists to 3-4 key points\n")
	b.WriteString("- Keep responses concise and focused\n")
	b.WriteString("- Avoid special characters or markdown\n\n")
	b.WriteString("Website content: ")
	b.WriteString(pageContent)

	return b.String()
}
