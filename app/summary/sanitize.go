package summary

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

// sanitizeMaxPasses bounds the fixpoint loop in Sanitize. Each pass only
// removes markup, so real input settles in one or two passes.
const sanitizeMaxPasses = 8

var (
	blockBreakRegex = regexp.MustCompile(`(?i)<\s*(?:br\s*/?|/\s*(?:p|div|li|h[1-6]|blockquote|tr|section|article))\s*>`)
	codeFenceRegex  = regexp.MustCompile("(?m)^[ \t]*(?:```|~~~).*$")
	inlineCodeRegex = regexp.MustCompile("`+([^`]*)`+")
	imageRegex      = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	linkRegex       = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	refLinkRegex    = regexp.MustCompile(`\[([^\]]*)\]\[[^\]]*\]`)
	urlRegex        = regexp.MustCompile(`(?i)\b(?:https?://|www\.)\S+`)
	headingRegex    = regexp.MustCompile(`(?m)^[ \t]*#{1,6}[ \t]*`)
	quoteRegex      = regexp.MustCompile(`(?m)^[ \t]*(?:>[ \t]?)+`)
	bulletRegex     = regexp.MustCompile(`(?m)^[ \t]*(?:[-*+•][ \t]+)+`)
	ruleRegex       = regexp.MustCompile(`(?m)^[ \t]*(?:(?:-[ \t]*){3,}|(?:\*[ \t]*){3,}|(?:_[ \t]*){3,})$`)
	tableRuleRegex  = regexp.MustCompile(`(?m)^[ \t]*\|?(?:[ \t]*:?-{2,}:?[ \t]*\|)+[ \t]*(?::?-{2,}:?)?[ \t]*$`)
	emphasisRegex   = regexp.MustCompile(`\*\*|__|~~`)
	spaceBeforePunc = regexp.MustCompile(`\s+([.,;:!?])`)

	etcEndRegex = regexp.MustCompile(`\b(?i:etc)\.(\s+[A-Z]|\s*$)`)
)

type abbreviation struct {
	pattern     *regexp.Regexp
	replacement string
}

// Abbreviations speech engines tend to read letter by letter.
var abbreviations = []abbreviation{
	{regexp.MustCompile(`(?i)\be\.\s?g\.`), "for example"},
	{regexp.MustCompile(`(?i)\bi\.\s?e\.`), "that is"},
	{regexp.MustCompile(`(?i)\betc\.`), "et cetera"},
	{regexp.MustCompile(`(?i)\bvs\.`), "versus"},
	{regexp.MustCompile(`(?i)\bapprox\.`), "approximately"},
	{regexp.MustCompile(`&`), " and "},
	{regexp.MustCompile(`%`), " percent"},
}

var typographic = strings.NewReplacer(
	"‘", "'", "’", "'", "‚", "'", "′", "'",
	"“", `"`, "”", `"`, "„", `"`, "″", `"`,
	"–", " - ", "—", " - ", "−", "-",
)

var stripPolicy = bluemonday.StrictPolicy()

// Sanitize prepares generated text for speech synthesis: markup is removed,
// abbreviations are spelled out, symbols and emoji are dropped and
// whitespace is collapsed. Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(text string) string {
	current := text
	for range sanitizeMaxPasses {
		next := sanitizeOnce(current)
		if next == current {
			break
		}
		current = next
	}
	return current
}

func sanitizeOnce(text string) string {
	text = norm.NFKC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")

	text = stripHTML(text)
	text = stripMarkdown(text)
	text = typographic.Replace(text)

	text = etcEndRegex.ReplaceAllString(text, "et cetera.$1")
	for _, abbr := range abbreviations {
		text = abbr.pattern.ReplaceAllString(text, abbr.replacement)
	}

	text = strings.Map(speakable, text)
	text = joinLines(text)

	text = spaceBeforePunc.ReplaceAllString(text, "$1")
	return strings.Join(strings.Fields(text), " ")
}

func stripHTML(text string) string {
	if !strings.ContainsAny(text, "<&") {
		return text
	}
	text = blockBreakRegex.ReplaceAllString(text, "\n")
	return html.UnescapeString(stripPolicy.Sanitize(text))
}

func stripMarkdown(text string) string {
	text = codeFenceRegex.ReplaceAllString(text, "")
	text = inlineCodeRegex.ReplaceAllString(text, "$1")
	text = imageRegex.ReplaceAllString(text, "")
	text = linkRegex.ReplaceAllString(text, "$1")
	text = refLinkRegex.ReplaceAllString(text, "$1")
	text = urlRegex.ReplaceAllString(text, "")
	text = tableRuleRegex.ReplaceAllString(text, "")
	text = ruleRegex.ReplaceAllString(text, "")
	text = headingRegex.ReplaceAllString(text, "")
	text = quoteRegex.ReplaceAllString(text, "")
	text = bulletRegex.ReplaceAllString(text, "")
	return emphasisRegex.ReplaceAllString(text, "")
}

func speakable(r rune) rune {
	switch {
	case r == '\n':
		return r
	case unicode.IsSpace(r), unicode.Is(unicode.Variation_Selector, r):
		return ' '
	case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsMark(r):
		return r
	case strings.ContainsRune(`.,;:!?'"()-`, r):
		return r
	default:
		return ' '
	}
}

// joinLines turns line breaks into sentence breaks so headings and list
// items are not read as one run-on sentence.
func joinLines(text string) string {
	if !strings.Contains(text, "\n") {
		return text
	}

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}

	for i := 0; i < len(lines)-1; i++ {
		if !endsSentence(lines[i]) {
			lines[i] += "."
		}
	}

	return strings.Join(lines, " ")
}

func endsSentence(line string) bool {
	return strings.ContainsAny(line[len(line)-1:], `.!?:;,`)
}
