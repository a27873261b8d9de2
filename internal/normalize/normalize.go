// Package normalize repairs article text before it reaches the classifier:
// mis-decoded punctuation is replaced and HTML bodies are reduced to text.
package normalize

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"horse.fit/news-coverage/internal/model"
)

// mojibake pairs are applied in order. UTF-8 punctuation mis-decoded as
// cp1252 and as latin-1 are both covered.
var mojibake = []struct {
	raw     string
	cleaned string
}{
	{"\u0192?Ts", "'s"},
	{"\u0192?~s", "'s"},
	{"\u0192?s", "'s"},
	{"\u0192?T", "'"},
	{"\u0192?o", `"`},
	{"\u0192??", `"`},
	{"\u0192?\u00dd", "--"},
	{"\u00e2\u20ac\u0153", `"`},
	{"\u00e2\u20ac\u009d", `"`},
	{"\u00e2\u20ac\u2122", "'"},
	{"\u00e2\u20ac\u0099", "'"},
	{"\u00e2\u20ac\u02dc", "'"},
	{"\u00e2\u20ac\u0098", "'"},
	{"\u00e2\u20ac\u201d", "--"},
	{"\u00e2\u20ac\u201c", "-"},
	{"\u00c2", ""},
}

var (
	htmlTagPattern   = regexp.MustCompile(`(?i)</?(p|br|div|span|a|li|ul|ol|h[1-6]|strong|em|b|i|article|section|blockquote|figure|img)\b[^>]*>`)
	htmlBreakPattern = regexp.MustCompile(`(?i)<\s*(br\s*/?|/p|/div|/li|/h[1-6]|/blockquote)\s*>`)
	blankRunPattern  = regexp.MustCompile(`\n{3,}`)
	spaceRunPattern  = regexp.MustCompile(`[ \t\x{00a0}]+`)

	textPolicy = bluemonday.StrictPolicy()
)

// Text replaces known mojibake sequences and reports how many it replaced.
func Text(text string) (string, int) {
	if text == "" {
		return text, 0
	}
	replacements := 0
	for _, pair := range mojibake {
		if count := strings.Count(text, pair.raw); count > 0 {
			replacements += count
			text = strings.ReplaceAll(text, pair.raw, pair.cleaned)
		}
	}
	return text, replacements
}

// LooksLikeHTML reports whether body carries common block or inline tags.
func LooksLikeHTML(body string) bool {
	return htmlTagPattern.MatchString(body)
}

// StripHTML reduces an HTML fragment to paragraphs of plain text.
func StripHTML(body string) string {
	withBreaks := htmlBreakPattern.ReplaceAllString(body, "\n")
	text := html.UnescapeString(textPolicy.Sanitize(withBreaks))

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRunPattern.ReplaceAllString(line, " "))
	}
	text = strings.Join(lines, "\n")
	return strings.TrimSpace(blankRunPattern.ReplaceAllString(text, "\n\n"))
}

// Result describes what Article changed.
type Result struct {
	Fields       []string
	Replacements int
	LengthDelta  int
	HTMLStripped bool
}

// Changed reports whether any field was rewritten.
func (r Result) Changed() bool {
	return len(r.Fields) > 0
}

// Note is the one-line log summary, or "" when nothing changed.
func (r Result) Note() string {
	if !r.Changed() {
		return ""
	}
	return fmt.Sprintf(
		"Normalization: applied; fields=%s; replacements=%d; length_delta=%d",
		strings.Join(r.Fields, ","), r.Replacements, r.LengthDelta,
	)
}

// Article returns a copy of a with its title and content normalized.
func Article(a model.Article) (model.Article, Result) {
	var result Result

	title, titleReplacements := Text(a.Title)
	content := a.Content
	if LooksLikeHTML(content) {
		content = StripHTML(content)
		result.HTMLStripped = true
	}
	content, contentReplacements := Text(content)

	result.Replacements = titleReplacements + contentReplacements
	if title != a.Title {
		result.Fields = append(result.Fields, "title")
	}
	if content != a.Content {
		result.Fields = append(result.Fields, "content")
	}
	result.LengthDelta = utf8.RuneCountInString(title) - utf8.RuneCountInString(a.Title) +
		utf8.RuneCountInString(content) - utf8.RuneCountInString(a.Content)

	normalized := a
	normalized.Title = title
	normalized.Content = content
	return normalized, result
}

// Quarter returns the calendar quarter of t as "YYYY Qn".
func Quarter(t time.Time) string {
	return fmt.Sprintf("%d Q%d", t.Year(), (int(t.Month())-1)/3+1)
}
