// Package render turns assembled facts into the line-oriented text that is
// delivered downstream. Everything here is pure.
package render

import (
	"fmt"
	"strings"
	"time"

	"horse.fit/news-coverage/internal/model"
	"horse.fit/news-coverage/internal/routing"
	"horse.fit/news-coverage/internal/taxonomy"
)

// Target is the article every rendered line links back to.
type Target struct {
	URL  string
	Date time.Time
}

// NewTarget dates the target with the article's publish date, or today
// when the article has none.
func NewTarget(article model.Article, today time.Time) Target {
	return Target{URL: article.URL, Date: article.PublishDate(today)}
}

// DateLink is "[M/D](url)".
func (t Target) DateLink() string {
	return fmt.Sprintf("[%s](%s)", DateDisplay(t.Date), t.URL)
}

// Line linkifies date parentheticals in text and appends a linked date
// when it has none. Blank input stays blank.
func (t Target) Line(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return text
	}
	text = LinkifyDates(text, t.URL)
	if !HasDateMarker(text) {
		text = fmt.Sprintf("%s (%s)", text, t.DateLink())
	}
	return text
}

// FactLines renders a fact. Exec changes collapse to one line; every other
// fact yields one line per summary line. The result is never empty.
func (t Target) FactLines(fact model.Fact) []string {
	if fact.IsExecChange() {
		return []string{t.ExecChangeLine(fact)}
	}
	bullets := fact.Lines()
	if len(bullets) == 0 {
		return []string{""}
	}
	lines := make([]string, 0, len(bullets))
	for _, bullet := range bullets {
		lines = append(lines, t.Line(bullet))
	}
	return lines
}

// ExecChangeLine renders "<main> (<date>) <note> <note>". Notes lose their
// own trailing date so the date appears once.
func (t Target) ExecChangeLine(fact model.Fact) string {
	var bullets []string
	for _, line := range fact.SummaryLines {
		if strings.TrimSpace(line) != "" {
			bullets = append(bullets, line)
		}
	}
	if len(bullets) == 0 {
		return t.Line(fact.ContentLine)
	}

	main := t.Line(bullets[0])
	notes := make([]string, 0, len(bullets)-1)
	for _, bullet := range bullets[1:] {
		if note := StripTrailingDateMarker(LinkifyDates(bullet, t.URL)); note != "" {
			notes = append(notes, note)
		}
	}
	if len(notes) == 0 {
		return main
	}
	return strings.TrimSpace(main + " " + strings.Join(notes, " "))
}

// Markdown renders "Title:" followed by a "Category:" line and
// "Content:" lines per fact.
func Markdown(article model.Article, facts []model.Fact, today time.Time) string {
	target := NewTarget(article, today)
	lines := []string{"Title: " + article.Title}
	for _, fact := range facts {
		lines = append(lines, "Category: "+taxonomy.Display(fact.CategoryPath))
		for _, line := range target.FactLines(fact) {
			lines = append(lines, "Content: "+line)
		}
	}
	return strings.Join(lines, "\n")
}

// ContentDeals renders one line per non-blank bullet, used for multi-title
// deal roundups where each bullet is its own title.
func ContentDeals(article model.Article, bullets []string, today time.Time) string {
	target := NewTarget(article, today)
	lines := make([]string, 0, len(bullets))
	for _, bullet := range bullets {
		if line := target.Line(bullet); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// Entry is one block of the final-output log.
type Entry struct {
	Article model.Article
	Facts   []model.Fact
	// Buyers are the matched buyer names, already in priority order.
	Buyers []string
	// Now stamps articles without a publish timestamp.
	Now time.Time
}

// FinalOutput renders an entry block without a trailing newline.
func FinalOutput(entry Entry) string {
	target := NewTarget(entry.Article, entry.Now)

	lines := []string{
		"Matched buyers: [" + strings.Join(entry.Buyers, ", ") + "]",
		"",
		"Title: " + entry.Article.Title,
	}
	for _, fact := range entry.Facts {
		lines = append(lines, "", "Category: "+taxonomy.Display(fact.CategoryPath), "", "Content:")
		for _, line := range target.FactLines(fact) {
			lines = append(lines, strings.TrimRight("- "+line, " "))
		}
	}
	lines = append(lines,
		"",
		"Date: ("+isoTimestamp(entry.Article.PublishedAt, entry.Now)+")",
		"",
		"URL: "+entry.Article.URL,
	)
	return strings.Join(lines, "\n")
}

func isoTimestamp(published *time.Time, now time.Time) string {
	if published == nil {
		return now.UTC().Format(time.RFC3339)
	}
	return published.Format(time.RFC3339)
}

// Formatter renders a processed article.
type Formatter func(article model.Article, summary model.Summary, facts []model.Fact, today time.Time) string

// Formatters maps routing formatter names to renderers.
var Formatters = map[string]Formatter{
	routing.FormatterMarkdown: func(article model.Article, _ model.Summary, facts []model.Fact, today time.Time) string {
		return Markdown(article, facts, today)
	},
	routing.FormatterContentDeals: func(article model.Article, summary model.Summary, _ []model.Fact, today time.Time) string {
		return ContentDeals(article, summary.Bullets, today)
	},
}

// Lookup returns the named formatter, falling back to markdown.
func Lookup(name string) Formatter {
	if formatter, ok := Formatters[name]; ok {
		return formatter
	}
	return Formatters[routing.FormatterMarkdown]
}
