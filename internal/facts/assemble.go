// Package facts turns summarizer bullet lines into categorized Fact records.
//
// Assembly is one forward scan with a cursor that decides where note lines
// go. Lines that carry their own category (explicit paths, shorthand and
// exec changes) are peeled off during the scan. What is left is handled by
// exactly one of three modes chosen from the classification: interview,
// content list or general.
package facts

import (
	"fmt"
	"strings"
	"time"

	"horse.fit/news-coverage/internal/globaltime"
	"horse.fit/news-coverage/internal/model"
	"horse.fit/news-coverage/internal/taxonomy"
)

// Options configure assembly.
type Options struct {
	// AllowUnprefixedExecNotes lets a plain sentence after an exec-change
	// line attach to it. When false every continuation needs "Note:".
	AllowUnprefixedExecNotes bool
	// Today dates facts for articles without a publish timestamp. Zero means
	// globaltime.Today().
	Today time.Time
}

func (o Options) fallbackDate() time.Time {
	if o.Today.IsZero() {
		return globaltime.Today()
	}
	return o.Today
}

type cursorState int

const (
	// No line seen yet.
	cursorNone cursorState = iota
	// The last line was left for the mode pass; notes follow it there.
	cursorBase
	// An explicit-override or exec-change fact is open.
	cursorOverride
	// A GNS buffer is open.
	cursorGNS
)

type cursor struct {
	state   cursorState
	fact    *model.Fact
	exec    bool
	gnsPath string
}

func (c *cursor) openOverride(fact *model.Fact, exec bool) {
	*c = cursor{state: cursorOverride, fact: fact, exec: exec}
}

func (c *cursor) openGNS(path string) {
	*c = cursor{state: cursorGNS, gnsPath: path}
}

func (c *cursor) base() {
	*c = cursor{state: cursorBase}
}

type assembler struct {
	cls       model.Classification
	published time.Time
	opts      Options

	execFacts   []*model.Fact
	routedFacts []*model.Fact
	gnsOrder    []string
	gnsLines    map[string][]string
	remaining   []string
	cur         cursor
}

// Assemble builds the ordered fact list for one article: exec changes, then
// the mode's base facts, then explicit overrides, then one fact per GNS
// buffer. It never fails and always returns at least one fact.
func Assemble(summary model.Summary, cls model.Classification, article model.Article, opts Options) []model.Fact {
	a := &assembler{
		cls:       cls,
		published: article.PublishDate(opts.fallbackDate()),
		opts:      opts,
		gnsLines:  make(map[string][]string),
	}

	for _, raw := range summary.Bullets {
		if line := strings.TrimSpace(raw); line != "" {
			a.scan(line)
		}
	}

	facts := make([]model.Fact, 0, len(a.execFacts)+len(a.remaining)+len(a.routedFacts)+len(a.gnsOrder))
	facts = appendFacts(facts, a.execFacts)
	facts = append(facts, a.baseFacts()...)
	facts = appendFacts(facts, a.routedFacts)
	for _, path := range a.gnsOrder {
		lines := a.gnsLines[path]
		if len(lines) == 0 {
			continue
		}
		facts = append(facts, a.newFact(path, lines[0], lines...))
	}

	if len(facts) == 0 {
		facts = append(facts, Fallback(summary, cls, article, opts))
	}
	for idx := range facts {
		facts[idx].ID = fmt.Sprintf("fact-%d", idx+1)
	}
	return facts
}

func appendFacts(dst []model.Fact, src []*model.Fact) []model.Fact {
	for _, fact := range src {
		dst = append(dst, *fact)
	}
	return dst
}

func (a *assembler) scan(line string) {
	if note, ok := parseNote(line); ok {
		a.scanNote(line, note)
		return
	}

	routed, isRouted := parseRoutedLine(line)
	isExec := isExecChangeLine(line)
	continuation := !isRouted && !isExec && !strings.Contains(line, ":")

	switch a.cur.state {
	case cursorOverride:
		if continuation && (!a.cur.exec || a.opts.AllowUnprefixedExecNotes) {
			a.cur.fact.SummaryLines = append(a.cur.fact.SummaryLines, line)
			return
		}
	case cursorGNS:
		if continuation {
			a.gnsLines[a.cur.gnsPath] = append(a.gnsLines[a.cur.gnsPath], line)
			return
		}
	}

	switch {
	case isRouted && routed.gns:
		if _, seen := a.gnsLines[routed.path]; !seen {
			a.gnsOrder = append(a.gnsOrder, routed.path)
		}
		a.gnsLines[routed.path] = append(a.gnsLines[routed.path], routed.content)
		a.cur.openGNS(routed.path)
	case isRouted:
		fact := a.newFact(routed.path, routed.content)
		a.routedFacts = append(a.routedFacts, &fact)
		a.cur.openOverride(&fact, false)
	case isExec:
		fact := a.newFact(model.ExecChangesPath, line)
		a.execFacts = append(a.execFacts, &fact)
		a.cur.openOverride(&fact, true)
	default:
		a.remaining = append(a.remaining, line)
		a.cur.base()
	}
}

// scanNote attaches a note to the open override or GNS buffer. Otherwise the
// raw line is left for the mode pass, which attaches it to the base fact
// before it.
func (a *assembler) scanNote(line, note string) {
	switch a.cur.state {
	case cursorOverride:
		if note != "" {
			a.cur.fact.SummaryLines = append(a.cur.fact.SummaryLines, note)
		}
	case cursorGNS:
		if note != "" {
			a.gnsLines[a.cur.gnsPath] = append(a.gnsLines[a.cur.gnsPath], note)
		}
	default:
		a.remaining = append(a.remaining, line)
		a.cur.base()
	}
}

func (a *assembler) newFact(path, content string, lines ...string) model.Fact {
	section, subheading := taxonomy.ParseOrDefault(path)
	if len(lines) == 0 {
		lines = []string{content}
	}
	return model.Fact{
		CategoryPath: path,
		Section:      section,
		Subheading:   subheading,
		Buyer:        a.cls.Company,
		Quarter:      a.cls.Quarter,
		PublishedAt:  a.published,
		ContentLine:  content,
		SummaryLines: append([]string(nil), lines...),
	}
}

// classifiedFact builds a fact under the classifier's own category.
func (a *assembler) classifiedFact(content string, lines ...string) model.Fact {
	if len(lines) == 0 {
		lines = []string{content}
	}
	section := a.cls.Section
	if section == "" {
		section, _ = taxonomy.ParseOrDefault(a.cls.Category)
	}
	return model.Fact{
		CategoryPath: a.categoryPath(),
		Section:      section,
		Subheading:   a.cls.SubheadingOr(model.SubheadingGNS),
		Buyer:        a.cls.Company,
		Quarter:      a.cls.Quarter,
		PublishedAt:  a.published,
		ContentLine:  content,
		SummaryLines: append([]string(nil), lines...),
	}
}

func (a *assembler) categoryPath() string {
	if strings.TrimSpace(a.cls.Category) == "" {
		return model.DefaultPath
	}
	return a.cls.Category
}

func (a *assembler) baseFacts() []model.Fact {
	if len(a.remaining) == 0 {
		return nil
	}
	switch {
	case isInterviewHeader(a.remaining[0]):
		return a.interviewFacts()
	case taxonomy.IsContentListBucket(a.cls.Section, a.cls.SubheadingOr(""), a.cls.Category):
		return a.contentListFacts()
	default:
		return a.generalFacts()
	}
}

// interviewFacts folds every remaining line into one fact headed by the
// first line.
func (a *assembler) interviewFacts() []model.Fact {
	lines := make([]string, 0, len(a.remaining))
	for _, line := range a.remaining {
		if note, ok := parseNote(line); ok {
			if note != "" {
				lines = append(lines, note)
			}
			continue
		}
		lines = append(lines, line)
	}
	return []model.Fact{a.classifiedFact(a.remaining[0], lines...)}
}

// contentListFacts starts a fact per "<title>: <details>" line. Other lines
// fill the title's single note slot, concatenating when there are several.
func (a *assembler) contentListFacts() []model.Fact {
	var facts []model.Fact
	var current *model.Fact

	addNote := func(text string) {
		if len(current.SummaryLines) < 2 {
			current.SummaryLines = append(current.SummaryLines, text)
			return
		}
		last := len(current.SummaryLines) - 1
		current.SummaryLines[last] = strings.TrimSpace(strings.TrimRight(current.SummaryLines[last], " \t") + " " + text)
	}

	for _, text := range a.remaining {
		note, isNote := parseNote(text)
		if isNote {
			if current != nil {
				if note != "" {
					addNote(note)
				}
				continue
			}
			if note == "" {
				continue
			}
			text = note
		}
		if current == nil || looksLikeTitleItem(text) {
			facts = append(facts, a.classifiedFact(text))
			current = &facts[len(facts)-1]
			continue
		}
		addNote(text)
	}
	return facts
}

// generalFacts makes one fact per line. A leading fact label picks the
// subheading; a note joins the fact before it.
func (a *assembler) generalFacts() []model.Fact {
	var facts []model.Fact
	for _, raw := range a.remaining {
		if note, ok := parseNote(raw); ok {
			if len(facts) > 0 {
				if note != "" {
					last := &facts[len(facts)-1]
					last.SummaryLines = append(last.SummaryLines, note)
				}
				continue
			}
			raw = note
		}
		if strings.TrimSpace(raw) == "" {
			continue
		}

		label, content := taxonomy.SplitLabel(raw)
		if content == "" {
			content = strings.TrimSpace(raw)
		}
		path, section, subheading := taxonomy.FactCategory(a.cls.Category, label)
		facts = append(facts, model.Fact{
			CategoryPath: path,
			Section:      section,
			Subheading:   subheading,
			Buyer:        a.cls.Company,
			Quarter:      a.cls.Quarter,
			PublishedAt:  a.published,
			ContentLine:  content,
			SummaryLines: []string{content},
		})
	}
	return facts
}

// Fallback builds the single fact used when nothing else survives: the
// takeaway, else the first non-blank bullet, else the article title.
func Fallback(summary model.Summary, cls model.Classification, article model.Article, opts Options) model.Fact {
	content := strings.TrimSpace(summary.Takeaway)
	if content == "" {
		for _, bullet := range summary.Bullets {
			if content = strings.TrimSpace(bullet); content != "" {
				break
			}
		}
	}
	if content == "" {
		content = strings.TrimSpace(article.Title)
	}
	if content == "" {
		content = "Summary unavailable."
	}

	path := strings.TrimSpace(cls.Category)
	if path == "" {
		path = model.DefaultPath
	}
	section, subheading := taxonomy.ParseOrDefault(path)
	return model.Fact{
		ID:           "fact-1",
		CategoryPath: path,
		Section:      section,
		Subheading:   subheading,
		Buyer:        cls.Company,
		Quarter:      cls.Quarter,
		PublishedAt:  article.PublishDate(opts.fallbackDate()),
		ContentLine:  content,
		SummaryLines: []string{content},
	}
}
