// Package report groups a quarter's stored coverage into per-buyer
// markdown reports and a needs-review list.
package report

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"horse.fit/news-coverage/internal/buyers"
	"horse.fit/news-coverage/internal/model"
	"horse.fit/news-coverage/internal/render"
	payloadschema "horse.fit/news-coverage/schema"
)

const (
	ReasonWeakMatch    = "Weak keyword match; please confirm inclusion."
	ReasonMissingDate  = "Missing published_at; cannot place."
	ReasonUnknownBuyer = "No buyer matched; please assign."
)

var errFactDateMissing = errors.New("published date missing")

var quarterPattern = regexp.MustCompile(`^(\d{4}) (Q[1-4])$`)

// Sections in report order with their headings.
var Sections = []struct {
	Key   string
	Title string
}{
	{model.SectionHighlights, "Highlights From The Quarter"},
	{model.SectionOrg, "Org"},
	{model.SectionContent, "Content, Deals & Distribution"},
	{model.SectionStrategy, "Strategy & Miscellaneous News"},
	{model.SectionIR, "Investor Relations"},
	{model.SectionMA, "M&A"},
}

// MediumOrder is the medium heading order inside content and strategy
// sections.
var MediumOrder = []string{"Film", "TV", "Specials", "International", "Sports/Podcasts", "General"}

var preferredSubheadings = []string{
	model.SubheadingGNS,
	"Development",
	"Pickups",
	"Dating",
	"Greenlights",
	"Renewals",
	"Cancellations",
}

var contentListSubheadings = map[string]struct{}{
	"Development":   {},
	"Greenlights":   {},
	"Pickups":       {},
	"Dating":        {},
	"Renewals":      {},
	"Cancellations": {},
}

var monthRanges = map[string]string{
	"Q1": "January – March",
	"Q2": "April – June",
	"Q3": "July – September",
	"Q4": "October – December",
}

// Entry is one line of a buyer report.
type Entry struct {
	Title        string
	URL          string
	PublishedAt  time.Time
	Section      string
	Subheading   string
	Medium       string
	SummaryLines []string
}

type ReviewItem struct {
	Buyer  string
	Title  string
	URL    string
	Reason string
}

func (r ReviewItem) String() string {
	return fmt.Sprintf("%s: %s (%s) -- %s", r.Buyer, r.Title, r.URL, r.Reason)
}

type BuyerReport struct {
	Buyer   string
	Entries []Entry
}

type Result struct {
	Quarter string
	Reports map[string]*BuyerReport
	Reviews []ReviewItem
}

// Buyers returns the report buyers in table priority order.
func (r Result) Buyers(table *buyers.Table) []string {
	set := make(buyers.Set, len(r.Reports))
	for name := range r.Reports {
		set[name] = struct{}{}
	}
	return table.Ordered(set)
}

// InferMedium picks the medium from keywords in a category path.
func InferMedium(categoryPath string) string {
	lower := strings.ToLower(categoryPath)
	switch {
	case containsAny(lower, "film", "movie", "theatrical"):
		return "Film"
	case containsAny(lower, "tv", "television", "series"):
		return "TV"
	case strings.Contains(lower, "specials"):
		return "Specials"
	case strings.Contains(lower, "international"):
		return "International"
	case containsAny(lower, "sports", "podcast"):
		return "Sports/Podcasts"
	default:
		return "General"
	}
}

func containsAny(text string, keywords ...string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

// EntryFor turns one stored fact into a report entry. The entry title and
// summary depend on the kind of fact: list items keep one detail line,
// interviews keep everything, general and non-content facts keep up to
// three lines, and anything else is headed by the article title.
func EntryFor(record payloadschema.CoverageRecord, fact payloadschema.FactRecord) (Entry, error) {
	rawDate := strings.TrimSpace(fact.PublishedAt)
	if rawDate == "" {
		rawDate = strings.TrimSpace(record.PublishedAt)
	}
	if rawDate == "" {
		return Entry{}, errFactDateMissing
	}
	published, err := time.Parse(time.DateOnly, rawDate)
	if err != nil {
		return Entry{}, fmt.Errorf("invalid published_at %q: %w", rawDate, err)
	}

	content := strings.TrimSpace(fact.ContentLine)
	lowered := strings.ToLower(content)
	lines := fact.SummaryLines

	entry := Entry{
		URL:         record.URL,
		PublishedAt: published,
		Section:     fact.Section,
		Subheading:  fact.Subheading,
		Medium:      InferMedium(fact.CategoryPath),
	}

	_, listBucket := contentListSubheadings[fact.Subheading]
	switch {
	case fact.Section == model.SectionContent && listBucket && strings.Contains(content, ":"):
		entry.Title = content
		entry.SummaryLines = nonBlank(window(lines, 1, 2))
	case strings.HasPrefix(lowered, "interview:") || strings.HasPrefix(lowered, "commentary:"):
		entry.Title = content
		if entry.Title == "" {
			entry.Title = record.Title
		}
		entry.SummaryLines = nonBlank(window(lines, 1, len(lines)))
	case content != "" && fact.Subheading == model.SubheadingGNS &&
		(fact.Section == model.SectionContent || fact.Section == model.SectionStrategy):
		entry.Title = content
		entry.SummaryLines = nonBlank(window(lines, 1, 4))
	case content != "" && isNonContentSection(fact.Section):
		entry.Title = content
		entry.SummaryLines = nonBlank(window(lines, 1, 4))
	default:
		entry.Title = record.Title
		if summary := strings.Join(nonBlank(window(lines, 0, 3)), " "); summary != "" {
			entry.SummaryLines = []string{summary}
		}
	}
	return entry, nil
}

func isNonContentSection(section string) bool {
	switch section {
	case model.SectionOrg, model.SectionMA, model.SectionIR, model.SectionHighlights:
		return true
	default:
		return false
	}
}

func window(lines []string, start, end int) []string {
	if end > len(lines) {
		end = len(lines)
	}
	if start >= end {
		return nil
	}
	return lines[start:end]
}

func nonBlank(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Build groups records into buyer reports. A record is filed under its own
// buyer and every buyer strongly mentioned in it; weakly mentioned buyers
// and records that cannot be placed go to the review list.
func Build(quarter string, records []payloadschema.CoverageRecord, table *buyers.Table) (Result, error) {
	if !quarterPattern.MatchString(strings.TrimSpace(quarter)) {
		return Result{}, fmt.Errorf("quarter must look like \"2025 Q4\" (got %q)", quarter)
	}
	if table == nil {
		table = buyers.Default()
	}

	result := Result{Quarter: strings.TrimSpace(quarter), Reports: make(map[string]*BuyerReport)}
	for _, record := range records {
		match := table.Match(articleFor(record))
		targets := make(buyers.Set, len(match.Strong)+1)
		for name := range match.Strong {
			targets[name] = struct{}{}
		}
		if buyer := strings.TrimSpace(record.Buyer); buyer != "" && buyer != model.UnknownBuyer {
			targets[buyer] = struct{}{}
		}
		reviewBuyers := targets
		if len(reviewBuyers) == 0 {
			reviewBuyers = buyers.Set{model.UnknownBuyer: {}}
		}

		if strings.TrimSpace(record.PublishedAt) == "" {
			result.addReviews(record, reviewBuyers, ReasonMissingDate)
			continue
		}
		if len(targets) == 0 {
			result.addReviews(record, reviewBuyers, ReasonUnknownBuyer)
			continue
		}

		for _, fact := range record.Facts {
			entry, err := EntryFor(record, fact)
			if err != nil {
				reason := err.Error()
				if errors.Is(err, errFactDateMissing) {
					reason = ReasonMissingDate
				}
				result.addReviews(record, reviewBuyers, reason)
				continue
			}
			for name := range targets {
				report, ok := result.Reports[name]
				if !ok {
					report = &BuyerReport{Buyer: name}
					result.Reports[name] = report
				}
				report.Entries = append(report.Entries, entry)
			}
		}

		weak := make(buyers.Set)
		for name := range match.Weak {
			if !targets.Has(name) {
				weak[name] = struct{}{}
			}
		}
		result.addReviews(record, weak, ReasonWeakMatch)
	}

	sort.SliceStable(result.Reviews, func(i, j int) bool {
		a, b := result.Reviews[i], result.Reviews[j]
		if pa, pb := table.Priority(a.Buyer), table.Priority(b.Buyer); pa != pb {
			return pa < pb
		}
		if a.Buyer != b.Buyer {
			return a.Buyer < b.Buyer
		}
		return a.Title < b.Title
	})
	return result, nil
}

func (r *Result) addReviews(record payloadschema.CoverageRecord, names buyers.Set, reason string) {
	for _, name := range names.Sorted() {
		r.Reviews = append(r.Reviews, ReviewItem{Buyer: name, Title: record.Title, URL: record.URL, Reason: reason})
	}
}

// articleFor rebuilds enough of an article from a stored record for buyer
// matching: the title, the url and the fact text as the body.
func articleFor(record payloadschema.CoverageRecord) model.Article {
	var body []string
	for _, fact := range record.Facts {
		body = append(body, fact.ContentLine)
		body = append(body, fact.SummaryLines...)
	}
	return model.Article{
		Title:   record.Title,
		URL:     record.URL,
		Content: strings.Join(body, "\n"),
	}
}

// ReviewText renders the needs-review file.
func ReviewText(items []ReviewItem) string {
	if len(items) == 0 {
		return "No review items.\n"
	}
	lines := make([]string, len(items))
	for idx, item := range items {
		lines[idx] = item.String()
	}
	return strings.Join(lines, "\n")
}

// Markdown renders one buyer's report for quarter.
func (r *BuyerReport) Markdown(quarter string) string {
	var b strings.Builder
	year, q := quarter, ""
	if parts := quarterPattern.FindStringSubmatch(quarter); parts != nil {
		year, q = parts[1], parts[2]
	}
	months, ok := monthRanges[q]
	if !ok {
		months = monthRanges["Q1"]
	}
	fmt.Fprintf(&b, "# %s News & Updates\n\n%s %s\n", quarter, months, year)

	grouped := group(r.Entries)
	for idx, section := range Sections {
		mediums, ok := grouped[section.Key]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "\n## %d. %s\n", idx, section.Title)

		byMedium := section.Key == model.SectionContent || section.Key == model.SectionStrategy
		for _, medium := range MediumOrder {
			subheadings, ok := mediums[medium]
			if !ok {
				continue
			}
			if byMedium {
				fmt.Fprintf(&b, "\n### %s\n", medium)
			}
			for _, subheading := range orderedSubheadings(subheadings) {
				switch {
				case byMedium:
					fmt.Fprintf(&b, "\n**%s**\n\n", subheading)
				case section.Key != model.SectionHighlights:
					fmt.Fprintf(&b, "\n### %s\n\n", subheading)
				default:
					b.WriteString("\n")
				}
				for _, entry := range subheadings[subheading] {
					writeEntry(&b, entry, byMedium, section.Key == model.SectionOrg && subheading == model.SubheadingExecChanges)
				}
			}
		}
	}
	return b.String()
}

func writeEntry(b *strings.Builder, entry Entry, labelled, inlineNote bool) {
	date := render.DateDisplay(entry.PublishedAt)
	lines := entry.SummaryLines

	title := entry.Title
	if labelled {
		if label, rest, found := strings.Cut(entry.Title, ":"); found {
			label = strings.TrimSpace(label)
			rest = strings.TrimLeft(rest, " \t")
			switch strings.ToLower(label) {
			case "interview", "commentary":
				title = fmt.Sprintf("*%s:* **%s (%s)**", label, rest, date)
			default:
				title = fmt.Sprintf("***%s:*** %s (%s)", label, rest, date)
			}
			fmt.Fprintf(b, "- %s\n", title)
			writeSummary(b, lines)
			return
		}
	}

	line := fmt.Sprintf("%s (%s)", title, date)
	if inlineNote && len(lines) > 0 {
		line += " " + strings.TrimSpace(lines[0])
		lines = lines[1:]
	}
	fmt.Fprintf(b, "- %s\n", line)
	writeSummary(b, lines)
}

func writeSummary(b *strings.Builder, lines []string) {
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			fmt.Fprintf(b, "  - %s\n", trimmed)
		}
	}
}

// group nests entries by section, medium and subheading, newest first.
func group(entries []Entry) map[string]map[string]map[string][]Entry {
	grouped := make(map[string]map[string]map[string][]Entry)
	for _, entry := range entries {
		sub := strings.TrimSpace(entry.Subheading)
		if sub == "" {
			sub = model.SubheadingGNS
		}
		mediums, ok := grouped[entry.Section]
		if !ok {
			mediums = make(map[string]map[string][]Entry)
			grouped[entry.Section] = mediums
		}
		subs, ok := mediums[entry.Medium]
		if !ok {
			subs = make(map[string][]Entry)
			mediums[entry.Medium] = subs
		}
		subs[sub] = append(subs[sub], entry)
	}

	for _, mediums := range grouped {
		for _, subs := range mediums {
			for _, items := range subs {
				sort.SliceStable(items, func(i, j int) bool {
					return items[i].PublishedAt.After(items[j].PublishedAt)
				})
			}
		}
	}
	return grouped
}

func orderedSubheadings(subs map[string][]Entry) []string {
	ordered := make([]string, 0, len(subs))
	preferred := make(map[string]struct{}, len(preferredSubheadings))
	for _, name := range preferredSubheadings {
		preferred[name] = struct{}{}
		if _, ok := subs[name]; ok {
			ordered = append(ordered, name)
		}
	}
	var extras []string
	for name := range subs {
		if _, ok := preferred[name]; !ok {
			extras = append(extras, name)
		}
	}
	sort.Strings(extras)
	return append(ordered, extras...)
}
