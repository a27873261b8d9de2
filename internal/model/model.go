// Package model holds the values passed between pipeline stages.
package model

import (
	"strings"
	"time"
)

const (
	UnknownBuyer = "Unknown"

	SectionHighlights = "Highlights"
	SectionOrg        = "Org"
	SectionContent    = "Content / Deals / Distribution"
	SectionStrategy   = "Strategy & Miscellaneous News"
	SectionIR         = "Investor Relations"
	SectionMA         = "M&A"

	SubheadingGNS         = "General News & Strategy"
	SubheadingExecChanges = "Exec Changes"

	// ArrowSeparator joins category path segments on output. "→" is also
	// accepted when parsing.
	ArrowSeparator = "->"

	ExecChangesPath = "Org -> Exec Changes"
	DefaultPath     = "Strategy & Miscellaneous News -> General News & Strategy"
)

// Article is one news story as submitted for processing.
type Article struct {
	Title       string     `json:"title"`
	Source      string     `json:"source"`
	URL         string     `json:"url"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Content     string     `json:"content"`
}

// Classification is the category chosen for an article plus the buyer and
// fiscal quarter it is filed under.
type Classification struct {
	Category   string   `json:"category"`
	Section    string   `json:"section"`
	Subheading *string  `json:"subheading,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	Company    string   `json:"company"`
	Quarter    string   `json:"quarter"`
}

// SubheadingOr returns the subheading or fallback when it is unset.
func (c Classification) SubheadingOr(fallback string) string {
	if c.Subheading == nil || strings.TrimSpace(*c.Subheading) == "" {
		return fallback
	}
	return *c.Subheading
}

// Fact is one independently categorized unit of coverage.
type Fact struct {
	ID           string    `json:"fact_id"`
	CategoryPath string    `json:"category_path"`
	Section      string    `json:"section"`
	Subheading   string    `json:"subheading"`
	Buyer        string    `json:"buyer"`
	Quarter      string    `json:"quarter"`
	PublishedAt  time.Time `json:"-"`
	ContentLine  string    `json:"content_line"`
	SummaryLines []string  `json:"summary_lines"`
}

// IsExecChange reports whether the fact renders as a single exec-change line.
func (f Fact) IsExecChange() bool {
	return f.CategoryPath == ExecChangesPath
}

// Lines returns the non-blank summary lines, or the content line when no
// summary line has text.
func (f Fact) Lines() []string {
	lines := make([]string, 0, len(f.SummaryLines))
	for _, line := range f.SummaryLines {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > 0 {
		return lines
	}
	if text := strings.TrimSpace(f.ContentLine); text != "" {
		return []string{text}
	}
	return nil
}

// Summary is the summarizer output for one article.
type Summary struct {
	Bullets  []string
	Takeaway string
}

// IngestResult describes where a record landed. DuplicateOf is set instead
// of writing when the URL was already stored.
type IngestResult struct {
	StoredPath  string `json:"stored_path"`
	ID          string `json:"id,omitempty"`
	DuplicateOf string `json:"duplicate_of,omitempty"`
}

// PublishDate returns the calendar date of the publish timestamp, in the
// timestamp's own zone, as midnight UTC. Articles without a timestamp get
// fallback.
func (a Article) PublishDate(fallback time.Time) time.Time {
	if a.PublishedAt == nil {
		return fallback
	}
	t := *a.PublishedAt
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func StringPtr(value string) *string {
	return &value
}

func FloatPtr(value float64) *float64 {
	return &value
}
