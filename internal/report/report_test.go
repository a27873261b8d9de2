package report

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"horse.fit/news-coverage/internal/buyers"
	"horse.fit/news-coverage/internal/model"
	payloadschema "horse.fit/news-coverage/schema"
)

const greenlightsPath = "Content / Deals / Distribution -> TV -> Greenlights"

func record(buyer, title, url, published string, facts ...payloadschema.FactRecord) payloadschema.CoverageRecord {
	return payloadschema.CoverageRecord{
		Buyer:       buyer,
		Quarter:     "2025 Q4",
		Title:       title,
		Source:      "Variety",
		URL:         url,
		PublishedAt: published,
		Facts:       facts,
	}
}

func fact(path, section, subheading, published string, lines ...string) payloadschema.FactRecord {
	return payloadschema.FactRecord{
		FactID:       "fact-1",
		CategoryPath: path,
		Section:      section,
		Subheading:   subheading,
		PublishedAt:  published,
		ContentLine:  lines[0],
		SummaryLines: lines,
	}
}

func netflixRecords() []payloadschema.CoverageRecord {
	return []payloadschema.CoverageRecord{
		record("Netflix", "Netflix greenlights Show A", "https://example.com/a", "2025-11-03",
			fact(greenlightsPath, model.SectionContent, "Greenlights", "2025-11-03", "Show A: drama series from X", "Stars Y.")),
		record("Netflix", "Netflix names new COO", "https://example.com/b", "2025-12-01",
			fact(model.ExecChangesPath, model.SectionOrg, model.SubheadingExecChanges, "2025-12-01", "Promotion: Jane Roe, COO", "Reports to CEO.")),
		record("Netflix", "Netflix greenlights Show B", "https://example.com/c", "2025-12-10",
			fact(greenlightsPath, model.SectionContent, "Greenlights", "2025-12-10", "Show B: comedy")),
	}
}

func TestBuildRendersBuyerReport(t *testing.T) {
	t.Parallel()

	result, err := Build("2025 Q4", netflixRecords(), buyers.Default())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(result.Reports) != 1 || result.Reports["Netflix"] == nil {
		t.Fatalf("expected a single Netflix report, got %v", result.Reports)
	}
	if len(result.Reviews) != 0 {
		t.Fatalf("expected no review items, got %v", result.Reviews)
	}

	want := "# 2025 Q4 News & Updates\n\n" +
		"October – December 2025\n\n" +
		"## 1. Org\n\n" +
		"### Exec Changes\n\n" +
		"- Promotion: Jane Roe, COO (12/1) Reports to CEO.\n\n" +
		"## 2. Content, Deals & Distribution\n\n" +
		"### TV\n\n" +
		"**Greenlights**\n\n" +
		"- ***Show B:*** comedy (12/10)\n" +
		"- ***Show A:*** drama series from X (11/3)\n" +
		"  - Stars Y.\n"
	if diff := cmp.Diff(want, result.Reports["Netflix"].Markdown("2025 Q4")); diff != "" {
		t.Fatalf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildCollectsReviewItems(t *testing.T) {
	t.Parallel()

	records := []payloadschema.CoverageRecord{
		record(model.UnknownBuyer, "Industry roundup", "https://example.com/d", "2025-11-20",
			fact(model.DefaultPath, model.SectionStrategy, model.SubheadingGNS, "2025-11-20", "Box office slows.")),
		record("Netflix", "Netflix undated", "https://example.com/e", "",
			fact(model.DefaultPath, model.SectionStrategy, model.SubheadingGNS, "", "Undated item.")),
		record("Netflix", "Netflix earnings", "https://example.com/f", "2025-10-21",
			fact(model.DefaultPath, model.SectionStrategy, model.SubheadingGNS, "2025-10-21",
				"Netflix beat estimates.", strings.Repeat("filler ", 70)+"Hulu also grew.")),
	}

	result, err := Build("2025 Q4", records, buyers.Default())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	// Reviews follow buyer priority: Disney, Netflix, then unknown names.
	want := "Disney: Netflix earnings (https://example.com/f) -- Weak keyword match; please confirm inclusion.\n" +
		"Netflix: Netflix undated (https://example.com/e) -- Missing published_at; cannot place.\n" +
		"Unknown: Industry roundup (https://example.com/d) -- No buyer matched; please assign."
	if diff := cmp.Diff(want, ReviewText(result.Reviews)); diff != "" {
		t.Fatalf("review mismatch (-want +got):\n%s", diff)
	}

	netflix := result.Reports["Netflix"]
	if netflix == nil || len(netflix.Entries) != 1 || netflix.Entries[0].Title != "Netflix beat estimates." {
		t.Fatalf("unexpected Netflix entries: %+v", netflix)
	}
	if _, ok := result.Reports["Disney"]; ok {
		t.Fatalf("weakly matched buyer should not get a report")
	}
}

func TestReviewTextEmpty(t *testing.T) {
	t.Parallel()

	if got := ReviewText(nil); got != "No review items.\n" {
		t.Fatalf("ReviewText(nil) = %q", got)
	}
}

func TestBuildRejectsBadQuarter(t *testing.T) {
	t.Parallel()

	if _, err := Build("Q4 2025", nil, nil); err == nil {
		t.Fatalf("expected error for malformed quarter")
	}
}

func TestEntryFor(t *testing.T) {
	t.Parallel()

	rec := record("Netflix", "Article title", "https://example.com/x", "2025-11-01")
	tests := []struct {
		name  string
		fact  payloadschema.FactRecord
		title string
		lines []string
	}{
		{
			name:  "interview keeps every line",
			fact:  fact("Strategy & Miscellaneous News -> Interview", model.SectionStrategy, "Interview", "", "Interview: Jane Roe on the slate", "First.", "Second."),
			title: "Interview: Jane Roe on the slate",
			lines: []string{"First.", "Second."},
		},
		{
			name:  "general news keeps three lines",
			fact:  fact(model.DefaultPath, model.SectionStrategy, model.SubheadingGNS, "", "Lead.", "One.", "Two.", "Three.", "Four."),
			title: "Lead.",
			lines: []string{"One.", "Two.", "Three."},
		},
		{
			name:  "other facts use the article title",
			fact:  fact("Content / Deals / Distribution -> Film -> Dating", model.SectionContent, "Dating", "", "Release set.", "  ", "Opens in May."),
			title: "Article title",
			lines: []string{"Release set. Opens in May."},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			entry, err := EntryFor(rec, tc.fact)
			if err != nil {
				t.Fatalf("EntryFor() error = %v", err)
			}
			if entry.Title != tc.title {
				t.Fatalf("title = %q, want %q", entry.Title, tc.title)
			}
			if diff := cmp.Diff(tc.lines, entry.SummaryLines); diff != "" {
				t.Fatalf("summary mismatch (-want +got):\n%s", diff)
			}
			if entry.PublishedAt.Format("2006-01-02") != "2025-11-01" {
				t.Fatalf("expected record date fallback, got %s", entry.PublishedAt)
			}
		})
	}

	undated := record("Netflix", "Undated", "https://example.com/y", "")
	_, err := EntryFor(undated, fact(model.DefaultPath, model.SectionStrategy, model.SubheadingGNS, "", "Text."))
	if !errors.Is(err, errFactDateMissing) {
		t.Fatalf("expected missing date error, got %v", err)
	}
	if err.Error() != "published date missing" {
		t.Fatalf("unexpected error text %q", err.Error())
	}
}

func TestInferMedium(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Content / Deals / Distribution -> Film -> Dating":         "Film",
		"Content / Deals / Distribution -> TV -> Renewals":         "TV",
		"Content / Deals / Distribution -> Specials":               "Specials",
		"Content / Deals / Distribution -> International":          "International",
		"Content / Deals / Distribution -> Sports -> Pickups":      "Sports/Podcasts",
		"Strategy & Miscellaneous News -> General News & Strategy": "General",
	}
	for path, want := range tests {
		if got := InferMedium(path); got != want {
			t.Fatalf("InferMedium(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestWriteReports(t *testing.T) {
	t.Parallel()

	result, err := Build("2025 Q4", netflixRecords(), buyers.Default())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	dir := filepath.Join(t.TempDir(), "reports")
	paths, err := Write(result, dir, buyers.Default())
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	want := []string{
		filepath.Join(dir, "2025 Q4 Netflix News Coverage.md"),
		filepath.Join(dir, ReviewFileName),
	}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}
	review, err := os.ReadFile(paths[1])
	if err != nil {
		t.Fatalf("read review file: %v", err)
	}
	if string(review) != "No review items.\n" {
		t.Fatalf("unexpected review file: %q", review)
	}
}

func TestFileNameSanitizesBuyer(t *testing.T) {
	t.Parallel()

	if got := FileName("2025 Q2", "Comcast/NBCU"); got != "2025 Q2 Comcast_NBCU News Coverage.md" {
		t.Fatalf("FileName() = %q", got)
	}
}
