package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"horse.fit/news-coverage/internal/buyers"
	"horse.fit/news-coverage/internal/guardrail"
	"horse.fit/news-coverage/internal/ingest"
	"horse.fit/news-coverage/internal/model"
)

const gnsCategory = "Strategy & Miscellaneous News -> General News & Strategy"

type fakeClassifier struct {
	mu    sync.Mutex
	calls int
	cls   model.Classification
}

func (f *fakeClassifier) Classify(_ context.Context, _ model.Article) (model.Classification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.cls, nil
}

type fakeSummarizer struct {
	bullets []string
}

func (f *fakeSummarizer) Summarize(_ context.Context, article model.Article, _ string) (model.Summary, error) {
	if strings.Contains(article.URL, "bad") {
		return model.Summary{}, errors.New("upstream refused")
	}
	return model.Summary{Bullets: f.bullets}, nil
}

func netflixClassification() model.Classification {
	return model.Classification{
		Category:   gnsCategory,
		Section:    model.SectionStrategy,
		Subheading: model.StringPtr(model.SubheadingGNS),
		Company:    "Netflix",
		Quarter:    "2025 Q4",
	}
}

func netflixArticle(url string) model.Article {
	published := time.Date(2025, time.December, 16, 9, 0, 0, 0, time.UTC)
	return model.Article{
		Title:       "Netflix raises prices",
		Source:      "Variety",
		URL:         url,
		PublishedAt: &published,
		Content:     "Netflix raised prices in Canada on Tuesday.",
	}
}

func newTestProcessor(t *testing.T, classifier Classifier, guard guardrail.Guard) (*Processor, string, string) {
	t.Helper()

	dir := t.TempDir()
	store := ingest.NewStore(filepath.Join(dir, "ingest"), true, zerolog.Nop())
	finalPath := filepath.Join(dir, "out", "final_output.md")
	p := NewProcessor(
		classifier,
		&fakeSummarizer{bullets: []string{"Netflix raised prices in Canada."}},
		store,
		buyers.Default(),
		Options{Guard: guard, FinalOutputPath: finalPath},
		zerolog.Nop(),
	)
	return p, store.Path("Netflix", "2025 Q4"), finalPath
}

func TestProcessStoresAndAppendsFinalOutput(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{cls: netflixClassification()}
	p, storedPath, finalPath := newTestProcessor(t, classifier, guardrail.Guard{})

	result, err := p.Process(context.Background(), Request{Article: netflixArticle("https://example.com/netflix-prices")})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if result.Ingest.StoredPath != storedPath || result.Ingest.DuplicateOf != "" {
		t.Fatalf("unexpected ingest result: %+v", result.Ingest)
	}
	if len(result.Facts) != 1 || result.Facts[0].Section != model.SectionStrategy {
		t.Fatalf("unexpected facts: %+v", result.Facts)
	}
	if !strings.Contains(result.Markdown, "Content: Netflix raised prices in Canada. ([12/16](https://example.com/netflix-prices))") {
		t.Fatalf("unexpected markdown:\n%s", result.Markdown)
	}
	if len(result.MatchedBuyers) != 1 || result.MatchedBuyers[0] != "Netflix" {
		t.Fatalf("unexpected matched buyers: %v", result.MatchedBuyers)
	}

	data, err := os.ReadFile(finalPath)
	if err != nil {
		t.Fatalf("read final output: %v", err)
	}
	text := string(data)
	if !strings.HasPrefix(text, "Matched buyers: [Netflix]\n\nTitle: Netflix raises prices\n") {
		t.Fatalf("unexpected final output:\n%s", text)
	}
	if !strings.HasSuffix(text, "URL: https://example.com/netflix-prices\n") {
		t.Fatalf("final output should end with the url line:\n%s", text)
	}
}

func TestProcessDuplicateSkipsFinalOutput(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{cls: netflixClassification()}
	p, _, finalPath := newTestProcessor(t, classifier, guardrail.Guard{})

	first, err := p.Process(context.Background(), Request{Article: netflixArticle("https://example.com/a")})
	if err != nil {
		t.Fatalf("first Process() error = %v", err)
	}
	second, err := p.Process(context.Background(), Request{Article: netflixArticle("https://example.com/a")})
	if err != nil {
		t.Fatalf("second Process() error = %v", err)
	}
	if second.Ingest.DuplicateOf != first.Ingest.ID {
		t.Fatalf("duplicate_of = %q, want %q", second.Ingest.DuplicateOf, first.Ingest.ID)
	}
	if _, err := p.Process(context.Background(), Request{Article: netflixArticle("https://example.com/b")}); err != nil {
		t.Fatalf("third Process() error = %v", err)
	}

	data, err := os.ReadFile(finalPath)
	if err != nil {
		t.Fatalf("read final output: %v", err)
	}
	text := string(data)
	if got := strings.Count(text, "Matched buyers:"); got != 2 {
		t.Fatalf("expected two entries, got %d:\n%s", got, text)
	}
	if !strings.Contains(text, "/a\n\nMatched buyers:") || strings.Contains(text, "\n\n\nMatched buyers:") {
		t.Fatalf("entries should be separated by exactly one blank line:\n%s", text)
	}
}

func TestProcessOverrideSkipsClassifier(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{cls: netflixClassification()}
	p, _, _ := newTestProcessor(t, classifier, guardrail.Guard{})

	result, err := p.Process(context.Background(), Request{
		Article:  netflixArticle("https://example.com/override"),
		Override: &Override{Category: "M&A"},
	})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if classifier.calls != 0 {
		t.Fatalf("classifier should not run with an override, ran %d times", classifier.calls)
	}
	if result.Classification.Section != model.SectionMA || result.Classification.Company != "Netflix" {
		t.Fatalf("unexpected classification: %+v", result.Classification)
	}
	if result.Classification.Quarter != "2025 Q4" {
		t.Fatalf("unexpected quarter: %q", result.Classification.Quarter)
	}
}

func TestProcessStrictGuardrailExhaustionWritesNothing(t *testing.T) {
	t.Parallel()

	cls := netflixClassification()
	cls.Company = model.UnknownBuyer
	classifier := &fakeClassifier{cls: cls}
	guard := guardrail.Guard{Mode: guardrail.ModeStrict, InScope: buyers.Set{"Disney": {}}}
	p, _, finalPath := newTestProcessor(t, classifier, guard)

	_, err := p.Process(context.Background(), Request{Article: netflixArticle("https://example.com/strict")})
	var exhausted *guardrail.ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
	if _, err := os.Stat(finalPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("final output should not exist, stat err = %v", err)
	}
}

func TestProcessRenumbersFactsKeptByGuardrail(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := ingest.NewStore(dir, true, zerolog.Nop())
	p := NewProcessor(
		&fakeClassifier{cls: netflixClassification()},
		&fakeSummarizer{bullets: []string{
			"Disney renews Show A.",
			"Netflix raised prices in Canada.",
			"Paramount trims staff.",
			"Netflix adds an ads tier in Spain.",
		}},
		store,
		buyers.Default(),
		Options{Guard: guardrail.Guard{Mode: guardrail.ModeStrict, InScope: buyers.Set{"Netflix": {}}}},
		zerolog.Nop(),
	)

	result, err := p.Process(context.Background(), Request{Article: netflixArticle("https://example.com/renumber")})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	var ids, lines []string
	for _, fact := range result.Facts {
		ids = append(ids, fact.ID)
		lines = append(lines, fact.ContentLine)
	}
	if diff := cmp.Diff([]string{"fact-1", "fact-2"}, ids); diff != "" {
		t.Fatalf("fact ids mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Netflix raised prices in Canada.", "Netflix adds an ads tier in Spain."}, lines); diff != "" {
		t.Fatalf("kept facts mismatch (-want +got):\n%s", diff)
	}

	records, err := ingest.ReadRecords(result.Ingest.StoredPath)
	if err != nil {
		t.Fatalf("ReadRecords() error = %v", err)
	}
	if len(records) != 1 || len(records[0].Facts) != 2 || records[0].Facts[1].FactID != "fact-2" {
		t.Fatalf("unexpected stored facts: %+v", records)
	}
}

func TestRunBatchCollectsEveryOutcome(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{cls: netflixClassification()}
	p, _, _ := newTestProcessor(t, classifier, guardrail.Guard{})

	requests := []Request{
		{Article: netflixArticle("https://example.com/one")},
		{Article: netflixArticle("https://example.com/bad")},
		{Article: netflixArticle("https://example.com/three")},
	}
	outcomes, err := p.RunBatch(context.Background(), requests, 2)
	if err != nil {
		t.Fatalf("RunBatch() error = %v", err)
	}
	if len(outcomes) != len(requests) {
		t.Fatalf("expected %d outcomes, got %d", len(requests), len(outcomes))
	}

	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Index < outcomes[j].Index })
	for idx, outcome := range outcomes {
		if outcome.Index != idx {
			t.Fatalf("missing index %d in outcomes", idx)
		}
		wantErr := idx == 1
		if (outcome.Err != nil) != wantErr {
			t.Fatalf("outcome %d err = %v, want error %t", idx, outcome.Err, wantErr)
		}
	}
}

func TestRunBatchRejectsZeroWorkers(t *testing.T) {
	t.Parallel()

	p, _, _ := newTestProcessor(t, &fakeClassifier{}, guardrail.Guard{})
	if _, err := p.RunBatch(context.Background(), nil, 0); err == nil {
		t.Fatalf("expected error for zero workers")
	}
}

func TestAppendFinalOutputSpacing(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "final.md")
	if err := os.WriteFile(path, []byte("earlier entry"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	if err := AppendFinalOutput(path, "next entry"); err != nil {
		t.Fatalf("AppendFinalOutput() error = %v", err)
	}
	if err := AppendFinalOutput(path, "last entry"); err != nil {
		t.Fatalf("AppendFinalOutput() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "earlier entry\n\nnext entry\n\nlast entry\n"
	if string(data) != want {
		t.Fatalf("final output = %q, want %q", string(data), want)
	}
}
