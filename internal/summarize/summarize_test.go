package summarize

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"horse.fit/news-coverage/internal/llm"
	"horse.fit/news-coverage/internal/model"
	"horse.fit/news-coverage/internal/routing"
)

type scriptedCompleter struct {
	completions []llm.Completion
	requests    []llm.Request
}

func (s *scriptedCompleter) Complete(_ context.Context, req llm.Request) (llm.Completion, error) {
	s.requests = append(s.requests, req)
	if len(s.completions) == 0 {
		return llm.Completion{}, errors.New("no scripted completion left")
	}
	next := s.completions[0]
	s.completions = s.completions[1:]
	return next, nil
}

func article(title, content string) model.Article {
	published := time.Date(2025, time.December, 16, 9, 30, 0, 0, time.UTC)
	return model.Article{
		Title:       title,
		Source:      "Deadline",
		URL:         "https://example.com/" + strings.ToLower(strings.ReplaceAll(title, " ", "-")),
		PublishedAt: &published,
		Content:     content,
	}
}

func userContent(req llm.Request) string {
	for _, msg := range req.Messages {
		if msg.Role == "user" {
			return msg.Content
		}
	}
	return ""
}

func TestSplitBullets(t *testing.T) {
	t.Parallel()

	got := SplitBullets("- One\n\n• Two\n  * Three\nPlain line\n— Four\n-- Five\n   \n")
	want := []string{"One", "Two", "Three", "Plain line", "Four", "Five"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("SplitBullets() mismatch (-want +got):\n%s", diff)
	}
}

func TestSummarizeBuildsUserMessage(t *testing.T) {
	t.Parallel()

	fake := &scriptedCompleter{completions: []llm.Completion{{Text: "- First\n- Second", FinishReason: "stop"}}}
	s := New(fake, Options{Model: "gpt-5-mini", MaxTokens: 300, Temperature: 0.2}, zerolog.Nop())

	summary, err := s.Summarize(context.Background(), article("Show A renewed", "Body text."), routing.PromptGeneralNews)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if diff := cmp.Diff([]string{"First", "Second"}, summary.Bullets); diff != "" {
		t.Fatalf("bullets mismatch (-want +got):\n%s", diff)
	}
	if len(fake.requests) != 1 {
		t.Fatalf("expected one request, got %d", len(fake.requests))
	}
	req := fake.requests[0]
	if req.MaxTokens != 300 {
		t.Fatalf("MaxTokens = %d, want 300", req.MaxTokens)
	}
	if req.Temperature != nil {
		t.Fatalf("expected temperature to be omitted for gpt-5 models, got %v", *req.Temperature)
	}
	want := "Title: Show A renewed\nSource: Deadline\nPublished: 2025-12-16T09:30:00Z\n\nBody text."
	if got := userContent(req); got != want {
		t.Fatalf("user message = %q, want %q", got, want)
	}
}

func TestSummarizeUnknownPublishDate(t *testing.T) {
	t.Parallel()

	fake := &scriptedCompleter{completions: []llm.Completion{{Text: "- Only", FinishReason: "stop"}}}
	s := New(fake, Options{Model: "gpt-4.1-mini"}, zerolog.Nop())

	a := article("Undated", "Body.")
	a.PublishedAt = nil
	if _, err := s.Summarize(context.Background(), a, routing.PromptGeneralNews); err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if got := userContent(fake.requests[0]); !strings.Contains(got, "Published: unknown") {
		t.Fatalf("expected unknown publish date, got %q", got)
	}
}

func TestSummarizeRetriesWithShorterContent(t *testing.T) {
	t.Parallel()

	fake := &scriptedCompleter{completions: []llm.Completion{
		{Text: "", FinishReason: "length"},
		{Text: "", FinishReason: "length"},
		{Text: "- Finally", FinishReason: "stop"},
	}}
	s := New(fake, Options{Model: "gpt-4.1-mini", MaxTokens: 100}, zerolog.Nop())

	content := strings.Repeat("abcd ", 2600)
	summary, err := s.Summarize(context.Background(), article("Long read", content), routing.PromptGeneralNews)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if diff := cmp.Diff([]string{"Finally"}, summary.Bullets); diff != "" {
		t.Fatalf("bullets mismatch (-want +got):\n%s", diff)
	}
	if len(fake.requests) != 3 {
		t.Fatalf("expected three attempts, got %d", len(fake.requests))
	}
	first := len(userContent(fake.requests[0]))
	second := len(userContent(fake.requests[1]))
	third := len(userContent(fake.requests[2]))
	if !(first > second && second > third) {
		t.Fatalf("expected shrinking requests, got %d, %d, %d", first, second, third)
	}
	if strings.HasSuffix(userContent(fake.requests[1]), " ") {
		t.Fatalf("truncated content should end at a word boundary")
	}
}

func TestSummarizeShortContentDoesNotRetry(t *testing.T) {
	t.Parallel()

	fake := &scriptedCompleter{completions: []llm.Completion{{Text: "- Partial", FinishReason: "length"}}}
	s := New(fake, Options{Model: "gpt-4.1-mini"}, zerolog.Nop())

	summary, err := s.Summarize(context.Background(), article("Short", "Short body."), routing.PromptGeneralNews)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if len(fake.requests) != 1 {
		t.Fatalf("expected one attempt, got %d", len(fake.requests))
	}
	if diff := cmp.Diff([]string{"Partial"}, summary.Bullets); diff != "" {
		t.Fatalf("bullets mismatch (-want +got):\n%s", diff)
	}
}

func TestSummarizeEmptyIncompleteResponse(t *testing.T) {
	t.Parallel()

	fake := &scriptedCompleter{completions: []llm.Completion{{FinishReason: "length"}}}
	s := New(fake, Options{Model: "gpt-4.1-mini"}, zerolog.Nop())

	_, err := s.Summarize(context.Background(), article("Short", "Short body."), routing.PromptGeneralNews)
	var incomplete *llm.IncompleteError
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected IncompleteError, got %v", err)
	}
}

func TestExecQualifierRestoresFormer(t *testing.T) {
	t.Parallel()

	fake := &scriptedCompleter{completions: []llm.Completion{{
		Text:         "- Hiring: Jane Roe, Chief Content Officer at Acme\n- Exit: John Doe, President at Acme",
		FinishReason: "stop",
	}}}
	s := New(fake, Options{Model: "gpt-4.1-mini"}, zerolog.Nop())

	a := article("Acme hires", "Acme said former Netflix executive Jane Roe will join.\nJohn Doe is leaving.")
	summary, err := s.Summarize(context.Background(), a, routing.PromptExecChanges)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	want := []string{
		"Hiring: Jane Roe, former Chief Content Officer at Acme",
		"Exit: John Doe, President at Acme",
	}
	if diff := cmp.Diff(want, summary.Bullets); diff != "" {
		t.Fatalf("bullets mismatch (-want +got):\n%s", diff)
	}
}

func TestExecQualifierOnlyForExecPrompts(t *testing.T) {
	t.Parallel()

	fake := &scriptedCompleter{completions: []llm.Completion{{
		Text:         "- Hiring: Jane Roe, Chief Content Officer at Acme",
		FinishReason: "stop",
	}}}
	s := New(fake, Options{Model: "gpt-4.1-mini"}, zerolog.Nop())

	a := article("Acme hires", "Former Netflix executive Jane Roe will join.")
	summary, err := s.Summarize(context.Background(), a, routing.PromptGeneralNews)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if summary.Bullets[0] != "Hiring: Jane Roe, Chief Content Officer at Acme" {
		t.Fatalf("unexpected rewrite: %q", summary.Bullets[0])
	}
}

func TestApplyExecQualifiersLeavesExistingFormer(t *testing.T) {
	t.Parallel()

	bullets := []string{"Exit: Jane Roe, former COO at Acme"}
	got := ApplyExecQualifiers(bullets, article("x", "former acme coo jane roe"))
	if diff := cmp.Diff(bullets, got); diff != "" {
		t.Fatalf("bullets mismatch (-want +got):\n%s", diff)
	}
}

func TestSummarizeBatchAlignsBlocks(t *testing.T) {
	t.Parallel()

	fake := &scriptedCompleter{completions: []llm.Completion{{
		Text:         "Article 1:\n- A one\n- A two\n\nArticle 2:\n- B one",
		FinishReason: "stop",
	}}}
	s := New(fake, Options{Model: "gpt-4.1-mini", MaxTokens: 200}, zerolog.Nop())

	articles := []model.Article{article("Show A", "Body A."), article("Show B", "Body B.")}
	summaries, err := s.SummarizeBatch(context.Background(), articles, []string{routing.PromptGeneralNews, routing.PromptInterview})
	if err != nil {
		t.Fatalf("SummarizeBatch() error = %v", err)
	}
	want := []model.Summary{{Bullets: []string{"A one", "A two"}}, {Bullets: []string{"B one"}}}
	if diff := cmp.Diff(want, summaries); diff != "" {
		t.Fatalf("summaries mismatch (-want +got):\n%s", diff)
	}

	req := fake.requests[0]
	if req.MaxTokens != 400 {
		t.Fatalf("MaxTokens = %d, want 400", req.MaxTokens)
	}
	user := userContent(req)
	if !strings.HasPrefix(user, "Article 1\nInstructions:\n") || !strings.Contains(user, "\n\nArticle 2\nInstructions:\n") {
		t.Fatalf("unexpected batch message: %q", user)
	}
	if req.Messages[0].Content != batchSystemPrompt {
		t.Fatalf("unexpected system prompt: %q", req.Messages[0].Content)
	}
}

func TestSummarizeBatchMisaligned(t *testing.T) {
	t.Parallel()

	fake := &scriptedCompleter{completions: []llm.Completion{{Text: "- One undivided block", FinishReason: "stop"}}}
	s := New(fake, Options{Model: "gpt-4.1-mini"}, zerolog.Nop())

	articles := []model.Article{article("Show A", "Body A."), article("Show B", "Body B.")}
	_, err := s.SummarizeBatch(context.Background(), articles, []string{routing.PromptGeneralNews, routing.PromptGeneralNews})
	if !errors.Is(err, ErrMisaligned) {
		t.Fatalf("expected ErrMisaligned, got %v", err)
	}
	if !strings.Contains(err.Error(), "1 summary block(s) for 2 article(s)") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestSummarizeBatchPromptCountMismatch(t *testing.T) {
	t.Parallel()

	s := New(&scriptedCompleter{}, Options{Model: "gpt-4.1-mini"}, zerolog.Nop())
	_, err := s.SummarizeBatch(context.Background(), []model.Article{article("A", "a")}, nil)
	if err == nil {
		t.Fatalf("expected error for missing prompt names")
	}
}

func TestExtractChunks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		text     string
		expected int
		want     []string
	}{
		{name: "single", text: "  - A\n\n- B  ", expected: 1, want: []string{"- A\n\n- B"}},
		{name: "markers", text: "Story 1 - first\nArticle 2: second", expected: 2, want: []string{"first", "second"}},
		{name: "blank lines", text: "- A\n- A2\n\n\n- B", expected: 2, want: []string{"- A\n- A2", "- B"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractChunks(tc.text, tc.expected)
			if err != nil {
				t.Fatalf("ExtractChunks() error = %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("chunks mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
