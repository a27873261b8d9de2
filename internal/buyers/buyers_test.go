package buyers

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"horse.fit/news-coverage/internal/model"
)

func makeArticle(title, content, url string) model.Article {
	published := time.Date(2025, 12, 10, 0, 0, 0, 0, time.UTC)
	if content == "" {
		content = title
	}
	if url == "" {
		url = "https://example.com"
	}
	return model.Article{
		Title:       title,
		Source:      "TestWire",
		URL:         url,
		PublishedAt: &published,
		Content:     content,
	}
}

func TestDefaultTableOrder(t *testing.T) {
	t.Parallel()

	want := []string{"Amazon", "Apple", "Comcast/NBCU", "Disney", "Netflix", "Paramount", "Sony", "WBD", "A24", "Lionsgate"}
	if diff := cmp.Diff(want, Default().Names()); diff != "" {
		t.Fatalf("buyer order mismatch (-want +got):\n%s", diff)
	}
}

func TestInferCompany(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		article model.Article
		want    string
	}{
		{
			name:    "netflix in title",
			article: makeArticle("Netflix orders new comedy special from Mike Epps", "", ""),
			want:    "Netflix",
		},
		{
			name:    "wbd from url host",
			article: makeArticle("Max announces documentary slate", "", "https://www.hbo.com/shows/new-doc"),
			want:    "WBD",
		},
		{
			name: "earliest title hit wins",
			article: makeArticle(
				"Apple TV+ and A24 partner with Lionsgate on thriller",
				"Joint production between A24, Lionsgate, and Apple.",
				"",
			),
			want: "Apple",
		},
		{
			name: "no match",
			article: makeArticle(
				"Regional film festival announces new programming team",
				"The festival focuses on emerging voices and indie filmmakers.",
				"",
			),
			want: model.UnknownBuyer,
		},
		{
			name: "substring noise ignored",
			article: makeArticle(
				"Maxwell releases new album ahead of tour",
				"Soul singer Maxwell previewed tracks from his upcoming record.",
				"",
			),
			want: model.UnknownBuyer,
		},
	}

	table := Default()
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := table.InferCompany(tt.article); got != tt.want {
				t.Fatalf("InferCompany() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTitleHitOutranksDeepBodyHit(t *testing.T) {
	t.Parallel()

	for _, padding := range []int{450, 2_000, 50_000} {
		body := strings.Repeat("filler ", padding/7+1) + "Disney announced a new slate."
		article := makeArticle("Netflix renews the series", body, "")
		if got := Default().InferCompany(article); got != "Netflix" {
			t.Fatalf("padding %d: expected Netflix, got %q", padding, got)
		}
	}
}

func TestScoreTieBreaks(t *testing.T) {
	t.Parallel()

	table, err := Parse([]byte(`
buyers:
  - name: First
    keywords: [alpha, gamma]
  - name: Second
    keywords: [beta, gamma]
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	scores := table.Scores(model.Article{Title: "beta", Content: "alpha", URL: "https://example.com"})
	if len(scores) != 2 {
		t.Fatalf("expected two scores, got %+v", scores)
	}
	if scores[0].Buyer != "Second" || scores[0].Location != LocationTitle {
		t.Fatalf("title hit should lead, got %+v", scores[0])
	}

	// Same keyword at the same place: table order decides.
	if got := table.InferCompany(model.Article{Title: "gamma", URL: "https://example.com"}); got != "First" {
		t.Fatalf("expected priority winner First, got %q", got)
	}

	// Both deep body hits floor to zero: the earlier offset decides.
	body := strings.Repeat("filler ", 200) + "beta then alpha"
	if got := table.InferCompany(model.Article{Title: "x", Content: body, URL: "https://example.com"}); got != "Second" {
		t.Fatalf("expected earlier offset winner Second, got %q", got)
	}
}

func TestMatchStrongAndWeak(t *testing.T) {
	t.Parallel()

	lead := strings.Repeat("word ", 100)
	article := makeArticle("Netflix expands slate", lead+"Later, Paramount+ was mentioned.", "https://deadline.com/x")
	match := Default().Match(article)

	if !match.Strong.Has("Netflix") {
		t.Fatalf("expected Netflix strong, got %v", match.Strong.Sorted())
	}
	if !match.Weak.Has("Paramount") {
		t.Fatalf("expected Paramount weak, got %v", match.Weak.Sorted())
	}
	for name := range match.Strong {
		if match.Weak.Has(name) {
			t.Fatalf("%s is both strong and weak", name)
		}
	}
}

func TestMatchWeakThenStrongKeyword(t *testing.T) {
	t.Parallel()

	// "hbo" only deep in the body, "max" in the title: still strong.
	body := strings.Repeat("word ", 100) + "HBO said more."
	article := makeArticle("Max sets premiere", body, "")
	match := Default().Match(article)
	if !match.Strong.Has("WBD") || match.Weak.Has("WBD") {
		t.Fatalf("expected WBD strong only, strong=%v weak=%v", match.Strong.Sorted(), match.Weak.Sorted())
	}
}

func TestParseInScope(t *testing.T) {
	t.Parallel()

	table := Default()

	all, err := table.ParseInScope("")
	if err != nil {
		t.Fatalf("ParseInScope(\"\") error = %v", err)
	}
	if diff := cmp.Diff(table.All(), all); diff != "" {
		t.Fatalf("blank should select all buyers (-want +got):\n%s", diff)
	}

	got, err := table.ParseInScope("Comcast,Warner Bros Discovery")
	if err != nil {
		t.Fatalf("ParseInScope() error = %v", err)
	}
	if diff := cmp.Diff(Set{"Comcast/NBCU": {}, "WBD": {}}, got); diff != "" {
		t.Fatalf("alias resolution mismatch (-want +got):\n%s", diff)
	}

	if _, err := table.ParseInScope("NotARealBuyer"); err == nil || !strings.Contains(err.Error(), "unknown buyer") {
		t.Fatalf("expected unknown buyer error, got %v", err)
	}
}

func TestMentioned(t *testing.T) {
	t.Parallel()

	got := Default().Mentioned("Acme acquires Beta Studios")
	if len(got) != 0 {
		t.Fatalf("expected no buyers, got %v", got.Sorted())
	}
	got = Default().Mentioned("Disney+ and Hulu bundle")
	if !got.Has("Disney") || len(got) != 1 {
		t.Fatalf("expected Disney only, got %v", got.Sorted())
	}
}

func TestOrdered(t *testing.T) {
	t.Parallel()

	got := Default().Ordered(Set{"Zeta": {}, "WBD": {}, "Amazon": {}, "Acme": {}})
	want := []string{"Amazon", "WBD", "Acme", "Zeta"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ordering mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRejectsBadTables(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		"buyers: []",
		"buyers:\n  - name: \"\"\n    keywords: [x]",
		"buyers:\n  - name: A\n    keywords: []",
		"buyers:\n  - name: A\n    keywords: [x]\n  - name: A\n    keywords: [y]",
		"buyers: [",
	} {
		if _, err := Parse([]byte(raw)); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}
