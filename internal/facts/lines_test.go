package facts

import "testing"

func TestParseNote(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line   string
		want   string
		isNote bool
	}{
		{line: "Note: reports to the CEO", want: "reports to the CEO", isNote: true},
		{line: "note - reports to the CEO", want: "reports to the CEO", isNote: true},
		{line: "Note— reports to the CEO", want: "reports to the CEO", isNote: true},
		{line: "Note– reports to the CEO", want: "reports to the CEO", isNote: true},
		{line: "Note:", want: "", isNote: true},
		{line: "Noteworthy: a deal", isNote: false},
		{line: "Note-worthy deal", isNote: false},
		{line: "Footnote: x", isNote: false},
	}
	for _, tt := range tests {
		got, ok := parseNote(tt.line)
		if ok != tt.isNote || got != tt.want {
			t.Fatalf("parseNote(%q) = (%q, %v), want (%q, %v)", tt.line, got, ok, tt.want, tt.isNote)
		}
	}
}

func TestParseRoutedLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line    string
		path    string
		content string
		gns     bool
	}{
		{line: "TV Greenlights: Show A", path: "Content, Deals & Distribution -> TV -> Greenlights", content: "Show A"},
		{line: "podcasts general news & strategy - Acme launches a network", path: "Content, Deals & Distribution -> Podcasts -> General News & Strategy", content: "Acme launches a network", gns: true},
		{line: "M&A GNS: Acme explores a sale", path: "M&A -> General News & Strategy", content: "Acme explores a sale", gns: true},
		{line: "IR Company Materials: Acme posts a deck", path: "Investor Relations -> General News & Strategy -> Company Materials", content: "Acme posts a deck"},
		{line: "Investor Relations Earnings - Acme beats", path: "Investor Relations -> General News & Strategy -> Quarterly Earnings", content: "Acme beats"},
		{line: "Strategy Misc. News: Acme moves HQ", path: "Strategy & Miscellaneous News -> General News & Strategy -> Misc. News", content: "Acme moves HQ"},
		{line: "Strategy: Acme bets on live sports", path: "Strategy & Miscellaneous News -> General News & Strategy -> Strategy", content: "Acme bets on live sports"},
		{line: "Highlights - Record subscriber growth", path: "Highlights -> General News & Strategy", content: "Record subscriber growth"},
		{line: "Content, Deals & Distribution -> TV -> Pickups: Show B", path: "Content, Deals & Distribution -> TV -> Pickups", content: "Show B"},
		{line: "Org->Exec Changes:Jane Roe named CFO", path: "Org -> Exec Changes", content: "Jane Roe named CFO"},
	}
	for _, tt := range tests {
		got, ok := parseRoutedLine(tt.line)
		if !ok {
			t.Fatalf("parseRoutedLine(%q) did not match", tt.line)
		}
		if got.path != tt.path || got.content != tt.content || got.gns != tt.gns {
			t.Fatalf("parseRoutedLine(%q) = %+v, want path=%q content=%q gns=%v", tt.line, got, tt.path, tt.content, tt.gns)
		}
	}

	for _, line := range []string{
		"Show A: Acme, drama",
		"Promotion: Jane Roe, COO",
		"Revenue grew",
		"TV GNS:",
		"-> orphan arrow",
		"Netflix shifted rights Prime -> Peacock: the deal closed in Q4.",
		"Film -> Greenlights: Show A",
	} {
		if got, ok := parseRoutedLine(line); ok {
			t.Fatalf("parseRoutedLine(%q) unexpectedly matched %+v", line, got)
		}
	}
}

func TestLooksLikeTitleItem(t *testing.T) {
	t.Parallel()

	if !looksLikeTitleItem("Show A: drama") {
		t.Fatalf("expected title item")
	}
	for _, line := range []string{"Greenlights: Show A", "No colon here", "Show A:", ": missing title"} {
		if looksLikeTitleItem(line) {
			t.Fatalf("%q should not be a title item", line)
		}
	}
}
