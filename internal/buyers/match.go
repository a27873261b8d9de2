package buyers

import (
	"net/url"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"horse.fit/news-coverage/internal/model"
)

// LeadLength is how many characters of the body count as the lead.
const LeadLength = 400

// Location is where in an article a keyword was found.
type Location string

const (
	LocationTitle Location = "title"
	LocationLead  Location = "lead"
	LocationURL   Location = "url"
	LocationBody  Location = "body"
)

var locationWeights = []struct {
	location Location
	weight   int
}{
	{LocationTitle, 3000},
	{LocationLead, 2000},
	{LocationURL, 1500},
	{LocationBody, 1000},
}

// Match holds the buyers mentioned prominently (strong) and only deep in the
// body (weak). A buyer is never in both.
type Match struct {
	Strong Set
	Weak   Set
}

// Score is a buyer's best keyword hit.
type Score struct {
	Buyer    string
	Score    int
	Location Location
	Offset   int
}

type articleText struct {
	title string
	lead  string
	host  string
	body  string
}

func newArticleText(article model.Article) articleText {
	body := strings.ToLower(article.Content)
	return articleText{
		title: strings.ToLower(article.Title),
		lead:  leadOf(body),
		host:  hostOf(article.URL),
		body:  body,
	}
}

func (a articleText) field(location Location) string {
	switch location {
	case LocationTitle:
		return a.title
	case LocationLead:
		return a.lead
	case LocationURL:
		return a.host
	default:
		return a.body
	}
}

func leadOf(body string) string {
	if utf8.RuneCountInString(body) <= LeadLength {
		return body
	}
	count := 0
	for idx := range body {
		if count == LeadLength {
			return body[:idx]
		}
		count++
	}
	return body
}

func hostOf(raw string) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

// Match reports strong and weak buyer mentions.
func (t *Table) Match(article model.Article) Match {
	text := newArticleText(article)
	match := Match{Strong: make(Set), Weak: make(Set)}

	for _, buyer := range t.buyers {
		strong, weak := false, false
		for _, keyword := range buyer.Keywords {
			if findKeyword(text.title, keyword) >= 0 ||
				findKeyword(text.lead, keyword) >= 0 ||
				findKeyword(text.host, keyword) >= 0 {
				strong = true
				break
			}
			if !weak && findKeyword(text.body, keyword) >= 0 {
				weak = true
			}
		}
		switch {
		case strong:
			match.Strong[buyer.Name] = struct{}{}
		case weak:
			match.Weak[buyer.Name] = struct{}{}
		}
	}
	return match
}

// Mentioned returns every buyer with a keyword anywhere in text.
func (t *Table) Mentioned(text string) Set {
	lowered := strings.ToLower(text)
	set := make(Set)
	for _, buyer := range t.buyers {
		for _, keyword := range buyer.Keywords {
			if findKeyword(lowered, keyword) >= 0 {
				set[buyer.Name] = struct{}{}
				break
			}
		}
	}
	return set
}

// MentionsAny reports whether text mentions a buyer in scope.
func (t *Table) MentionsAny(text string, scope Set) bool {
	for name := range t.Mentioned(text) {
		if scope.Has(name) {
			return true
		}
	}
	return false
}

// Scores returns each mentioned buyer's best hit, best first. A hit scores
// its location weight minus its offset, floored at zero.
func (t *Table) Scores(article model.Article) []Score {
	text := newArticleText(article)
	var scores []Score

	for _, buyer := range t.buyers {
		best := Score{Buyer: buyer.Name, Score: -1}
		for _, loc := range locationWeights {
			field := text.field(loc.location)
			for _, keyword := range buyer.Keywords {
				offset := findKeyword(field, keyword)
				if offset < 0 {
					continue
				}
				score := loc.weight - offset
				if score < 0 {
					score = 0
				}
				if score > best.Score || (score == best.Score && offset < best.Offset) {
					best = Score{Buyer: buyer.Name, Score: score, Location: loc.location, Offset: offset}
				}
			}
		}
		if best.Score >= 0 {
			scores = append(scores, best)
		}
	}

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		if scores[i].Offset != scores[j].Offset {
			return scores[i].Offset < scores[j].Offset
		}
		return t.Priority(scores[i].Buyer) < t.Priority(scores[j].Buyer)
	})
	return scores
}

// InferCompany picks the single best-scoring buyer, or "Unknown".
func (t *Table) InferCompany(article model.Article) string {
	scores := t.Scores(article)
	if len(scores) == 0 {
		return model.UnknownBuyer
	}
	return scores[0].Buyer
}

// findKeyword returns the byte offset of the first occurrence of keyword in
// text that is not glued to a word character on either side, or -1.
func findKeyword(text, keyword string) int {
	if keyword == "" || text == "" {
		return -1
	}
	start := 0
	for start <= len(text)-len(keyword) {
		idx := strings.Index(text[start:], keyword)
		if idx < 0 {
			return -1
		}
		pos := start + idx
		end := pos + len(keyword)
		if boundaryBefore(text, pos) && boundaryAfter(text, end) {
			return pos
		}
		_, size := utf8.DecodeRuneInString(text[pos:])
		start = pos + size
	}
	return -1
}

func boundaryBefore(text string, pos int) bool {
	if pos == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:pos])
	return !isWordRune(r)
}

func boundaryAfter(text string, end int) bool {
	if end >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[end:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
