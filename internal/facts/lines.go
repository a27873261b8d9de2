package facts

import (
	"regexp"
	"strings"

	"horse.fit/news-coverage/internal/model"
	"horse.fit/news-coverage/internal/taxonomy"
)

var execChangePrefixes = []string{"exit:", "promotion:", "hiring:", "new role:"}

var (
	mediumKindPattern = regexp.MustCompile(`(?is)^\s*` +
		`(tv|film|specials|international|sports|podcasts)\s+` +
		`(gns|general\s+news\s*&\s*strategy|development|greenlights|pickups|dating|renewals|cancellations)\s*` +
		`[:\-]\s*(.+?)\s*$`)
	mergersPattern = regexp.MustCompile(`(?is)^\s*m\s*&\s*a\s*(gns|general\s+news\s*&\s*strategy)?\s*[:\-]\s*(.+?)\s*$`)
	irPattern      = regexp.MustCompile(`(?is)^\s*(?:ir|investor\s+relations)\s+` +
		`(quarterly\s+earnings|earnings|company\s+materials|news\s+coverage|ir\s+conferences|analyst\s+perspective|gns|general\s+news\s*&\s*strategy)\s*` +
		`[:\-]\s*(.+?)\s*$`)
	strategyKindPattern = regexp.MustCompile(`(?is)^\s*(?:strategy|strategy\s*&\s*miscellaneous\s+news)\s+` +
		`(strategy|misc\.\s*news|misc\s+news|gns|general\s+news\s*&\s*strategy)\s*` +
		`[:\-]\s*(.+?)\s*$`)
	strategyPattern   = regexp.MustCompile(`(?is)^\s*(?:strategy|strategy\s*&\s*miscellaneous\s+news)\s*[:\-]\s*(.+?)\s*$`)
	highlightsPattern = regexp.MustCompile(`(?is)^\s*highlights\s*[:\-]\s*(.+?)\s*$`)
	notePattern       = regexp.MustCompile(`(?is)^note(?:\s*:|\s+-|\s*[—–])\s*(.*)$`)
)

var mediumNames = map[string]string{
	"tv":            "TV",
	"film":          "Film",
	"specials":      "Specials",
	"international": "International",
	"sports":        "Sports",
	"podcasts":      "Podcasts",
}

// routedLine is a line that names its own category.
type routedLine struct {
	path    string
	content string
	gns     bool
}

// parseNote returns the text after a "Note:", "Note -", "Note—" or "Note–"
// prefix.
func parseNote(line string) (string, bool) {
	m := notePattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

func isExecChangeLine(line string) bool {
	lowered := strings.ToLower(line)
	for _, prefix := range execChangePrefixes {
		if strings.HasPrefix(lowered, prefix) {
			return true
		}
	}
	return false
}

func parseRoutedLine(line string) (routedLine, bool) {
	if routed, ok := parseExplicitPathLine(line); ok {
		return routed, true
	}
	if routed, ok := parseMediumKindLine(line); ok {
		return routed, true
	}
	return parseSectionShorthandLine(line)
}

// parseExplicitPathLine handles "<path with arrow>: <content>" when the
// path starts with a report section. The separator is the first colon after the first arrow, or failing that the
// first dash after it that is not itself part of an arrow.
func parseExplicitPathLine(line string) (routedLine, bool) {
	normalized := strings.ReplaceAll(line, "→", model.ArrowSeparator)
	arrow := strings.Index(normalized, model.ArrowSeparator)
	if arrow <= 0 || strings.TrimSpace(normalized[:arrow]) == "" {
		return routedLine{}, false
	}
	// "Exit: Jane -> CFO" is a labeled line, not a path.
	if strings.Contains(normalized[:arrow], ":") {
		return routedLine{}, false
	}

	afterArrow := arrow + len(model.ArrowSeparator)
	sep := strings.Index(normalized[afterArrow:], ":")
	if sep < 0 {
		sep = plainDashIndex(normalized[afterArrow:])
	}
	if sep < 0 {
		return routedLine{}, false
	}
	sep += afterArrow

	parts := taxonomy.SplitPath(normalized[:sep])
	content := strings.TrimSpace(normalized[sep+1:])
	if content == "" || len(parts) < 2 {
		return routedLine{}, false
	}
	// Prose that happens to contain an arrow is not a category path.
	if _, ok := taxonomy.LookupSection(parts[0]); !ok {
		return routedLine{}, false
	}
	path := taxonomy.JoinPath(parts...)
	return routedLine{path: path, content: content}, true
}

func plainDashIndex(text string) int {
	for idx := 0; idx < len(text); idx++ {
		if text[idx] != '-' {
			continue
		}
		if idx+1 < len(text) && text[idx+1] == '>' {
			idx++
			continue
		}
		return idx
	}
	return -1
}

func parseMediumKindLine(line string) (routedLine, bool) {
	m := mediumKindPattern.FindStringSubmatch(line)
	if m == nil {
		return routedLine{}, false
	}
	medium := mediumNames[strings.ToLower(m[1])]
	kind := strings.ToLower(strings.Join(strings.Fields(m[2]), " "))
	if isGNSToken(kind) {
		return routedLine{
			path:    taxonomy.JoinPath("Content, Deals & Distribution", medium, model.SubheadingGNS),
			content: m[3],
			gns:     true,
		}, true
	}
	return routedLine{
		path:    taxonomy.JoinPath("Content, Deals & Distribution", medium, titleWord(kind)),
		content: m[3],
	}, true
}

func parseSectionShorthandLine(line string) (routedLine, bool) {
	if m := mergersPattern.FindStringSubmatch(line); m != nil {
		return routedLine{
			path:    taxonomy.JoinPath(model.SectionMA, model.SubheadingGNS),
			content: m[2],
			gns:     m[1] != "",
		}, true
	}

	if m := irPattern.FindStringSubmatch(line); m != nil {
		kind := strings.ToLower(strings.Join(strings.Fields(m[1]), " "))
		sub := model.SubheadingGNS
		switch kind {
		case "quarterly earnings", "earnings":
			sub = "Quarterly Earnings"
		case "company materials":
			sub = "Company Materials"
		case "news coverage":
			sub = "News Coverage"
		case "ir conferences":
			sub = "IR Conferences"
		case "analyst perspective":
			sub = "Analyst Perspective"
		}
		return routedLine{
			path:    taxonomy.JoinPath(model.SectionIR, model.SubheadingGNS, sub),
			content: m[2],
			gns:     isGNSToken(kind),
		}, true
	}

	if m := strategyKindPattern.FindStringSubmatch(line); m != nil {
		kind := strings.ToLower(strings.Join(strings.Fields(m[1]), " "))
		sub := model.SubheadingGNS
		switch {
		case strings.HasPrefix(kind, "misc"):
			sub = "Misc. News"
		case kind == "strategy":
			sub = "Strategy"
		}
		return routedLine{
			path:    taxonomy.JoinPath(model.SectionStrategy, model.SubheadingGNS, sub),
			content: m[2],
			gns:     isGNSToken(kind),
		}, true
	}

	if m := strategyPattern.FindStringSubmatch(line); m != nil {
		return routedLine{
			path:    taxonomy.JoinPath(model.SectionStrategy, model.SubheadingGNS, "Strategy"),
			content: m[1],
		}, true
	}

	if m := highlightsPattern.FindStringSubmatch(line); m != nil {
		return routedLine{
			path:    taxonomy.JoinPath(model.SectionHighlights, model.SubheadingGNS),
			content: m[1],
		}, true
	}

	return routedLine{}, false
}

func isGNSToken(kind string) bool {
	return kind == "gns" || strings.HasPrefix(kind, "general news")
}

func titleWord(word string) string {
	if word == "" {
		return word
	}
	return strings.ToUpper(word[:1]) + word[1:]
}

// looksLikeTitleItem matches "<title>: <rest>" where the title is not a fact
// label. A colon used for any other reason also matches; content-list mode
// accepts that ambiguity.
func looksLikeTitleItem(text string) bool {
	possible, rest, found := strings.Cut(text, ":")
	if !found {
		return false
	}
	possible = strings.TrimSpace(possible)
	if possible == "" || strings.TrimSpace(rest) == "" {
		return false
	}
	return !taxonomy.IsFactLabel(possible)
}

func isInterviewHeader(line string) bool {
	lowered := strings.ToLower(strings.TrimSpace(line))
	return strings.HasPrefix(lowered, "interview:") || strings.HasPrefix(lowered, "commentary:")
}
