// Package guardrail drops assembled facts that stray from the article's
// section without naming a buyer we track.
package guardrail

import (
	"fmt"
	"strings"

	"horse.fit/news-coverage/internal/buyers"
	"horse.fit/news-coverage/internal/model"
)

type Mode string

const (
	ModeOff     Mode = "off"
	ModeSection Mode = "section"
	ModeStrict  Mode = "strict"
)

// ParseMode accepts off/section/strict and the legacy spellings of off.
func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "section":
		return ModeSection, nil
	case "off", "0", "false", "disabled":
		return ModeOff, nil
	case "strict":
		return ModeStrict, nil
	default:
		return "", fmt.Errorf("guardrail mode must be one of off, section, strict (got %q)", raw)
	}
}

// ExhaustedError reports a strict-mode run where nothing, not even the
// fallback fact, could be tied to an in-scope buyer.
type ExhaustedError struct {
	Company string
	InScope []string
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf(
		"strict buyer guardrail removed all facts and no in-scope fallback could be produced (company=%q, in_scope=%v)",
		e.Company, e.InScope,
	)
}

// Guard filters facts against a buyer scope.
type Guard struct {
	Mode    Mode
	InScope buyers.Set
	Buyers  *buyers.Table
}

// Filter keeps facts by mode. off keeps everything. section keeps facts in
// the classification's own section plus facts that mention an in-scope
// buyer. strict keeps only the latter. When nothing survives, fallback is
// returned alone, prefixed with "<company>: " if that makes the buyer
// linkage explicit.
func (g Guard) Filter(facts []model.Fact, cls model.Classification, fallback model.Fact) ([]model.Fact, error) {
	if g.Mode == ModeOff {
		return facts, nil
	}

	kept := make([]model.Fact, 0, len(facts))
	for _, fact := range facts {
		if g.Mode == ModeSection && fact.Section == cls.Section {
			kept = append(kept, fact)
			continue
		}
		if g.mentionsInScope(fact) {
			kept = append(kept, fact)
		}
	}
	if len(kept) > 0 {
		return kept, nil
	}

	mentions := g.mentionsInScope(fallback)
	if cls.Company != "" && g.InScope.Has(cls.Company) && !mentions {
		prefixed := strings.TrimSpace(cls.Company + ": " + fallback.ContentLine)
		fallback.ContentLine = prefixed
		fallback.SummaryLines = []string{prefixed}
		mentions = true
	}
	if g.Mode == ModeStrict && !mentions {
		return nil, &ExhaustedError{Company: cls.Company, InScope: g.InScope.Sorted()}
	}
	return []model.Fact{fallback}, nil
}

func (g Guard) mentionsInScope(fact model.Fact) bool {
	table := g.Buyers
	if table == nil {
		table = buyers.Default()
	}
	candidates := append([]string{fact.ContentLine}, fact.SummaryLines...)
	for _, text := range candidates {
		if strings.TrimSpace(text) == "" {
			continue
		}
		if table.MentionsAny(text, g.InScope) {
			return true
		}
	}
	return false
}
