// Package routing picks the summarizer prompt and output formatter for a
// classified article.
package routing

import (
	"strings"

	"horse.fit/news-coverage/internal/model"
)

const (
	PromptGeneralNews           = "general_news"
	PromptExecChanges           = "exec_changes"
	PromptExecChangesUnprefixed = "exec_changes_unprefixed_note"
	PromptInterview             = "interview"
	PromptCommentary            = "commentary"
	PromptContentFormatter      = "content_formatter"
	PromptContentDeals          = "content_deals"
	FormatterMarkdown           = "markdown"
	FormatterContentDeals       = "content_deals"
	internationalKeyword        = "international"
)

// Rule routes categories containing any of Keywords.
type Rule struct {
	Name      string
	Keywords  []string
	Prompt    string
	Formatter string
}

// Rules are scanned in order; the first rule with a keyword contained in the
// lower-cased category path wins.
var Rules = []Rule{
	{Name: "exec_changes", Keywords: []string{"exec changes"}, Prompt: PromptExecChanges, Formatter: FormatterMarkdown},
	{Name: "interview", Keywords: []string{"interview"}, Prompt: PromptInterview, Formatter: FormatterMarkdown},
	{Name: "commentary", Keywords: []string{"strategy", "commentary"}, Prompt: PromptCommentary, Formatter: FormatterMarkdown},
	{
		Name:      "content_formatter",
		Keywords:  []string{"greenlights", "development", "renewals", "cancellations", "pickups"},
		Prompt:    PromptContentFormatter,
		Formatter: FormatterMarkdown,
	},
}

// Options carry the deployment settings routing depends on.
type Options struct {
	ConfidenceFloor          float64
	AllowUnprefixedExecNotes bool
}

// Decision is the chosen prompt and formatter.
type Decision struct {
	Rule      string
	Prompt    string
	Formatter string
}

// Default is the general-news pair.
var Default = Decision{Rule: "default", Prompt: PromptGeneralNews, Formatter: FormatterMarkdown}

// Route chooses a prompt and formatter. A confidence below the floor always
// gets the default pair; a missing confidence is trusted.
func Route(cls model.Classification, opts Options) Decision {
	if cls.Confidence != nil && *cls.Confidence < opts.ConfidenceFloor {
		return Default
	}

	category := strings.ToLower(cls.Category)
	if cls.Section == model.SectionContent && strings.Contains(category, internationalKeyword) {
		return Decision{Rule: "international_content_deals", Prompt: PromptContentDeals, Formatter: FormatterContentDeals}
	}

	for _, rule := range Rules {
		if !containsAny(category, rule.Keywords) {
			continue
		}
		prompt := rule.Prompt
		if prompt == PromptExecChanges && opts.AllowUnprefixedExecNotes {
			prompt = PromptExecChangesUnprefixed
		}
		return Decision{Rule: rule.Name, Prompt: prompt, Formatter: rule.Formatter}
	}
	return Default
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}
