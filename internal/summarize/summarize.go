// Package summarize turns article text into bullet lines with the routed
// prompt.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"horse.fit/news-coverage/internal/llm"
	"horse.fit/news-coverage/internal/model"
	"horse.fit/news-coverage/internal/prompts"
	"horse.fit/news-coverage/internal/routing"
)

// ErrMisaligned is returned when a batch response cannot be split into one
// block per article.
var ErrMisaligned = errors.New("cannot align summaries safely")

// ContentLimits are the character caps tried, in order, after an uncapped
// request runs out of output tokens. Only caps below the content length are
// used.
var ContentLimits = []int{12000, 6000}

const bulletGlyphs = "-•–—*"

const batchSystemPrompt = "You will receive multiple articles. Each article includes its own " +
	"instructions. For every article, follow the provided instructions to " +
	"produce bullet points, and label each block as 'Article <n>:'."

var (
	chunkMarkerPattern = regexp.MustCompile(`(?im)^\s*(?:article|story)\s*\d+\s*[:\-]\s*`)
	blockSplitPattern  = regexp.MustCompile(`\n{2,}`)
	execLinePattern    = regexp.MustCompile(`^(Exit|Promotion|Hiring|New Role):\s+([^,]+),\s+([^()]+)`)
)

type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

type Summarizer struct {
	completer llm.Completer
	opts      Options
	logger    zerolog.Logger
}

func New(completer llm.Completer, opts Options, logger zerolog.Logger) *Summarizer {
	return &Summarizer{
		completer: completer,
		opts:      opts,
		logger:    logger,
	}
}

// Summarize runs one article through the named prompt. A response cut off
// by the token cap is retried with shorter content while shorter caps
// remain; partial text from the last attempt is still used.
func (s *Summarizer) Summarize(ctx context.Context, article model.Article, promptName string) (model.Summary, error) {
	instructions, err := prompts.Load(promptName)
	if err != nil {
		return model.Summary{}, err
	}

	limits := contentLimits(len([]rune(article.Content)))
	var completion llm.Completion
	for idx, limit := range limits {
		completion, err = s.completer.Complete(ctx, s.request(
			[]llm.Message{llm.System(instructions), llm.User(userMessage(article, limit))},
			s.opts.MaxTokens,
		))
		if err != nil {
			return model.Summary{}, fmt.Errorf("summarize article: %w", err)
		}
		if completion.IncompleteReason() == llm.ReasonMaxOutputTokens && idx+1 < len(limits) {
			s.logger.Warn().
				Str("url", article.URL).
				Int("next_content_limit", limits[idx+1]).
				Msg("summarizer hit max tokens; retrying with shorter content")
			continue
		}
		break
	}

	text, err := completion.TextOrError("Summarizer")
	if err != nil {
		return model.Summary{}, err
	}
	return summaryFor(text, article, promptName), nil
}

// SummarizeBatch summarizes several articles in one call. promptNames must
// have one entry per article. The response must split into exactly one
// block per article or ErrMisaligned is returned.
func (s *Summarizer) SummarizeBatch(ctx context.Context, articles []model.Article, promptNames []string) ([]model.Summary, error) {
	if len(articles) == 0 {
		return nil, nil
	}
	if len(promptNames) != len(articles) {
		return nil, fmt.Errorf("prompt names must match number of articles (%d != %d)", len(promptNames), len(articles))
	}

	instructions := make([]string, len(promptNames))
	for i, name := range promptNames {
		text, err := prompts.Load(name)
		if err != nil {
			return nil, err
		}
		instructions[i] = text
	}

	longest := 0
	for _, article := range articles {
		if n := len([]rune(article.Content)); n > longest {
			longest = n
		}
	}
	maxTokens := 0
	if s.opts.MaxTokens > 0 {
		maxTokens = s.opts.MaxTokens * len(articles)
	}

	limits := contentLimits(longest)
	var (
		completion llm.Completion
		err        error
	)
	for idx, limit := range limits {
		sections := make([]string, len(articles))
		for i, article := range articles {
			sections[i] = fmt.Sprintf("Article %d\nInstructions:\n%s\n\n%s", i+1, instructions[i], userMessage(article, limit))
		}
		completion, err = s.completer.Complete(ctx, s.request(
			[]llm.Message{llm.System(batchSystemPrompt), llm.User(strings.Join(sections, "\n\n"))},
			maxTokens,
		))
		if err != nil {
			return nil, fmt.Errorf("summarize batch: %w", err)
		}
		if completion.IncompleteReason() == llm.ReasonMaxOutputTokens && idx+1 < len(limits) {
			s.logger.Warn().
				Int("articles", len(articles)).
				Int("next_content_limit", limits[idx+1]).
				Msg("batch summarizer hit max tokens; retrying with shorter content")
			continue
		}
		break
	}

	text, err := completion.TextOrError("Summarizer (batch)")
	if err != nil {
		return nil, err
	}
	chunks, err := ExtractChunks(text, len(articles))
	if err != nil {
		return nil, err
	}

	summaries := make([]model.Summary, len(articles))
	for i, chunk := range chunks {
		summaries[i] = summaryFor(chunk, articles[i], promptNames[i])
	}
	return summaries, nil
}

func (s *Summarizer) request(messages []llm.Message, maxTokens int) llm.Request {
	return llm.Request{
		Model:       s.opts.Model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: llm.TemperatureFor(s.opts.Model, s.opts.Temperature),
	}
}

func summaryFor(text string, article model.Article, promptName string) model.Summary {
	bullets := SplitBullets(text)
	if isExecPrompt(promptName) {
		bullets = ApplyExecQualifiers(bullets, article)
	}
	return model.Summary{Bullets: bullets}
}

func isExecPrompt(name string) bool {
	name = strings.TrimSuffix(name, ".txt")
	return name == routing.PromptExecChanges || name == routing.PromptExecChangesUnprefixed
}

// ExtractChunks splits a batch response into expected blocks, preferring
// "Article <n>:" markers and falling back to blank-line separated blocks.
// A single expected block is the whole text.
func ExtractChunks(text string, expected int) ([]string, error) {
	if expected == 1 {
		return []string{strings.TrimSpace(text)}, nil
	}

	var chunks []string
	markers := chunkMarkerPattern.FindAllStringIndex(text, -1)
	for idx, marker := range markers {
		end := len(text)
		if idx+1 < len(markers) {
			end = markers[idx+1][0]
		}
		if chunk := strings.TrimSpace(text[marker[1]:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}
	}

	if len(chunks) == 0 {
		for _, block := range blockSplitPattern.Split(text, -1) {
			if block = strings.TrimSpace(block); block != "" {
				chunks = append(chunks, block)
			}
		}
	}

	if len(chunks) != expected {
		return nil, fmt.Errorf("model returned %d summary block(s) for %d article(s); %w", len(chunks), expected, ErrMisaligned)
	}
	return chunks, nil
}

// SplitBullets returns the non-blank lines of text with any leading bullet
// glyphs removed.
func SplitBullets(text string) []string {
	var bullets []string
	for _, line := range strings.Split(text, "\n") {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			continue
		}
		if first, _ := utf8.DecodeRuneInString(stripped); strings.ContainsRune(bulletGlyphs, first) {
			stripped = strings.TrimSpace(strings.TrimLeft(stripped, bulletGlyphs+" "))
		}
		bullets = append(bullets, stripped)
	}
	return bullets
}

// ApplyExecQualifiers restores "former" on exec-change bullets when the
// article itself calls the person former within a short span of their name.
func ApplyExecQualifiers(bullets []string, article model.Article) []string {
	if len(bullets) == 0 {
		return bullets
	}
	text := strings.ToLower(article.Title + "\n" + article.Content)

	updated := make([]string, 0, len(bullets))
	for _, bullet := range bullets {
		if strings.Contains(strings.ToLower(bullet), "former") {
			updated = append(updated, bullet)
			continue
		}
		match := execLinePattern.FindStringSubmatch(bullet)
		if match == nil {
			updated = append(updated, bullet)
			continue
		}
		name := strings.ToLower(strings.TrimSpace(match[2]))
		if name == "" {
			updated = append(updated, bullet)
			continue
		}
		namePattern := regexp.MustCompile(`former\s+[^\n]{0,60}` + regexp.QuoteMeta(name))
		if namePattern.MatchString(text) {
			prefix, rest, _ := strings.Cut(bullet, ",")
			bullet = prefix + ", former " + strings.TrimLeft(rest, " \t")
		}
		updated = append(updated, bullet)
	}
	return updated
}

func contentLimits(length int) []int {
	limits := []int{0}
	for _, limit := range ContentLimits {
		if length > limit {
			limits = append(limits, limit)
		}
	}
	return limits
}

// truncate cuts text to limit characters, backing off to the last space.
// A zero limit leaves text alone.
func truncate(text string, limit int) string {
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return text
	}
	trimmed := string(runes[:limit])
	if idx := strings.LastIndex(trimmed, " "); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return trimmed
}

func userMessage(article model.Article, limit int) string {
	published := "unknown"
	if article.PublishedAt != nil {
		published = article.PublishedAt.Format(time.RFC3339)
	}
	return fmt.Sprintf("Title: %s\nSource: %s\nPublished: %s\n\n%s", article.Title, article.Source, published, truncate(article.Content, limit))
}
