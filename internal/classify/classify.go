// Package classify picks a category, buyer and quarter for an article.
package classify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"horse.fit/news-coverage/internal/buyers"
	"horse.fit/news-coverage/internal/llm"
	"horse.fit/news-coverage/internal/model"
	"horse.fit/news-coverage/internal/normalize"
	"horse.fit/news-coverage/internal/prompts"
	"horse.fit/news-coverage/internal/taxonomy"
)

const (
	maxContentRunes = 4000
	maxOutputTokens = 200
)

var ErrMissingPublishDate = errors.New("published_at is required to infer quarter")

type Classifier struct {
	completer llm.Completer
	model     string
	buyers    *buyers.Table
	logger    zerolog.Logger
}

func New(completer llm.Completer, model string, table *buyers.Table, logger zerolog.Logger) *Classifier {
	if table == nil {
		table = buyers.Default()
	}
	return &Classifier{
		completer: completer,
		model:     model,
		buyers:    table,
		logger:    logger,
	}
}

// Classify asks the model for a category path and derives the buyer from
// keyword scores and the quarter from the publish date.
func (c *Classifier) Classify(ctx context.Context, article model.Article) (model.Classification, error) {
	if article.PublishedAt == nil {
		return model.Classification{}, ErrMissingPublishDate
	}

	system, err := prompts.Load(prompts.Classifier)
	if err != nil {
		return model.Classification{}, err
	}
	user := fmt.Sprintf("Title: %s\nSource: %s\nContent: %s", article.Title, article.Source, truncateRunes(article.Content, maxContentRunes))

	completion, err := c.completer.Complete(ctx, llm.Request{
		Model:       c.model,
		Messages:    []llm.Message{llm.System(system), llm.User(user)},
		MaxTokens:   maxOutputTokens,
		Temperature: llm.TemperatureFor(c.model, 0),
	})
	if err != nil {
		return model.Classification{}, fmt.Errorf("classify article: %w", err)
	}
	raw, err := completion.TextOrError("Classifier")
	if err != nil {
		return model.Classification{}, err
	}

	category, confidence := taxonomy.NormalizeCategory(raw)
	section, subheading := taxonomy.Parse(category)
	cls := model.Classification{
		Category:   category,
		Section:    section,
		Subheading: subheading,
		Confidence: confidence,
		Company:    c.buyers.InferCompany(article),
		Quarter:    normalize.Quarter(*article.PublishedAt),
	}

	event := c.logger.Info().
		Str("category", cls.Category).
		Str("company", cls.Company).
		Str("quarter", cls.Quarter)
	if confidence != nil {
		event = event.Float64("confidence", *confidence)
	}
	event.Msg("article classified")

	return cls, nil
}

// Override builds a classification without calling the model. Company and
// quarter are inferred when blank; a known buyer alias is resolved to its
// canonical name.
func Override(article model.Article, category, company, quarter string, table *buyers.Table) (model.Classification, error) {
	if table == nil {
		table = buyers.Default()
	}

	category = strings.TrimSpace(category)
	if category == "" {
		return model.Classification{}, fmt.Errorf("override category is required")
	}
	section, subheading := taxonomy.Parse(category)

	company = strings.TrimSpace(company)
	switch {
	case company == "":
		company = table.InferCompany(article)
	default:
		if canonical, ok := table.Resolve(company); ok {
			company = canonical
		}
	}

	quarter = strings.TrimSpace(quarter)
	if quarter == "" {
		if article.PublishedAt == nil {
			return model.Classification{}, ErrMissingPublishDate
		}
		quarter = normalize.Quarter(*article.PublishedAt)
	}

	return model.Classification{
		Category:   category,
		Section:    section,
		Subheading: subheading,
		Confidence: model.FloatPtr(1.0),
		Company:    company,
		Quarter:    quarter,
	}, nil
}

func truncateRunes(text string, limit int) string {
	count := 0
	for idx := range text {
		if count == limit {
			return text[:idx]
		}
		count++
	}
	return text
}
