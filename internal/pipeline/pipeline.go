// Package pipeline runs an article through classification, summarization,
// fact assembly, the buyer guardrail, rendering and ingest.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/news-coverage/internal/buyers"
	"horse.fit/news-coverage/internal/classify"
	"horse.fit/news-coverage/internal/facts"
	"horse.fit/news-coverage/internal/globaltime"
	"horse.fit/news-coverage/internal/guardrail"
	"horse.fit/news-coverage/internal/ingest"
	"horse.fit/news-coverage/internal/metrics"
	"horse.fit/news-coverage/internal/model"
	"horse.fit/news-coverage/internal/normalize"
	"horse.fit/news-coverage/internal/reader"
	"horse.fit/news-coverage/internal/render"
	"horse.fit/news-coverage/internal/routing"
)

type Classifier interface {
	Classify(ctx context.Context, article model.Article) (model.Classification, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, article model.Article, promptName string) (model.Summary, error)
}

// Options are the deployment settings the processor applies to every
// article.
type Options struct {
	Routing                  routing.Options
	AllowUnprefixedExecNotes bool
	Guard                    guardrail.Guard
	// FinalOutputPath is the markdown log appended after each stored
	// article. Empty disables the log.
	FinalOutputPath string
	// FetchMissing downloads the article body when content is blank.
	FetchMissing bool
	Reader       reader.Options
}

// Override replaces the classifier with a manual category.
type Override struct {
	Category string `json:"category"`
	Company  string `json:"company,omitempty"`
	Quarter  string `json:"quarter,omitempty"`
}

type Request struct {
	Article  model.Article `json:"article"`
	Override *Override     `json:"override,omitempty"`
}

type Result struct {
	Article           model.Article        `json:"article"`
	Classification    model.Classification `json:"classification"`
	Prompt            string               `json:"prompt"`
	Formatter         string               `json:"formatter"`
	Summary           model.Summary        `json:"-"`
	Facts             []model.Fact         `json:"facts"`
	Markdown          string               `json:"markdown"`
	Ingest            model.IngestResult   `json:"ingest"`
	MatchedBuyers     []string             `json:"matched_buyers"`
	NormalizationNote string               `json:"normalization_note,omitempty"`
}

type Processor struct {
	classifier Classifier
	summarizer Summarizer
	store      *ingest.Store
	buyers     *buyers.Table
	opts       Options
	logger     zerolog.Logger
}

func NewProcessor(classifier Classifier, summarizer Summarizer, store *ingest.Store, table *buyers.Table, opts Options, logger zerolog.Logger) *Processor {
	if table == nil {
		table = buyers.Default()
	}
	if opts.Guard.Mode == "" {
		opts.Guard.Mode = guardrail.ModeSection
	}
	if opts.Guard.Buyers == nil {
		opts.Guard.Buyers = table
	}
	if opts.Guard.InScope == nil {
		opts.Guard.InScope = table.All()
	}
	return &Processor{
		classifier: classifier,
		summarizer: summarizer,
		store:      store,
		buyers:     table,
		opts:       opts,
		logger:     logger,
	}
}

// Process runs one article end to end. Any stage error aborts the article
// before anything is written.
func (p *Processor) Process(ctx context.Context, req Request) (Result, error) {
	result, err := p.process(ctx, req)
	switch {
	case err != nil:
		metrics.RecordArticle(metrics.OutcomeFailed)
	case result.Ingest.DuplicateOf != "":
		metrics.RecordArticle(metrics.OutcomeDuplicate)
	default:
		metrics.RecordArticle(metrics.OutcomeStored)
	}
	return result, err
}

func (p *Processor) process(ctx context.Context, req Request) (Result, error) {
	article := req.Article
	if p.opts.FetchMissing && strings.TrimSpace(article.Content) == "" {
		filled, err := reader.Fill(ctx, article, p.opts.Reader)
		if err != nil {
			return Result{}, fmt.Errorf("fetch article body: %w", err)
		}
		article = filled
	}

	article, norm := normalize.Article(article)
	result := Result{Article: article}
	if norm.Changed() {
		result.NormalizationNote = norm.Note()
		p.logger.Info().
			Str("url", article.URL).
			Int("replacements", norm.Replacements).
			Bool("html_stripped", norm.HTMLStripped).
			Msg("article normalized")
	}

	cls, err := p.classification(ctx, article, req.Override)
	if err != nil {
		return Result{}, err
	}
	result.Classification = cls

	route := routing.Route(cls, p.opts.Routing)
	result.Prompt = route.Prompt
	result.Formatter = route.Formatter
	p.logger.Debug().
		Str("url", article.URL).
		Str("rule", route.Rule).
		Str("prompt", route.Prompt).
		Str("formatter", route.Formatter).
		Msg("route selected")

	start := time.Now()
	summary, err := p.summarizer.Summarize(ctx, article, route.Prompt)
	metrics.ObserveStage("summarize", start)
	if err != nil {
		return Result{}, fmt.Errorf("summarize %s: %w", article.URL, err)
	}
	result.Summary = summary

	today := globaltime.Today()
	factOpts := facts.Options{AllowUnprefixedExecNotes: p.opts.AllowUnprefixedExecNotes, Today: today}
	assembled := facts.Assemble(summary, cls, article, factOpts)
	fallback := facts.Fallback(summary, cls, article, factOpts)

	kept, err := p.opts.Guard.Filter(assembled, cls, fallback)
	if err != nil {
		return Result{}, fmt.Errorf("buyer guardrail for %s: %w", article.URL, err)
	}
	if len(kept) < len(assembled) {
		p.logger.Info().
			Str("url", article.URL).
			Int("assembled", len(assembled)).
			Int("kept", len(kept)).
			Msg("buyer guardrail dropped facts")
	}
	if len(assembled) > 0 && len(kept) == 1 && !containsFact(assembled, kept[0]) {
		metrics.RecordGuardrailFallback()
	}
	for idx := range kept {
		kept[idx].ID = fmt.Sprintf("fact-%d", idx+1)
	}
	result.Facts = kept
	for _, fact := range kept {
		metrics.RecordFact(fact.Section)
	}

	result.Markdown = render.Lookup(route.Formatter)(article, summary, kept, today)

	start = time.Now()
	ingested, err := p.store.Ingest(ctx, ingest.RecordFor(article, cls, kept, today))
	metrics.ObserveStage("ingest", start)
	if err != nil {
		return Result{}, err
	}
	result.Ingest = ingested

	result.MatchedBuyers = p.matchedBuyers(article, cls)
	if ingested.DuplicateOf == "" && strings.TrimSpace(p.opts.FinalOutputPath) != "" {
		entry := render.FinalOutput(render.Entry{
			Article: article,
			Facts:   kept,
			Buyers:  result.MatchedBuyers,
			Now:     globaltime.UTC(),
		})
		if err := AppendFinalOutput(p.opts.FinalOutputPath, entry); err != nil {
			return Result{}, fmt.Errorf("append final output: %w", err)
		}
	}
	return result, nil
}

func (p *Processor) classification(ctx context.Context, article model.Article, override *Override) (model.Classification, error) {
	if override != nil {
		cls, err := classify.Override(article, override.Category, override.Company, override.Quarter, p.buyers)
		if err != nil {
			return model.Classification{}, fmt.Errorf("classification override: %w", err)
		}
		return cls, nil
	}
	start := time.Now()
	cls, err := p.classifier.Classify(ctx, article)
	metrics.ObserveStage("classify", start)
	if err != nil {
		return model.Classification{}, fmt.Errorf("classify %s: %w", article.URL, err)
	}
	return cls, nil
}

// matchedBuyers is the strong keyword matches plus the classified company.
func (p *Processor) matchedBuyers(article model.Article, cls model.Classification) []string {
	set := p.buyers.Match(article).Strong
	if company := strings.TrimSpace(cls.Company); company != "" && company != model.UnknownBuyer {
		set[company] = struct{}{}
	}
	return p.buyers.Ordered(set)
}

func containsFact(list []model.Fact, fact model.Fact) bool {
	for _, candidate := range list {
		if candidate.ContentLine == fact.ContentLine && candidate.CategoryPath == fact.CategoryPath {
			return true
		}
	}
	return false
}
