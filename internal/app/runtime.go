package app

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"horse.fit/news-coverage/internal/buyers"
	"horse.fit/news-coverage/internal/classify"
	"horse.fit/news-coverage/internal/cli"
	"horse.fit/news-coverage/internal/config"
	"horse.fit/news-coverage/internal/guardrail"
	"horse.fit/news-coverage/internal/ingest"
	"horse.fit/news-coverage/internal/llm"
	"horse.fit/news-coverage/internal/logging"
	"horse.fit/news-coverage/internal/pipeline"
	"horse.fit/news-coverage/internal/routing"
	"horse.fit/news-coverage/internal/summarize"
)

// loadRuntime loads the env file, config and logger shared by every command
// that touches storage. A non-zero code means the command should exit.
func loadRuntime(envLoader *cli.EnvLoader) (*config.Config, zerolog.Logger, int) {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, zerolog.Nop(), 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return nil, zerolog.Nop(), 1
	}
	return cfg, logger, 0
}

func newStore(cfg *config.Config, dedupe bool, logger zerolog.Logger) *ingest.Store {
	return ingest.NewStore(cfg.IngestDataDir, dedupe && cfg.IngestDedupe, logging.Component(logger, "ingest"))
}

type processorOptions struct {
	dedupe       bool
	fetchMissing bool
}

// newProcessor wires the model client, classifier, summarizer, store and
// guardrail from config.
func newProcessor(cfg *config.Config, logger zerolog.Logger, opts processorOptions) (*pipeline.Processor, error) {
	table := buyers.Default()
	inScope, err := table.ParseInScope(cfg.BuyersOfInterest)
	if err != nil {
		return nil, err
	}
	mode, err := guardrail.ParseMode(cfg.FactBuyerGuardrailMode)
	if err != nil {
		return nil, err
	}

	client := llm.NewClient(llm.Options{
		Endpoint:          cfg.LLMEndpoint,
		APIKey:            cfg.LLMAPIKey,
		Timeout:           cfg.LLMTimeout,
		RequestsPerSecond: cfg.LLMRequestsPerSecond,
	})
	classifier := classify.New(client, cfg.ClassifierModel, table, logging.Component(logger, "classify"))
	summarizer := summarize.New(client, summarize.Options{
		Model:       cfg.SummarizerModel,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}, logging.Component(logger, "summarize"))

	return pipeline.NewProcessor(
		classifier,
		summarizer,
		newStore(cfg, opts.dedupe, logger),
		table,
		pipeline.Options{
			Routing: routing.Options{
				ConfidenceFloor:          cfg.RoutingConfidenceFloor,
				AllowUnprefixedExecNotes: cfg.AllowUnprefixedExecNotes(),
			},
			AllowUnprefixedExecNotes: cfg.AllowUnprefixedExecNotes(),
			Guard: guardrail.Guard{
				Mode:    mode,
				InScope: inScope,
				Buyers:  table,
			},
			FinalOutputPath: cfg.FinalOutputPath,
			FetchMissing:    opts.fetchMissing,
		},
		logging.Component(logger, "pipeline"),
	), nil
}
