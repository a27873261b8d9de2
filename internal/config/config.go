package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"horse.fit/news-coverage/internal/guardrail"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	LLMAPIKey            string        `envconfig:"OPENAI_API_KEY" default:""`
	LLMEndpoint          string        `envconfig:"LLM_ENDPOINT" default:"https://api.openai.com/v1"`
	ClassifierModel      string        `envconfig:"CLASSIFIER_MODEL" default:"gpt-4.1-mini"`
	SummarizerModel      string        `envconfig:"SUMMARIZER_MODEL" default:"gpt-5-mini"`
	MaxTokens            int           `envconfig:"MAX_TOKENS" default:"1200"`
	Temperature          float64       `envconfig:"TEMPERATURE" default:"0.3"`
	LLMTimeout           time.Duration `envconfig:"LLM_TIMEOUT" default:"90s"`
	LLMRequestsPerSecond float64       `envconfig:"LLM_REQUESTS_PER_SECOND" default:"2"`

	RoutingConfidenceFloor float64 `envconfig:"ROUTING_CONFIDENCE_FLOOR" default:"0.5"`
	ExecChangeNoteMode     string  `envconfig:"EXEC_CHANGE_NOTE_MODE" default:"unprefixed"`
	FactBuyerGuardrailMode string  `envconfig:"FACT_BUYER_GUARDRAIL_MODE" default:"section"`
	BuyersOfInterest       string  `envconfig:"BUYERS_OF_INTEREST" default:""`

	IngestDataDir   string `envconfig:"INGEST_DATA_DIR" default:"data/ingest"`
	IngestDedupe    bool   `envconfig:"INGEST_DEDUPE" default:"true"`
	FinalOutputPath string `envconfig:"FINAL_OUTPUT_PATH" default:"data/final_output.md"`
	ReportOutputDir string `envconfig:"REPORT_OUTPUT_DIR" default:"data/reports"`
	BatchWorkers    int    `envconfig:"BATCH_WORKERS" default:"4"`

	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.LLMEndpoint) == "" {
		return fmt.Errorf("LLM_ENDPOINT is required")
	}
	if strings.TrimSpace(c.ClassifierModel) == "" {
		return fmt.Errorf("CLASSIFIER_MODEL is required")
	}
	if strings.TrimSpace(c.SummarizerModel) == "" {
		return fmt.Errorf("SUMMARIZER_MODEL is required")
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("MAX_TOKENS must be >= 0")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("TEMPERATURE must be between 0 and 2")
	}
	if c.LLMTimeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be > 0")
	}
	if c.LLMRequestsPerSecond < 0 {
		return fmt.Errorf("LLM_REQUESTS_PER_SECOND must be >= 0")
	}
	if c.RoutingConfidenceFloor < 0 || c.RoutingConfidenceFloor > 1 {
		return fmt.Errorf("ROUTING_CONFIDENCE_FLOOR must be between 0 and 1")
	}
	switch c.ExecNoteMode() {
	case "prefixed", "unprefixed":
	default:
		return fmt.Errorf("EXEC_CHANGE_NOTE_MODE must be one of prefixed, unprefixed (got %q)", c.ExecChangeNoteMode)
	}
	if _, err := guardrail.ParseMode(c.FactBuyerGuardrailMode); err != nil {
		return fmt.Errorf("FACT_BUYER_GUARDRAIL_MODE: %w", err)
	}
	if strings.TrimSpace(c.IngestDataDir) == "" {
		return fmt.Errorf("INGEST_DATA_DIR is required")
	}
	if c.BatchWorkers < 1 {
		return fmt.Errorf("BATCH_WORKERS must be >= 1")
	}
	return nil
}

// GuardrailMode is the guardrail mode with its aliases folded. Invalid
// values come back lower-cased; Validate rejects them.
func (c *Config) GuardrailMode() string {
	mode, err := guardrail.ParseMode(c.FactBuyerGuardrailMode)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(c.FactBuyerGuardrailMode))
	}
	return string(mode)
}

// ExecNoteMode folds "unprefixed_followon" into "unprefixed".
func (c *Config) ExecNoteMode() string {
	mode := strings.ToLower(strings.TrimSpace(c.ExecChangeNoteMode))
	switch mode {
	case "", "unprefixed", "unprefixed_followon":
		return "unprefixed"
	default:
		return mode
	}
}

func (c *Config) AllowUnprefixedExecNotes() bool {
	return c.ExecNoteMode() == "unprefixed"
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.CORSAllowedOrigins)
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value == "" {
			continue
		}
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		values = append(values, value)
	}
	return values
}
