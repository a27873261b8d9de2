package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"horse.fit/news-coverage/internal/buyers"
	"horse.fit/news-coverage/internal/cli"
	"horse.fit/news-coverage/internal/config"
)

func runHealth(args []string) int {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, _, code := loadRuntime(envLoader)
	if code != 0 {
		return code
	}

	if err := checkHealth(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		return 1
	}
	if strings.TrimSpace(cfg.LLMAPIKey) == "" {
		fmt.Fprintln(os.Stderr, "Warning: OPENAI_API_KEY is not set; process and batch will fail")
	}

	fmt.Printf("ok ingest_dir=%s guardrail=%s exec_notes=%s\n", cfg.IngestDataDir, cfg.GuardrailMode(), cfg.ExecNoteMode())
	return 0
}

// checkHealth confirms the buyer scope parses and the ingest directory
// accepts writes.
func checkHealth(cfg *config.Config) error {
	if _, err := buyers.Default().ParseInScope(cfg.BuyersOfInterest); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.IngestDataDir, 0o755); err != nil {
		return fmt.Errorf("create ingest dir: %w", err)
	}
	probe, err := os.CreateTemp(cfg.IngestDataDir, ".health-*")
	if err != nil {
		return fmt.Errorf("ingest dir is not writable: %w", err)
	}
	name := probe.Name()
	_ = probe.Close()
	return os.Remove(name)
}
