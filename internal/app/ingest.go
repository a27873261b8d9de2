package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"horse.fit/news-coverage/internal/cli"
)

func runIngest(args []string) int {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	payloadFile := fs.String("payload-file", "", "Coverage record JSON file to store")
	noDedupe := fs.Bool("no-dedupe", false, "Store the record even if its URL was already ingested")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	path := strings.TrimSpace(*payloadFile)
	if path == "" {
		fmt.Fprintln(os.Stderr, "--payload-file is required")
		return 2
	}

	cfg, logger, code := loadRuntime(envLoader)
	if code != 0 {
		return code
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read payload: %v\n", err)
		return 1
	}

	store := newStore(cfg, !*noDedupe, logger)
	result, record, err := store.IngestPayload(context.Background(), json.RawMessage(raw))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		return 1
	}

	if result.DuplicateOf != "" {
		fmt.Printf("ingest duplicate duplicate_of=%s stored_path=%s\n", result.DuplicateOf, result.StoredPath)
		return 0
	}
	fmt.Printf(
		"ingest stored id=%s buyer=%s quarter=%s stored_path=%s\n",
		result.ID,
		record.Buyer,
		record.Quarter,
		result.StoredPath,
	)
	return 0
}
