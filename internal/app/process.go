package app

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"horse.fit/news-coverage/internal/cli"
	"horse.fit/news-coverage/internal/pipeline"
)

func runProcess(args []string) int {
	fs := flag.NewFlagSet("process", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	articlePath := fs.String("article", "", "Article JSON file (title, source, url, published_at, content)")
	category := fs.String("category", "", "Manual category path; skips the classifier")
	company := fs.String("company", "", "Buyer for a manual category (inferred when empty)")
	quarter := fs.String("quarter", "", "Quarter for a manual category, for example \"2025 Q4\"")
	fetch := fs.Bool("fetch", false, "Download the article body when content is empty")
	noDedupe := fs.Bool("no-dedupe", false, "Store the record even if its URL was already ingested")
	asJSON := fs.Bool("json", false, "Print the full result as JSON instead of markdown")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	path := strings.TrimSpace(*articlePath)
	if path == "" {
		fmt.Fprintln(os.Stderr, "--article is required")
		return 2
	}
	override, err := overrideFromFlags(*category, *company, *quarter)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	article, err := loadArticleFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load article: %v\n", err)
		return 1
	}

	cfg, logger, code := loadRuntime(envLoader)
	if code != 0 {
		return code
	}

	processor, err := newProcessor(cfg, logger, processorOptions{dedupe: !*noDedupe, fetchMissing: *fetch})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to configure processor: %v\n", err)
		return 1
	}

	ctx, cancel := signalContext()
	defer cancel()

	result, err := processor.Process(ctx, pipeline.Request{Article: article, Override: override})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Process failed: %v\n", err)
		return 1
	}

	if *asJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(result); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode result: %v\n", err)
			return 1
		}
	} else {
		fmt.Println(result.Markdown)
	}
	printIngest(result)
	return 0
}

func overrideFromFlags(category, company, quarter string) (*pipeline.Override, error) {
	category = strings.TrimSpace(category)
	company = strings.TrimSpace(company)
	quarter = strings.TrimSpace(quarter)
	if category == "" {
		if company != "" || quarter != "" {
			return nil, errors.New("--company and --quarter require --category")
		}
		return nil, nil
	}
	return &pipeline.Override{Category: category, Company: company, Quarter: quarter}, nil
}

func printIngest(result pipeline.Result) {
	if result.Ingest.DuplicateOf != "" {
		fmt.Fprintf(os.Stderr, "duplicate of %s in %s\n", result.Ingest.DuplicateOf, result.Ingest.StoredPath)
		return
	}
	fmt.Fprintf(os.Stderr, "stored %s in %s\n", result.Ingest.ID, result.Ingest.StoredPath)
}
