package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"horse.fit/news-coverage/internal/cli"
	"horse.fit/news-coverage/internal/pipeline"
)

func runBatch(args []string) int {
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	dir := fs.String("dir", "", "Directory of article .json files")
	recursive := fs.Bool("recursive", false, "Recursively scan subdirectories")
	workers := fs.Int("workers", 0, "Concurrent articles (default BATCH_WORKERS)")
	fetch := fs.Bool("fetch", false, "Download article bodies when content is empty")
	noDedupe := fs.Bool("no-dedupe", false, "Store records even if their URLs were already ingested")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	root := strings.TrimSpace(*dir)
	if root == "" {
		fmt.Fprintln(os.Stderr, "--dir is required")
		return 2
	}
	if *workers < 0 {
		fmt.Fprintln(os.Stderr, "--workers must be >= 1")
		return 2
	}

	files, err := collectJSONFiles(root, *recursive)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Batch setup failed: %v\n", err)
		return 1
	}
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "Batch failed: no .json files found under %s\n", root)
		return 1
	}

	requests, paths, loadFailures := loadBatchRequests(files)

	cfg, logger, code := loadRuntime(envLoader)
	if code != 0 {
		return code
	}
	n := *workers
	if n == 0 {
		n = cfg.BatchWorkers
	}

	processor, err := newProcessor(cfg, logger, processorOptions{dedupe: !*noDedupe, fetchMissing: *fetch})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to configure processor: %v\n", err)
		return 1
	}

	ctx, cancel := signalContext()
	defer cancel()

	outcomes, err := processor.RunBatch(ctx, requests, n)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Batch failed: %v\n", err)
		return 1
	}

	stored, duplicates, failed := 0, 0, loadFailures
	for _, outcome := range outcomes {
		path := paths[outcome.Index]
		switch {
		case outcome.Err != nil:
			failed++
			fmt.Fprintf(os.Stderr, "FAILED %s: %v\n", path, outcome.Err)
		case outcome.Result.Ingest.DuplicateOf != "":
			duplicates++
			fmt.Printf("DUPLICATE %s: %s\n", path, outcome.Result.Ingest.DuplicateOf)
		default:
			stored++
			fmt.Printf("STORED %s: %s\n", path, outcome.Result.Ingest.StoredPath)
		}
	}

	fmt.Printf(
		"batch scanned=%d stored=%d duplicate=%d failed=%d workers=%d\n",
		len(files),
		stored,
		duplicates,
		failed,
		n,
	)
	if failed > 0 {
		return 1
	}
	return 0
}

// loadBatchRequests reads every article file. Unreadable files are reported
// and counted; paths[i] names the file behind requests[i].
func loadBatchRequests(files []string) ([]pipeline.Request, []string, int) {
	requests := make([]pipeline.Request, 0, len(files))
	paths := make([]string, 0, len(files))
	failures := 0
	for _, path := range files {
		article, err := loadArticleFile(path)
		if err != nil {
			failures++
			fmt.Fprintf(os.Stderr, "FAILED %s: %v\n", path, err)
			continue
		}
		requests = append(requests, pipeline.Request{Article: article})
		paths = append(paths, path)
	}
	return requests, paths, failures
}
