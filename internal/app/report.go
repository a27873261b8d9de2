package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"horse.fit/news-coverage/internal/buyers"
	"horse.fit/news-coverage/internal/cli"
	"horse.fit/news-coverage/internal/report"
	payloadschema "horse.fit/news-coverage/schema"
)

func runReport(args []string) int {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	quarter := fs.String("quarter", "", "Quarter to report on, for example \"2025 Q4\"")
	out := fs.String("out", "", "Output directory (default REPORT_OUTPUT_DIR)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	q := strings.TrimSpace(*quarter)
	if q == "" {
		fmt.Fprintln(os.Stderr, "--quarter is required")
		return 2
	}

	cfg, logger, code := loadRuntime(envLoader)
	if code != 0 {
		return code
	}
	dir := strings.TrimSpace(*out)
	if dir == "" {
		dir = cfg.ReportOutputDir
	}

	store := newStore(cfg, true, logger)
	byBuyer, err := store.QuarterRecords(q)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load records: %v\n", err)
		return 1
	}

	table := buyers.Default()
	result, err := report.Build(q, flattenRecords(byBuyer), table)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build report: %v\n", err)
		return 1
	}

	paths, err := report.Write(result, dir, table)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write report: %v\n", err)
		return 1
	}
	for _, path := range paths {
		fmt.Println(path)
	}
	fmt.Printf("report quarter=%s buyers=%d reviews=%d dir=%s\n", q, len(result.Reports), len(result.Reviews), dir)
	return 0
}

// flattenRecords keeps each buyer's file order and visits buyers by name.
func flattenRecords(byBuyer map[string][]payloadschema.CoverageRecord) []payloadschema.CoverageRecord {
	names := make([]string, 0, len(byBuyer))
	for name := range byBuyer {
		names = append(names, name)
	}
	sort.Strings(names)

	var records []payloadschema.CoverageRecord
	for _, name := range names {
		records = append(records, byBuyer[name]...)
	}
	return records
}
