package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "process":
		return runProcess(args[1:])
	case "batch":
		return runBatch(args[1:])
	case "ingest":
		return runIngest(args[1:])
	case "validate":
		return runValidate(args[1:])
	case "report":
		return runReport(args[1:])
	case "serve":
		return runServe(args[1:])
	case "health":
		return runHealth(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "news-coverage CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  news-coverage <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  process   Classify, summarize and store one article JSON file")
	fmt.Fprintln(os.Stderr, "  batch     Process every article JSON file in a directory")
	fmt.Fprintln(os.Stderr, "  ingest    Store one coverage record payload")
	fmt.Fprintln(os.Stderr, "  validate  Validate coverage record JSON files against the schema")
	fmt.Fprintln(os.Stderr, "  report    Write per-buyer quarterly reports from stored records")
	fmt.Fprintln(os.Stderr, "  serve     Start Echo API server")
	fmt.Fprintln(os.Stderr, "  health    Check configuration and the ingest directory")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"news-coverage <command> -h\" for command-specific flags.")
}
