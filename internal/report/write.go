package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"horse.fit/news-coverage/internal/buyers"
)

const ReviewFileName = "needs_review.txt"

// FileName is the report file for buyer in quarter.
func FileName(quarter, buyer string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_").Replace(buyer)
	return fmt.Sprintf("%s %s News Coverage.md", quarter, safe)
}

// Write renders every buyer report and the review list into dir and
// returns the written paths, reports first in buyer priority order.
func Write(result Result, dir string, table *buyers.Table) ([]string, error) {
	if table == nil {
		table = buyers.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}

	var written []string
	for _, name := range result.Buyers(table) {
		path := filepath.Join(dir, FileName(result.Quarter, name))
		if err := os.WriteFile(path, []byte(result.Reports[name].Markdown(result.Quarter)), 0o644); err != nil {
			return written, fmt.Errorf("write report %s: %w", path, err)
		}
		written = append(written, path)
	}

	reviewPath := filepath.Join(dir, ReviewFileName)
	if err := os.WriteFile(reviewPath, []byte(ReviewText(result.Reviews)), 0o644); err != nil {
		return written, fmt.Errorf("write review list: %w", err)
	}
	return append(written, reviewPath), nil
}
