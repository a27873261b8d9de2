package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"horse.fit/news-coverage/internal/filelock"
)

// AppendFinalOutput appends entry to the markdown log at path so that
// exactly one blank line separates it from earlier entries.
func AppendFinalOutput(path, entry string) error {
	return filelock.With(path, func() error {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create final output dir: %w", err)
		}

		existing, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("read final output: %w", err)
		}
		spacer := ""
		if text := string(existing); strings.TrimSpace(text) != "" {
			trailing := len(text) - len(strings.TrimRight(text, "\n"))
			if missing := 2 - trailing; missing > 0 {
				spacer = strings.Repeat("\n", missing)
			}
		}

		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open final output: %w", err)
		}
		if _, err := f.WriteString(spacer + entry + "\n"); err != nil {
			_ = f.Close()
			return fmt.Errorf("write final output: %w", err)
		}
		return f.Close()
	})
}
