// Package ingest appends coverage records to per-(buyer, quarter) JSON-lines
// files.
package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"horse.fit/news-coverage/internal/filelock"
	"horse.fit/news-coverage/internal/globaltime"
	"horse.fit/news-coverage/internal/model"
	payloadschema "horse.fit/news-coverage/schema"
)

const maxRecordLineBytes = 16 << 20

var segmentReplacer = strings.NewReplacer("/", "_", `\`, "_")

type Store struct {
	root   string
	dedupe bool
	logger zerolog.Logger
}

// NewStore returns a store rooted at root. With dedupe off every record is
// appended, even when its URL is already stored.
func NewStore(root string, dedupe bool, logger zerolog.Logger) *Store {
	return &Store{
		root:   root,
		dedupe: dedupe,
		logger: logger,
	}
}

// Root is the directory records are written under.
func (s *Store) Root() string {
	return s.root
}

// Path returns the JSON-lines file for a buyer and quarter.
func (s *Store) Path(buyer, quarter string) string {
	return filepath.Join(s.root, pathSegment(buyer), pathSegment(quarter)+".jsonl")
}

func pathSegment(name string) string {
	segment := segmentReplacer.Replace(strings.TrimSpace(name))
	if segment == "" || segment == "." || segment == ".." {
		return "_"
	}
	return segment
}

// IngestPayload validates a submitted payload, lifting the legacy shape,
// then stores it.
func (s *Store) IngestPayload(ctx context.Context, payload json.RawMessage) (model.IngestResult, *payloadschema.CoverageRecord, error) {
	record, err := payloadschema.ValidateCoverageRecordPayload(payload)
	if err != nil {
		return model.IngestResult{}, nil, err
	}
	result, err := s.Ingest(ctx, *record)
	if err != nil {
		return model.IngestResult{}, nil, err
	}
	return result, record, nil
}

// Ingest stamps the record with an id and captured_at when missing,
// validates it and appends it. The duplicate check and the append happen
// under the file's lock. A duplicate URL is reported through DuplicateOf
// and nothing is written.
func (s *Store) Ingest(ctx context.Context, record payloadschema.CoverageRecord) (model.IngestResult, error) {
	if s == nil {
		return model.IngestResult{}, fmt.Errorf("ingest store is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return model.IngestResult{}, err
	}

	if strings.TrimSpace(record.ID) == "" {
		record.ID = uuid.NewString()
	}
	if strings.TrimSpace(record.CapturedAt) == "" {
		record.CapturedAt = globaltime.UTC().Format(time.RFC3339)
	}

	validated, err := payloadschema.ValidateCoverageRecord(record)
	if err != nil {
		return model.IngestResult{}, err
	}

	line, err := json.Marshal(validated)
	if err != nil {
		return model.IngestResult{}, fmt.Errorf("marshal record: %w", err)
	}

	path := s.Path(validated.Buyer, validated.Quarter)
	result := model.IngestResult{StoredPath: path}

	err = filelock.With(path, func() error {
		if s.dedupe {
			duplicateOf, err := findURL(path, validated.URL)
			if err != nil {
				return err
			}
			if duplicateOf != "" {
				result.DuplicateOf = duplicateOf
				return nil
			}
		}

		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create ingest directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		if _, err := f.Write(append(line, '\n')); err != nil {
			_ = f.Close()
			return fmt.Errorf("append record: %w", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close %s: %w", path, err)
		}
		result.ID = validated.ID
		return nil
	})
	if err != nil {
		return model.IngestResult{}, err
	}

	event := s.logger.Info()
	if result.DuplicateOf != "" {
		event = s.logger.Debug()
	}
	event.
		Str("buyer", validated.Buyer).
		Str("quarter", validated.Quarter).
		Str("url", validated.URL).
		Str("stored_path", path).
		Str("duplicate_of", result.DuplicateOf).
		Int("facts", len(validated.Facts)).
		Msg("ingest completed")

	return result, nil
}

// findURL returns the stored id (or the URL when the stored line has no id)
// of the first record with the given URL. Unparseable lines are skipped.
func findURL(path, url string) (string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordLineBytes)
	for scanner.Scan() {
		var stored struct {
			ID  string `json:"id"`
			URL string `json:"url"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &stored); err != nil {
			continue
		}
		if stored.URL == url {
			if stored.ID != "" {
				return stored.ID, nil
			}
			return stored.URL, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan %s: %w", path, err)
	}
	return "", nil
}

// ReadRecords decodes every parseable line of a JSON-lines file.
func ReadRecords(path string) ([]payloadschema.CoverageRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var records []payloadschema.CoverageRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordLineBytes)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var record payloadschema.CoverageRecord
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			continue
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	return records, nil
}

// QuarterRecords loads every buyer's records for one quarter, keyed by the
// buyer named in the records.
func (s *Store) QuarterRecords(quarter string) (map[string][]payloadschema.CoverageRecord, error) {
	pattern := filepath.Join(s.root, "*", pathSegment(quarter)+".jsonl")
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	sort.Strings(paths)

	byBuyer := make(map[string][]payloadschema.CoverageRecord)
	for _, path := range paths {
		records, err := ReadRecords(path)
		if err != nil {
			return nil, err
		}
		for _, record := range records {
			byBuyer[record.Buyer] = append(byBuyer[record.Buyer], record)
		}
	}
	return byBuyer, nil
}
