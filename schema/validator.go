package payloadschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed coverage_record.schema.json
var coverageRecordSchemaJSON string

const (
	schemaResource    = "coverage_record.schema.json"
	defaultSubheading = "General News & Strategy"
)

// CoverageRecord is one stored article with its facts.
type CoverageRecord struct {
	ID                  string       `json:"id,omitempty"`
	CapturedAt          string       `json:"captured_at,omitempty"`
	Buyer               string       `json:"buyer"`
	Quarter             string       `json:"quarter"`
	Title               string       `json:"title"`
	Source              string       `json:"source"`
	URL                 string       `json:"url"`
	PublishedAt         string       `json:"published_at"`
	ClassificationNotes string       `json:"classification_notes"`
	Facts               []FactRecord `json:"facts"`
}

type FactRecord struct {
	FactID       string   `json:"fact_id"`
	CategoryPath string   `json:"category_path"`
	Section      string   `json:"section"`
	Subheading   string   `json:"subheading"`
	Buyer        string   `json:"buyer"`
	Quarter      string   `json:"quarter"`
	PublishedAt  string   `json:"published_at"`
	ContentLine  string   `json:"content_line"`
	SummaryLines []string `json:"summary_lines"`
}

// ValidationError marks a payload rejected by decoding, the schema or the
// semantic checks, as opposed to a failure loading the schema itself.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// ValidateCoverageRecordPayload decodes, lifts legacy single-category
// payloads and validates the result against the coverage record schema.
func ValidateCoverageRecordPayload(payload json.RawMessage) (*CoverageRecord, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, &ValidationError{Err: fmt.Errorf("decode payload JSON: %w", err)}
	}

	if object, ok := value.(map[string]any); ok {
		value = LiftLegacy(object)
	}
	return validateValue(value)
}

// ValidateCoverageRecord runs a record built in-process through the same
// schema and semantic checks as submitted payloads.
func ValidateCoverageRecord(record CoverageRecord) (*CoverageRecord, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	value, err := decodeStrictJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("decode record JSON: %w", err)
	}
	return validateValue(value)
}

func validateValue(value any) (*CoverageRecord, error) {
	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, &ValidationError{Err: fmt.Errorf("schema validation failed: %w", err)}
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize payload JSON: %w", err)
	}

	var record CoverageRecord
	if err := json.Unmarshal(normalized, &record); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := validateSemantics(&record); err != nil {
		return nil, &ValidationError{Err: err}
	}

	return &record, nil
}

// LiftLegacy rewrites the older single-category payload shape into the
// facts shape. "company" becomes "buyer" at both levels, "summary_bullets"
// becomes "summary_lines", and a payload with flat section, subheading,
// summary or bullets fields and no facts gets exactly one fact built from
// them. Other payloads are returned unchanged.
func LiftLegacy(payload map[string]any) map[string]any {
	lifted := make(map[string]any, len(payload))
	for key, value := range payload {
		lifted[key] = value
	}

	renameKey(lifted, "company", "buyer")

	section, hasSection := lifted["section"]
	subheading, hasSubheading := lifted["subheading"]
	summary, hasSummary := lifted["summary"]
	bullets, hasBullets := lifted["bullets"]
	for _, key := range []string{"section", "subheading", "summary", "bullets"} {
		delete(lifted, key)
	}

	if _, hasFacts := lifted["facts"]; !hasFacts && (hasSection || hasSubheading || hasSummary || hasBullets) {
		lifted["facts"] = []any{legacyFact(lifted, section, subheading, summary, bullets)}
	}

	if facts, ok := lifted["facts"].([]any); ok {
		out := make([]any, 0, len(facts))
		for _, item := range facts {
			fact, ok := item.(map[string]any)
			if !ok {
				out = append(out, item)
				continue
			}
			copied := make(map[string]any, len(fact))
			for key, value := range fact {
				copied[key] = value
			}
			renameKey(copied, "company", "buyer")
			renameKey(copied, "summary_bullets", "summary_lines")
			for _, key := range []string{"buyer", "quarter", "published_at"} {
				if _, ok := copied[key]; !ok {
					if value, ok := lifted[key]; ok {
						copied[key] = value
					}
				}
			}
			out = append(out, copied)
		}
		lifted["facts"] = out
	}

	return lifted
}

func legacyFact(record map[string]any, section, subheading, summary, bullets any) map[string]any {
	sectionText := stringValue(section)
	subheadingText := stringValue(subheading)
	if subheadingText == "" {
		subheadingText = defaultSubheading
	}

	var lines []any
	if list, ok := bullets.([]any); ok {
		for _, item := range list {
			if text := stringValue(item); text != "" {
				lines = append(lines, text)
			}
		}
	}
	content := stringValue(summary)
	if content == "" && len(lines) > 0 {
		content = lines[0].(string)
	}
	if len(lines) == 0 && content != "" {
		lines = []any{content}
	}

	fact := map[string]any{
		"fact_id":       "fact-1",
		"category_path": sectionText + " -> " + subheadingText,
		"section":       sectionText,
		"subheading":    subheadingText,
		"content_line":  content,
		"summary_lines": lines,
	}
	if lines == nil {
		fact["summary_lines"] = []any{}
	}
	for _, key := range []string{"buyer", "quarter", "published_at"} {
		if value, ok := record[key]; ok {
			fact[key] = value
		}
	}
	return fact
}

func renameKey(object map[string]any, from, to string) {
	value, ok := object[from]
	if !ok {
		return
	}
	delete(object, from)
	if _, exists := object[to]; !exists {
		object[to] = value
	}
}

func stringValue(value any) string {
	text, _ := value.(string)
	return strings.TrimSpace(text)
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource(schemaResource, strings.NewReader(coverageRecordSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile(schemaResource)
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}

func validateSemantics(record *CoverageRecord) error {
	if record == nil {
		return fmt.Errorf("payload is nil")
	}

	if strings.TrimSpace(record.Buyer) == "" {
		return fmt.Errorf("buyer must not be empty")
	}
	if strings.TrimSpace(record.Title) == "" {
		return fmt.Errorf("title must not be empty")
	}
	if strings.TrimSpace(record.Source) == "" {
		return fmt.Errorf("source must not be empty")
	}
	if err := validateURI("url", record.URL); err != nil {
		return err
	}
	if err := validateDate("published_at", record.PublishedAt); err != nil {
		return err
	}
	if record.CapturedAt != "" {
		if _, err := time.Parse(time.RFC3339, strings.TrimSpace(record.CapturedAt)); err != nil {
			return fmt.Errorf("captured_at must be RFC3339: %w", err)
		}
	}

	for i, fact := range record.Facts {
		if strings.TrimSpace(fact.ContentLine) == "" {
			return fmt.Errorf("facts[%d].content_line must not be empty", i)
		}
		if err := validateDate(fmt.Sprintf("facts[%d].published_at", i), fact.PublishedAt); err != nil {
			return err
		}
		for j, line := range fact.SummaryLines {
			if strings.TrimSpace(line) == "" {
				return fmt.Errorf("facts[%d].summary_lines[%d] must not be empty", i, j)
			}
		}
	}

	return nil
}

func validateURI(fieldName, value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fmt.Errorf("%s must not be empty", fieldName)
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return fmt.Errorf("%s is not a valid URI: %w", fieldName, err)
	}
	return nil
}

func validateDate(fieldName, value string) error {
	if _, err := time.Parse(time.DateOnly, strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("%s must be an ISO date: %w", fieldName, err)
	}
	return nil
}
