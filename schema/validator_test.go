package payloadschema

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const validRecord = `{
	"buyer":"Netflix",
	"quarter":"2025 Q4",
	"title":"Netflix renews Show A",
	"source":"Variety",
	"url":"https://example.com/netflix-renews",
	"published_at":"2025-12-16",
	"classification_notes":"Content, Deals & Distribution -> TV -> Renewals",
	"facts":[{
		"fact_id":"fact-1",
		"category_path":"Content, Deals & Distribution -> TV -> Renewals",
		"section":"Content / Deals / Distribution",
		"subheading":"Renewals",
		"buyer":"Netflix",
		"quarter":"2025 Q4",
		"published_at":"2025-12-16",
		"content_line":"Show A: Netflix, drama",
		"summary_lines":["Show A: Netflix, drama"]
	}]
}`

func TestValidateCoverageRecordPayload_Valid(t *testing.T) {
	record, err := ValidateCoverageRecordPayload(json.RawMessage(validRecord))
	if err != nil {
		t.Fatalf("expected payload to be valid, got error: %v", err)
	}

	if record.Buyer != "Netflix" {
		t.Fatalf("expected buyer=Netflix, got %q", record.Buyer)
	}
	if len(record.Facts) != 1 || record.Facts[0].Subheading != "Renewals" {
		t.Fatalf("unexpected facts: %+v", record.Facts)
	}
}

func TestValidateCoverageRecordPayload_BadQuarter(t *testing.T) {
	payload := strings.Replace(validRecord, `"quarter":"2025 Q4",
	"title"`, `"quarter":"Q4 2025",
	"title"`, 1)

	_, err := ValidateCoverageRecordPayload(json.RawMessage(payload))
	if err == nil {
		t.Fatalf("expected validation to fail for malformed quarter")
	}
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
}

func TestValidateCoverageRecordPayload_EmptyFacts(t *testing.T) {
	var value map[string]any
	if err := json.Unmarshal([]byte(validRecord), &value); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}
	value["facts"] = []any{}
	raw, _ := json.Marshal(value)

	_, err := ValidateCoverageRecordPayload(raw)
	if err == nil {
		t.Fatalf("expected validation to fail for empty facts")
	}
}

func TestValidateCoverageRecordPayload_WhitespaceTitle(t *testing.T) {
	payload := strings.Replace(validRecord, `"title":"Netflix renews Show A"`, `"title":"   "`, 1)

	_, err := ValidateCoverageRecordPayload(json.RawMessage(payload))
	if err == nil {
		t.Fatalf("expected validation to fail for whitespace-only title")
	}
	if !strings.Contains(err.Error(), "title must not be empty") {
		t.Fatalf("expected title semantic error, got: %v", err)
	}
}

func TestValidateCoverageRecordPayload_InvalidPublishedAt(t *testing.T) {
	payload := strings.Replace(validRecord, `"published_at":"2025-12-16",
	"classification_notes"`, `"published_at":"12/16/2025",
	"classification_notes"`, 1)

	_, err := ValidateCoverageRecordPayload(json.RawMessage(payload))
	if err == nil {
		t.Fatalf("expected validation to fail for non-ISO published_at")
	}
}

func TestValidateCoverageRecordPayload_TrailingContent(t *testing.T) {
	_, err := ValidateCoverageRecordPayload(json.RawMessage(validRecord + ` {}`))
	if err == nil || !strings.Contains(err.Error(), "trailing content") {
		t.Fatalf("expected trailing content error, got %v", err)
	}
}

func TestValidateCoverageRecordPayload_UnknownSection(t *testing.T) {
	payload := strings.Replace(validRecord, `"section":"Content / Deals / Distribution"`, `"section":"Gossip"`, 1)

	_, err := ValidateCoverageRecordPayload(json.RawMessage(payload))
	if err == nil {
		t.Fatalf("expected validation to fail for unknown section")
	}
}

func TestValidateCoverageRecordPayload_LegacyShape(t *testing.T) {
	payload := json.RawMessage(`{
		"company":"Disney",
		"quarter":"2025 Q3",
		"title":"Disney greenlights Show B",
		"source":"Deadline",
		"url":"https://example.com/disney-show-b",
		"published_at":"2025-08-02",
		"classification_notes":"Content, Deals & Distribution -> TV -> Greenlights",
		"section":"Content / Deals / Distribution",
		"subheading":"Greenlights",
		"summary":"Show B: Disney+, comedy",
		"bullets":["Show B: Disney+, comedy","Show C: Hulu, drama"]
	}`)

	record, err := ValidateCoverageRecordPayload(payload)
	if err != nil {
		t.Fatalf("expected legacy payload to be lifted, got error: %v", err)
	}

	want := []FactRecord{{
		FactID:       "fact-1",
		CategoryPath: "Content / Deals / Distribution -> Greenlights",
		Section:      "Content / Deals / Distribution",
		Subheading:   "Greenlights",
		Buyer:        "Disney",
		Quarter:      "2025 Q3",
		PublishedAt:  "2025-08-02",
		ContentLine:  "Show B: Disney+, comedy",
		SummaryLines: []string{"Show B: Disney+, comedy", "Show C: Hulu, drama"},
	}}
	if record.Buyer != "Disney" {
		t.Fatalf("expected company to become buyer, got %q", record.Buyer)
	}
	if diff := cmp.Diff(want, record.Facts); diff != "" {
		t.Fatalf("lifted facts mismatch (-want +got):\n%s", diff)
	}
}

func TestLiftLegacyRenamesFactKeys(t *testing.T) {
	lifted := LiftLegacy(map[string]any{
		"company": "Apple",
		"quarter": "2025 Q1",
		"facts": []any{map[string]any{
			"fact_id":         "fact-1",
			"company":         "Apple",
			"summary_bullets": []any{"Line"},
		}},
	})

	if _, ok := lifted["company"]; ok {
		t.Fatalf("company key should be renamed")
	}
	fact := lifted["facts"].([]any)[0].(map[string]any)
	if fact["buyer"] != "Apple" || fact["quarter"] != "2025 Q1" {
		t.Fatalf("unexpected lifted fact: %+v", fact)
	}
	if _, ok := fact["summary_lines"]; !ok {
		t.Fatalf("summary_bullets should become summary_lines: %+v", fact)
	}
}

func TestValidateCoverageRecordRoundTripsStruct(t *testing.T) {
	var record CoverageRecord
	if err := json.Unmarshal([]byte(validRecord), &record); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}
	record.ID = "6f1c2a52-9f0e-4c43-9d49-3c1bd0b1a2f4"
	record.CapturedAt = "2025-12-16T10:00:00Z"

	got, err := ValidateCoverageRecord(record)
	if err != nil {
		t.Fatalf("ValidateCoverageRecord() error = %v", err)
	}
	if diff := cmp.Diff(record, *got); diff != "" {
		t.Fatalf("record changed during validation (-want +got):\n%s", diff)
	}
}
