// Package taxonomy maps free-form classifier category paths onto the closed
// set of report sections and subheadings.
package taxonomy

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"horse.fit/news-coverage/internal/model"
)

// Sections lists the report sections in the order reports render them.
var Sections = []string{
	model.SectionHighlights,
	model.SectionOrg,
	model.SectionContent,
	model.SectionStrategy,
	model.SectionIR,
	model.SectionMA,
}

var allowedSubheadings = map[string]struct{}{
	model.SubheadingGNS:         {},
	model.SubheadingExecChanges: {},
	"Development":               {},
	"Greenlights":               {},
	"Pickups":                   {},
	"Dating":                    {},
	"Renewals":                  {},
	"Cancellations":             {},
	"Film":                      {},
	"TV":                        {},
	"International":             {},
	"Sports":                    {},
	"Podcasts":                  {},
	"Strategy":                  {},
	"Misc. News":                {},
	"Quarterly Earnings":        {},
	"Company Materials":         {},
	"News Coverage":             {},
	"Analyst Perspective":       {},
	"IR Conferences":            {},
	"None":                      {},
}

// sectionNames folds the top-level spellings seen from classifiers. Keys are
// lower-case.
var sectionNames = map[string]string{
	"content, deals & distribution":  model.SectionContent,
	"content, deals, distribution":   model.SectionContent,
	"content / deals / distribution": model.SectionContent,
	"content/deals/distribution":     model.SectionContent,
	"strategy & miscellaneous news":  model.SectionStrategy,
	"investor relations":             model.SectionIR,
	"org":                            model.SectionOrg,
	"m&a":                            model.SectionMA,
	"highlights from the quarter":    model.SectionHighlights,
	"highlights from this quarter":   model.SectionHighlights,
	"highlights":                     model.SectionHighlights,
}

// IsSection reports whether name is one of the report sections.
func IsSection(name string) bool {
	for _, section := range Sections {
		if section == name {
			return true
		}
	}
	return false
}

// IsAllowedSubheading reports whether name is one of the fixed subheadings.
func IsAllowedSubheading(name string) bool {
	_, ok := allowedSubheadings[name]
	return ok
}

// SplitPath splits a category path on the arrow separator and trims each
// segment. Empty segments are dropped.
func SplitPath(path string) []string {
	path = strings.ReplaceAll(path, "→", model.ArrowSeparator)
	raw := strings.Split(path, model.ArrowSeparator)
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

// JoinPath joins segments with the canonical separator.
func JoinPath(parts ...string) string {
	return strings.Join(parts, " "+model.ArrowSeparator+" ")
}

// CleanPath rewrites a path into canonical spacing and separators.
func CleanPath(path string) string {
	return JoinPath(SplitPath(path)...)
}

// NormalizeCategory unwraps classifier output of the form
// {"category": "...", "confidence": 0.87}. Anything else is returned trimmed
// as the path, with no confidence.
func NormalizeCategory(raw string) (string, *float64) {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "{") {
		return text, nil
	}

	var payload map[string]any
	decoder := json.NewDecoder(bytes.NewBufferString(text))
	decoder.UseNumber()
	if err := decoder.Decode(&payload); err != nil {
		return text, nil
	}

	category, _ := payload["category"].(string)
	return strings.TrimSpace(category), confidenceValue(payload["confidence"])
}

func confidenceValue(raw any) *float64 {
	switch v := raw.(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil
		}
		return &f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

// Parse maps a category path to its section and subheading. The subheading
// is nil when the path has a single segment. A top-level segment outside the
// section list lands in Strategy & Miscellaneous News.
func Parse(path string) (string, *string) {
	parts := SplitPath(path)
	if len(parts) == 0 {
		return model.SectionStrategy, model.StringPtr(model.SubheadingGNS)
	}

	section, ok := LookupSection(parts[0])
	if !ok {
		section = model.SectionStrategy
	}
	if len(parts) == 1 {
		return section, nil
	}

	subheading := parts[len(parts)-1]
	if subheading == section || subheading == parts[0] {
		subheading = parts[1]
	}
	normalized := normalizeSubheading(subheading)
	return section, &normalized
}

// ParseOrDefault is Parse with a nil subheading replaced by the general bucket.
func ParseOrDefault(path string) (string, string) {
	section, subheading := Parse(path)
	if subheading == nil {
		return section, model.SubheadingGNS
	}
	return section, *subheading
}

// LookupSection folds a top-level path segment onto a report section.
func LookupSection(top string) (string, bool) {
	key := strings.ToLower(strings.Join(strings.Fields(top), " "))
	if name, ok := sectionNames[key]; ok {
		return name, true
	}
	if strings.HasPrefix(key, "highlights") {
		return model.SectionHighlights, true
	}
	return "", false
}

func normalizeSubheading(value string) string {
	lowered := strings.ToLower(value)
	switch {
	case strings.Contains(lowered, "analyst"):
		value = "Analyst Perspective"
	case strings.Contains(lowered, "conference"):
		value = "IR Conferences"
	case strings.HasPrefix(lowered, "misc"):
		value = "Misc. News"
	case strings.HasPrefix(lowered, "strategy"):
		value = "Strategy"
	}
	if !IsAllowedSubheading(value) {
		return model.SubheadingGNS
	}
	return value
}

// Display formats a category path for delivery text. Compound top-level
// names are split so each part reads as its own segment.
func Display(path string) string {
	raw := SplitPath(path)
	if len(raw) == 0 {
		return model.SubheadingGNS
	}

	parts := make([]string, 0, len(raw)+2)
	for idx, part := range raw {
		if idx == 0 && strings.HasPrefix(part, "Content, Deals & Distribution") {
			parts = append(parts, "Content, Deals, Distribution")
			continue
		}
		if part == "Deals & Distribution" {
			parts = append(parts, "Deals, Distribution")
			continue
		}
		var slashParts []string
		for _, piece := range strings.Split(part, "/") {
			if piece = strings.TrimSpace(piece); piece != "" {
				slashParts = append(slashParts, piece)
			}
		}
		if len(slashParts) > 1 {
			parts = append(parts, slashParts...)
			continue
		}
		parts = append(parts, part)
	}
	return JoinPath(parts...)
}
