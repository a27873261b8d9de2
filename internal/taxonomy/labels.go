package taxonomy

import (
	"strings"

	"horse.fit/news-coverage/internal/model"
)

// factLabels maps the lower-case label before a colon to the subheading it
// selects.
var factLabels = map[string]string{
	"greenlights":   "Greenlights",
	"greenlight":    "Greenlights",
	"renewals":      "Renewals",
	"renewal":       "Renewals",
	"development":   "Development",
	"pickup":        "Pickups",
	"pickups":       "Pickups",
	"cancellations": "Cancellations",
	"cancellation":  "Cancellations",
	"dating":        "Dating",
	"exec changes":  "Exec Changes",
	"exec change":   "Exec Changes",
	"general":       "General News & Strategy",
}

// ContentListSubheadings are the multi-title content buckets.
var ContentListSubheadings = []string{
	"Development",
	"Greenlights",
	"Pickups",
	"Dating",
	"Renewals",
	"Cancellations",
}

// IsFactLabel reports whether label (any case) is a recognized fact label.
func IsFactLabel(label string) bool {
	_, ok := factLabels[strings.ToLower(strings.TrimSpace(label))]
	return ok
}

// SplitLabel extracts a leading fact label: "Greenlights: Foo" returns
// ("Greenlights", "Foo"). Lines without a recognized label come back with an
// empty label and the trimmed text.
func SplitLabel(text string) (string, string) {
	possible, rest, found := strings.Cut(text, ":")
	if found {
		if subheading, ok := factLabels[strings.ToLower(strings.TrimSpace(possible))]; ok {
			return subheading, strings.TrimSpace(rest)
		}
	}
	return "", strings.TrimSpace(text)
}

// FactCategory combines the classifier's path with a label-derived
// subheading, keeping the classifier's higher-level segments.
func FactCategory(base, label string) (path, section, subheading string) {
	parts := SplitPath(base)
	if len(parts) == 0 {
		return model.SubheadingGNS, model.SectionStrategy, model.SubheadingGNS
	}

	prefix := parts
	if len(parts) > 1 {
		prefix = parts[:len(parts)-1]
	}
	sub := label
	if sub == "" {
		sub = parts[len(parts)-1]
	}

	segments := append(append([]string{}, prefix...), sub)
	if len(parts) == 1 && label == "" {
		segments = prefix
	}
	path = JoinPath(segments...)
	section, subheading = ParseOrDefault(path)
	return path, section, subheading
}

// IsContentListBucket reports whether a classification section/category
// describes one of the multi-title content buckets.
func IsContentListBucket(section, subheading, category string) bool {
	if section != model.SectionContent {
		return false
	}
	for _, name := range ContentListSubheadings {
		if subheading == name {
			return true
		}
	}
	lower := strings.ToLower(category)
	for _, name := range ContentListSubheadings {
		if strings.Contains(lower, strings.ToLower(name)) {
			return true
		}
	}
	return false
}
