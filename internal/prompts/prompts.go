// Package prompts holds the instruction templates sent to the classifier
// and summarizer models.
package prompts

import (
	"embed"
	"fmt"
	"strings"
)

//go:embed *.txt
var files embed.FS

// Classifier is the name of the classification template.
const Classifier = "classifier"

// Load returns the template called name, without its .txt suffix.
func Load(name string) (string, error) {
	name = strings.TrimSuffix(strings.TrimSpace(name), ".txt")
	if name == "" {
		return "", fmt.Errorf("prompt name is required")
	}
	data, err := files.ReadFile(name + ".txt")
	if err != nil {
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Names lists every available template.
func Names() []string {
	entries, err := files.ReadDir(".")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, strings.TrimSuffix(entry.Name(), ".txt"))
	}
	return names
}
