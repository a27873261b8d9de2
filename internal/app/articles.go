package app

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/news-coverage/internal/model"
)

type articleFile struct {
	Title       string `json:"title"`
	Source      string `json:"source"`
	URL         string `json:"url"`
	PublishedAt string `json:"published_at"`
	Content     string `json:"content"`
}

var publishedLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// loadArticleFile reads one article object, or a list holding exactly one.
func loadArticleFile(path string) (model.Article, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return model.Article{}, fmt.Errorf("read %s: %w", path, err)
	}

	trimmed := strings.TrimSpace(string(raw))
	var file articleFile
	if strings.HasPrefix(trimmed, "[") {
		var list []articleFile
		if err := json.Unmarshal(raw, &list); err != nil {
			return model.Article{}, fmt.Errorf("decode %s: %w", path, err)
		}
		if len(list) != 1 {
			return model.Article{}, fmt.Errorf("%s must contain exactly one article object", path)
		}
		file = list[0]
	} else if err := json.Unmarshal(raw, &file); err != nil {
		return model.Article{}, fmt.Errorf("decode %s: %w", path, err)
	}

	article := model.Article{
		Title:   strings.TrimSpace(file.Title),
		Source:  strings.TrimSpace(file.Source),
		URL:     strings.TrimSpace(file.URL),
		Content: file.Content,
	}
	if article.URL == "" {
		return model.Article{}, fmt.Errorf("%s: url is required", path)
	}
	if published := strings.TrimSpace(file.PublishedAt); published != "" {
		parsed, err := parsePublished(published)
		if err != nil {
			return model.Article{}, fmt.Errorf("%s: %w", path, err)
		}
		article.PublishedAt = &parsed
	}
	return article, nil
}

// parsePublished accepts RFC3339, naive timestamps (read as UTC) and bare
// dates.
func parsePublished(value string) (time.Time, error) {
	for _, layout := range publishedLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("published_at %q is not an ISO date or timestamp", value)
}
