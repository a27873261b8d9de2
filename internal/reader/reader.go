// Package reader fills in article bodies fetched from the article URL.
package reader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "codeberg.org/readeck/go-readability/v2"

	"horse.fit/news-coverage/internal/model"
)

const (
	DefaultFetchTimeout  = 15 * time.Second
	DefaultBodyByteLimit = 4 * 1024 * 1024

	defaultUserAgent = "news-coverage/1.0"
)

type Options struct {
	Timeout       time.Duration
	BodyByteLimit int64
	UserAgent     string
	HTTPClient    *http.Client
}

type Page struct {
	Title string
	Text  string
}

// Fetch downloads pageURL and extracts its readable text. Plain-text
// responses are returned as-is after whitespace cleanup.
func Fetch(ctx context.Context, pageURL string, opts Options) (Page, error) {
	page := strings.TrimSpace(pageURL)
	if page == "" {
		return Page{}, fmt.Errorf("article url is required")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	bodyLimit := opts.BodyByteLimit
	if bodyLimit <= 0 {
		bodyLimit = DefaultBodyByteLimit
	}

	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, page, nil)
	if err != nil {
		return Page{}, fmt.Errorf("build request: %w", err)
	}
	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Page{}, fmt.Errorf("fetch status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, bodyLimit))
	if err != nil {
		return Page{}, fmt.Errorf("read body: %w", err)
	}

	contentType := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Type")))
	if strings.HasPrefix(contentType, "text/plain") {
		text := CleanText(string(body))
		if text == "" {
			return Page{}, fmt.Errorf("reader extracted empty content")
		}
		return Page{Text: text}, nil
	}

	parsedURL, err := url.Parse(page)
	if err != nil {
		return Page{}, fmt.Errorf("parse page url: %w", err)
	}
	article, err := readability.FromReader(bytes.NewReader(body), parsedURL)
	if err != nil {
		return Page{}, fmt.Errorf("readability parse: %w", err)
	}

	var rendered bytes.Buffer
	if err := article.RenderText(&rendered); err != nil {
		return Page{}, fmt.Errorf("render readability text: %w", err)
	}
	text := CleanText(rendered.String())
	if text == "" {
		text = CleanText(article.Excerpt())
	}
	if text == "" {
		return Page{}, fmt.Errorf("reader extracted empty content")
	}
	return Page{Title: strings.TrimSpace(article.Title()), Text: text}, nil
}

// Fill fetches the article body when it is blank. Title and source are only
// filled when missing; the source falls back to the URL host.
func Fill(ctx context.Context, article model.Article, opts Options) (model.Article, error) {
	if strings.TrimSpace(article.Content) != "" {
		return article, nil
	}
	page, err := Fetch(ctx, article.URL, opts)
	if err != nil {
		return article, err
	}
	article.Content = page.Text
	if strings.TrimSpace(article.Title) == "" {
		article.Title = page.Title
	}
	if strings.TrimSpace(article.Source) == "" {
		if parsed, err := url.Parse(article.URL); err == nil {
			article.Source = strings.TrimPrefix(parsed.Hostname(), "www.")
		}
	}
	return article, nil
}

// CleanText normalizes line endings, collapses in-line whitespace and keeps
// paragraphs separated by one blank line.
func CleanText(raw string) string {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	lines := strings.Split(normalized, "\n")
	paragraphs := make([]string, 0, len(lines))
	for _, line := range lines {
		if clean := strings.Join(strings.Fields(line), " "); clean != "" {
			paragraphs = append(paragraphs, clean)
		}
	}
	return strings.Join(paragraphs, "\n\n")
}
