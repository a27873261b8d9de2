// Package llm is a small client for OpenAI-compatible chat completion
// endpoints.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultEndpoint = "https://api.openai.com/v1"

	ReasonMaxOutputTokens = "max_output_tokens"
	ReasonContentFilter   = "content_filter"
)

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func System(content string) Message {
	return Message{Role: "system", Content: content}
}

func User(content string) Message {
	return Message{Role: "user", Content: content}
}

// Request is a chat completion request. Zero MaxTokens leaves output
// uncapped; nil Temperature leaves the model default.
type Request struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature *float64
}

// TemperatureFor returns t for models that accept a sampling temperature
// and nil for the gpt-5 family, which only runs at its default.
func TemperatureFor(model string, t float64) *float64 {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gpt-5") {
		return nil
	}
	return &t
}

// Completion is the first choice of a chat completion.
type Completion struct {
	ID           string
	Text         string
	FinishReason string
}

// IncompleteReason maps the finish reason to why output stopped early, or
// "" when the model finished normally.
func (c Completion) IncompleteReason() string {
	switch c.FinishReason {
	case "length":
		return ReasonMaxOutputTokens
	case "content_filter":
		return ReasonContentFilter
	default:
		return ""
	}
}

// IncompleteError reports a response that stopped before producing any
// usable text.
type IncompleteError struct {
	Step   string
	Reason string
}

func (e *IncompleteError) Error() string {
	msg := fmt.Sprintf("%s response incomplete (reason=%s).", e.Step, e.Reason)
	if e.Reason == ReasonMaxOutputTokens {
		msg += " Increase MAX_TOKENS, set it to 0 to remove the cap, or reduce the article length."
	}
	return msg
}

// TextOrError returns the completion text. Partial text from a truncated
// response is still returned; only an empty response is an error.
func (c Completion) TextOrError(step string) (string, error) {
	if strings.TrimSpace(c.Text) != "" {
		return c.Text, nil
	}
	if reason := c.IncompleteReason(); reason != "" {
		return "", &IncompleteError{Step: step, Reason: reason}
	}
	return "", fmt.Errorf("%s response missing output text", step)
}

// Completer is what the classifier and summarizer call.
type Completer interface {
	Complete(ctx context.Context, req Request) (Completion, error)
}

type Options struct {
	Endpoint          string
	APIKey            string
	Timeout           time.Duration
	RequestsPerSecond float64
	HTTPClient        *http.Client
}

// Client calls {endpoint}/chat/completions, pacing requests with a shared
// limiter.
type Client struct {
	endpointURL string
	apiKey      string
	client      *http.Client
	limiter     *rate.Limiter
}

func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 90 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &Client{
		endpointURL: chatCompletionsURL(normalizeEndpoint(opts.Endpoint)),
		apiKey:      strings.TrimSpace(opts.APIKey),
		client:      httpClient,
		limiter:     rate.NewLimiter(limit, 1),
	}
}

// EndpointURL is the resolved chat completions URL.
func (c *Client) EndpointURL() string {
	return c.endpointURL
}

func (c *Client) Complete(ctx context.Context, req Request) (Completion, error) {
	if c == nil {
		return Completion{}, fmt.Errorf("llm client is nil")
	}
	if strings.TrimSpace(req.Model) == "" {
		return Completion{}, fmt.Errorf("model is required")
	}
	if len(req.Messages) == 0 {
		return Completion{}, fmt.Errorf("at least one message is required")
	}

	payload := chatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
	}
	if req.MaxTokens > 0 {
		payload.MaxCompletionTokens = req.MaxTokens
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Completion{}, fmt.Errorf("marshal chat request: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return Completion{}, fmt.Errorf("wait for rate limiter: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpointURL, bytes.NewReader(body))
	if err != nil {
		return Completion{}, fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Completion{}, fmt.Errorf("send chat request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Completion{}, fmt.Errorf("read chat response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errPayload chatErrorResponse
		if unmarshalErr := json.Unmarshal(respBody, &errPayload); unmarshalErr == nil {
			if msg := strings.TrimSpace(errPayload.Error.Message); msg != "" {
				return Completion{}, fmt.Errorf("chat endpoint status %d: %s", resp.StatusCode, msg)
			}
		}
		return Completion{}, fmt.Errorf("chat endpoint status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return Completion{}, fmt.Errorf("decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return Completion{}, fmt.Errorf("chat response missing choices")
	}

	choice := parsed.Choices[0]
	return Completion{
		ID:           parsed.ID,
		Text:         choice.Message.Content,
		FinishReason: choice.FinishReason,
	}, nil
}

type chatRequest struct {
	Model               string    `json:"model"`
	Messages            []Message `json:"messages"`
	MaxCompletionTokens int       `json:"max_completion_tokens,omitempty"`
	Temperature         *float64  `json:"temperature,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func normalizeEndpoint(raw string) string {
	endpoint := strings.TrimSpace(raw)
	if endpoint == "" {
		return DefaultEndpoint
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}

	parsed, err := url.Parse(endpoint)
	if err != nil || strings.TrimSpace(parsed.Host) == "" {
		return DefaultEndpoint
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/")
	if parsed.Path == "" {
		parsed.Path = "/v1"
	}
	return parsed.String()
}

func chatCompletionsURL(endpoint string) string {
	parsed, err := url.Parse(endpoint)
	if err != nil || strings.TrimSpace(parsed.Host) == "" {
		return DefaultEndpoint + "/chat/completions"
	}

	path := strings.TrimRight(parsed.Path, "/")
	switch {
	case strings.HasSuffix(path, "/chat/completions"):
		parsed.Path = path
	case strings.HasSuffix(path, "/v1"):
		parsed.Path = path + "/chat/completions"
	case path == "":
		parsed.Path = "/v1/chat/completions"
	default:
		parsed.Path = path + "/v1/chat/completions"
	}

	return parsed.String()
}
