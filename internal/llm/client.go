package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/spherical/cheque-extractor/internal/domain"
)

const (
	defaultEndpoint  = "https://api.openai.com/v1/chat/completions"
	defaultModel     = "gpt-4-turbo"
	defaultMaxTokens = 600
	defaultTimeout   = 120 * time.Second

	// errorBodyLimit caps how much of a non-2xx body is kept on the error.
	errorBodyLimit = 2048
)

// Config configures the model client
type Config struct {
	APIKey    string
	Endpoint  string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// Client performs single chat-completions exchanges with a vision model
type Client struct {
	apiKey     string
	endpoint   string
	model      string
	maxTokens  int
	httpClient *http.Client
	logger     *domain.Logger
}

// Message represents a chat message
type Message struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// ContentPart represents a part of message content (text or image)
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL represents an inline image in the message
type ImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// Request represents the API request structure
type Request struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
}

// Response represents the API response structure
type Response struct {
	ID      string   `json:"id"`
	Choices []Choice `json:"choices"`
}

// Choice represents a single completion choice
type Choice struct {
	Message      ChoiceMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

// ChoiceMessage is the assistant message of a choice
type ChoiceMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// HTTPStatusError is returned for non-2xx responses
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("API returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Body)
}

// NewClient creates a new model client
func NewClient(cfg Config, logger *domain.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = domain.DefaultLogger
	}

	return &Client{
		apiKey:     cfg.APIKey,
		endpoint:   cfg.Endpoint,
		model:      cfg.Model,
		maxTokens:  cfg.MaxTokens,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.WithPrefix("llm"),
	}
}

// Complete sends the cheque image with the extraction prompt and returns the
// content of the first choice. It does not interpret the content.
func (c *Client) Complete(ctx context.Context, jpeg []byte) (string, error) {
	reqID := uuid.New().String()
	start := time.Now()

	body, err := json.Marshal(c.buildRequest(jpeg))
	if err != nil {
		return "", domain.APIError("Failed to marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", domain.APIError("Failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.logger.Debug("Sending request %s to %s (model %s, %d bytes)", reqID, c.endpoint, c.model, len(body))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("Request %s failed after %v: %v", reqID, time.Since(start), err)
		return "", domain.TransportError("Failed to send request", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domain.TransportError("Failed to read response body", err)
	}

	c.logger.Debug("Request %s returned status %d (%d bytes) in %v", reqID, resp.StatusCode, len(raw), time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", domain.NewError(domain.ErrorTypeHTTPStatus, "Model endpoint rejected request", &HTTPStatusError{
			StatusCode: resp.StatusCode,
			Body:       truncate(string(raw), errorBodyLimit),
		})
	}

	var parsed Response
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", domain.MalformedResponseError("Failed to decode response body",
			fmt.Errorf("%w: %v", domain.ErrNoChoices, err))
	}
	if len(parsed.Choices) == 0 {
		return "", domain.MalformedResponseError(
			fmt.Sprintf("Unexpected API response: %s", truncate(string(raw), errorBodyLimit)), domain.ErrNoChoices)
	}

	return parsed.Choices[0].Message.Content, nil
}

// buildRequest constructs the API request with the inline image
func (c *Client) buildRequest(jpeg []byte) *Request {
	imageURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpeg)

	msg := Message{
		Role: "user",
		Content: []ContentPart{
			{
				Type: "text",
				Text: BuildPrompt(),
			},
			{
				Type: "image_url",
				ImageURL: &ImageURL{
					URL:    imageURL,
					Detail: "high",
				},
			},
		},
	}

	return &Request{
		Model:     c.model,
		Messages:  []Message{msg},
		MaxTokens: c.maxTokens,
	}
}

// truncate shortens s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "…"
}
