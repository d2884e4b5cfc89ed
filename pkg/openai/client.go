package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/cellarbook-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/cellarbook-backend/pkg/errors"
)

const (
	defaultBaseURL              = "https://api.openai.com/v1"
	defaultVisionModel          = "gpt-4o"
	defaultEnrichModel          = "gpt-4o"
	defaultPriceModel           = "gpt-4o-search-preview"
	defaultMaxTokens            = 300
	responseBodyReadLimit int64 = 1024
)

var errAPIKeyRequired = errors.New("openai api key is required")

type callRecorder interface {
	Observe(operation string, elapsed time.Duration, err error)
}

// Client talks to the OpenAI chat completions API on behalf of the wine
// catalog: label reading, enrichment, and price lookup.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	visionModel string
	enrichModel string
	priceModel  string
	metrics     callRecorder
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithModels overrides the vision, enrichment, and pricing models. Blank
// values keep the defaults.
func WithModels(vision, enrich, price string) Option {
	return func(c *Client) {
		if v := strings.TrimSpace(vision); v != "" {
			c.visionModel = v
		}
		if v := strings.TrimSpace(enrich); v != "" {
			c.enrichModel = v
		}
		if v := strings.TrimSpace(price); v != "" {
			c.priceModel = v
		}
	}
}

// WithMetrics records call latency and failures.
func WithMetrics(recorder callRecorder) Option {
	return func(c *Client) {
		c.metrics = recorder
	}
}

// NewClient builds the client given an API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		apiKey:      trimmedKey,
		baseURL:     defaultBaseURL,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		visionModel: defaultVisionModel,
		enrichModel: defaultEnrichModel,
		priceModel:  defaultPriceModel,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// NewFromConfig wires a client from the AI config section.
func NewFromConfig(cfg config.AIConfig, opts ...Option) (*Client, error) {
	base := []Option{
		WithBaseURL(cfg.BaseURL),
		WithModels(cfg.VisionModel, cfg.EnrichModel, cfg.PriceModel),
	}
	if cfg.Timeout > 0 {
		base = append(base, WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}
	return NewClient(cfg.APIKey, append(base, opts...)...)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model            string          `json:"model"`
	Messages         []chatMessage   `json:"messages"`
	MaxTokens        int             `json:"max_tokens,omitempty"`
	Temperature      *float64        `json:"temperature,omitempty"`
	ResponseFormat   *responseFormat `json:"response_format,omitempty"`
	WebSearchOptions *struct{}       `json:"web_search_options,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func jsonObjectRequest(model, system string, user any) chatRequest {
	zero := 0.0
	return chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:      defaultMaxTokens,
		Temperature:    &zero,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}
}

// complete sends one chat completion and returns the first choice's content.
func (c *Client) complete(ctx context.Context, operation string, req chatRequest) (content string, err error) {
	if c == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "openai client not configured")
	}
	started := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.Observe(operation, time.Since(started), err)
		}
	}()

	payload, err := json.Marshal(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal "+operation+" request")
	}

	url := strings.TrimRight(c.baseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build "+operation+" request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute "+operation+" request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), operation+" request failed")
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+operation+" response")
	}
	if len(decoded.Choices) == 0 || strings.TrimSpace(decoded.Choices[0].Message.Content) == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "empty "+operation+" response")
	}
	return decoded.Choices[0].Message.Content, nil
}

// describe joins the known descriptor fields into a single line.
func describe(d Descriptor, includeDesignation bool) string {
	parts := []string{strings.TrimSpace(d.Brand)}
	if d.Varietal != nil && strings.TrimSpace(*d.Varietal) != "" {
		parts = append(parts, strings.TrimSpace(*d.Varietal))
	}
	if d.Vintage != nil {
		parts = append(parts, fmt.Sprintf("%d", *d.Vintage))
	}
	if d.Region != nil && strings.TrimSpace(*d.Region) != "" {
		parts = append(parts, strings.TrimSpace(*d.Region))
	}
	if includeDesignation && d.Designation != nil && strings.TrimSpace(*d.Designation) != "" {
		parts = append(parts, strings.TrimSpace(*d.Designation))
	}
	return strings.Join(parts, ", ")
}
