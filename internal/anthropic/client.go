// Package anthropic wraps the Anthropic Messages API for single-turn text completion.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

var (
	// ErrEmptyInput is returned when Complete is called with an empty prompt.
	ErrEmptyInput = errors.New("anthropic: prompt is empty")
	// ErrNoTextInResponse is returned when the response has no text content blocks.
	ErrNoTextInResponse = errors.New("anthropic: no text in response")
)

const (
	defaultModel       = "claude-3-5-haiku-latest"
	defaultMaxTokens   = 1024
	defaultTemperature = 0.1
)

// MessagesAPI is the subset of the SDK used by Client, so tests can substitute it.
type MessagesAPI interface {
	New(ctx context.Context, params anthropicsdk.MessageNewParams, opts ...option.RequestOption) (*anthropicsdk.Message, error)
}

// Client sends prompts to the Anthropic Messages API.
type Client struct {
	messages    MessagesAPI
	model       string
	maxTokens   int64
	temperature float64
	baseURL     string
	httpClient  *http.Client
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithModel sets the model. Empty keeps the default.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) ClientOption {
	return func(c *Client) {
		c.temperature = t
	}
}

// WithMaxTokens caps the response length.
func WithMaxTokens(n int64) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithMessagesAPI replaces the SDK messages service (tests).
func WithMessagesAPI(api MessagesAPI) ClientOption {
	return func(c *Client) {
		c.messages = api
	}
}

// NewClient creates an Anthropic client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	client := &Client{
		model:       defaultModel,
		maxTokens:   defaultMaxTokens,
		temperature: defaultTemperature,
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.messages == nil {
		sdkOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
		if client.baseURL != "" {
			sdkOpts = append(sdkOpts, option.WithBaseURL(client.baseURL))
		}

		if client.httpClient != nil {
			sdkOpts = append(sdkOpts, option.WithHTTPClient(client.httpClient))
		}

		sdk := anthropicsdk.NewClient(sdkOpts...)
		client.messages = &sdk.Messages
	}

	return client
}

// Complete sends prompt as one user message and returns the concatenated text blocks.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyInput
	}

	msg, err := c.messages.New(ctx, anthropicsdk.MessageNewParams{
		Model:       anthropicsdk.Model(c.model),
		MaxTokens:   c.maxTokens,
		Temperature: anthropicsdk.Float(c.temperature),
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	// Check Type directly so hand-built messages in tests behave like API responses.
	var sb strings.Builder

	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	if sb.Len() == 0 {
		return "", ErrNoTextInResponse
	}

	return sb.String(), nil
}
